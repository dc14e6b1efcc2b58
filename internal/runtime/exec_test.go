package runtime

import (
	"bytes"
	"context"
	"testing"

	"github.com/containust/containust/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecPassesThroughToBackend(t *testing.T) {
	backend := newFakeBackend()
	backend.execCode = 0
	e := newTestEngine(t, "")
	e.backend = backend

	var stdout bytes.Buffer
	code, err := e.Exec(context.Background(), "c1", []string{"echo", "hi"}, nil, &stdout, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"c1:echo hi"}, backend.execCalls)
}

func TestExecMasksResolvedSecrets(t *testing.T) {
	backend := newFakeBackend()
	backend.execOutput = "DB_PASSWORD=hunter2\n"
	e := newTestEngine(t, "")
	e.backend = backend
	e.recordSecret(secrets.Secret{Name: "db_password", Value: []byte("hunter2")})

	var stdout bytes.Buffer
	_, err := e.Exec(context.Background(), "c1", []string{"env"}, nil, &stdout, nil)
	require.NoError(t, err)
	assert.Equal(t, "DB_PASSWORD=********\n", stdout.String())
}
