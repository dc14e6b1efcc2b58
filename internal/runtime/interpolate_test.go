package runtime

import (
	"testing"

	"github.com/containust/containust/internal/ctstlang"
	"github.com/containust/containust/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, secretsDir string) *Engine {
	t.Helper()
	e, err := New(Options{
		Backend: newFakeBackend(),
		Images:  newTestStore(t),
		Index:   newTestIndex(t),
		Secrets: secrets.NewResolver(secretsDir),
	})
	require.NoError(t, err)
	return e
}

func TestResolveInterpolationsEnv(t *testing.T) {
	t.Setenv("CONTAINUST_TEST_VAR", "hello")
	e := newTestEngine(t, "")
	comp := &ctstlang.Composition{}

	out, err := e.resolveInterpolations("value=${env.CONTAINUST_TEST_VAR}", comp)
	require.NoError(t, err)
	assert.Equal(t, "value=hello", out)
}

func TestResolveInterpolationsSecret(t *testing.T) {
	t.Setenv("CONTAINUST_SECRET_DB_PASSWORD", "s3cr3t")
	e := newTestEngine(t, "")
	comp := &ctstlang.Composition{}

	out, err := e.resolveInterpolations("${secret.db_password}", comp)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", out)
}

func TestResolveInterpolationsComponentRef(t *testing.T) {
	e := newTestEngine(t, "")
	comp := &ctstlang.Composition{
		Components: []ctstlang.Component{
			{Name: "db", ImageURI: "file:///images/postgres", Ports: []int{5432}},
		},
	}

	host, err := e.resolveInterpolations("${db.host}", comp)
	require.NoError(t, err)
	assert.Equal(t, "db", host)

	port, err := e.resolveInterpolations("${db.port}", comp)
	require.NoError(t, err)
	assert.Equal(t, "5432", port)

	conn, err := e.resolveInterpolations("${db.connection_string}", comp)
	require.NoError(t, err)
	assert.Equal(t, "postgres://db:5432", conn)
}

func TestResolveInterpolationsUndefinedComponent(t *testing.T) {
	e := newTestEngine(t, "")
	comp := &ctstlang.Composition{}

	_, err := e.resolveInterpolations("${ghost.host}", comp)
	assert.Error(t, err)
}

func TestResolveInterpolationsPortMissing(t *testing.T) {
	e := newTestEngine(t, "")
	comp := &ctstlang.Composition{
		Components: []ctstlang.Component{{Name: "web", ImageURI: "file:///images/app"}},
	}

	_, err := e.resolveInterpolations("${web.port}", comp)
	assert.Error(t, err)
}

func TestResolveInterpolationsEmptyStringIsNoop(t *testing.T) {
	e := newTestEngine(t, "")
	out, err := e.resolveInterpolations("", &ctstlang.Composition{})
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
