package native

import (
	"os/user"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupUserNumericSpec(t *testing.T) {
	t.Parallel()

	uid, gid, err := lookupUser("1000")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, uid)
	assert.EqualValues(t, 1000, gid)
}

func TestLookupUserNameSpec(t *testing.T) {
	t.Parallel()

	current, err := user.Current()
	if err != nil {
		t.Skip("no current user available in this environment")
	}

	uid, gid, err := lookupUser(current.Username)
	require.NoError(t, err)

	wantUID, _ := strconv.ParseUint(current.Uid, 10, 32)
	wantGID, _ := strconv.ParseUint(current.Gid, 10, 32)
	assert.EqualValues(t, wantUID, uid)
	assert.EqualValues(t, wantGID, gid)
}

func TestLookupUserUnknownNameIsError(t *testing.T) {
	t.Parallel()

	_, _, err := lookupUser("containust-nonexistent-user-xyz")
	assert.Error(t, err)
}
