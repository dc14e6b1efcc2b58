package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandExists(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "ctst", rootCmd.Use)
}

func TestRootCommandPersistentFlags(t *testing.T) {
	pFlags := rootCmd.PersistentFlags()

	fileFlag := pFlags.Lookup("file")
	assert.NotNil(t, fileFlag, "file flag should exist")
	assert.Equal(t, "f", fileFlag.Shorthand)

	stateFileFlag := pFlags.Lookup("state-file")
	assert.NotNil(t, stateFileFlag, "state-file flag should exist")

	offlineFlag := pFlags.Lookup("offline")
	assert.NotNil(t, offlineFlag, "offline flag should exist")
	assert.Equal(t, "false", offlineFlag.DefValue)

	quietFlag := pFlags.Lookup("quiet")
	assert.NotNil(t, quietFlag, "quiet flag should exist")
	assert.Equal(t, "q", quietFlag.Shorthand)

	verboseFlag := pFlags.Lookup("verbose")
	assert.NotNil(t, verboseFlag, "verbose flag should exist")
	assert.Equal(t, "v", verboseFlag.Shorthand)
}

func TestRunCommandFlags(t *testing.T) {
	flags := runCmd.Flags()

	detachFlag := flags.Lookup("detach")
	assert.NotNil(t, detachFlag, "detach flag should exist")
	assert.Equal(t, "d", detachFlag.Shorthand)
	assert.Equal(t, "false", detachFlag.DefValue)
}

func TestRunCommandMetadata(t *testing.T) {
	assert.Equal(t, "run", runCmd.Use)
	assert.NotEmpty(t, runCmd.Short)
	assert.NotEmpty(t, runCmd.Long)
	assert.NotNil(t, runCmd.RunE)
}

func TestPsCommandFlags(t *testing.T) {
	flags := psCmd.Flags()

	allFlag := flags.Lookup("all")
	assert.NotNil(t, allFlag, "all flag should exist")
	assert.Equal(t, "a", allFlag.Shorthand)

	tuiFlag := flags.Lookup("tui")
	assert.NotNil(t, tuiFlag, "tui flag should exist")
}

func TestStopCommandFlags(t *testing.T) {
	flags := stopCmd.Flags()

	forceFlag := flags.Lookup("force")
	assert.NotNil(t, forceFlag, "force flag should exist")
	assert.Equal(t, "f", forceFlag.Shorthand)
}

func TestExecCommandMetadata(t *testing.T) {
	assert.Contains(t, execCmd.Use, "exec")
	assert.NotEmpty(t, execCmd.Short)
	assert.NotNil(t, execCmd.RunE)
}

func TestImagesCommandFlags(t *testing.T) {
	flags := imagesCmd.Flags()

	removeFlag := flags.Lookup("remove")
	assert.NotNil(t, removeFlag, "remove flag should exist")
}

func TestLogsCommandFlags(t *testing.T) {
	flags := logsCmd.Flags()

	followFlag := flags.Lookup("follow")
	assert.NotNil(t, followFlag, "follow flag should exist")
	assert.Equal(t, "f", followFlag.Shorthand)
}

func TestBuildCommandMetadata(t *testing.T) {
	assert.Equal(t, "build", buildCmd.Use)
	assert.NotNil(t, buildCmd.RunE)
}

func TestPlanCommandMetadata(t *testing.T) {
	assert.Equal(t, "plan", planCmd.Use)
	assert.NotNil(t, planCmd.RunE)
}
