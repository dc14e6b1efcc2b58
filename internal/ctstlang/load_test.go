package ctstlang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEmptyComposition(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.ctst", "")

	comp, diags := Load(path, Options{})
	require.False(t, diags.HasErrors())
	assert.Empty(t, comp.Components)
	assert.Empty(t, comp.Connects)
	assert.Empty(t, comp.Exposes)
}

func TestLoadSelfConnectCycle(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.ctst", `
COMPONENT a { image = "file:///x/a" }
CONNECT a -> a
`)

	_, diags := Load(path, Options{})
	require.True(t, diags.HasErrors())
	assertHasCode(t, diags, "E004")
}

func TestLoadDuplicateComponentName(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.ctst", `
COMPONENT a { image = "file:///x/a" }
COMPONENT a { image = "file:///x/b" }
`)

	_, diags := Load(path, Options{})
	require.True(t, diags.HasErrors())
	assertHasCode(t, diags, "E003")
}

func TestLoadInvalidImageScheme(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.ctst", `
COMPONENT a { image = "ftp://x/a" }
`)

	_, diags := Load(path, Options{})
	require.True(t, diags.HasErrors())
	assertHasCode(t, diags, "E007")
}

func TestLoadOfflineForbidsRemoteImport(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.ctst", `IMPORT "https://example.com/lib.ctst"`)

	_, diags := Load(path, Options{Offline: true})
	require.True(t, diags.HasErrors())
	assertHasCode(t, diags, "E008")
}

func TestLoadMissingRequiredImage(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.ctst", `
COMPONENT a { command = ["/bin/true"] }
`)

	_, diags := Load(path, Options{})
	require.True(t, diags.HasErrors())
	assertHasCode(t, diags, "E005")
}

func TestLoadUndefinedConnectReference(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.ctst", `
COMPONENT a { image = "file:///x/a" }
CONNECT a -> ghost
`)

	_, diags := Load(path, Options{})
	require.True(t, diags.HasErrors())
	assertHasCode(t, diags, "E002")
}

func TestLoadLocalImportResolvesComponents(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.ctst", `
COMPONENT db { image = "file:///x/postgres" }
`)
	path := writeFile(t, dir, "app.ctst", `
IMPORT "base.ctst"
COMPONENT api { image = "file:///x/app" }
`)

	comp, diags := Load(path, Options{})
	require.False(t, diags.HasErrors())
	names := map[string]bool{}
	for _, c := range comp.Components {
		names[c.Name] = true
	}
	assert.True(t, names["db"])
	assert.True(t, names["api"])
}

func TestLoadAliasedImportIsUnreachableFromConnect(t *testing.T) {
	// Identifiers cannot contain dots, so an aliased import's components are
	// stored under "<alias>.<name>" but cannot be named by a local CONNECT or
	// EXPOSE statement in the importer, only directly in their own file.
	dir := t.TempDir()
	writeFile(t, dir, "base.ctst", `
COMPONENT db { image = "file:///x/postgres" }
`)
	path := writeFile(t, dir, "app.ctst", `
IMPORT "base.ctst" AS base
COMPONENT api { image = "file:///x/app" }
CONNECT api -> db
`)

	_, diags := Load(path, Options{})
	require.True(t, diags.HasErrors())
	assertHasCode(t, diags, "E002")
}

func TestLoadDuplicateImportAliasIsRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.ctst", `
COMPONENT one { image = "file:///x/one" }
`)
	writeFile(t, dir, "b.ctst", `
COMPONENT two { image = "file:///x/two" }
`)
	path := writeFile(t, dir, "app.ctst", `
IMPORT "a.ctst" AS db
IMPORT "b.ctst" AS db
COMPONENT api { image = "file:///x/app" }
`)

	_, diags := Load(path, Options{})
	require.True(t, diags.HasErrors())
	assertHasCode(t, diags, "E011")
}

func TestLoadCyclicImport(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ctst", `IMPORT "b.ctst"`)
	writeFile(t, dir, "b.ctst", `IMPORT "a.ctst"`)

	_, diags := Load(path, Options{})
	require.True(t, diags.HasErrors())
	assertHasCode(t, diags, "E004")
}

func TestLoadUnreachableComponentWarns(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.ctst", `
COMPONENT orphan { image = "file:///x/a" }
`)

	comp, diags := Load(path, Options{})
	require.False(t, diags.HasErrors())
	require.Len(t, comp.Components, 1)
	assertHasCode(t, diags, "E010")
}

func TestLoadTemplateInheritanceMergesEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.ctst", `
COMPONENT base {
	image = "file:///x/alpine"
	env = { LOG_LEVEL = "info" }
}
COMPONENT worker FROM base {
	env = { WORKER_ID = "1" }
}
`)

	comp, diags := Load(path, Options{})
	require.False(t, diags.HasErrors())
	worker, ok := comp.ByName("worker")
	require.True(t, ok)
	assert.Equal(t, "info", worker.Env["LOG_LEVEL"])
	assert.Equal(t, "1", worker.Env["WORKER_ID"])
	assert.Equal(t, "file:///x/alpine", worker.ImageURI)
}

func TestLoadInterpolationUndefinedComponent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.ctst", `
COMPONENT api {
	image = "file:///x/app"
	env = { DB_HOST = "${ghost.host}" }
}
`)

	_, diags := Load(path, Options{})
	require.True(t, diags.HasErrors())
	assertHasCode(t, diags, "E002")
}

func assertHasCode(t *testing.T, diags Diagnostics, code string) {
	t.Helper()
	for _, d := range diags {
		if d.Code == code {
			return
		}
	}
	t.Fatalf("expected a diagnostic with code %s, got %v", code, diags)
}
