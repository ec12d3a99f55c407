package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the command line against the given SQLite file and returns
// what it printed
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--driver", "sqlite", "--sqlite-path", dbPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	out, err := run(t, dbPath, args...)
	require.NoError(t, err)
	return out
}

func newTestDB(t *testing.T) string {
	return filepath.Join(t.TempDir(), "tree.db")
}

func TestAddAndShow(t *testing.T) {
	db := newTestDB(t)

	out := mustRun(t, db, "add", "electronics")
	assert.Equal(t, "1\telectronics\tlevel=0\tparent=-\tpath=\"\"\n", out)

	out = mustRun(t, db, "add", "phones", "--parent", "1")
	assert.Equal(t, "2\tphones\tlevel=1\tparent=1\tpath=\"|1|\"\n", out)

	mustRun(t, db, "add", "android", "-p", "2")

	out = mustRun(t, db, "show", "1")
	assert.Contains(t, out, "electronics (1)\n  phones (2)\n    android (3)\n")
}

func TestAddUnknownParent(t *testing.T) {
	db := newTestDB(t)
	_, err := run(t, db, "add", "orphan", "--parent", "99")
	assert.Error(t, err)
}

func TestRootsAndTree(t *testing.T) {
	db := newTestDB(t)

	out := mustRun(t, db, "roots")
	assert.Equal(t, "no categories\n", out)
	out = mustRun(t, db, "tree")
	assert.Equal(t, "no categories\n", out)

	mustRun(t, db, "add", "a")
	mustRun(t, db, "add", "b")
	mustRun(t, db, "add", "c", "--parent", "1")

	out = mustRun(t, db, "roots")
	assert.Contains(t, out, "1\ta\t")
	assert.Contains(t, out, "2\tb\t")
	assert.NotContains(t, out, "\tc\t")

	out = mustRun(t, db, "tree")
	assert.Equal(t, "a (1)\n  c (3)\nb (2)\n", out)
}

func TestMove(t *testing.T) {
	db := newTestDB(t)
	mustRun(t, db, "add", "a")
	mustRun(t, db, "add", "b")
	mustRun(t, db, "add", "c", "--parent", "1")
	mustRun(t, db, "add", "d", "--parent", "3")

	out := mustRun(t, db, "move", "3", "--parent", "2")
	assert.Contains(t, out, "3\tc\tlevel=1\tparent=2\tpath=\"|2|\"\n")
	assert.Contains(t, out, "rewrote 1 descendants\n")

	out = mustRun(t, db, "ancestors", "4")
	assert.Equal(t, "2\tb\tlevel=0\tparent=-\tpath=\"\"\n3\tc\tlevel=1\tparent=2\tpath=\"|2|\"\n", out)

	out = mustRun(t, db, "move", "3")
	assert.Contains(t, out, "3\tc\tlevel=0\tparent=-\tpath=\"\"\n")
}

func TestMoveRejectsCycle(t *testing.T) {
	db := newTestDB(t)
	mustRun(t, db, "add", "a")
	mustRun(t, db, "add", "b", "--parent", "1")

	_, err := run(t, db, "move", "1", "--parent", "2")
	assert.Error(t, err)
}

func TestDetachAndRemove(t *testing.T) {
	db := newTestDB(t)
	mustRun(t, db, "add", "a")
	mustRun(t, db, "add", "b", "--parent", "1")
	mustRun(t, db, "add", "c", "--parent", "2")

	out := mustRun(t, db, "detach", "2")
	assert.Equal(t, "2\tb\tlevel=0\tparent=-\tpath=\"\"\n", out)

	out = mustRun(t, db, "ancestors", "3")
	assert.Equal(t, "1\ta\tlevel=0\tparent=-\tpath=\"\"\n", out)

	out = mustRun(t, db, "remove", "1")
	assert.Equal(t, "removed 1\n", out)

	out = mustRun(t, db, "roots")
	assert.Equal(t, "2\tb\tlevel=0\tparent=-\tpath=\"\"\n3\tc\tlevel=0\tparent=-\tpath=\"\"\n", out)

	_, err := run(t, db, "show", "1")
	assert.Error(t, err)
}

func TestInvalidID(t *testing.T) {
	db := newTestDB(t)
	for _, arg := range []string{"abc", "0", "-3"} {
		_, err := run(t, db, "show", "--", arg)
		assert.Error(t, err, arg)
	}
}

func TestMigrate(t *testing.T) {
	db := newTestDB(t)

	out := mustRun(t, db, "migrate", "version")
	assert.Equal(t, "schema version 3\n", out)

	out = mustRun(t, db, "migrate", "down")
	assert.Equal(t, "schema version 2\n", out)

	out = mustRun(t, db, "migrate", "up")
	assert.Equal(t, "schema version 3\n", out)
}

func TestMigrateMemoryDriver(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--driver", "memory", "migrate", "version"})
	assert.Error(t, cmd.Execute())
}
