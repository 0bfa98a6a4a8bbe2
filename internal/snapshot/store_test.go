package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/rampart/internal/netfilter"
)

func TestWriteAndLoad(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Write(netfilter.FamilyV4, []byte("*filter\nCOMMIT\n")))

	snap, err := store.Load(netfilter.FamilyV4)
	require.NoError(t, err)
	assert.Equal(t, netfilter.FamilyV4, snap.Family)
	assert.Equal(t, "*filter\nCOMMIT\n", string(snap.Data))
}

func TestWriteRotatesBackup(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	require.NoError(t, store.Write(netfilter.FamilyV4, []byte("first")))
	require.NoError(t, store.Write(netfilter.FamilyV4, []byte("second")))

	current, err := os.ReadFile(store.RulesPath(netfilter.FamilyV4))
	require.NoError(t, err)
	assert.Equal(t, "second", string(current))

	backup, err := os.ReadFile(store.RulesPath(netfilter.FamilyV4) + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "first", string(backup))
}

func TestFirstWriteHasNoBackup(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Write(netfilter.FamilyV6, []byte("only")))

	_, err := os.Stat(store.RulesPath(netfilter.FamilyV6) + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadMissingWrapsNotExist(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Load(netfilter.FamilyV4)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadUnknownFamily(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load(netfilter.Family("v9"))
	assert.Error(t, err)
}

func TestSetSnapshotLifecycle(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.WriteSets([]byte("create allowlist hash:ip\n")))
	require.NoError(t, store.WriteSets([]byte("create allowlist hash:ip\nadd allowlist 10.0.0.1\n")))

	data, err := store.LoadSets()
	require.NoError(t, err)
	assert.Contains(t, string(data), "10.0.0.1")

	backup, err := os.ReadFile(store.SetsPath() + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "create allowlist hash:ip\n", string(backup))
}

func TestRestrictivePermissions(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested"))
	require.NoError(t, store.Write(netfilter.FamilyV4, []byte("data")))

	info, err := os.Stat(store.RulesPath(netfilter.FamilyV4))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
