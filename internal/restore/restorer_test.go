package restore

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/rampart/internal/logging"
	"grimm.is/rampart/internal/netfilter"
	"grimm.is/rampart/internal/snapshot"
)

func testLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelDebug, Output: buf})
}

func seededStore(t *testing.T, v4, v6 string) *snapshot.Store {
	t.Helper()
	store := snapshot.NewStore(t.TempDir())
	if v4 != "" {
		require.NoError(t, store.Write(netfilter.FamilyV4, []byte(v4)))
	}
	if v6 != "" {
		require.NoError(t, store.Write(netfilter.FamilyV6, []byte(v6)))
	}
	return store
}

func TestRestoreBothFamilies(t *testing.T) {
	store := seededStore(t, "*filter\nCOMMIT\n", "*filter6\nCOMMIT\n")

	runner := new(netfilter.MockCommandRunner)
	runner.On("RunInput", "*filter\nCOMMIT\n", "iptables-restore").Return(nil)
	runner.On("RunInput", "*filter6\nCOMMIT\n", "ip6tables-restore").Return(nil)

	var buf bytes.Buffer
	r := New(store, runner, false, testLogger(&buf))
	out := r.Restore(context.Background())

	assert.True(t, out.Clean())
	require.Len(t, out.Families, 2)
	assert.Equal(t, netfilter.FamilyV4, out.Families[0].Family)
	assert.Equal(t, netfilter.FamilyV6, out.Families[1].Family)
	runner.AssertExpectations(t)
}

func TestRestoreIdempotent(t *testing.T) {
	store := seededStore(t, "*filter\nCOMMIT\n", "*filter6\nCOMMIT\n")

	runner := new(netfilter.MockCommandRunner)
	runner.On("RunInput", "*filter\nCOMMIT\n", "iptables-restore").Return(nil).Twice()
	runner.On("RunInput", "*filter6\nCOMMIT\n", "ip6tables-restore").Return(nil).Twice()

	var buf bytes.Buffer
	r := New(store, runner, false, testLogger(&buf))

	first := r.Restore(context.Background())
	second := r.Restore(context.Background())

	assert.True(t, first.Clean())
	assert.True(t, second.Clean())
	assert.Empty(t, second.FailedFamilies())
	runner.AssertExpectations(t)
}

func TestPartialFailureForwardProgress(t *testing.T) {
	// v4 snapshot file missing, v6 present: v4 fails, v6 still restored.
	store := seededStore(t, "", "*filter6\nCOMMIT\n")

	runner := new(netfilter.MockCommandRunner)
	runner.On("RunInput", "*filter6\nCOMMIT\n", "ip6tables-restore").Return(nil)

	var buf bytes.Buffer
	r := New(store, runner, false, testLogger(&buf))
	out := r.Restore(context.Background())

	failed := out.FailedFamilies()
	require.Len(t, failed, 1)
	assert.Equal(t, netfilter.FamilyV4, failed[0].Family)
	assert.Error(t, failed[0].Err)
	assert.NoError(t, out.Families[1].Err)
	runner.AssertExpectations(t)
}

func TestSetsRestoredBeforeRules(t *testing.T) {
	store := seededStore(t, "*filter\nCOMMIT\n", "*filter6\nCOMMIT\n")
	require.NoError(t, store.WriteSets([]byte("create allowlist hash:ip\n")))

	runner := new(netfilter.MockCommandRunner)
	runner.On("RunInput", "create allowlist hash:ip\n", "ipset", "restore", "-exist").Return(nil).Once()
	runner.On("RunInput", "*filter\nCOMMIT\n", "iptables-restore").Return(nil).Once()
	runner.On("RunInput", "*filter6\nCOMMIT\n", "ip6tables-restore").Return(nil).Once()

	var buf bytes.Buffer
	r := New(store, runner, true, testLogger(&buf))
	out := r.Restore(context.Background())

	assert.True(t, out.Clean())
	assert.False(t, out.SetsSkipped)
	// Set restore is the first call recorded by the mock.
	require.NotEmpty(t, runner.Calls)
	assert.Equal(t, "ipset", runner.Calls[0].Arguments[1])
	runner.AssertExpectations(t)
}

func TestMissingSetSnapshotSkipsNotFails(t *testing.T) {
	store := seededStore(t, "*filter\nCOMMIT\n", "*filter6\nCOMMIT\n")

	runner := new(netfilter.MockCommandRunner)
	runner.On("RunInput", "*filter\nCOMMIT\n", "iptables-restore").Return(nil)
	runner.On("RunInput", "*filter6\nCOMMIT\n", "ip6tables-restore").Return(nil)

	var buf bytes.Buffer
	r := New(store, runner, true, testLogger(&buf))
	out := r.Restore(context.Background())

	assert.True(t, out.SetsSkipped)
	assert.NoError(t, out.SetsErr)
	assert.True(t, out.Clean())
	assert.Contains(t, buf.String(), "skipping set restore")
	runner.AssertExpectations(t)
}

func TestSetRestoreFailureBlocksRules(t *testing.T) {
	store := seededStore(t, "*filter\nCOMMIT\n", "*filter6\nCOMMIT\n")
	require.NoError(t, store.WriteSets([]byte("garbage\n")))

	runner := new(netfilter.MockCommandRunner)
	runner.On("RunInput", "garbage\n", "ipset", "restore", "-exist").Return(errors.New("syntax error"))

	var buf bytes.Buffer
	r := New(store, runner, true, testLogger(&buf))
	out := r.Restore(context.Background())

	assert.Error(t, out.SetsErr)
	assert.Empty(t, out.Families)
	assert.False(t, out.Clean())
	runner.AssertNotCalled(t, "RunInput", "*filter\nCOMMIT\n", "iptables-restore")
}
