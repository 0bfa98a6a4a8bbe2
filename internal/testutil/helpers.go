// Package testutil holds shared test helpers.
package testutil

import (
	"os"
	"os/exec"
	"testing"
)

// RequireVM skips the test unless the RAMPART_VM_TEST environment
// variable is set. Tests touching real netfilter state (iptables-save,
// ipset, rule insertion) must only run in a disposable VM.
func RequireVM(t *testing.T) {
	t.Helper()
	if os.Getenv("RAMPART_VM_TEST") == "" {
		t.Skip("Skipping test: requires RAMPART_VM_TEST environment")
	}
}

// RequireBinary skips the test when the named binary is not on PATH.
func RequireBinary(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("Skipping test: %s not found", name)
	}
}
