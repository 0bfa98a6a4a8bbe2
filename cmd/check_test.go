package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rampart.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRunCheckValidConfig(t *testing.T) {
	path := writeConfig(t, `
interval = "10m"

gate {
  service  = "openvpn-client@office.service"
  max_wait = "60s"
}

bounce {
  service = "fail2ban.service"
}
`)
	assert.NoError(t, RunCheck(path))
}

func TestRunCheckInvalidDuration(t *testing.T) {
	path := writeConfig(t, `interval = "soon"`)
	err := RunCheck(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration invalid")
}

func TestRunCheckGateWithoutService(t *testing.T) {
	path := writeConfig(t, `
gate {
  service = ""
}
`)
	assert.Error(t, RunCheck(path))
}

func TestRunCheckMissingFile(t *testing.T) {
	assert.Error(t, RunCheck(filepath.Join(t.TempDir(), "absent.hcl")))
}
