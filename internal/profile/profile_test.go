package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
pinned_root_fingerprints:
  - aabbccddeeff
crl_paths: []
enforce_up_to_date: true
enforce_freshness: false
expected_measurements:
  mr_td: "00"
sevsnp_policy:
  allow_debug: false
  max_vmpl: 2
`

func writeTempProfile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadParsesProfile(t *testing.T) {
	path := writeTempProfile(t, sampleYAML)
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"aabbccddeeff"}, p.PinnedRootFingerprints)
	assert.True(t, p.EnforceUpToDate)
	assert.False(t, p.EnforceFreshness)
	assert.EqualValues(t, 2, p.SevSnpPolicy.MaxVMPL)
}

func TestLoadWithEmptyPathReturnsZeroValueProfile(t *testing.T) {
	p, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, p.PinnedRootFingerprints)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/profile.yaml")
	require.Error(t, err)
}

func TestToConfigResolvesPinnedRootsAndPolicy(t *testing.T) {
	path := writeTempProfile(t, sampleYAML)
	p, err := Load(path)
	require.NoError(t, err)

	cfg, err := p.ToConfig(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, cfg.PinnedRoots)
	assert.True(t, cfg.EnforceUpToDate)
	assert.Equal(t, "00", cfg.ExpectedMeasurements["mr_td"])
	assert.EqualValues(t, 2, cfg.SevSnpPolicy.MaxVMPL)
}

func TestToConfigFailsOnMissingTCBInfoFile(t *testing.T) {
	p := &Profile{TCBInfoPath: "/nonexistent/tcbinfo.json"}
	_, err := p.ToConfig(time.Now())
	require.Error(t, err)
}
