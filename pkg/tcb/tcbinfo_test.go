package tcb

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasxyz/teekit-qvl/pkg/sgxext"
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

func samplePlatform() sgxext.PlatformTCB {
	var p sgxext.PlatformTCB
	for i := range p.SGXTCBSVN {
		p.SGXTCBSVN[i] = 5
	}
	p.PCESVN = 10
	return p
}

func buildTCBInfoJSON(t *testing.T, levels []TCBLevel, nextUpdate time.Time) []byte {
	t.Helper()
	doc := TCBInfoDocument{
		TCBInfo: TCBInfoBody{
			FMSPC:       "00906ED50000",
			TCBType:     0,
			IssueDate:   nextUpdate.Add(-30 * 24 * time.Hour),
			NextUpdate:  nextUpdate,
			TCBLevels:   levels,
		},
		Signature: "deadbeef",
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func componentsAt(svn uint8) []TCBComponent {
	out := make([]TCBComponent, 16)
	for i := range out {
		out[i] = TCBComponent{SVN: svn}
	}
	return out
}

func TestEvaluateTCBMatchesHighestSatisfiedLevel(t *testing.T) {
	levels := []TCBLevel{
		{TCB: TCBLevelSelector{SGXComponents: componentsAt(6), PCESVN: 10}, TCBStatus: StatusOutOfDate},
		{TCB: TCBLevelSelector{SGXComponents: componentsAt(5), PCESVN: 10}, TCBStatus: StatusUpToDate},
		{TCB: TCBLevelSelector{SGXComponents: componentsAt(0), PCESVN: 0}, TCBStatus: StatusUpToDate},
	}
	raw := buildTCBInfoJSON(t, levels, time.Now().Add(30*24*time.Hour))
	doc, err := ParseTCBInfo(raw)
	require.NoError(t, err)

	status, err := EvaluateTCB(samplePlatform(), doc, EvaluateOptions{VerificationTime: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, StatusUpToDate, status)
}

func TestEvaluateTCBNoMatch(t *testing.T) {
	levels := []TCBLevel{
		{TCB: TCBLevelSelector{SGXComponents: componentsAt(99), PCESVN: 99}, TCBStatus: StatusUpToDate},
	}
	raw := buildTCBInfoJSON(t, levels, time.Now().Add(30*24*time.Hour))
	doc, err := ParseTCBInfo(raw)
	require.NoError(t, err)

	_, err = EvaluateTCB(samplePlatform(), doc, EvaluateOptions{VerificationTime: time.Now()})
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.NoMatchingTcbLevel))
}

func TestEvaluateTCBEnforceUpToDateFailsOnLowerStatus(t *testing.T) {
	levels := []TCBLevel{
		{TCB: TCBLevelSelector{SGXComponents: componentsAt(5), PCESVN: 10}, TCBStatus: StatusConfigurationNeeded},
	}
	raw := buildTCBInfoJSON(t, levels, time.Now().Add(30*24*time.Hour))
	doc, err := ParseTCBInfo(raw)
	require.NoError(t, err)

	_, err = EvaluateTCB(samplePlatform(), doc, EvaluateOptions{VerificationTime: time.Now(), EnforceUpToDate: true})
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.TcbOutOfDate))
}

func TestEvaluateTCBStaleFailsWhenFreshnessEnforced(t *testing.T) {
	levels := []TCBLevel{
		{TCB: TCBLevelSelector{SGXComponents: componentsAt(5), PCESVN: 10}, TCBStatus: StatusUpToDate},
	}
	raw := buildTCBInfoJSON(t, levels, time.Now().Add(-24*time.Hour))
	doc, err := ParseTCBInfo(raw)
	require.NoError(t, err)

	_, err = EvaluateTCB(samplePlatform(), doc, EvaluateOptions{VerificationTime: time.Now(), EnforceFreshness: true})
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.StaleTcbInfo))
}

func TestEvaluateTCBWithTDXComponents(t *testing.T) {
	platform := samplePlatform()
	platform.HasTDXTCB = true
	for i := range platform.TDXTCBSVN {
		platform.TDXTCBSVN[i] = 3
	}

	levels := []TCBLevel{
		{TCB: TCBLevelSelector{SGXComponents: componentsAt(5), PCESVN: 10, TDXComponents: componentsAt(3)}, TCBStatus: StatusUpToDate},
	}
	raw := buildTCBInfoJSON(t, levels, time.Now().Add(30*24*time.Hour))
	doc, err := ParseTCBInfo(raw)
	require.NoError(t, err)

	status, err := EvaluateTCB(platform, doc, EvaluateOptions{VerificationTime: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, StatusUpToDate, status)
}

func TestEvaluateTCBMissingTDXComponentsFailsMatch(t *testing.T) {
	levels := []TCBLevel{
		{TCB: TCBLevelSelector{SGXComponents: componentsAt(5), PCESVN: 10, TDXComponents: componentsAt(3)}, TCBStatus: StatusUpToDate},
	}
	raw := buildTCBInfoJSON(t, levels, time.Now().Add(30*24*time.Hour))
	doc, err := ParseTCBInfo(raw)
	require.NoError(t, err)

	_, err = EvaluateTCB(samplePlatform(), doc, EvaluateOptions{VerificationTime: time.Now()})
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.NoMatchingTcbLevel))
}
