package quote

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSevSnpReport(t *testing.T, version uint32, policy uint64) []byte {
	t.Helper()
	buf := make([]byte, SevSnpReportSize)
	binary.LittleEndian.PutUint32(buf[0x000:], version)
	binary.LittleEndian.PutUint64(buf[0x008:], policy)
	binary.LittleEndian.PutUint32(buf[0x030:], 0) // vmpl
	for i := 0; i < 48; i++ {
		buf[0x090+i] = byte(i + 1)
	}
	for i := 0; i < 64; i++ {
		buf[0x1a0+i] = byte(i)
	}
	return buf
}

func TestParseSevSnpReportBasic(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	buf := buildSevSnpReport(t, 2, 0)
	r, rest, err := ParseSevSnpReport(buf)
	require.NoError(err)
	assert.Empty(rest)
	assert.EqualValues(2, r.Version)
	assert.False(r.IsDebug())
	assert.EqualValues(1, r.Measurement[0])
	assert.EqualValues(0, r.ChipID[0])
}

func TestParseSevSnpReportDebugBit(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	buf := buildSevSnpReport(t, 5, SevSnpPolicyDebugBit)
	r, _, err := ParseSevSnpReport(buf)
	require.NoError(err)
	assert.True(r.IsDebug())
	assert.NoError(r.Validate())
}

func TestParseSevSnpReportUnsupportedVersion(t *testing.T) {
	buf := buildSevSnpReport(t, 99, 0)
	r, _, err := ParseSevSnpReport(buf)
	if err != nil {
		t.Fatalf("parse itself should not fail on version: %v", err)
	}
	if err := r.Validate(); err == nil {
		t.Fatal("expected UnsupportedVersion for report version 99")
	}
}

func TestParseSevSnpReportTruncated(t *testing.T) {
	buf := buildSevSnpReport(t, 2, 0)
	for _, n := range []int{0, 1, 100, SevSnpReportSize - 1} {
		_, _, err := ParseSevSnpReport(buf[:n])
		if err == nil {
			t.Fatalf("expected error for truncated report of length %d", n)
		}
	}
}

func TestSevSnpSignedRegion(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	buf := buildSevSnpReport(t, 2, 0)
	region, err := SevSnpSignedRegion(buf)
	require.NoError(err)
	assert.Len(region, SevSnpSignedRegionSize)
	assert.Equal(buf[:SevSnpSignedRegionSize], region)
}
