package tcb

import (
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasxyz/teekit-qvl/pkg/quote"
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

func buildQEReport(mrSigner [32]byte, isvProdID, isvSvn uint16) quote.SGXReportBody {
	var r quote.SGXReportBody
	r.MrSigner = mrSigner
	r.IsvProdID = isvProdID
	r.IsvSvn = isvSvn
	return r
}

func buildQEIdentityJSON(t *testing.T, mrSigner [32]byte, isvProdID uint16, levels []QEIdentityTCBLevel) []byte {
	t.Helper()
	doc := QEIdentityDocument{
		EnclaveIdentity: QEIdentityBody{
			ID:             "QE",
			Version:        2,
			IssueDate:      time.Now().Add(-24 * time.Hour),
			NextUpdate:     time.Now().Add(30 * 24 * time.Hour),
			MiscSelect:     "00000000",
			MiscSelectMask: "ffffffff",
			Attributes:     hex.EncodeToString(make([]byte, 16)),
			AttributesMask: hex.EncodeToString(repeat(0xff, 16)),
			MRSigner:       hex.EncodeToString(mrSigner[:]),
			ISVProdID:      isvProdID,
			TCBLevels:      levels,
		},
		Signature: "deadbeef",
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func tcbLevel(isvsvn uint16, status Status) QEIdentityTCBLevel {
	var l QEIdentityTCBLevel
	l.TCB.ISVSVN = isvsvn
	l.TCBStatus = status
	return l
}

func TestEvaluateQEIdentityMatchesHighestSatisfiedLevel(t *testing.T) {
	var mrSigner [32]byte
	for i := range mrSigner {
		mrSigner[i] = byte(i)
	}
	raw := buildQEIdentityJSON(t, mrSigner, 1, []QEIdentityTCBLevel{
		tcbLevel(5, StatusUpToDate),
		tcbLevel(3, StatusOutOfDate),
		tcbLevel(0, StatusUpToDate),
	})
	doc, err := ParseQEIdentity(raw)
	require.NoError(t, err)

	report := buildQEReport(mrSigner, 1, 4)
	status, err := EvaluateQEIdentity(report, doc)
	require.NoError(t, err)
	assert.Equal(t, StatusOutOfDate, status)
}

func TestEvaluateQEIdentityMismatchMrSigner(t *testing.T) {
	var mrSigner, wrongSigner [32]byte
	wrongSigner[0] = 0xff
	raw := buildQEIdentityJSON(t, mrSigner, 1, []QEIdentityTCBLevel{tcbLevel(0, StatusUpToDate)})
	doc, err := ParseQEIdentity(raw)
	require.NoError(t, err)

	report := buildQEReport(wrongSigner, 1, 5)
	_, err = EvaluateQEIdentity(report, doc)
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.QeIdentityMismatch))
}

func TestEvaluateQEIdentityMismatchIsvProdID(t *testing.T) {
	var mrSigner [32]byte
	raw := buildQEIdentityJSON(t, mrSigner, 1, []QEIdentityTCBLevel{tcbLevel(0, StatusUpToDate)})
	doc, err := ParseQEIdentity(raw)
	require.NoError(t, err)

	report := buildQEReport(mrSigner, 2, 5)
	_, err = EvaluateQEIdentity(report, doc)
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.QeIdentityMismatch))
}

func TestEvaluateQEIdentityNoMatchingLevel(t *testing.T) {
	var mrSigner [32]byte
	raw := buildQEIdentityJSON(t, mrSigner, 1, []QEIdentityTCBLevel{tcbLevel(10, StatusUpToDate)})
	doc, err := ParseQEIdentity(raw)
	require.NoError(t, err)

	report := buildQEReport(mrSigner, 1, 3)
	_, err = EvaluateQEIdentity(report, doc)
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.QeIdentityMismatch))
}

func TestEvaluateQEIdentityRevokedLevel(t *testing.T) {
	var mrSigner [32]byte
	raw := buildQEIdentityJSON(t, mrSigner, 1, []QEIdentityTCBLevel{tcbLevel(0, StatusRevoked)})
	doc, err := ParseQEIdentity(raw)
	require.NoError(t, err)

	report := buildQEReport(mrSigner, 1, 5)
	_, err = EvaluateQEIdentity(report, doc)
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.QeRevoked))
}

func TestEvaluateQEIdentityMiscSelectMaskedMismatch(t *testing.T) {
	var mrSigner [32]byte
	doc, err := ParseQEIdentity(buildQEIdentityJSON(t, mrSigner, 1, []QEIdentityTCBLevel{tcbLevel(0, StatusUpToDate)}))
	require.NoError(t, err)
	doc.EnclaveIdentity.MiscSelectMask = "0000ffff"
	doc.EnclaveIdentity.MiscSelect = "00001234"

	report := buildQEReport(mrSigner, 1, 5)
	report.MiscSelect = 0xffff9999 // little-endian bytes 2-3 are ff ff; the mask selects them and the document requires 12 34

	_, err = EvaluateQEIdentity(report, doc)
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.QeIdentityMismatch))
}
