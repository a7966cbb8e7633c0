package tcb

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/canvasxyz/teekit-qvl/pkg/quote"
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// QEIdentityTCBLevel is one entry in a QE Identity document's tcbLevels
// array: unlike SGX/TDX platform TCB levels, these are keyed by a single
// isvsvn threshold rather than a component-SVN vector.
type QEIdentityTCBLevel struct {
	TCB struct {
		ISVSVN uint16 `json:"isvsvn"`
	} `json:"tcb"`
	TCBDate   string `json:"tcbDate"`
	TCBStatus Status `json:"tcbStatus"`
}

// QEIdentityBody is the signed payload of a QE Identity document.
type QEIdentityBody struct {
	ID                   string               `json:"id"`
	Version              int                  `json:"version"`
	IssueDate            time.Time            `json:"issueDate"`
	NextUpdate           time.Time            `json:"nextUpdate"`
	MiscSelect           string               `json:"miscselect"`
	MiscSelectMask       string               `json:"miscselectMask"`
	Attributes           string               `json:"attributes"`
	AttributesMask       string               `json:"attributesMask"`
	MRSigner             string               `json:"mrsigner"`
	ISVProdID            uint16               `json:"isvprodid"`
	TCBLevels            []QEIdentityTCBLevel `json:"tcbLevels"`
}

// QEIdentityDocument is the full Intel PCS envelope for QE Identity.
type QEIdentityDocument struct {
	EnclaveIdentity QEIdentityBody `json:"enclaveIdentity"`
	Signature       string         `json:"signature"`

	// rawEnclaveIdentity holds the exact bytes of the "enclaveIdentity"
	// object, for signature verification.
	rawEnclaveIdentity json.RawMessage
}

// SignedBytes returns the exact bytes of the enclaveIdentity object the
// document's signature was computed over.
func (d *QEIdentityDocument) SignedBytes() []byte {
	return d.rawEnclaveIdentity
}

// ParseQEIdentity decodes a raw Intel PCS QE Identity JSON document.
func ParseQEIdentity(raw []byte) (*QEIdentityDocument, error) {
	var doc QEIdentityDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, verror.Wrap(verror.MalformedQuote, "parse-qe-identity", err)
	}
	var envelope struct {
		EnclaveIdentity json.RawMessage `json:"enclaveIdentity"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, verror.Wrap(verror.MalformedQuote, "parse-qe-identity", err)
	}
	doc.rawEnclaveIdentity = envelope.EnclaveIdentity
	return &doc, nil
}

// EvaluateQEIdentity implements spec.md §4.7: verify masked equality of
// miscselect and attributes, exact equality of mrsigner and isvprodid,
// then return the status of the highest tcbLevels entry whose isvsvn is
// <= the QE report's isv_svn.
func EvaluateQEIdentity(qeReport quote.SGXReportBody, doc *QEIdentityDocument) (Status, error) {
	body := doc.EnclaveIdentity

	miscSelect, err := hex.DecodeString(body.MiscSelect)
	if err != nil || len(miscSelect) != 4 {
		return "", verror.New(verror.QeIdentityMismatch, "evaluate-qe-identity", "miscselect field malformed")
	}
	miscSelectMask, err := hex.DecodeString(body.MiscSelectMask)
	if err != nil || len(miscSelectMask) != 4 {
		return "", verror.New(verror.QeIdentityMismatch, "evaluate-qe-identity", "miscselectMask field malformed")
	}
	var reportMiscSelect [4]byte
	reportMiscSelect[0] = byte(qeReport.MiscSelect)
	reportMiscSelect[1] = byte(qeReport.MiscSelect >> 8)
	reportMiscSelect[2] = byte(qeReport.MiscSelect >> 16)
	reportMiscSelect[3] = byte(qeReport.MiscSelect >> 24)
	for i := 0; i < 4; i++ {
		if reportMiscSelect[i]&miscSelectMask[i] != miscSelect[i]&miscSelectMask[i] {
			return "", verror.New(verror.QeIdentityMismatch, "evaluate-qe-identity", "miscselect does not match under mask")
		}
	}

	attributes, err := hex.DecodeString(body.Attributes)
	if err != nil || len(attributes) != 16 {
		return "", verror.New(verror.QeIdentityMismatch, "evaluate-qe-identity", "attributes field malformed")
	}
	attributesMask, err := hex.DecodeString(body.AttributesMask)
	if err != nil || len(attributesMask) != 16 {
		return "", verror.New(verror.QeIdentityMismatch, "evaluate-qe-identity", "attributesMask field malformed")
	}
	for i := 0; i < 16; i++ {
		if qeReport.Attributes[i]&attributesMask[i] != attributes[i]&attributesMask[i] {
			return "", verror.New(verror.QeIdentityMismatch, "evaluate-qe-identity", "attributes does not match under mask")
		}
	}

	mrSigner, err := hex.DecodeString(body.MRSigner)
	if err != nil || len(mrSigner) != 32 {
		return "", verror.New(verror.QeIdentityMismatch, "evaluate-qe-identity", "mrsigner field malformed")
	}
	for i := 0; i < 32; i++ {
		if qeReport.MrSigner[i] != mrSigner[i] {
			return "", verror.New(verror.QeIdentityMismatch, "evaluate-qe-identity", "mrsigner does not match")
		}
	}

	if qeReport.IsvProdID != body.ISVProdID {
		return "", verror.New(verror.QeIdentityMismatch, "evaluate-qe-identity", "isvprodid does not match")
	}

	var best *QEIdentityTCBLevel
	for i := range body.TCBLevels {
		level := &body.TCBLevels[i]
		if level.TCB.ISVSVN > qeReport.IsvSvn {
			continue
		}
		if best == nil || level.TCB.ISVSVN > best.TCB.ISVSVN {
			best = level
		}
	}
	if best == nil {
		return "", verror.New(verror.QeIdentityMismatch, "evaluate-qe-identity", "no tcbLevels entry has isvsvn <= report isv_svn")
	}
	if best.TCBStatus == StatusRevoked {
		return best.TCBStatus, verror.New(verror.QeRevoked, "evaluate-qe-identity", "matched QE identity level is revoked")
	}
	return best.TCBStatus, nil
}
