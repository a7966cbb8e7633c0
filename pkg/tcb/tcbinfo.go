// Package tcb evaluates caller-supplied Intel PCS TCB Info and QE Identity
// documents against a platform's parsed TCB component SVNs and a quote's
// QE report, classifying the matched level's status.
package tcb

import (
	"encoding/json"
	"time"

	"github.com/canvasxyz/teekit-qvl/pkg/sgxext"
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// Status is one of the TCB level status strings Intel PCS documents use.
type Status string

const (
	StatusUpToDate                         Status = "UpToDate"
	StatusSWHardeningNeeded                Status = "SWHardeningNeeded"
	StatusConfigurationNeeded              Status = "ConfigurationNeeded"
	StatusConfigurationAndSWHardeningNeeded Status = "ConfigurationAndSWHardeningNeeded"
	StatusOutOfDate                        Status = "OutOfDate"
	StatusOutOfDateConfigurationNeeded     Status = "OutOfDateConfigurationNeeded"
	StatusRevoked                           Status = "Revoked"
)

// TCBComponent is one {svn} entry in an sgxtcbcomponents / tdxtcbcomponents
// array.
type TCBComponent struct {
	SVN uint8 `json:"svn"`
}

// TCBLevelSelector is the component-SVN requirement portion of a TCB
// level.
type TCBLevelSelector struct {
	SGXComponents []TCBComponent `json:"sgxtcbcomponents"`
	PCESVN        uint16         `json:"pcesvn"`
	TDXComponents []TCBComponent `json:"tdxtcbcomponents,omitempty"`
}

// TCBLevel is one entry in a TCB Info document's tcbLevels array.
type TCBLevel struct {
	TCB       TCBLevelSelector `json:"tcb"`
	TCBDate   string           `json:"tcbDate"`
	TCBStatus Status           `json:"tcbStatus"`
}

// TCBInfoBody is the signed payload of a TCB Info document (the part
// Intel's PCS wraps in a `{tcbInfo: ..., signature: ...}` envelope).
type TCBInfoBody struct {
	FMSPC                string     `json:"fmspc"`
	TCBType              int        `json:"tcbType"`
	TCBEvaluationDataNum int        `json:"tcbEvaluationDataNumber"`
	IssueDate            time.Time  `json:"issueDate"`
	NextUpdate           time.Time  `json:"nextUpdate"`
	TCBLevels            []TCBLevel `json:"tcbLevels"`
}

// TCBInfoDocument is the full Intel PCS envelope: the signed body plus its
// detached signature, as delivered verbatim by the PCS TCB Info endpoint.
type TCBInfoDocument struct {
	TCBInfo   TCBInfoBody `json:"tcbInfo"`
	Signature string      `json:"signature"`

	// rawTCBInfo holds the exact bytes of the "tcbInfo" object as they
	// appeared in the source document, since json.Marshal of the decoded
	// struct would not reliably reproduce the bytes the signature covers.
	rawTCBInfo json.RawMessage
}

// SignedBytes returns the exact bytes of the tcbInfo object the document's
// signature was computed over.
func (d *TCBInfoDocument) SignedBytes() []byte {
	return d.rawTCBInfo
}

// ParseTCBInfo decodes a raw Intel PCS TCB Info JSON document.
func ParseTCBInfo(raw []byte) (*TCBInfoDocument, error) {
	var doc TCBInfoDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, verror.Wrap(verror.MalformedQuote, "parse-tcb-info", err)
	}
	var envelope struct {
		TCBInfo json.RawMessage `json:"tcbInfo"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, verror.Wrap(verror.MalformedQuote, "parse-tcb-info", err)
	}
	doc.rawTCBInfo = envelope.TCBInfo
	return &doc, nil
}

// EvaluateOptions configures EvaluateTCB's enforcement behavior.
type EvaluateOptions struct {
	VerificationTime  time.Time
	EnforceUpToDate   bool
	EnforceFreshness  bool
}

// EvaluateTCB implements spec.md §4.6: walk tcbLevels in document order
// (highest TCB first) and return the first level whose component
// requirements are all satisfied by the platform's SVNs.
func EvaluateTCB(platform sgxext.PlatformTCB, doc *TCBInfoDocument, opts EvaluateOptions) (Status, error) {
	if opts.EnforceFreshness && opts.VerificationTime.After(doc.TCBInfo.NextUpdate) {
		return "", verror.New(verror.StaleTcbInfo, "evaluate-tcb", "TCB Info is past its next_update")
	}

	for _, level := range doc.TCBInfo.TCBLevels {
		if levelSatisfiedBy(level.TCB, platform) {
			if opts.EnforceUpToDate && level.TCBStatus != StatusUpToDate {
				return level.TCBStatus, verror.New(verror.TcbOutOfDate, "evaluate-tcb", "matched TCB level is not UpToDate")
			}
			return level.TCBStatus, nil
		}
	}
	return "", verror.New(verror.NoMatchingTcbLevel, "evaluate-tcb", "no TCB level satisfied by platform SVNs")
}

func levelSatisfiedBy(sel TCBLevelSelector, platform sgxext.PlatformTCB) bool {
	if len(sel.SGXComponents) > len(platform.SGXTCBSVN) {
		return false
	}
	for i, c := range sel.SGXComponents {
		if platform.SGXTCBSVN[i] < c.SVN {
			return false
		}
	}
	if platform.PCESVN < sel.PCESVN {
		return false
	}
	if len(sel.TDXComponents) > 0 {
		if !platform.HasTDXTCB {
			return false
		}
		for i, c := range sel.TDXComponents {
			if i >= len(platform.TDXTCBSVN) || platform.TDXTCBSVN[i] < c.SVN {
				return false
			}
		}
	}
	return true
}
