package main

import (
	"encoding/hex"

	"github.com/canvasxyz/teekit-qvl/pkg/roots"
	"github.com/canvasxyz/teekit-qvl/pkg/verify"
)

// reportSummary is the JSON/CBOR/JWT-claims-friendly projection of a
// verify.VerificationResult or verify.VerifiedSevSnp: every field is a
// plain string/bool so it serializes the same way regardless of the
// chosen --format.
type reportSummary struct {
	Kind                 string `json:"kind" cbor:"kind"`
	Verified             bool   `json:"verified" cbor:"verified"`
	ReportData           string `json:"report_data,omitempty" cbor:"report_data,omitempty"`
	MrEnclave            string `json:"mr_enclave,omitempty" cbor:"mr_enclave,omitempty"`
	MrTd                 string `json:"mr_td,omitempty" cbor:"mr_td,omitempty"`
	Measurement          string `json:"measurement,omitempty" cbor:"measurement,omitempty"`
	TCBStatus            string `json:"tcb_status,omitempty" cbor:"tcb_status,omitempty"`
	QEIdentityStatus     string `json:"qe_identity_status,omitempty" cbor:"qe_identity_status,omitempty"`
	ChainRootFingerprint string `json:"chain_root_fingerprint,omitempty" cbor:"chain_root_fingerprint,omitempty"`
	Error                string `json:"error,omitempty" cbor:"error,omitempty"`
}

func summarizeSGXOrTDX(kind string, result *verify.VerificationResult) reportSummary {
	s := reportSummary{
		Kind:             kind,
		Verified:         true,
		ReportData:       hex.EncodeToString(result.ObservedReportData[:]),
		TCBStatus:        string(result.TCBStatus),
		QEIdentityStatus: string(result.QEIdentityStatus),
	}
	if mrEnclave, ok := result.Quote.MrEnclave(); ok {
		s.MrEnclave = hex.EncodeToString(mrEnclave[:])
	}
	if mrTd, ok := result.Quote.MrTd(); ok {
		s.MrTd = hex.EncodeToString(mrTd[:])
	}
	if len(result.Chain) > 0 {
		s.ChainRootFingerprint = roots.Fingerprint(result.Chain.Root())
	}
	return s
}

func summarizeSevSnp(result *verify.VerifiedSevSnp) reportSummary {
	return reportSummary{
		Kind:        "sevsnp",
		Verified:    true,
		ReportData:  hex.EncodeToString(result.ObservedReportData[:]),
		Measurement: hex.EncodeToString(result.ObservedMeasurement[:]),
	}
}

func summarizeError(kind string, err error) reportSummary {
	return reportSummary{Kind: kind, Verified: false, Error: err.Error()}
}
