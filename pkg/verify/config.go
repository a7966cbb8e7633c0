// Package verify orchestrates the SGX, TDX, and SEV-SNP verification
// protocols, wiring together the binary decoder, certificate path
// builder, CRL evaluator, pinned root validator, Intel extension reader,
// ECDSA verifier, and TCB/QE-identity evaluators into the three public
// entry points callers actually use.
package verify

import (
	"time"

	"github.com/canvasxyz/teekit-qvl/pkg/roots"
	"github.com/canvasxyz/teekit-qvl/pkg/tcb"
)

// SevSnpPolicy bounds acceptable SEV-SNP platform configuration.
type SevSnpPolicy struct {
	AllowDebug bool
	MaxVMPL    uint8
}

// Config enumerates every option a verify entry point recognizes. All
// fields are optional; zero values fall back to the documented defaults.
type Config struct {
	// CRLs is the list of DER-encoded CRLs to check chain certificate
	// serials against. May be empty.
	CRLs [][]byte

	// PinnedRoots overrides the embedded root set. Default: the embedded
	// Intel SGX Root CA for SGX/TDX. SEV-SNP has no embedded root and
	// always requires a caller-supplied set (see DESIGN.md).
	PinnedRoots *roots.Set

	// VerificationTime is used for certificate validity-window and TCB
	// freshness checks. Zero value means "use time.Now()".
	VerificationTime time.Time

	// ExtraCertificates is a fallback PEM certificate bag used when the
	// quote's own PCK chain cert_data is empty or missing.
	ExtraCertificates []byte

	// TCBInfo, if set, is evaluated against the platform's SGX/TDX
	// component SVNs extracted from the PCK leaf.
	TCBInfo *tcb.TCBInfoDocument
	// QEIdentity, if set, is evaluated against the quote's QE report.
	QEIdentity *tcb.QEIdentityDocument

	// EnforceUpToDate fails verification if the matched TCB level is not
	// UpToDate.
	EnforceUpToDate bool
	// EnforceFreshness fails verification if TCBInfo is past its
	// next_update.
	EnforceFreshness bool

	// ExpectedMeasurements maps {"mr_td", "mr_enclave", "measurement"} to
	// expected hex-encoded values, checked against the parsed evidence
	// when present.
	ExpectedMeasurements map[string]string

	// SevSnpPolicy configures SEV-SNP-specific acceptance rules.
	SevSnpPolicy SevSnpPolicy
}

func (c Config) verificationTime() time.Time {
	if c.VerificationTime.IsZero() {
		return time.Now()
	}
	return c.VerificationTime
}

func (c Config) pinnedRoots() *roots.Set {
	if c.PinnedRoots != nil {
		return c.PinnedRoots
	}
	return roots.DefaultSet()
}
