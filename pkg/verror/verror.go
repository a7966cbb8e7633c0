// Package verror defines the flat, stable error taxonomy returned by every
// verification step in the quote-verification library. Kinds never change
// meaning across versions; callers branch on Kind, not on message text.
package verror

import "fmt"

// Kind is one of the fixed set of verification failure categories.
type Kind string

const (
	// MalformedQuote: binary structure violates the format spec.
	MalformedQuote Kind = "MalformedQuote"
	// UnsupportedVersion: quote version / tee_type / key_type combination
	// is outside the supported matrix.
	UnsupportedVersion Kind = "UnsupportedVersion"
	// MissingCertData: inline PCK chain absent and no fallback supplied.
	MissingCertData Kind = "MissingCertData"
	// BrokenChain: chain cannot be assembled from supplied certificates.
	BrokenChain Kind = "BrokenChain"
	// AmbiguousChain: more than one candidate leaf certificate exists.
	AmbiguousChain Kind = "AmbiguousChain"
	// InvalidChain: BasicConstraints / KeyUsage / pathLen violated.
	InvalidChain Kind = "InvalidChain"
	// InvalidSignature: any ECDSA signature check failed.
	InvalidSignature Kind = "InvalidSignature"
	// Expired: at least one certificate is outside its validity window.
	Expired Kind = "Expired"
	// Revoked: a chain certificate's serial appears in a supplied CRL.
	Revoked Kind = "Revoked"
	// UnpinnedRoot: terminal root certificate's fingerprint is not pinned.
	UnpinnedRoot Kind = "UnpinnedRoot"
	// BindingMismatch: report_data does not equal the expected value for
	// the configured binding mode.
	BindingMismatch Kind = "BindingMismatch"
	// QeBindingMismatch: QE report_data does not equal
	// SHA-256(att_pubkey || qe_auth_data).
	QeBindingMismatch Kind = "QeBindingMismatch"
	// MeasurementMismatch: caller-supplied expected measurement differs.
	MeasurementMismatch Kind = "MeasurementMismatch"
	// MissingPlatformTcb: the Intel SGX extension could not be found or
	// decoded in the PCK leaf certificate.
	MissingPlatformTcb Kind = "MissingPlatformTcb"
	// NoMatchingTcbLevel: no entry in TCB Info satisfies platform SVNs.
	NoMatchingTcbLevel Kind = "NoMatchingTcbLevel"
	// StaleTcbInfo: TCB Info is past its next_update and freshness is
	// enforced.
	StaleTcbInfo Kind = "StaleTcbInfo"
	// TcbOutOfDate: matched level status is not UpToDate and enforcement
	// is active.
	TcbOutOfDate Kind = "TcbOutOfDate"
	// QeIdentityMismatch: QE identity fields differ from the document.
	QeIdentityMismatch Kind = "QeIdentityMismatch"
	// QeRevoked: the matched QE identity level has status Revoked.
	QeRevoked Kind = "QeRevoked"
	// SevSnpPolicyViolation: debug enabled, VMPL too high, or other
	// SEV-SNP policy failure.
	SevSnpPolicyViolation Kind = "SevSnpPolicyViolation"
)

// Error is the concrete error type every exported verification function
// under pkg/ returns on failure. It carries the failing sub-step as context but never
// echoes attacker-derived bytes unmodified.
type Error struct {
	Kind Kind
	Step string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at %s: %v", e.Kind, e.Step, e.Err)
	}
	return fmt.Sprintf("%s at %s", e.Kind, e.Step)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a plain message (wrapped as an error for Unwrap
// consumers that still want errors.New-like text).
func New(kind Kind, step, msg string) *Error {
	return &Error{Kind: kind, Step: step, Err: errString(msg)}
}

// Wrap attaches a Kind and failing step to an underlying cause.
func Wrap(kind Kind, step string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Step: step, Err: err}
}

// Is reports whether err is a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var ve *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			ve = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ve != nil && ve.Kind == kind
}

type errString string

func (e errString) Error() string { return string(e) }
