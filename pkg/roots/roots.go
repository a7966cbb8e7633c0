// Package roots validates that a certificate chain's terminal certificate
// is one of the pinned hardware-vendor root CAs. Fingerprint equality
// (SHA-256 over the full DER encoding) is authoritative; subject-DN string
// comparison is a secondary sanity check only, never sufficient on its
// own.
package roots

import (
	"crypto/sha256"
	"crypto/x509"
	_ "embed"
	"encoding/pem"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

//go:embed embedded/intel_sgx_root_ca.pem
var intelSGXRootCAPEM []byte

// IntelSGXRootCAFingerprint is the SHA-256 fingerprint (lowercase hex, no
// separators) of the embedded Intel SGX Root CA, the root both the SGX and
// TDX PCK certificate chains terminate at. Computed once at init from the
// embedded PEM rather than hand-copied, so it can never drift from the
// certificate actually compiled in.
var IntelSGXRootCAFingerprint string

// IntelSGXRootCA is the parsed embedded Intel SGX Root CA certificate.
var IntelSGXRootCA *x509.Certificate

func init() {
	block, _ := pem.Decode(intelSGXRootCAPEM)
	if block == nil {
		panic("roots: embedded Intel SGX Root CA PEM failed to decode")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		panic("roots: embedded Intel SGX Root CA failed to parse: " + err.Error())
	}
	IntelSGXRootCA = cert
	IntelSGXRootCAFingerprint = Fingerprint(cert)
}

// Set is a pinned root trust store: a set of SHA-256 fingerprints (hex)
// accepted as terminal certificates, seeded with the embedded Intel SGX
// Root CA and extensible with caller-supplied AMD ARKs (Milan/Genoa/Turin)
// or other roots, since this library does not compile AMD root material
// in — see DESIGN.md for why.
type Set struct {
	fingerprints map[string]bool
}

// DefaultSet returns a Set pre-seeded with the embedded Intel SGX Root CA
// fingerprint.
func DefaultSet() *Set {
	s := &Set{fingerprints: map[string]bool{}}
	s.AddFingerprint(IntelSGXRootCAFingerprint)
	return s
}

// AddCertificate pins an additional root by its DER SHA-256 fingerprint.
func (s *Set) AddCertificate(cert *x509.Certificate) {
	s.AddFingerprint(Fingerprint(cert))
}

// AddFingerprint pins an additional root directly by its lowercase hex
// SHA-256 fingerprint, for callers supplying AMD ARK material without a
// parsed certificate at hand.
func (s *Set) AddFingerprint(fingerprint string) {
	s.fingerprints[fingerprint] = true
}

// Fingerprint computes the pinning fingerprint of a certificate: SHA-256
// over its full DER encoding, lowercase hex.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	const hextable = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}

// Validate checks that root's fingerprint is present in s, failing with
// UnpinnedRoot otherwise.
func (s *Set) Validate(root *x509.Certificate) error {
	if s.fingerprints[Fingerprint(root)] {
		return nil
	}
	return verror.New(verror.UnpinnedRoot, "roots-validate", "terminal certificate fingerprint is not in the pinned root set")
}
