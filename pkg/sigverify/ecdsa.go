// Package sigverify verifies ECDSA signatures over arbitrary messages,
// tolerating the signature-encoding and hash-algorithm variance the
// attestation ecosystem has accumulated: raw IEEE P1363 r||s concatenation
// alongside ASN.1 DER SEQUENCE{r,s}, and (for QE report signatures) a
// deterministic hash-algorithm fallback order. A single crypto backend
// (crypto/ecdsa) is linked at build time; there is no provider
// abstraction and no global mutable state.
package sigverify

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/asn1"
	"hash"
	"math/big"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// HashAlg is one of the hash functions this package knows how to digest a
// message with before running ECDSA verification.
type HashAlg int

const (
	SHA256 HashAlg = iota
	SHA384
	SHA512
)

func (h HashAlg) new() hash.Hash {
	switch h {
	case SHA256:
		return sha256.New()
	case SHA384:
		return sha512.New384()
	case SHA512:
		return sha512.New()
	default:
		return sha256.New()
	}
}

func (h HashAlg) digest(msg []byte) []byte {
	d := h.new()
	d.Write(msg)
	return d.Sum(nil)
}

// Encoding is one of the two signature serializations this package
// accepts.
type Encoding int

const (
	// P1363 is raw big-endian r||s, each exactly curve-coordinate-size
	// bytes (32 for P-256, 48 for P-384).
	P1363 Encoding = iota
	// DER is an ASN.1 DER SEQUENCE{ INTEGER r, INTEGER s }.
	DER
)

// Combo names one (hash, encoding) pair the QE-report fallback loop tries,
// in the deterministic order spec.md §9 asks for so diagnostics can record
// which combination succeeded.
type Combo struct {
	Hash HashAlg
	Enc  Encoding
}

// QEReportFallbackOrder is the accepted hash/encoding combination order for
// QE report signatures (spec.md §4.3): SHA-256, then SHA-384, then
// SHA-512, trying both encodings at each hash before moving to the next.
var QEReportFallbackOrder = []Combo{
	{SHA256, P1363}, {SHA256, DER},
	{SHA384, P1363}, {SHA384, DER},
	{SHA512, P1363}, {SHA512, DER},
}

// QuoteSignatureCombo is the only combination accepted for the quote's own
// attestation signature: SHA-256 only (spec.md §4.3).
var QuoteSignatureCombo = Combo{SHA256, P1363}

type derSignature struct {
	R, S *big.Int
}

// decodeSignature parses sig under the requested encoding for a curve with
// the given coordinate byte width (32 for P-256, 48 for P-384).
func decodeSignature(sig []byte, enc Encoding, coordWidth int) (r, s *big.Int, err error) {
	switch enc {
	case P1363:
		if len(sig) != 2*coordWidth {
			return nil, nil, verror.New(verror.InvalidSignature, "decode-signature", "P1363 signature has unexpected length")
		}
		r = new(big.Int).SetBytes(sig[:coordWidth])
		s = new(big.Int).SetBytes(sig[coordWidth:])
		return r, s, nil
	case DER:
		var parsed derSignature
		rest, derErr := asn1.Unmarshal(sig, &parsed)
		if derErr != nil || len(rest) != 0 {
			return nil, nil, verror.New(verror.InvalidSignature, "decode-signature", "malformed DER signature")
		}
		return parsed.R, parsed.S, nil
	default:
		return nil, nil, verror.New(verror.InvalidSignature, "decode-signature", "unknown signature encoding")
	}
}

// Verify checks a single (hash, encoding) combination.
func Verify(pub *ecdsa.PublicKey, message []byte, sig []byte, hashAlg HashAlg, enc Encoding) error {
	coordWidth := (pub.Curve.Params().BitSize + 7) / 8
	r, s, err := decodeSignature(sig, enc, coordWidth)
	if err != nil {
		return err
	}
	digest := hashAlg.digest(message)
	if !ecdsa.Verify(pub, digest, r, s) {
		return verror.New(verror.InvalidSignature, "verify", "signature does not validate")
	}
	return nil
}

// VerifyWithFallback tries each combo in order and returns the first one
// that succeeds, for diagnostics. It fails with InvalidSignature only after
// every combo has been exhausted.
func VerifyWithFallback(pub *ecdsa.PublicKey, message []byte, sig []byte, combos []Combo) (Combo, error) {
	for _, c := range combos {
		if err := Verify(pub, message, sig, c.Hash, c.Enc); err == nil {
			return c, nil
		}
	}
	return Combo{}, verror.New(verror.InvalidSignature, "verify-with-fallback", "no accepted hash/encoding combination validated")
}

// ImportP256RawPublicKey reconstructs an uncompressed P-256 public key from
// 64 raw bytes (x||y, no leading 0x04 octet) — the wire form the
// attestation public key and PCK leaf keys are sometimes handed around in.
func ImportP256RawPublicKey(raw [64]byte) *ecdsa.PublicKey {
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(raw[:32]),
		Y:     new(big.Int).SetBytes(raw[32:64]),
	}
}

// VerifyP384LittleEndian verifies a P-384 signature whose r||s coordinates
// are each encoded little-endian within their own 72-byte field — the
// encoding AMD's SEV-SNP firmware uses for the report signature (r at byte
// offset 0, s at byte offset 72, each field zero-padded above the 48-byte
// P-384 coordinate width), the inverse of the big-endian convention
// everywhere else in this package. sig must be at least 2*fieldStride
// bytes; any trailing bytes (AMD pads the 512-byte signature field beyond
// the two 72-byte r/s slots) are ignored.
func VerifyP384LittleEndian(pub *ecdsa.PublicKey, message []byte, sig []byte, hashAlg HashAlg) error {
	const coordWidth = 48
	const fieldStride = 72
	if len(sig) < 2*fieldStride {
		return verror.New(verror.InvalidSignature, "verify-p384-le", "signature field too short")
	}
	r := reverseBytes(sig[:coordWidth])
	s := reverseBytes(sig[fieldStride : fieldStride+coordWidth])
	digest := hashAlg.digest(message)
	rInt := new(big.Int).SetBytes(r)
	sInt := new(big.Int).SetBytes(s)
	if !ecdsa.Verify(pub, digest, rInt, sInt) {
		return verror.New(verror.InvalidSignature, "verify-p384-le", "signature does not validate")
	}
	return nil
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
