package quote

import (
	"encoding/binary"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// QuoteSignature is the quote's signature_data section: the ECDSA
// signature over the signed region, the raw attestation public key, and
// the certification data that ultimately carries the QE report and PCK
// certificate chain.
type QuoteSignature struct {
	// Signature is the quote's own ECDSA-P256 signature, raw r||s, over
	// the signed region (header || body).
	Signature [64]byte
	// PublicKey is the attestation public key, raw x||y (64 bytes,
	// uncompressed, no 0x04 prefix).
	PublicKey [64]byte
	// CertificationData is, on the supported path, Type==6
	// (QEReportCertificationData).
	CertificationData CertificationData
}

// parseSignatureData decodes the variable-length signature_data blob
// (everything after the 4-byte signature_data_len field): sig(64) +
// pubkey(64) + CertificationData{...}.
func parseSignatureData(buf []byte) (QuoteSignature, error) {
	if len(buf) < 128 {
		return QuoteSignature{}, verror.New(verror.MalformedQuote, "parse-signature", "signature data shorter than sig+pubkey prefix")
	}
	var sig QuoteSignature
	copy(sig.Signature[:], buf[0:64])
	copy(sig.PublicKey[:], buf[64:128])

	cd, rest, err := parseCertificationData(buf[128:])
	if err != nil {
		return QuoteSignature{}, err
	}
	if len(rest) != 0 {
		return QuoteSignature{}, verror.New(verror.MalformedQuote, "parse-signature", "trailing bytes after certification data")
	}
	sig.CertificationData = cd
	return sig, nil
}

// readSignatureSection reads the 4-byte signature_data_len prefix and then
// the signature_data blob itself from the front of buf. It returns the
// parsed QuoteSignature; there is no remainder to return because the
// signature section is always the last part of a quote.
func readSignatureSection(buf []byte) (QuoteSignature, error) {
	if len(buf) < 4 {
		return QuoteSignature{}, verror.New(verror.MalformedQuote, "read-signature-section", "buffer shorter than signature_data_len field")
	}
	sigDataLen := binary.LittleEndian.Uint32(buf[0:4])
	body := buf[4:]
	if uint64(sigDataLen) != uint64(len(body)) {
		return QuoteSignature{}, verror.New(verror.MalformedQuote, "read-signature-section", "signature_data_len does not match remaining buffer")
	}
	return parseSignatureData(body)
}
