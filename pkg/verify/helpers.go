package verify

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/hex"

	"github.com/canvasxyz/teekit-qvl/pkg/binding"
	"github.com/canvasxyz/teekit-qvl/pkg/quote"
	"github.com/canvasxyz/teekit-qvl/pkg/roots"
	"github.com/canvasxyz/teekit-qvl/pkg/sgxext"
	"github.com/canvasxyz/teekit-qvl/pkg/sigverify"
	"github.com/canvasxyz/teekit-qvl/pkg/tcb"
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// The functions below are the "helper functions exported for external
// collaborators" spec.md §6 calls out separately from the three main
// verification entry points: building blocks a caller can use directly
// when it needs a piece of the pipeline without the full orchestration
// (e.g. a relying party that wants to re-evaluate TCB status against a
// fresher TCB Info document without re-verifying signatures).

// ParseSGXQuote decodes an SGX DCAP quote without verifying it.
func ParseSGXQuote(buf []byte) (*quote.Quote, error) {
	return quote.ParseQuote(buf)
}

// ParseTDXQuote decodes a TDX v4 or v5 quote without verifying it.
func ParseTDXQuote(buf []byte) (*quote.Quote, error) {
	return quote.ParseQuote(buf)
}

// ParseSevSnpReport decodes a fixed-size AMD SEV-SNP attestation report
// without verifying it.
func ParseSevSnpReport(buf []byte) (quote.SevSnpReport, error) {
	r, _, err := quote.ParseSevSnpReport(buf)
	return r, err
}

// ExtractPEMCertificates splits a PEM certificate bag into DER-encoded
// certificates, in file order.
func ExtractPEMCertificates(blob []byte) ([][]byte, error) {
	return quote.ExtractPEMCertificates(blob)
}

// ComputeCertSHA256 returns the lowercase hex SHA-256 fingerprint of a
// certificate's DER encoding, as used by pkg/roots pinning.
func ComputeCertSHA256(cert *x509.Certificate) string {
	return roots.Fingerprint(cert)
}

// ExtractPlatformTCB reads the Intel SGX extension out of a PCK leaf
// certificate, for callers that want to re-run EvaluateTCB against a
// freshly fetched TCB Info document without repeating chain validation.
func ExtractPlatformTCB(pckLeaf *x509.Certificate) (sgxext.PlatformTCB, error) {
	return sgxext.Extract(pckLeaf)
}

// EvaluateTCB evaluates a platform's TCB component SVNs against a parsed
// TCB Info document.
func EvaluateTCB(platform sgxext.PlatformTCB, doc *tcb.TCBInfoDocument, opts tcb.EvaluateOptions) (tcb.Status, error) {
	return tcb.EvaluateTCB(platform, doc, opts)
}

// VerifyQEIdentity evaluates a QE report against a parsed QE Identity
// document.
func VerifyQEIdentity(qeReport quote.SGXReportBody, doc *tcb.QEIdentityDocument) (tcb.Status, error) {
	return tcb.EvaluateQEIdentity(qeReport, doc)
}

// VerifyTCBInfoSignature checks a TCB Info document's detached signature
// against an Intel SGX TCB Signing Certificate's public key. Intel PCS
// signs the tcbInfo object with ECDSA-P256/SHA-256 over its exact JSON
// bytes, hex-encoded as raw r||s (the same encoding the quote's own
// signature uses).
func VerifyTCBInfoSignature(doc *tcb.TCBInfoDocument, signatureHex string, signingCert *x509.Certificate) error {
	return verifyDetachedSignature(doc.SignedBytes(), signatureHex, signingCert)
}

// VerifyQEIdentitySignature checks a QE Identity document's detached
// signature the same way VerifyTCBInfoSignature does.
func VerifyQEIdentitySignature(doc *tcb.QEIdentityDocument, signatureHex string, signingCert *x509.Certificate) error {
	return verifyDetachedSignature(doc.SignedBytes(), signatureHex, signingCert)
}

func verifyDetachedSignature(signedBytes []byte, signatureHex string, signingCert *x509.Certificate) error {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return verror.Wrap(verror.InvalidSignature, "verify-detached-signature", err)
	}
	pub, ok := signingCert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return verror.New(verror.InvalidSignature, "verify-detached-signature", "signing certificate public key is not ECDSA")
	}
	return sigverify.Verify(pub, signedBytes, sig, sigverify.QuoteSignatureCombo.Hash, sigverify.QuoteSignatureCombo.Enc)
}

// GetAzureExpectedReportData computes the expected Azure vTPM report_data
// binding value, delegating to pkg/binding.
func GetAzureExpectedReportData(nonce, applicationPubKey []byte) [64]byte {
	return binding.ExpectedAzureUserData(nonce, applicationPubKey)
}
