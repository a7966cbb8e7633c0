// Package binding computes and checks the expected report_data value for
// the three ways an application public key gets committed into
// attestation evidence: direct TDX binding, Azure's vTPM-mediated TDX
// binding via runtime_data, and SEV-SNP's nonce||pubkey convention.
package binding

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// QEExpectedReportData computes the value the QE report's report_data
// first 32 bytes must equal: SHA-256(attestationPublicKey || qeAuthData).
// Ecosystem compatibility: some QE implementations prefix the public key
// with a 0x04 uncompressed-point marker before hashing, so both forms are
// accepted by VerifyQEBinding below.
func QEExpectedReportData(attestationPublicKey, qeAuthData []byte) [32]byte {
	h := sha256.New()
	h.Write(attestationPublicKey)
	h.Write(qeAuthData)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyQEBinding checks the QE report's report_data[0:32] against both
// accepted digest forms and fails with QeBindingMismatch if neither
// matches.
func VerifyQEBinding(qeReportData [64]byte, attestationPublicKey, qeAuthData []byte) error {
	plain := QEExpectedReportData(attestationPublicKey, qeAuthData)
	if bytes.Equal(qeReportData[:32], plain[:]) {
		return nil
	}
	prefixed := QEExpectedReportData(append([]byte{0x04}, attestationPublicKey...), qeAuthData)
	if bytes.Equal(qeReportData[:32], prefixed[:]) {
		return nil
	}
	return verror.New(verror.QeBindingMismatch, "verify-qe-binding", "qe_report.report_data does not match SHA-256(att_pubkey || qe_auth_data) in either accepted form")
}

// VerifyTDXDirect checks the TDX direct binding mode: reportData equals
// the caller-supplied expected value exactly. The caller is responsible
// for having hashed the application public key (or not) according to
// whatever convention their deployment uses; this package just compares
// bytes.
func VerifyTDXDirect(reportData [64]byte, expected []byte) error {
	if len(expected) > len(reportData) {
		return verror.New(verror.BindingMismatch, "verify-tdx-direct", "expected bound value is longer than report_data")
	}
	if !bytes.Equal(reportData[:len(expected)], expected) {
		return verror.New(verror.BindingMismatch, "verify-tdx-direct", "report_data does not equal the expected bound value")
	}
	for _, b := range reportData[len(expected):] {
		if b != 0 {
			return verror.New(verror.BindingMismatch, "verify-tdx-direct", "report_data has non-zero padding beyond the expected bound value")
		}
	}
	return nil
}

// AzureRuntimeData is the subset of Azure's vTPM runtime_data JSON
// document this package needs: a hex-encoded user-data field binding a
// nonce and application public key into the TD report.
type AzureRuntimeData struct {
	UserData string `json:"user-data"`
}

// VerifyAzureVTPMBinding implements spec.md's Azure vTPM TDX binding mode:
// report_data[0:32] must equal SHA-256(runtimeDataJSON), runtimeDataJSON
// must parse as an object with a user-data field, and that field
// (interpreted as hex) must equal SHA-512(nonce || applicationPubKey).
// report_data[32:64] must be all zero.
func VerifyAzureVTPMBinding(reportData [64]byte, runtimeDataJSON, nonce, applicationPubKey []byte) error {
	digest := sha256.Sum256(runtimeDataJSON)
	if !bytes.Equal(reportData[:32], digest[:]) {
		return verror.New(verror.BindingMismatch, "verify-azure-vtpm-binding", "report_data[0:32] does not equal SHA-256(runtime_data)")
	}
	for _, b := range reportData[32:64] {
		if b != 0 {
			return verror.New(verror.BindingMismatch, "verify-azure-vtpm-binding", "report_data[32:64] is not zero")
		}
	}

	var runtimeData AzureRuntimeData
	if err := json.Unmarshal(runtimeDataJSON, &runtimeData); err != nil {
		return verror.Wrap(verror.BindingMismatch, "verify-azure-vtpm-binding", err)
	}

	userData, err := hex.DecodeString(runtimeData.UserData)
	if err != nil {
		return verror.Wrap(verror.BindingMismatch, "verify-azure-vtpm-binding", err)
	}

	expected := sha512NoncePubkey(nonce, applicationPubKey)
	if !bytes.Equal(userData, expected[:]) {
		return verror.New(verror.BindingMismatch, "verify-azure-vtpm-binding", "runtime_data user-data does not equal SHA-512(nonce || pubkey)")
	}
	return nil
}

// ExpectedAzureUserData computes SHA-512(nonce || applicationPubKey), the
// value Azure's runtime_data.user-data field must hex-encode.
func ExpectedAzureUserData(nonce, applicationPubKey []byte) [64]byte {
	return sha512NoncePubkey(nonce, applicationPubKey)
}

// VerifySevSnpBinding implements SEV-SNP's binding mode: report_data must
// equal SHA-512(nonce || applicationPubKey) in full (all 64 bytes).
func VerifySevSnpBinding(reportData [64]byte, nonce, applicationPubKey []byte) error {
	expected := sha512NoncePubkey(nonce, applicationPubKey)
	if !bytes.Equal(reportData[:], expected[:]) {
		return verror.New(verror.BindingMismatch, "verify-sevsnp-binding", "report_data does not equal SHA-512(nonce || pubkey)")
	}
	return nil
}

func sha512NoncePubkey(nonce, applicationPubKey []byte) [64]byte {
	h := sha512.New()
	h.Write(nonce)
	h.Write(applicationPubKey)
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}
