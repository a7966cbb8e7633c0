package verify

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/hex"

	"github.com/canvasxyz/teekit-qvl/pkg/binding"
	"github.com/canvasxyz/teekit-qvl/pkg/certchain"
	"github.com/canvasxyz/teekit-qvl/pkg/crl"
	"github.com/canvasxyz/teekit-qvl/pkg/quote"
	"github.com/canvasxyz/teekit-qvl/pkg/sgxext"
	"github.com/canvasxyz/teekit-qvl/pkg/sigverify"
	"github.com/canvasxyz/teekit-qvl/pkg/tcb"
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// VerifySGX implements the SGX orchestration contract (spec.md §4.9):
// parse, validate the PCK certificate path, verify the QE report and its
// binding to the attestation key, verify the quote's own signature, and
// optionally evaluate TCB/QE-identity.
func VerifySGX(quoteBytes []byte, cfg Config) (*VerificationResult, error) {
	return verifySGXOrTDX(quoteBytes, cfg, quote.KindSGXv3)
}

// VerifyTDX implements the same orchestration contract for TDX v4 and v5
// quotes.
func VerifyTDX(quoteBytes []byte, cfg Config) (*VerificationResult, error) {
	return verifySGXOrTDX(quoteBytes, cfg, -1)
}

func verifySGXOrTDX(quoteBytes []byte, cfg Config, wantKind quote.Kind) (*VerificationResult, error) {
	q, err := ParseSGXQuote(quoteBytes)
	if err != nil {
		return nil, err
	}

	if wantKind == quote.KindSGXv3 {
		if q.Kind != quote.KindSGXv3 {
			return nil, verror.New(verror.UnsupportedVersion, "verify-sgx", "quote is not an SGX quote")
		}
	} else {
		if q.Kind != quote.KindTDXv4 && q.Kind != quote.KindTDXv5 {
			return nil, verror.New(verror.UnsupportedVersion, "verify-tdx", "quote is not a TDX quote")
		}
	}

	qe, ok := q.Signature.CertificationData.Data.(quote.QEReportCertificationData)
	if !ok {
		return nil, verror.New(verror.MalformedQuote, "verify", "certification data did not decode to QE report certification data")
	}

	pemChain, err := qe.CertificationData.PCKChainPEM()
	if err != nil {
		if !verror.Is(err, verror.MissingCertData) || cfg.ExtraCertificates == nil {
			return nil, err
		}
		pemChain = cfg.ExtraCertificates
	} else if len(pemChain) == 0 && cfg.ExtraCertificates != nil {
		// cert_data was present but empty (inner Type==5 block with no PEM
		// bytes); fall back the same way as the MissingCertData case.
		pemChain = cfg.ExtraCertificates
	}

	certs, err := ExtractPEMCertificates(pemChain)
	if err != nil {
		return nil, err
	}
	parsedCerts := make([]*x509.Certificate, 0, len(certs))
	for _, der := range certs {
		c, perr := x509.ParseCertificate(der)
		if perr != nil {
			return nil, verror.Wrap(verror.MalformedQuote, "verify", perr)
		}
		parsedCerts = append(parsedCerts, c)
	}

	chain, err := VerifyPCKChain(parsedCerts, cfg)
	if err != nil {
		return nil, err
	}

	leaf := chain.Leaf()
	leafPub, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, verror.New(verror.InvalidChain, "verify", "PCK leaf public key is not ECDSA")
	}

	qeReportBytes := qe.EnclaveReport.Marshal()
	if _, err := sigverify.VerifyWithFallback(leafPub, qeReportBytes[:], qe.Signature[:], sigverify.QEReportFallbackOrder); err != nil {
		return nil, err
	}

	qeReportData := qe.EnclaveReport.ReportData
	if err := binding.VerifyQEBinding(qeReportData, q.Signature.PublicKey[:], qe.QEAuthData.Data); err != nil {
		return nil, err
	}

	attPub := sigverify.ImportP256RawPublicKey(q.Signature.PublicKey)
	if err := sigverify.Verify(attPub, q.SignedRegion, q.Signature.Signature[:], sigverify.QuoteSignatureCombo.Hash, sigverify.QuoteSignatureCombo.Enc); err != nil {
		return nil, err
	}

	result := &VerificationResult{
		Quote:              q,
		Chain:              chain,
		ObservedReportData: q.ReportData(),
	}

	if cfg.TCBInfo != nil {
		platform, err := sgxext.Extract(leaf)
		if err != nil {
			return nil, err
		}
		status, err := tcb.EvaluateTCB(platform, cfg.TCBInfo, tcb.EvaluateOptions{
			VerificationTime: cfg.verificationTime(),
			EnforceUpToDate:  cfg.EnforceUpToDate,
			EnforceFreshness: cfg.EnforceFreshness,
		})
		if err != nil {
			return nil, err
		}
		result.TCBStatus = status
	}

	if cfg.QEIdentity != nil {
		status, err := tcb.EvaluateQEIdentity(qe.EnclaveReport, cfg.QEIdentity)
		if err != nil {
			return nil, err
		}
		result.QEIdentityStatus = status
	}

	if err := checkExpectedMeasurements(q, cfg.ExpectedMeasurements); err != nil {
		return nil, err
	}

	return result, nil
}

func checkExpectedMeasurements(q *quote.Quote, expected map[string]string) error {
	if len(expected) == 0 {
		return nil
	}
	if mrEnclave, ok := q.MrEnclave(); ok {
		if want, ok := expected["mr_enclave"]; ok {
			if err := compareHex(mrEnclave[:], want); err != nil {
				return err
			}
		}
	}
	if mrTd, ok := q.MrTd(); ok {
		if want, ok := expected["mr_td"]; ok {
			if err := compareHex(mrTd[:], want); err != nil {
				return err
			}
		}
	}
	return nil
}

func compareHex(observed []byte, expectedHex string) error {
	want, err := hex.DecodeString(expectedHex)
	if err != nil {
		return verror.Wrap(verror.MeasurementMismatch, "check-expected-measurements", err)
	}
	if len(want) != len(observed) {
		return verror.New(verror.MeasurementMismatch, "check-expected-measurements", "expected measurement has the wrong length")
	}
	for i := range want {
		if want[i] != observed[i] {
			return verror.New(verror.MeasurementMismatch, "check-expected-measurements", "measurement does not match caller-supplied expected value")
		}
	}
	return nil
}

// VerifyPCKChain builds and validates a certificate chain from an
// unordered bag of certificates, checks every certificate's serial
// against the union of cfg.CRLs, and confirms the terminal root's
// fingerprint is pinned. Exported per spec.md §6's external helper list.
func VerifyPCKChain(certs []*x509.Certificate, cfg Config) (certchain.Chain, error) {
	chain, err := certchain.Build(certs)
	if err != nil {
		return nil, err
	}
	if err := certchain.Validate(chain, cfg.verificationTime()); err != nil {
		return nil, err
	}

	if len(cfg.CRLs) > 0 {
		revokedSets := make([]map[string]bool, 0, len(cfg.CRLs))
		for _, der := range cfg.CRLs {
			set, err := crl.RevokedSerials(der)
			if err != nil {
				return nil, err
			}
			revokedSets = append(revokedSets, set)
		}
		for _, c := range chain {
			if crl.IsRevoked(c.SerialNumber, revokedSets...) {
				return nil, verror.New(verror.Revoked, "verify-pck-chain", "a certificate in the chain is present in a supplied CRL")
			}
		}
	}

	if err := cfg.pinnedRoots().Validate(chain.Root()); err != nil {
		return nil, err
	}

	return chain, nil
}
