package verify

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"

	"github.com/canvasxyz/teekit-qvl/pkg/quote"
	"github.com/canvasxyz/teekit-qvl/pkg/sigverify"
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// VerifySevSnp implements the AMD SEV-SNP orchestration contract
// (spec.md §4.9): parse the fixed-size report, enforce the caller's
// platform policy, verify the report's own signature against the VCEK,
// and chain VCEK <- ASK <- ARK against the caller-supplied pinned roots.
//
// Unlike the SGX/TDX PCK bag-of-certs, the SEV-SNP certificate order is
// fixed (VCEK, ASK, ARK) so the chain is linked directly rather than
// through certchain.Build.
func VerifySevSnp(reportBytes, vcekPEM, askPEM, arkPEM []byte, cfg Config) (*VerifiedSevSnp, error) {
	report, _, err := quote.ParseSevSnpReport(reportBytes)
	if err != nil {
		return nil, err
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}

	policy := cfg.SevSnpPolicy
	if uint8(report.Vmpl) > policy.MaxVMPL {
		return nil, verror.New(verror.SevSnpPolicyViolation, "verify-sevsnp", "guest VMPL exceeds the configured maximum")
	}
	if report.IsDebug() && !policy.AllowDebug {
		return nil, verror.New(verror.SevSnpPolicyViolation, "verify-sevsnp", "debug policy bit set but debug guests are not allowed")
	}

	vcek, err := parseSinglePEMCert(vcekPEM)
	if err != nil {
		return nil, err
	}
	ask, err := parseSinglePEMCert(askPEM)
	if err != nil {
		return nil, err
	}
	ark, err := parseSinglePEMCert(arkPEM)
	if err != nil {
		return nil, err
	}

	if err := ask.CheckSignatureFrom(ark); err != nil {
		return nil, verror.Wrap(verror.InvalidSignature, "verify-sevsnp", err)
	}
	if err := vcek.CheckSignatureFrom(ask); err != nil {
		return nil, verror.Wrap(verror.InvalidSignature, "verify-sevsnp", err)
	}

	now := cfg.verificationTime()
	for _, c := range []*x509.Certificate{vcek, ask, ark} {
		if now.Before(c.NotBefore) || now.After(c.NotAfter) {
			return nil, verror.New(verror.Expired, "verify-sevsnp", "a certificate in the VCEK chain is outside its validity window")
		}
	}

	if err := cfg.pinnedRoots().Validate(ark); err != nil {
		return nil, err
	}

	vcekPub, ok := vcek.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, verror.New(verror.InvalidChain, "verify-sevsnp", "VCEK public key is not ECDSA")
	}

	signedRegion, err := quote.SevSnpSignedRegion(reportBytes)
	if err != nil {
		return nil, err
	}
	if err := sigverify.VerifyP384LittleEndian(vcekPub, signedRegion, report.Signature[:], sigverify.SHA384); err != nil {
		return nil, err
	}

	result := &VerifiedSevSnp{
		Report:              report,
		ObservedReportData:  report.ReportData,
		ObservedMeasurement: report.Measurement,
	}

	if want, ok := cfg.ExpectedMeasurements["measurement"]; ok {
		if err := compareHex(report.Measurement[:], want); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func parseSinglePEMCert(raw []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, verror.New(verror.MalformedQuote, "parse-pem-cert", "no PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, verror.Wrap(verror.MalformedQuote, "parse-pem-cert", err)
	}
	return cert, nil
}
