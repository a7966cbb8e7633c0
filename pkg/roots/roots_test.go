package roots

import (
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasxyz/teekit-qvl/internal/testfixture"
	"github.com/canvasxyz/teekit-qvl/pkg/quote"
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

func TestEmbeddedIntelSGXRootCAParses(t *testing.T) {
	require.NotNil(t, IntelSGXRootCA)
	assert.Equal(t, "Intel SGX Root CA", IntelSGXRootCA.Subject.CommonName)
	assert.Len(t, IntelSGXRootCAFingerprint, 64)
}

func TestDefaultSetAcceptsEmbeddedRoot(t *testing.T) {
	s := DefaultSet()
	require.NoError(t, s.Validate(IntelSGXRootCA))
}

func TestDefaultSetRejectsUnpinnedRoot(t *testing.T) {
	raw := testfixture.TDXv4Sample()
	q, err := quote.ParseQuote(raw)
	require.NoError(t, err)

	qe, ok := q.Signature.CertificationData.Data.(quote.QEReportCertificationData)
	require.True(t, ok)
	pemChain, err := qe.CertificationData.PCKChainPEM()
	require.NoError(t, err)
	certs, err := quote.ExtractPEMCertificates(pemChain)
	require.NoError(t, err)
	require.Len(t, certs, 3)

	// The PCK leaf is certainly not a pinned root.
	leaf, err := x509.ParseCertificate(certs[0])
	require.NoError(t, err)

	s := &Set{fingerprints: map[string]bool{}}
	err = s.Validate(leaf)
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.UnpinnedRoot))
}

func TestAddFingerprintAllowsCallerSuppliedAMDRoot(t *testing.T) {
	s := &Set{fingerprints: map[string]bool{}}
	fakeARKFingerprint := "00112233445566778899aabbccddeeff00112233445566778899aabbccddee"
	s.AddFingerprint(fakeARKFingerprint)
	assert.True(t, s.fingerprints[fakeARKFingerprint])
}

func TestFingerprintIsStableAcrossCalls(t *testing.T) {
	a := Fingerprint(IntelSGXRootCA)
	b := Fingerprint(IntelSGXRootCA)
	assert.Equal(t, a, b)
	assert.Equal(t, IntelSGXRootCAFingerprint, a)
}
