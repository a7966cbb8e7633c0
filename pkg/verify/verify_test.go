package verify

import (
	"crypto/x509"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasxyz/teekit-qvl/internal/testfixture"
	"github.com/canvasxyz/teekit-qvl/pkg/quote"
	"github.com/canvasxyz/teekit-qvl/pkg/roots"
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// der/integerTLV/buildCRLWithSerial assemble a minimal CertificateList DER
// blob, mirroring pkg/crl's own test helper, so this package's tests can
// exercise CRL-driven revocation without depending on pkg/crl internals.
func der(tag byte, constructed bool, content []byte) []byte {
	t := tag
	if constructed {
		t |= 0x20
	}
	out := []byte{t, byte(len(content))}
	return append(out, content...)
}

func integerTLV(n *big.Int) []byte {
	v := n.Bytes()
	if len(v) == 0 {
		v = []byte{0}
	}
	if v[0]&0x80 != 0 {
		v = append([]byte{0x00}, v...)
	}
	return der(0x02, false, v)
}

func buildCRLForTest(t *testing.T, serial *big.Int) []byte {
	t.Helper()
	version := integerTLV(big.NewInt(1))
	algOID := der(0x06, false, []byte{0x2a, 0x86, 0x48, 0xce, 0x3d, 0x04, 0x03, 0x02})
	signatureAlg := der(0x10, true, algOID)
	rdn := der(0x10, true, append(der(0x06, false, []byte{0x55, 0x04, 0x03}), der(0x0c, false, []byte("Test"))...))
	issuerSet := der(0x11, true, rdn)
	issuer := der(0x10, true, issuerSet)
	thisUpdate := der(0x17, false, []byte("250101000000Z"))

	revDate := der(0x17, false, []byte("250101000000Z"))
	entry := append(integerTLV(serial), revDate...)
	revoked := der(0x10, true, der(0x10, true, entry))

	tbsContent := append([]byte{}, version...)
	tbsContent = append(tbsContent, signatureAlg...)
	tbsContent = append(tbsContent, issuer...)
	tbsContent = append(tbsContent, thisUpdate...)
	tbsContent = append(tbsContent, revoked...)
	tbsCertList := der(0x10, true, tbsContent)

	sigValue := der(0x03, false, []byte{0x00, 0xde, 0xad, 0xbe, 0xef})

	outerContent := append([]byte{}, tbsCertList...)
	outerContent = append(outerContent, signatureAlg...)
	outerContent = append(outerContent, sigValue...)
	return der(0x10, true, outerContent)
}

func fixtureVerificationTime() time.Time {
	return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
}

func TestVerifyTDXAcceptsRealFixture(t *testing.T) {
	raw := testfixture.TDXv4Sample()
	result, err := VerifyTDX(raw, Config{VerificationTime: fixtureVerificationTime()})
	require.NoError(t, err)
	assert.Equal(t, quote.KindTDXv4, result.Quote.Kind)
	assert.NotZero(t, result.Chain.Leaf())
	assert.NotZero(t, result.Chain.Root())
}

func TestVerifyTDXRejectsWrongEntryPoint(t *testing.T) {
	raw := testfixture.TDXv4Sample()
	_, err := VerifySGX(raw, Config{VerificationTime: fixtureVerificationTime()})
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.UnsupportedVersion))
}

func TestVerifyTDXFailsWhenVerificationTimeIsAfterRootExpiry(t *testing.T) {
	raw := testfixture.TDXv4Sample()
	_, err := VerifyTDX(raw, Config{VerificationTime: time.Date(2050, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.Expired))
}

func TestVerifyTDXFailsWithUnpinnedRoots(t *testing.T) {
	raw := testfixture.TDXv4Sample()
	_, err := VerifyTDX(raw, Config{VerificationTime: fixtureVerificationTime(), PinnedRoots: &roots.Set{}})
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.UnpinnedRoot))
}

func TestVerifyTDXFailsWhenLeafSerialIsRevoked(t *testing.T) {
	raw := testfixture.TDXv4Sample()

	q, err := quote.ParseQuote(raw)
	require.NoError(t, err)
	qe, ok := q.Signature.CertificationData.Data.(quote.QEReportCertificationData)
	require.True(t, ok)
	pem, err := qe.CertificationData.PCKChainPEM()
	require.NoError(t, err)
	certs, err := ExtractPEMCertificates(pem)
	require.NoError(t, err)
	require.NotEmpty(t, certs)

	leafCert, err := x509.ParseCertificate(certs[0])
	require.NoError(t, err)

	crlDER := buildCRLForTest(t, leafCert.SerialNumber)
	_, err = VerifyTDX(raw, Config{
		VerificationTime: fixtureVerificationTime(),
		CRLs:             [][]byte{crlDER},
	})
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.Revoked))
}

func TestVerifyTDXAppliesExpectedMeasurements(t *testing.T) {
	raw := testfixture.TDXv4Sample()
	_, err := VerifyTDX(raw, Config{
		VerificationTime:     fixtureVerificationTime(),
		ExpectedMeasurements: map[string]string{"mr_td": "00"},
	})
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.MeasurementMismatch))
}
