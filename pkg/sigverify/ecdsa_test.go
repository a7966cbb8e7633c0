package sigverify

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/asn1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

func signP1363(t *testing.T, priv *ecdsa.PrivateKey, digest []byte, coordWidth int) []byte {
	t.Helper()
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	require.NoError(t, err)
	out := make([]byte, 2*coordWidth)
	r.FillBytes(out[:coordWidth])
	s.FillBytes(out[coordWidth:])
	return out
}

func signDER(t *testing.T, priv *ecdsa.PrivateKey, digest []byte) []byte {
	t.Helper()
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	require.NoError(t, err)
	encoded, err := asn1.Marshal(derSignature{R: r, S: s})
	require.NoError(t, err)
	return encoded
}

func TestVerifyP256P1363(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	msg := []byte("a signed quote region")
	digest := SHA256.digest(msg)
	sig := signP1363(t, priv, digest, 32)

	assert.NoError(t, Verify(&priv.PublicKey, msg, sig, SHA256, P1363))
}

func TestVerifyP256DER(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	msg := []byte("a signed quote region")
	digest := SHA256.digest(msg)
	sig := signDER(t, priv, digest)

	assert.NoError(t, Verify(&priv.PublicKey, msg, sig, SHA256, DER))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	msg := []byte("original")
	sig := signP1363(t, priv, SHA256.digest(msg), 32)

	err = Verify(&priv.PublicKey, []byte("tampered"), sig, SHA256, P1363)
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.InvalidSignature))
}

func TestVerifyWithFallbackFindsCorrectCombo(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	msg := []byte("qe report body")
	digest := SHA384.digest(msg)
	sig := signP1363(t, priv, digest, 32)

	combo, err := VerifyWithFallback(&priv.PublicKey, msg, sig, QEReportFallbackOrder)
	require.NoError(t, err)
	assert.Equal(t, SHA384, combo.Hash)
	assert.Equal(t, P1363, combo.Enc)
}

func TestVerifyWithFallbackExhaustsAndFails(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	msg := []byte("qe report body")
	garbage := make([]byte, 64)

	_, err = VerifyWithFallback(&priv.PublicKey, msg, garbage, QEReportFallbackOrder)
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.InvalidSignature))
}

func TestVerifyP1363WrongLength(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	err = Verify(&priv.PublicKey, []byte("msg"), make([]byte, 63), SHA256, P1363)
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.InvalidSignature))
}

func TestImportP256RawPublicKeyRoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	var raw [64]byte
	priv.PublicKey.X.FillBytes(raw[:32])
	priv.PublicKey.Y.FillBytes(raw[32:])

	pub := ImportP256RawPublicKey(raw)
	assert.Equal(t, 0, pub.X.Cmp(priv.PublicKey.X))
	assert.Equal(t, 0, pub.Y.Cmp(priv.PublicKey.Y))

	msg := []byte("reconstructed key verifies")
	sig := signP1363(t, priv, SHA256.digest(msg), 32)
	assert.NoError(t, Verify(pub, msg, sig, SHA256, P1363))
}

func TestVerifyP384LittleEndian(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	msg := []byte("sev-snp signed region")
	digest := SHA384.digest(msg)
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest)
	require.NoError(t, err)

	field := make([]byte, 512)
	rBig := make([]byte, 48)
	sBig := make([]byte, 48)
	r.FillBytes(rBig)
	s.FillBytes(sBig)
	copy(field[:48], reverseBytes(rBig))
	copy(field[72:120], reverseBytes(sBig))

	assert.NoError(t, VerifyP384LittleEndian(&priv.PublicKey, msg, field, SHA384))
}

func TestVerifyP384LittleEndianRejectsShortField(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	err = VerifyP384LittleEndian(&priv.PublicKey, []byte("msg"), make([]byte, 90), SHA384)
	require.Error(t, err)
	assert.True(t, verror.Is(err, verror.InvalidSignature))
}

func TestReverseBytesRoundTrip(t *testing.T) {
	in := []byte{1, 2, 3, 4, 5}
	assert.Equal(t, []byte{5, 4, 3, 2, 1}, reverseBytes(in))
	assert.Equal(t, in, reverseBytes(reverseBytes(in)))
}

func TestQuoteSignatureComboIsSha256OnlyP1363(t *testing.T) {
	assert.Equal(t, SHA256, QuoteSignatureCombo.Hash)
	assert.Equal(t, P1363, QuoteSignatureCombo.Enc)
}
