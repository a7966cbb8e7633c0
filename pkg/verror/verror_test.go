package verror

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWrapsPlainMessage(t *testing.T) {
	err := New(MalformedQuote, "parse header", "short buffer")
	assert.EqualError(t, err, "MalformedQuote at parse header: short buffer")
	assert.True(t, Is(err, MalformedQuote))
}

func TestWrapReturnsNilForNilCause(t *testing.T) {
	assert.Nil(t, Wrap(Expired, "validate chain", nil))
}

func TestWrapPreservesUnderlyingCauseViaUnwrap(t *testing.T) {
	cause := fmt.Errorf("x509: certificate has expired")
	err := Wrap(Expired, "validate chain", cause)
	assert.Same(t, cause, err.Unwrap())
	assert.True(t, Is(err, Expired))
	assert.False(t, Is(err, Revoked))
}

func TestIsUnwrapsThroughFmtErrorfWrapping(t *testing.T) {
	inner := New(UnpinnedRoot, "validate root", "fingerprint not in pinned set")
	outer := fmt.Errorf("verify TDX quote: %w", inner)
	assert.True(t, Is(outer, UnpinnedRoot))
	assert.False(t, Is(outer, Revoked))
}

func TestIsReturnsFalseForNonVerrorError(t *testing.T) {
	assert.False(t, Is(fmt.Errorf("plain error"), MalformedQuote))
	assert.False(t, Is(nil, MalformedQuote))
}
