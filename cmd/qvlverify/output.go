package main

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// earClaims models a minimal EAR-style (github.com/veraison/ear) appraisal
// token: the verified evidence's kind and disposition as JWT claims. This
// is an output-encoding convenience, not an attestation protocol step —
// the verification decision is already final before the token is minted.
type earClaims struct {
	jwt.RegisteredClaims
	Kind             string `json:"kind"`
	Verified         bool   `json:"verified"`
	TCBStatus        string `json:"tcb_status,omitempty"`
	QEIdentityStatus string `json:"qe_identity_status,omitempty"`
	Error            string `json:"error,omitempty"`
}

// renderOutput encodes a reportSummary in the requested format. "ear-jwt"
// requires a signing key (HMAC-SHA256, the key supplied via
// --jwt-signing-key); the other formats are key-less.
func renderOutput(format string, s reportSummary, jwtSigningKey []byte) (string, error) {
	switch format {
	case "", "json":
		raw, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return "", errors.Wrap(err, "encode json")
		}
		return string(raw), nil
	case "cbor":
		raw, err := cbor.Marshal(s)
		if err != nil {
			return "", errors.Wrap(err, "encode cbor")
		}
		return fmt.Sprintf("%x", raw), nil
	case "ear-jwt":
		if len(jwtSigningKey) == 0 {
			return "", errors.New("--format=ear-jwt requires --jwt-signing-key")
		}
		claims := earClaims{
			Kind:             s.Kind,
			Verified:         s.Verified,
			TCBStatus:        s.TCBStatus,
			QEIdentityStatus: s.QEIdentityStatus,
			Error:            s.Error,
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString(jwtSigningKey)
		if err != nil {
			return "", errors.Wrap(err, "sign ear-jwt")
		}
		return signed, nil
	default:
		return "", errors.Errorf("unknown output format %q", format)
	}
}
