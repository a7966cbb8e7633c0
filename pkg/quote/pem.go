package quote

import (
	"bytes"
	"encoding/pem"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// ExtractPEMCertificates implements the single PEM-scanning strategy
// spec.md §9 calls for: split on "-----BEGIN CERTIFICATE-----" /
// "-----END CERTIFICATE-----" markers, ignore everything before the first
// BEGIN marker (some vendors concatenate a PKCS#7 blob ahead of the PEM
// chain), and fail closed on any malformed block rather than trying a
// second heuristic.
func ExtractPEMCertificates(blob []byte) ([][]byte, error) {
	const marker = "-----BEGIN CERTIFICATE-----"
	idx := indexOf(blob, []byte(marker))
	if idx < 0 {
		return nil, verror.New(verror.MissingCertData, "extract-pem", "no PEM certificate markers found")
	}
	rest := blob[idx:]

	var out [][]byte
	for len(rest) > 0 {
		block, tail := pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			return nil, verror.New(verror.MalformedQuote, "extract-pem", "non-certificate PEM block in chain")
		}
		out = append(out, block.Bytes)
		rest = tail
	}
	if len(out) == 0 {
		return nil, verror.New(verror.MissingCertData, "extract-pem", "PEM markers present but no certificate decoded")
	}
	if bytes.Count(blob[idx:], []byte(marker)) != len(out) {
		return nil, verror.New(verror.MalformedQuote, "extract-pem", "malformed PEM certificate block in chain")
	}
	return out, nil
}

func indexOf(haystack, needle []byte) int {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
