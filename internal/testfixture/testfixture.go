// Package testfixture holds sample attestation evidence shared by this
// module's test suites, so every package's tests decode the same known-good
// quote rather than each carrying its own copy of the base64 blob.
package testfixture

import (
	_ "embed"
	"encoding/base64"
	"strings"
)

//go:embed testdata/tdx_v4_sample.b64
var tdxV4SampleB64 string

// TDXv4Sample is a real TDX v4 (DCAP 1.0) quote generated on an Intel TDX
// development platform, embedding the full PCK certificate chain.
func TDXv4Sample() []byte {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(tdxV4SampleB64))
	if err != nil {
		panic(err)
	}
	return raw
}
