// Package crl extracts revoked certificate serial numbers from raw
// DER-encoded X.509 CRLs using the module's minimal ASN.1 walker. It does
// not verify CRL signatures: callers are expected to have obtained CRLs
// over a trusted channel, or to validate them separately before calling
// this package.
package crl

import (
	"math/big"

	"github.com/canvasxyz/teekit-qvl/internal/derwalk"
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// RevokedSerials decodes a DER-encoded CertificateList and returns the set
// of revoked serial numbers as lowercase hex strings with leading zero
// bytes stripped, matching the normalization NormalizeSerial applies to
// certificates under test.
//
// Walks only: CertificateList -> TBSCertList -> revokedCertificates ->
// SEQUENCE OF SEQUENCE{serial INTEGER, ...}. The revokedCertificates list
// is identified structurally (the TBSCertList child SEQUENCE whose first
// nested element is itself a SEQUENCE starting with an INTEGER, i.e. a
// {serial INTEGER, revocationDate Time} entry) rather than by counting
// past the optional version/signature/issuer/thisUpdate/nextUpdate fields
// that precede it, since several of those are themselves optional and
// version-dependent.
func RevokedSerials(der []byte) (map[string]bool, error) {
	outer, rest, err := derwalk.ExpectTag(der, derwalk.TagSequence)
	if err != nil || len(rest) != 0 {
		return nil, verror.New(verror.MalformedQuote, "crl-parse", "CRL is not a single outer SEQUENCE")
	}

	tbsCertList, certListRest, err := derwalk.ReadTLV(outer.Content)
	if err != nil || tbsCertList.Tag != derwalk.TagSequence || !tbsCertList.Constructed {
		return nil, verror.New(verror.MalformedQuote, "crl-parse", "missing TBSCertList")
	}
	_ = certListRest // signatureAlgorithm + signatureValue follow; unused, we don't verify signatures

	fields, err := splitTLVs(tbsCertList.Content)
	if err != nil {
		return nil, verror.Wrap(verror.MalformedQuote, "crl-parse", err)
	}

	revoked := map[string]bool{}
	for _, f := range fields {
		if f.Tag != derwalk.TagSequence || !f.Constructed {
			continue
		}
		entries, err := splitTLVs(f.Content)
		if err != nil || len(entries) == 0 {
			continue
		}
		// revokedCertificates is a SEQUENCE OF SEQUENCE{serial INTEGER, ...};
		// distinguish it from sibling fields (version, signature, issuer,
		// thisUpdate, ...) by checking that its first entry is itself a
		// SEQUENCE beginning with an INTEGER.
		firstEntry := entries[0]
		if firstEntry.Tag != derwalk.TagSequence || !firstEntry.Constructed {
			continue
		}
		firstEntryHead, _, err := derwalk.ReadTLV(firstEntry.Content)
		if err != nil || firstEntryHead.Tag != derwalk.TagInteger {
			continue
		}
		for _, entry := range entries {
			if entry.Tag != derwalk.TagSequence || !entry.Constructed {
				continue
			}
			serial, _, err := derwalk.ReadTLV(entry.Content)
			if err != nil || serial.Tag != derwalk.TagInteger {
				continue
			}
			revoked[derwalk.UnsignedIntegerHex(serial.Content)] = true
		}
	}

	return revoked, nil
}

// splitTLVs repeatedly reads TLVs from buf until it is exhausted,
// returning each in order.
func splitTLVs(buf []byte) ([]derwalk.TLV, error) {
	var out []derwalk.TLV
	for len(buf) > 0 {
		tlv, rest, err := derwalk.ReadTLV(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, tlv)
		buf = rest
	}
	return out, nil
}

// NormalizeSerial applies the same normalization CRL serials receive (strip
// leading zero bytes, lowercase hex) to a certificate's parsed serial
// number, so the two are comparable.
func NormalizeSerial(serial *big.Int) string {
	return derwalk.UnsignedIntegerHex(serial.Bytes())
}

// IsRevoked tests a single certificate serial against the union of
// multiple CRLs' revoked-serial sets.
func IsRevoked(serial *big.Int, revokedSets ...map[string]bool) bool {
	key := NormalizeSerial(serial)
	for _, set := range revokedSets {
		if set[key] {
			return true
		}
	}
	return false
}
