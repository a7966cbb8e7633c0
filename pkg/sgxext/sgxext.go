// Package sgxext decodes the Intel SGX custom X.509 certificate extension
// (OID 1.2.840.113741.1.13.1) embedded in PCK leaf certificates. The
// extension is itself a small ASN.1 SEQUENCE OF SEQUENCE{OID, value} tree;
// this package walks it with the module's minimal DER walker rather than
// pulling a general-purpose ASN.1 library in for one narrow structure.
package sgxext

import (
	"crypto/x509"
	"encoding/asn1"

	"github.com/canvasxyz/teekit-qvl/internal/derwalk"
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// SGXExtensionOID is the root OID Intel assigns to this extension.
const SGXExtensionOID = "1.2.840.113741.1.13.1"

const (
	oidTCB   = SGXExtensionOID + ".2"
	oidPCEID = SGXExtensionOID + ".3"
	oidFMSPC = SGXExtensionOID + ".4"
)

// PlatformTCB is the decoded content of the extension: FMSPC, PCE-ID, and
// the platform's component SVNs — SGX always, TDX additionally on
// platforms that support it.
type PlatformTCB struct {
	FMSPC     [6]byte
	PCEID     [2]byte
	PCESVN    uint16
	CPUSVN    [16]byte
	SGXTCBSVN [16]uint8

	// HasTDXTCB reports whether this PCK cert's TCB container also encoded
	// tdxtcbcomponents (platforms without TDX support omit it).
	HasTDXTCB bool
	TDXTCBSVN [16]uint8
}

// Extract locates the extension by OID in cert's extension set, decodes
// its DER payload, and returns the platform's TCB fields. Returns
// MissingPlatformTcb if the extension is absent or malformed.
func Extract(cert *x509.Certificate) (PlatformTCB, error) {
	var raw []byte
	for _, ext := range cert.Extensions {
		if ext.Id.String() == SGXExtensionOID {
			raw = ext.Value
			break
		}
	}
	if raw == nil {
		return PlatformTCB{}, verror.New(verror.MissingPlatformTcb, "sgxext-extract", "PCK leaf certificate has no Intel SGX extension")
	}

	top, rest, err := derwalk.ExpectTag(raw, derwalk.TagSequence)
	if err != nil || len(rest) != 0 {
		return PlatformTCB{}, verror.New(verror.MissingPlatformTcb, "sgxext-extract", "extension value is not a single outer SEQUENCE")
	}

	items, err := splitTLVs(top.Content)
	if err != nil {
		return PlatformTCB{}, verror.Wrap(verror.MissingPlatformTcb, "sgxext-extract", err)
	}

	var out PlatformTCB
	var sawFMSPC, sawPCEID, sawTCB bool

	for _, item := range items {
		oid, value, ok := decodeOIDValuePair(item)
		if !ok {
			continue
		}
		switch oid {
		case oidFMSPC:
			if value.Tag != derwalk.TagOctetString || len(value.Content) != 6 {
				return PlatformTCB{}, verror.New(verror.MissingPlatformTcb, "sgxext-extract", "fmspc field malformed")
			}
			copy(out.FMSPC[:], value.Content)
			sawFMSPC = true
		case oidPCEID:
			if value.Tag != derwalk.TagOctetString || len(value.Content) != 2 {
				return PlatformTCB{}, verror.New(verror.MissingPlatformTcb, "sgxext-extract", "pceid field malformed")
			}
			copy(out.PCEID[:], value.Content)
			sawPCEID = true
		case oidTCB:
			if err := decodeTCBContainer(value, &out); err != nil {
				return PlatformTCB{}, err
			}
			sawTCB = true
		}
	}

	if !sawFMSPC || !sawPCEID || !sawTCB {
		return PlatformTCB{}, verror.New(verror.MissingPlatformTcb, "sgxext-extract", "extension missing one of fmspc/pceid/tcb")
	}

	return out, nil
}

// decodeTCBContainer walks the TCB sub-extension's SEQUENCE OF
// SEQUENCE{OID, value} entries: suffixes .1-.16 are sgxtcbcompNNsvn, .17
// is pcesvn, .18 is cpusvn, and (TDX-capable platforms only) .19-.34 are
// tdxtcbcompNNsvn.
func decodeTCBContainer(container derwalk.TLV, out *PlatformTCB) error {
	if container.Tag != derwalk.TagSequence {
		return verror.New(verror.MissingPlatformTcb, "sgxext-tcb", "tcb container is not a SEQUENCE")
	}
	entries, err := splitTLVs(container.Content)
	if err != nil {
		return verror.Wrap(verror.MissingPlatformTcb, "sgxext-tcb", err)
	}

	var sawPCESVN, sawCPUSVN bool
	for _, entry := range entries {
		oid, value, ok := decodeOIDValuePair(entry)
		if !ok {
			continue
		}
		suffix, isTCBChild := tcbChildSuffix(oid)
		if !isTCBChild {
			continue
		}
		switch {
		case suffix >= 1 && suffix <= 16:
			svn, err := smallUint(value)
			if err != nil {
				return verror.Wrap(verror.MissingPlatformTcb, "sgxext-tcb", err)
			}
			out.SGXTCBSVN[suffix-1] = svn
		case suffix == 17:
			n, err := smallUint16(value)
			if err != nil {
				return verror.Wrap(verror.MissingPlatformTcb, "sgxext-tcb", err)
			}
			out.PCESVN = n
			sawPCESVN = true
		case suffix == 18:
			if value.Tag != derwalk.TagOctetString || len(value.Content) != 16 {
				return verror.New(verror.MissingPlatformTcb, "sgxext-tcb", "cpusvn field malformed")
			}
			copy(out.CPUSVN[:], value.Content)
			sawCPUSVN = true
		case suffix >= 19 && suffix <= 34:
			svn, err := smallUint(value)
			if err != nil {
				return verror.Wrap(verror.MissingPlatformTcb, "sgxext-tcb", err)
			}
			out.TDXTCBSVN[suffix-19] = svn
			out.HasTDXTCB = true
		}
	}

	if !sawPCESVN || !sawCPUSVN {
		return verror.New(verror.MissingPlatformTcb, "sgxext-tcb", "tcb container missing pcesvn or cpusvn")
	}
	return nil
}

// tcbChildSuffix extracts the trailing arc of an OID rooted at oidTCB,
// e.g. oidTCB+".3" -> (3, true).
func tcbChildSuffix(oid string) (int, bool) {
	prefix := oidTCB + "."
	if len(oid) <= len(prefix) || oid[:len(prefix)] != prefix {
		return 0, false
	}
	n := 0
	for _, c := range oid[len(prefix):] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// decodeOIDValuePair reads a SEQUENCE{OID, value} TLV and returns the OID
// string and the value TLV.
func decodeOIDValuePair(seq derwalk.TLV) (oid string, value derwalk.TLV, ok bool) {
	if seq.Tag != derwalk.TagSequence {
		return "", derwalk.TLV{}, false
	}
	oidTLV, rest, err := derwalk.ReadTLV(seq.Content)
	if err != nil || oidTLV.Tag != derwalk.TagOID {
		return "", derwalk.TLV{}, false
	}
	oidStr, err := derwalk.OID(oidTLV.Content)
	if err != nil {
		return "", derwalk.TLV{}, false
	}
	valTLV, _, err := derwalk.ReadTLV(rest)
	if err != nil {
		return "", derwalk.TLV{}, false
	}
	return oidStr, valTLV, true
}

func smallUint(t derwalk.TLV) (uint8, error) {
	n, err := derwalk.Integer(t.Content)
	if err != nil || !n.IsUint64() || n.Uint64() > 255 {
		return 0, asn1.SyntaxError{Msg: "integer out of uint8 range"}
	}
	return uint8(n.Uint64()), nil
}

func smallUint16(t derwalk.TLV) (uint16, error) {
	n, err := derwalk.Integer(t.Content)
	if err != nil || !n.IsUint64() || n.Uint64() > 65535 {
		return 0, asn1.SyntaxError{Msg: "integer out of uint16 range"}
	}
	return uint16(n.Uint64()), nil
}

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
