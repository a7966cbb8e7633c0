// Package quote implements the binary decoder for SGX v3, TDX v4/v5, and
// SEV-SNP v2/v5 attestation evidence. It is strictly little-endian, enforces
// exact field widths, and never reads past a declared length. All inputs are
// treated as untrusted.
package quote

import (
	"encoding/binary"
	"fmt"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// HeaderSize is the fixed width of the common quote header shared by SGX
// and TDX quotes.
const HeaderSize = 48

// AttKeyTypeECDSAP256 is the only supported attestation key type.
const AttKeyTypeECDSAP256 = 2

// TEE type discriminants carried in Header.TeeType.
const (
	TeeTypeSGX = 0x00000000
	TeeTypeTDX = 0x00000081
)

// Header is the 48-byte common quote header shared by SGX and TDX quotes.
type Header struct {
	Version     uint16
	AttKeyType  uint16
	TeeType     uint32
	QeSvn       uint16
	PceSvn      uint16
	QeVendorID  [16]byte
	UserData    [20]byte
}

// ParseHeader decodes the common 48-byte header from the front of buf.
// It returns the remaining, unconsumed bytes.
func ParseHeader(buf []byte) (Header, []byte, error) {
	if len(buf) < HeaderSize {
		return Header{}, nil, verror.New(verror.MalformedQuote, "parse-header", "buffer shorter than header size")
	}
	var h Header
	h.Version = binary.LittleEndian.Uint16(buf[0:2])
	h.AttKeyType = binary.LittleEndian.Uint16(buf[2:4])
	h.TeeType = binary.LittleEndian.Uint32(buf[4:8])
	h.QeSvn = binary.LittleEndian.Uint16(buf[8:10])
	h.PceSvn = binary.LittleEndian.Uint16(buf[10:12])
	copy(h.QeVendorID[:], buf[12:28])
	copy(h.UserData[:], buf[28:48])
	return h, buf[HeaderSize:], nil
}

// Marshal re-encodes the header to its canonical 48-byte wire form.
func (h Header) Marshal() [HeaderSize]byte {
	var out [HeaderSize]byte
	binary.LittleEndian.PutUint16(out[0:2], h.Version)
	binary.LittleEndian.PutUint16(out[2:4], h.AttKeyType)
	binary.LittleEndian.PutUint32(out[4:8], h.TeeType)
	binary.LittleEndian.PutUint16(out[8:10], h.QeSvn)
	binary.LittleEndian.PutUint16(out[10:12], h.PceSvn)
	copy(out[12:28], h.QeVendorID[:])
	copy(out[28:48], h.UserData[:])
	return out
}

// Validate enforces the header-level invariants from spec §3: only
// ECDSA-P256 attestation keys are supported, and tee_type must be one of
// the two known values.
func (h Header) Validate() error {
	if h.AttKeyType != AttKeyTypeECDSAP256 {
		return verror.New(verror.UnsupportedVersion, "header-validate",
			fmt.Sprintf("unsupported att_key_type %d", h.AttKeyType))
	}
	if h.TeeType != TeeTypeSGX && h.TeeType != TeeTypeTDX {
		return verror.New(verror.UnsupportedVersion, "header-validate",
			fmt.Sprintf("unsupported tee_type 0x%x", h.TeeType))
	}
	return nil
}
