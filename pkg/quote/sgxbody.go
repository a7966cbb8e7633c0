package quote

import (
	"encoding/binary"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// SGXReportBodySize is the fixed width of sgx_report_body_t.
const SGXReportBodySize = 384

// SGXReportBody is the SGX enclave report body, used both as the quote's
// own report body for SGX quotes and as the embedded QE report inside the
// quote signature section's QE Report Certification Data.
type SGXReportBody struct {
	CPUSVN     [16]byte
	MiscSelect uint32
	Reserved1  [28]byte
	Attributes [16]byte
	MrEnclave  [32]byte
	Reserved2  [32]byte
	MrSigner   [32]byte
	Reserved3  [96]byte
	IsvProdID  uint16
	IsvSvn     uint16
	Reserved4  [60]byte
	ReportData [64]byte
}

// ParseSGXReportBody decodes a 384-byte sgx_report_body_t from the front of
// buf, returning the unconsumed remainder.
func ParseSGXReportBody(buf []byte) (SGXReportBody, []byte, error) {
	if len(buf) < SGXReportBodySize {
		return SGXReportBody{}, nil, verror.New(verror.MalformedQuote, "parse-sgx-body", "buffer shorter than report body size")
	}
	var b SGXReportBody
	o := 0
	copy(b.CPUSVN[:], buf[o:o+16])
	o += 16
	b.MiscSelect = binary.LittleEndian.Uint32(buf[o : o+4])
	o += 4
	copy(b.Reserved1[:], buf[o:o+28])
	o += 28
	copy(b.Attributes[:], buf[o:o+16])
	o += 16
	copy(b.MrEnclave[:], buf[o:o+32])
	o += 32
	copy(b.Reserved2[:], buf[o:o+32])
	o += 32
	copy(b.MrSigner[:], buf[o:o+32])
	o += 32
	copy(b.Reserved3[:], buf[o:o+96])
	o += 96
	b.IsvProdID = binary.LittleEndian.Uint16(buf[o : o+2])
	o += 2
	b.IsvSvn = binary.LittleEndian.Uint16(buf[o : o+2])
	o += 2
	copy(b.Reserved4[:], buf[o:o+60])
	o += 60
	copy(b.ReportData[:], buf[o:o+64])
	o += 64
	return b, buf[o:], nil
}

// Marshal re-encodes the report body to its canonical 384-byte wire form.
func (b SGXReportBody) Marshal() [SGXReportBodySize]byte {
	var out [SGXReportBodySize]byte
	o := 0
	copy(out[o:o+16], b.CPUSVN[:])
	o += 16
	binary.LittleEndian.PutUint32(out[o:o+4], b.MiscSelect)
	o += 4
	copy(out[o:o+28], b.Reserved1[:])
	o += 28
	copy(out[o:o+16], b.Attributes[:])
	o += 16
	copy(out[o:o+32], b.MrEnclave[:])
	o += 32
	copy(out[o:o+32], b.Reserved2[:])
	o += 32
	copy(out[o:o+32], b.MrSigner[:])
	o += 32
	copy(out[o:o+96], b.Reserved3[:])
	o += 96
	binary.LittleEndian.PutUint16(out[o:o+2], b.IsvProdID)
	o += 2
	binary.LittleEndian.PutUint16(out[o:o+2], b.IsvSvn)
	o += 2
	copy(out[o:o+60], b.Reserved4[:])
	o += 60
	copy(out[o:o+64], b.ReportData[:])
	return out
}
