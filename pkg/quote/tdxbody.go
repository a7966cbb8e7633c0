package quote

import (
	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// TDXReportBody10Size is the fixed width of the TDX 1.0 report body
// (td_report_t / tdx_report_body_t).
const TDXReportBody10Size = 584

// TDXReportBody15ExtraSize is the additional width TDX 1.5 appends.
const TDXReportBody15ExtraSize = 64

// TDXReportBody15Size is TDXReportBody10Size + TDXReportBody15ExtraSize.
const TDXReportBody15Size = TDXReportBody10Size + TDXReportBody15ExtraSize

// TDXReportBody10 is the TDX 1.0 TD report body. The field named
// SeamAttributes corresponds to the 8-byte SEAM_ATTRIBUTES slot in Intel's
// published structure; spec.md's data model names this slot "seam_svn" but
// the real wire layout (confirmed against the sample quote in the test
// corpus: header 48 + body 584 bytes exactly) carries SEAM_ATTRIBUTES
// there, not a 4-byte SVN.
type TDXReportBody10 struct {
	TeeTcbSvn      [16]byte
	MrSeam         [48]byte
	MrSeamSigner   [48]byte
	SeamAttributes [8]byte
	TdAttributes   [8]byte
	Xfam           [8]byte
	MrTd           [48]byte
	MrConfigID     [48]byte
	MrOwner        [48]byte
	MrOwnerConfig  [48]byte
	Rtmr0          [48]byte
	Rtmr1          [48]byte
	Rtmr2          [48]byte
	Rtmr3          [48]byte
	ReportData     [64]byte
}

// TDXReportBody15 is the TDX 1.5 report body: TDXReportBody10 plus a second
// TEE TCB SVN vector and the service-TD measurement.
type TDXReportBody15 struct {
	TDXReportBody10
	TeeTcbSvn2   [16]byte
	MrServiceTd  [48]byte
}

func parseFixed(buf []byte, dsts ...[]byte) (rest []byte, err error) {
	total := 0
	for _, d := range dsts {
		total += len(d)
	}
	if len(buf) < total {
		return nil, verror.New(verror.MalformedQuote, "parse-fixed", "buffer shorter than declared fields")
	}
	o := 0
	for _, d := range dsts {
		copy(d, buf[o:o+len(d)])
		o += len(d)
	}
	return buf[o:], nil
}

// ParseTDXReportBody10 decodes a 584-byte TDX 1.0 report body.
func ParseTDXReportBody10(buf []byte) (TDXReportBody10, []byte, error) {
	if len(buf) < TDXReportBody10Size {
		return TDXReportBody10{}, nil, verror.New(verror.MalformedQuote, "parse-tdx10-body", "buffer shorter than report body size")
	}
	var b TDXReportBody10
	rest, err := parseFixed(buf,
		b.TeeTcbSvn[:], b.MrSeam[:], b.MrSeamSigner[:], b.SeamAttributes[:],
		b.TdAttributes[:], b.Xfam[:], b.MrTd[:], b.MrConfigID[:], b.MrOwner[:],
		b.MrOwnerConfig[:], b.Rtmr0[:], b.Rtmr1[:], b.Rtmr2[:], b.Rtmr3[:],
		b.ReportData[:],
	)
	if err != nil {
		return TDXReportBody10{}, nil, err
	}
	return b, rest, nil
}

// ParseTDXReportBody15 decodes a 648-byte TDX 1.5 report body.
func ParseTDXReportBody15(buf []byte) (TDXReportBody15, []byte, error) {
	if len(buf) < TDXReportBody15Size {
		return TDXReportBody15{}, nil, verror.New(verror.MalformedQuote, "parse-tdx15-body", "buffer shorter than report body size")
	}
	base, rest, err := ParseTDXReportBody10(buf[:TDXReportBody10Size])
	if err != nil {
		return TDXReportBody15{}, nil, err
	}
	_ = rest
	var b TDXReportBody15
	b.TDXReportBody10 = base
	tail := buf[TDXReportBody10Size:TDXReportBody15Size]
	copy(b.TeeTcbSvn2[:], tail[0:16])
	copy(b.MrServiceTd[:], tail[16:64])
	return b, buf[TDXReportBody15Size:], nil
}

// Marshal re-encodes the TDX 1.0 report body to its canonical 584-byte form.
func (b TDXReportBody10) Marshal() [TDXReportBody10Size]byte {
	var out [TDXReportBody10Size]byte
	o := 0
	fields := [][]byte{
		b.TeeTcbSvn[:], b.MrSeam[:], b.MrSeamSigner[:], b.SeamAttributes[:],
		b.TdAttributes[:], b.Xfam[:], b.MrTd[:], b.MrConfigID[:], b.MrOwner[:],
		b.MrOwnerConfig[:], b.Rtmr0[:], b.Rtmr1[:], b.Rtmr2[:], b.Rtmr3[:],
		b.ReportData[:],
	}
	for _, f := range fields {
		copy(out[o:o+len(f)], f)
		o += len(f)
	}
	return out
}

// Marshal re-encodes the TDX 1.5 report body to its canonical 648-byte form.
func (b TDXReportBody15) Marshal() [TDXReportBody15Size]byte {
	var out [TDXReportBody15Size]byte
	base := b.TDXReportBody10.Marshal()
	copy(out[:TDXReportBody10Size], base[:])
	copy(out[TDXReportBody10Size:TDXReportBody10Size+16], b.TeeTcbSvn2[:])
	copy(out[TDXReportBody10Size+16:], b.MrServiceTd[:])
	return out
}
