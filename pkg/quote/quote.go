package quote

import (
	"fmt"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// Kind discriminates the hardware quote format a Quote was parsed as.
type Kind int

const (
	KindSGXv3 Kind = iota
	KindTDXv4
	KindTDXv5
)

func (k Kind) String() string {
	switch k {
	case KindSGXv3:
		return "sgx-v3"
	case KindTDXv4:
		return "tdx-v4"
	case KindTDXv5:
		return "tdx-v5"
	default:
		return "unknown"
	}
}

// TDX body_type descriptor values used by TDX v5 dispatch.
const (
	TDXBodyTypeV10 = 2
	TDXBodyTypeV15 = 3
)

// Quote is the tagged-variant result of parsing SGX or TDX evidence. Body
// holds a SGXReportBody, TDXReportBody10, or TDXReportBody15 depending on
// Kind.
type Quote struct {
	Kind      Kind
	Header    Header
	Body      any
	Signature QuoteSignature

	// SignedRegion is the exact byte slice [0, end) of the original input
	// that the quote's own ECDSA signature covers: header || body for SGX
	// and TDX v4, header || body_type/body_size descriptor || body for
	// TDX v5.
	SignedRegion []byte
}

// SGXBody returns Body as an SGXReportBody, or the zero value and false if
// Kind is not KindSGXv3.
func (q *Quote) SGXBody() (SGXReportBody, bool) {
	b, ok := q.Body.(SGXReportBody)
	return b, ok
}

// TDXBody10 returns Body as TDXReportBody10, or the zero value and false if
// Kind is not KindTDXv4 or a v5 quote with body_type==2.
func (q *Quote) TDXBody10() (TDXReportBody10, bool) {
	b, ok := q.Body.(TDXReportBody10)
	return b, ok
}

// TDXBody15 returns Body as TDXReportBody15, valid only for a v5 quote with
// body_type==3.
func (q *Quote) TDXBody15() (TDXReportBody15, bool) {
	b, ok := q.Body.(TDXReportBody15)
	return b, ok
}

// ReportData returns the 64-byte report_data field common to all SGX/TDX
// report bodies, regardless of which concrete body type was parsed.
func (q *Quote) ReportData() [64]byte {
	switch b := q.Body.(type) {
	case SGXReportBody:
		return b.ReportData
	case TDXReportBody10:
		return b.ReportData
	case TDXReportBody15:
		return b.ReportData
	default:
		return [64]byte{}
	}
}

// MrEnclave returns the SGX MRENCLAVE measurement, valid only for SGX
// quotes.
func (q *Quote) MrEnclave() ([32]byte, bool) {
	b, ok := q.Body.(SGXReportBody)
	if !ok {
		return [32]byte{}, false
	}
	return b.MrEnclave, true
}

// MrTd returns the TDX MRTD measurement, valid for both TDX body versions.
func (q *Quote) MrTd() ([48]byte, bool) {
	switch b := q.Body.(type) {
	case TDXReportBody10:
		return b.MrTd, true
	case TDXReportBody15:
		return b.MrTd, true
	default:
		return [48]byte{}, false
	}
}

// ParseQuote parses a complete SGX v3 or TDX v4/v5 quote. It never panics
// on malformed input: every declared-length read is bounds-checked against
// the remaining buffer before it is performed.
func ParseQuote(buf []byte) (*Quote, error) {
	if len(buf) == 0 {
		return nil, verror.New(verror.MalformedQuote, "parse-quote", "empty input")
	}

	header, rest, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}

	var (
		kind         Kind
		body         any
		signedEnd    int
	)

	switch header.TeeType {
	case TeeTypeSGX:
		if header.Version != 3 {
			return nil, verror.New(verror.UnsupportedVersion, "parse-quote", fmt.Sprintf("unsupported SGX quote version %d", header.Version))
		}
		b, rem, perr := ParseSGXReportBody(rest)
		if perr != nil {
			return nil, perr
		}
		rest = rem
		body = b
		kind = KindSGXv3
		signedEnd = HeaderSize + SGXReportBodySize

	case TeeTypeTDX:
		switch header.Version {
		case 4:
			b, rem, perr := ParseTDXReportBody10(rest)
			if perr != nil {
				return nil, perr
			}
			rest = rem
			body = b
			kind = KindTDXv4
			signedEnd = HeaderSize + TDXReportBody10Size

		case 5:
			if len(rest) < 6 {
				return nil, verror.New(verror.MalformedQuote, "parse-quote", "buffer too short for TDX v5 body descriptor")
			}
			bodyType := uint16(rest[0]) | uint16(rest[1])<<8
			bodySize := uint32(rest[2]) | uint32(rest[3])<<8 | uint32(rest[4])<<16 | uint32(rest[5])<<24
			rest = rest[6:]

			switch bodyType {
			case TDXBodyTypeV10:
				if bodySize != TDXReportBody10Size {
					return nil, verror.New(verror.MalformedQuote, "parse-quote", "TDX v5 body_size mismatches body_type=2 declared size")
				}
				b, rem, perr := ParseTDXReportBody10(rest)
				if perr != nil {
					return nil, perr
				}
				rest = rem
				body = b
				signedEnd = HeaderSize + 6 + TDXReportBody10Size
			case TDXBodyTypeV15:
				if bodySize != TDXReportBody15Size {
					return nil, verror.New(verror.MalformedQuote, "parse-quote", "TDX v5 body_size mismatches body_type=3 declared size")
				}
				b, rem, perr := ParseTDXReportBody15(rest)
				if perr != nil {
					return nil, perr
				}
				rest = rem
				body = b
				signedEnd = HeaderSize + 6 + TDXReportBody15Size
			default:
				return nil, verror.New(verror.MalformedQuote, "parse-quote", fmt.Sprintf("unsupported TDX v5 body_type %d", bodyType))
			}
			kind = KindTDXv5

		default:
			return nil, verror.New(verror.UnsupportedVersion, "parse-quote", fmt.Sprintf("unsupported TDX quote version %d", header.Version))
		}

	default:
		// Unreachable: header.Validate already rejected unknown tee_type.
		return nil, verror.New(verror.UnsupportedVersion, "parse-quote", "unsupported tee_type")
	}

	if signedEnd > len(buf) {
		return nil, verror.New(verror.MalformedQuote, "parse-quote", "signed region exceeds input length")
	}

	sig, err := readSignatureSection(rest)
	if err != nil {
		return nil, err
	}

	qe, ok := sig.CertificationData.Data.(QEReportCertificationData)
	if sig.CertificationData.Type != CertDataTypeQEReportCert || !ok {
		return nil, verror.New(verror.MalformedQuote, "parse-quote", "certification data is not QE report certification data")
	}
	if qe.CertificationData.Type != CertDataTypePCKChain {
		return nil, verror.New(verror.MalformedQuote, "parse-quote", "nested certification data is not a PCK certificate chain")
	}

	return &Quote{
		Kind:         kind,
		Header:       header,
		Body:         body,
		Signature:    sig,
		SignedRegion: buf[:signedEnd],
	}, nil
}
