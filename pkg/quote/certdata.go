package quote

import (
	"encoding/binary"
	"fmt"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// Certification data type discriminants (Intel sgx_ql_certification_data_t
// / PCK_ID enum). Only the PCK certificate chain (5) and QE report
// certification data (6) types are named here; the supported verification
// path requires CertDataTypePCKChain nested inside CertDataTypeQEReportCert.
const (
	CertDataTypePCKChain       = 5
	CertDataTypeQEReportCert   = 6
)

// QEAuthData is the variable-length authentication data blob the QE signs
// alongside its own report.
type QEAuthData struct {
	Data []byte
}

// CertificationData is the generic `{type, size, data}` wrapper Intel's
// quote format uses twice: once at the top level of the quote signature
// (where, for the ECDSA-with-QE-report path, Type is always
// CertDataTypeQEReportCert and Data decodes to a QEReportCertificationData),
// and once nested inside that QEReportCertificationData (where Type is
// CertDataTypePCKChain and Data is the raw concatenated PEM chain bytes).
type CertificationData struct {
	Type uint16
	Size uint32
	// Data holds either QEReportCertificationData (Type == 6) or raw PEM
	// bytes (Type == 5). Any other Type is carried as raw bytes; the
	// orchestrators reject anything but 5/6 on the supported path.
	Data any
}

// QEReportCertificationData is the payload of a Type==6 CertificationData:
// the QE's own SGX enclave report, the PCK leaf's signature over that
// report, the QE authentication data folded into the report's report_data,
// and a nested CertificationData carrying the PCK certificate chain.
type QEReportCertificationData struct {
	EnclaveReport      SGXReportBody
	Signature          [64]byte
	QEAuthData         QEAuthData
	CertificationData  CertificationData
}

// parseCertificationData decodes a {type:u16, size:u32, data:bytes} TLV
// from the front of buf and, for the two supported types, recursively
// decodes its payload. It returns the unconsumed remainder of buf.
func parseCertificationData(buf []byte) (CertificationData, []byte, error) {
	if len(buf) < 6 {
		return CertificationData{}, nil, verror.New(verror.MalformedQuote, "parse-cert-data", "buffer shorter than cert data header")
	}
	typ := binary.LittleEndian.Uint16(buf[0:2])
	size := binary.LittleEndian.Uint32(buf[2:6])
	rest := buf[6:]
	if uint64(size) > uint64(len(rest)) {
		return CertificationData{}, nil, verror.New(verror.MalformedQuote, "parse-cert-data", "cert data length exceeds remaining buffer")
	}
	content := rest[:size]
	tail := rest[size:]

	switch typ {
	case CertDataTypeQEReportCert:
		qe, err := parseQEReportCertificationData(content)
		if err != nil {
			return CertificationData{}, nil, err
		}
		return CertificationData{Type: typ, Size: size, Data: qe}, tail, nil
	case CertDataTypePCKChain:
		return CertificationData{Type: typ, Size: size, Data: content}, tail, nil
	default:
		return CertificationData{Type: typ, Size: size, Data: content}, tail, nil
	}
}

func parseQEReportCertificationData(buf []byte) (QEReportCertificationData, error) {
	var out QEReportCertificationData

	report, rest, err := ParseSGXReportBody(buf)
	if err != nil {
		return QEReportCertificationData{}, err
	}
	out.EnclaveReport = report

	if len(rest) < 64+2 {
		return QEReportCertificationData{}, verror.New(verror.MalformedQuote, "parse-qe-cert-data", "buffer too short for qe signature + auth data length")
	}
	copy(out.Signature[:], rest[:64])
	rest = rest[64:]

	authLen := binary.LittleEndian.Uint16(rest[:2])
	rest = rest[2:]
	if uint64(authLen) > uint64(len(rest)) {
		return QEReportCertificationData{}, verror.New(verror.MalformedQuote, "parse-qe-cert-data", "qe_auth_data_len exceeds remaining buffer")
	}
	out.QEAuthData = QEAuthData{Data: append([]byte(nil), rest[:authLen]...)}
	rest = rest[authLen:]

	nested, rest, err := parseCertificationData(rest)
	if err != nil {
		return QEReportCertificationData{}, err
	}
	if len(rest) != 0 {
		return QEReportCertificationData{}, verror.New(verror.MalformedQuote, "parse-qe-cert-data", "trailing bytes after nested certification data")
	}
	out.CertificationData = nested
	return out, nil
}

// PCKChainPEM returns the raw PEM bytes of the PCK certificate chain.
// Called on a Type==5 block it returns that block's bytes; called on an
// outer Type==6 block it returns the bytes of the nested
// CertificationData, which must have Type==5. Any other type yields a
// MissingCertData-kind error.
func (c CertificationData) PCKChainPEM() ([]byte, error) {
	if c.Type == CertDataTypePCKChain {
		pem, ok := c.Data.([]byte)
		if !ok {
			return nil, verror.New(verror.MalformedQuote, "pck-chain-pem", "certification data did not decode to raw bytes")
		}
		return pem, nil
	}
	if c.Type != CertDataTypeQEReportCert {
		return nil, verror.New(verror.MissingCertData, "pck-chain-pem", fmt.Sprintf("unexpected outer certification data type %d", c.Type))
	}
	qe, ok := c.Data.(QEReportCertificationData)
	if !ok {
		return nil, verror.New(verror.MalformedQuote, "pck-chain-pem", "outer certification data did not decode to QE report certification data")
	}
	if qe.CertificationData.Type != CertDataTypePCKChain {
		return nil, verror.New(verror.MissingCertData, "pck-chain-pem", fmt.Sprintf("unexpected inner certification data type %d", qe.CertificationData.Type))
	}
	pem, ok := qe.CertificationData.Data.([]byte)
	if !ok {
		return nil, verror.New(verror.MalformedQuote, "pck-chain-pem", "inner certification data did not decode to raw bytes")
	}
	return pem, nil
}
