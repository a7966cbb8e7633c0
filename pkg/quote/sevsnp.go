package quote

import (
	"encoding/binary"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// SevSnpReportSize is the fixed width of the AMD SEV-SNP ATTESTATION_REPORT
// structure (signed region 0x000..0x2A0 plus the 512-byte signature).
const SevSnpReportSize = 1184

// SevSnpSignedRegionSize is the width of the signed prefix (everything
// before the signature field), per AMD's SEV-SNP ABI: 0x2A0 = 672 bytes.
const SevSnpSignedRegionSize = 0x2a0

// SevSnpSignatureSize is the width of the trailing signature field.
const SevSnpSignatureSize = 512

// SevSnpPolicyDebugBit is the bit in Policy that, when set, indicates the
// guest was launched with debug (and thus unencrypted) memory allowed.
const SevSnpPolicyDebugBit = 0x80000

// TCBVersion is AMD's packed per-component SVN vector (8 bytes).
type TCBVersion struct {
	BootLoader uint8
	TEE        uint8
	// bytes 2-5 reserved
	SNP       uint8
	Microcode uint8
	Raw       [8]byte
}

func parseTCBVersion(b [8]byte) TCBVersion {
	return TCBVersion{
		BootLoader: b[0],
		TEE:        b[1],
		SNP:        b[6],
		Microcode:  b[7],
		Raw:        b,
	}
}

// SevSnpReport is the parsed AMD SEV-SNP attestation report.
type SevSnpReport struct {
	Version         uint32
	GuestSvn        uint32
	Policy          uint64
	FamilyID        [16]byte
	ImageID         [16]byte
	Vmpl            uint32
	SignatureAlgo   uint32
	CurrentTCB      TCBVersion
	PlatformInfo    uint64
	AuthorKeyEn     bool
	ReportData      [64]byte
	Measurement     [48]byte
	HostData        [32]byte
	IDKeyDigest     [48]byte
	AuthorKeyDigest [48]byte
	ReportID        [32]byte
	ReportIDMa      [32]byte
	ReportedTCB     TCBVersion
	ChipID          [64]byte
	CommittedTCB    TCBVersion
	CurrentBuild    uint8
	CurrentMinor    uint8
	CurrentMajor    uint8
	CommittedBuild  uint8
	CommittedMinor  uint8
	CommittedMajor  uint8
	LaunchTCB       TCBVersion
	// Signature is the raw 512-byte ECDSA-P384 signature field: r (72
	// bytes little-endian) || s (72 bytes little-endian) || padding.
	Signature [SevSnpSignatureSize]byte
}

// IsDebug reports whether the policy's debug bit is set.
func (r SevSnpReport) IsDebug() bool {
	return r.Policy&SevSnpPolicyDebugBit != 0
}

// ParseSevSnpReport decodes a fixed 1184-byte AMD SEV-SNP attestation
// report. Unlike SGX/TDX quotes there is no common header to dispatch on;
// the report is a single fixed-size structure for both version 2 and 5.
func ParseSevSnpReport(buf []byte) (SevSnpReport, []byte, error) {
	if len(buf) < SevSnpReportSize {
		return SevSnpReport{}, nil, verror.New(verror.MalformedQuote, "parse-sevsnp-report", "buffer shorter than report size")
	}
	le32 := func(off int) uint32 { return binary.LittleEndian.Uint32(buf[off : off+4]) }
	le64 := func(off int) uint64 { return binary.LittleEndian.Uint64(buf[off : off+8]) }
	var tcb8 = func(off int) [8]byte {
		var a [8]byte
		copy(a[:], buf[off:off+8])
		return a
	}

	var r SevSnpReport
	r.Version = le32(0x000)
	r.GuestSvn = le32(0x004)
	r.Policy = le64(0x008)
	copy(r.FamilyID[:], buf[0x010:0x020])
	copy(r.ImageID[:], buf[0x020:0x030])
	r.Vmpl = le32(0x030)
	r.SignatureAlgo = le32(0x034)
	r.CurrentTCB = parseTCBVersion(tcb8(0x038))
	r.PlatformInfo = le64(0x040)
	flags := le32(0x048)
	r.AuthorKeyEn = flags&0x1 != 0
	copy(r.ReportData[:], buf[0x050:0x090])
	copy(r.Measurement[:], buf[0x090:0x0c0])
	copy(r.HostData[:], buf[0x0c0:0x0e0])
	copy(r.IDKeyDigest[:], buf[0x0e0:0x110])
	copy(r.AuthorKeyDigest[:], buf[0x110:0x140])
	copy(r.ReportID[:], buf[0x140:0x160])
	copy(r.ReportIDMa[:], buf[0x160:0x180])
	r.ReportedTCB = parseTCBVersion(tcb8(0x180))
	copy(r.ChipID[:], buf[0x1a0:0x1e0])
	r.CommittedTCB = parseTCBVersion(tcb8(0x1e0))
	r.CurrentBuild = buf[0x1e8]
	r.CurrentMinor = buf[0x1e9]
	r.CurrentMajor = buf[0x1ea]
	r.CommittedBuild = buf[0x1ec]
	r.CommittedMinor = buf[0x1ed]
	r.CommittedMajor = buf[0x1ee]
	r.LaunchTCB = parseTCBVersion(tcb8(0x1f0))
	copy(r.Signature[:], buf[SevSnpSignedRegionSize:SevSnpReportSize])

	return r, buf[SevSnpReportSize:], nil
}

// Validate enforces the SEV-SNP version invariant (spec.md §4.9 step 2):
// version must be 2 or 5.
func (r SevSnpReport) Validate() error {
	if r.Version != 2 && r.Version != 5 {
		return verror.New(verror.UnsupportedVersion, "sevsnp-validate", "unsupported SEV-SNP report version")
	}
	return nil
}

// SevSnpSignedRegion returns the byte range of buf that the report's signature
// covers (offsets 0..0x2A0).
func SevSnpSignedRegion(buf []byte) ([]byte, error) {
	if len(buf) < SevSnpReportSize {
		return nil, verror.New(verror.MalformedQuote, "sevsnp-signed-region", "buffer shorter than report size")
	}
	return buf[:SevSnpSignedRegionSize], nil
}
