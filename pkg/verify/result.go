package verify

import (
	"github.com/canvasxyz/teekit-qvl/pkg/certchain"
	"github.com/canvasxyz/teekit-qvl/pkg/quote"
	"github.com/canvasxyz/teekit-qvl/pkg/tcb"
)

// VerificationResult is the structured success value shared by SGX and
// TDX verification: the parsed quote, the validated certificate chain,
// the matched TCB/QE-identity statuses (empty string if not evaluated),
// and the observed report_data the caller feeds into a binding helper.
type VerificationResult struct {
	Quote            *quote.Quote
	Chain            certchain.Chain
	TCBStatus        tcb.Status
	QEIdentityStatus tcb.Status
	ObservedReportData [64]byte
}

// VerifiedSevSnp is the structured success value for SEV-SNP
// verification.
type VerifiedSevSnp struct {
	Report             quote.SevSnpReport
	ObservedReportData [64]byte
	ObservedMeasurement [48]byte
}
