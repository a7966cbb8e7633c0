package main

import (
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/canvasxyz/teekit-qvl/internal/logging"
	"github.com/canvasxyz/teekit-qvl/internal/profile"
	"github.com/canvasxyz/teekit-qvl/pkg/verify"
)

// evidenceArgs is the set of files one verification needs: a quote for
// SGX/TDX, or a report plus its three AMD certificates for SEV-SNP.
type evidenceArgs struct {
	Kind       string
	QuotePath  string
	ReportPath string
	VCEKPath   string
	ASKPath    string
	ARKPath    string
}

func loadConfig(profilePath string) (verify.Config, error) {
	p, err := profile.Load(profilePath)
	if err != nil {
		return verify.Config{}, err
	}
	return p.ToConfig(time.Now())
}

func verifyOne(log *logging.Logger, args evidenceArgs, cfg verify.Config) reportSummary {
	entry := log.WithQuote(args.QuotePath).WithField("kind", args.Kind)

	switch args.Kind {
	case "sgx":
		raw, err := os.ReadFile(args.QuotePath)
		if err != nil {
			entry.WithError(err).Error("failed to read quote file")
			return summarizeError(args.Kind, errors.Wrap(err, "read quote"))
		}
		result, err := verify.VerifySGX(raw, cfg)
		if err != nil {
			entry.WithError(err).Warn("SGX verification failed")
			return summarizeError(args.Kind, err)
		}
		entry.Info("SGX verification succeeded")
		return summarizeSGXOrTDX(args.Kind, result)

	case "tdx":
		raw, err := os.ReadFile(args.QuotePath)
		if err != nil {
			entry.WithError(err).Error("failed to read quote file")
			return summarizeError(args.Kind, errors.Wrap(err, "read quote"))
		}
		result, err := verify.VerifyTDX(raw, cfg)
		if err != nil {
			entry.WithError(err).Warn("TDX verification failed")
			return summarizeError(args.Kind, err)
		}
		entry.Info("TDX verification succeeded")
		return summarizeSGXOrTDX(args.Kind, result)

	case "sevsnp":
		report, err := os.ReadFile(args.ReportPath)
		if err != nil {
			entry.WithError(err).Error("failed to read report file")
			return summarizeError(args.Kind, errors.Wrap(err, "read report"))
		}
		vcek, err := os.ReadFile(args.VCEKPath)
		if err != nil {
			entry.WithError(err).Error("failed to read VCEK certificate")
			return summarizeError(args.Kind, errors.Wrap(err, "read vcek"))
		}
		ask, err := os.ReadFile(args.ASKPath)
		if err != nil {
			entry.WithError(err).Error("failed to read ASK certificate")
			return summarizeError(args.Kind, errors.Wrap(err, "read ask"))
		}
		ark, err := os.ReadFile(args.ARKPath)
		if err != nil {
			entry.WithError(err).Error("failed to read ARK certificate")
			return summarizeError(args.Kind, errors.Wrap(err, "read ark"))
		}
		result, err := verify.VerifySevSnp(report, vcek, ask, ark, cfg)
		if err != nil {
			entry.WithError(err).Warn("SEV-SNP verification failed")
			return summarizeError(args.Kind, err)
		}
		entry.Info("SEV-SNP verification succeeded")
		return summarizeSevSnp(result)

	default:
		return summarizeError(args.Kind, errors.Errorf("unknown --kind %q", args.Kind))
	}
}
