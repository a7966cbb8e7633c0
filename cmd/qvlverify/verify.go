package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/canvasxyz/teekit-qvl/internal/logging"
)

func newVerifyCmd() *cobra.Command {
	var args evidenceArgs

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a single SGX, TDX, or SEV-SNP evidence file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if args.Kind != "sgx" && args.Kind != "tdx" && args.Kind != "sevsnp" {
				return errors.Errorf("--kind must be one of sgx, tdx, sevsnp, got %q", args.Kind)
			}

			log := logging.New(flagLogLevel, flagLogFormat, runID)
			cfg, err := loadConfig(flagProfile)
			if err != nil {
				return errors.Wrap(err, "load profile")
			}

			summary := verifyOne(log, args, cfg)
			out, err := renderOutput(flagFormat, summary, []byte(flagJWTSigningKey))
			if err != nil {
				return err
			}
			fmt.Println(out)
			if !summary.Verified {
				return errors.New("verification failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&args.Kind, "kind", "", "evidence kind: sgx, tdx, sevsnp")
	cmd.Flags().StringVar(&args.QuotePath, "quote", "", "path to the SGX/TDX quote file")
	cmd.Flags().StringVar(&args.ReportPath, "report", "", "path to the SEV-SNP attestation report file")
	cmd.Flags().StringVar(&args.VCEKPath, "vcek", "", "path to the SEV-SNP VCEK certificate (PEM)")
	cmd.Flags().StringVar(&args.ASKPath, "ask", "", "path to the SEV-SNP ASK certificate (PEM)")
	cmd.Flags().StringVar(&args.ARKPath, "ark", "", "path to the SEV-SNP ARK certificate (PEM)")
	return cmd
}
