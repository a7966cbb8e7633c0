package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/canvasxyz/teekit-qvl/internal/logging"
)

// newBatchCmd implements the batch subcommand: verify every quote file
// in a directory against one profile and print a summary per file plus
// an aggregate count. CLI ergonomics only; it does not change core
// verification semantics (spec.md §ambient stack / SUPPLEMENTED FEATURES).
func newBatchCmd() *cobra.Command {
	var dir, kind string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Verify every quote file in a directory against one profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kind != "sgx" && kind != "tdx" {
				return errors.Errorf("batch mode only supports --kind sgx or tdx, got %q", kind)
			}

			entries, err := os.ReadDir(dir)
			if err != nil {
				return errors.Wrapf(err, "read directory %s", dir)
			}

			log := logging.New(flagLogLevel, flagLogFormat, runID)
			cfg, err := loadConfig(flagProfile)
			if err != nil {
				return errors.Wrap(err, "load profile")
			}

			var passed, failed int
			for _, e := range entries {
				if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
					continue
				}
				path := filepath.Join(dir, e.Name())
				summary := verifyOne(log, evidenceArgs{Kind: kind, QuotePath: path}, cfg)

				out, err := renderOutput(flagFormat, summary, []byte(flagJWTSigningKey))
				if err != nil {
					return err
				}
				fmt.Println(out)

				if summary.Verified {
					passed++
				} else {
					failed++
				}
			}

			log.Entry().WithField("passed", passed).WithField("failed", failed).Info("batch verification complete")
			if failed > 0 {
				return errors.Errorf("%d of %d evidence files failed verification", failed, passed+failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "directory of quote files to verify")
	cmd.Flags().StringVar(&kind, "kind", "", "evidence kind: sgx, tdx")
	return cmd
}
