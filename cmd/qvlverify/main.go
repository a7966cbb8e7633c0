// Command qvlverify is a CLI front end over pkg/verify: it decodes one
// (or, with the batch subcommand, a directory of) attestation quote files, applies a
// verification profile, and prints the outcome in the requested format.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagFormat        string
	flagProfile       string
	flagJWTSigningKey string
	flagLogLevel      string
	flagLogFormat     string

	runID string
)

func main() {
	runID = uuid.New().String()

	root := &cobra.Command{
		Use:   "qvlverify",
		Short: "Verify SGX, TDX, and SEV-SNP attestation evidence",
		PersistentPreRun: func(*cobra.Command, []string) {
			flagFormat = viper.GetString("format")
			flagProfile = viper.GetString("profile")
		},
	}
	root.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json, cbor, ear-jwt")
	root.PersistentFlags().StringVar(&flagProfile, "profile", "", "path to a verification profile YAML file")
	root.PersistentFlags().StringVar(&flagJWTSigningKey, "jwt-signing-key", "", "HMAC signing key, required for --format=ear-jwt")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "json", "log format: json, text")

	viper.SetEnvPrefix("QVLVERIFY")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("format", root.PersistentFlags().Lookup("format"))
	_ = viper.BindPFlag("profile", root.PersistentFlags().Lookup("profile"))

	root.AddCommand(newVerifyCmd())
	root.AddCommand(newBatchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
