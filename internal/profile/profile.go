// Package profile loads a verification profile: the pinned roots, CRLs,
// TCB/QE-identity documents, and enforcement toggles a qvlverify
// invocation runs with. Profiles are YAML, decoded with gopkg.in/yaml.v3
// and layered under viper the same way the rest of the retrieval pack's
// CLIs bind config files.
package profile

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/canvasxyz/teekit-qvl/pkg/roots"
	"github.com/canvasxyz/teekit-qvl/pkg/tcb"
	"github.com/canvasxyz/teekit-qvl/pkg/verify"
)

// SevSnpPolicy mirrors verify.SevSnpPolicy in YAML-friendly form.
type SevSnpPolicy struct {
	AllowDebug bool  `yaml:"allow_debug"`
	MaxVMPL    uint8 `yaml:"max_vmpl"`
}

// Profile is the on-disk shape of a qvlverify verification profile.
type Profile struct {
	PinnedRootFingerprints []string          `yaml:"pinned_root_fingerprints"`
	CRLPaths               []string          `yaml:"crl_paths"`
	TCBInfoPath            string            `yaml:"tcb_info_path"`
	QEIdentityPath         string            `yaml:"qe_identity_path"`
	EnforceUpToDate        bool              `yaml:"enforce_up_to_date"`
	EnforceFreshness       bool              `yaml:"enforce_freshness"`
	ExpectedMeasurements   map[string]string `yaml:"expected_measurements"`
	SevSnpPolicy           SevSnpPolicy      `yaml:"sevsnp_policy"`
}

// Load reads and decodes a YAML profile file. The command layer binds
// --profile through viper (with QVLVERIFY_-prefixed env var overrides via
// viper.AutomaticEnv) before the resolved path ever reaches Load.
func Load(path string) (*Profile, error) {
	if path == "" {
		return &Profile{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read profile %s", path)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrapf(err, "parse profile %s", path)
	}
	return &p, nil
}

// ToConfig builds a pkg/verify.Config from the profile, loading any
// referenced CRL/TCB Info/QE Identity files from disk and resolving
// pinned root fingerprints into a roots.Set.
func (p *Profile) ToConfig(verificationTime time.Time) (verify.Config, error) {
	cfg := verify.Config{
		VerificationTime:     verificationTime,
		EnforceUpToDate:      p.EnforceUpToDate,
		EnforceFreshness:     p.EnforceFreshness,
		ExpectedMeasurements: p.ExpectedMeasurements,
		SevSnpPolicy: verify.SevSnpPolicy{
			AllowDebug: p.SevSnpPolicy.AllowDebug,
			MaxVMPL:    p.SevSnpPolicy.MaxVMPL,
		},
	}

	if len(p.PinnedRootFingerprints) > 0 {
		set := roots.DefaultSet()
		for _, fp := range p.PinnedRootFingerprints {
			set.AddFingerprint(fp)
		}
		cfg.PinnedRoots = set
	}

	for _, path := range p.CRLPaths {
		der, err := os.ReadFile(path)
		if err != nil {
			return verify.Config{}, errors.Wrapf(err, "read CRL %s", path)
		}
		cfg.CRLs = append(cfg.CRLs, der)
	}

	if p.TCBInfoPath != "" {
		raw, err := os.ReadFile(p.TCBInfoPath)
		if err != nil {
			return verify.Config{}, errors.Wrapf(err, "read TCB Info %s", p.TCBInfoPath)
		}
		doc, err := tcb.ParseTCBInfo(raw)
		if err != nil {
			return verify.Config{}, errors.Wrapf(err, "parse TCB Info %s", p.TCBInfoPath)
		}
		cfg.TCBInfo = doc
	}

	if p.QEIdentityPath != "" {
		raw, err := os.ReadFile(p.QEIdentityPath)
		if err != nil {
			return verify.Config{}, errors.Wrapf(err, "read QE Identity %s", p.QEIdentityPath)
		}
		doc, err := tcb.ParseQEIdentity(raw)
		if err != nil {
			return verify.Config{}, errors.Wrapf(err, "parse QE Identity %s", p.QEIdentityPath)
		}
		cfg.QEIdentity = doc
	}

	return cfg, nil
}
