// Package certchain assembles and validates X.509 certificate chains out of
// an unordered bag of certificates, the shape attestation evidence hands
// back: a PCK leaf, an intermediate CA, and a root, concatenated PEM with
// no ordering guarantee.
package certchain

import (
	"crypto/x509"
	"time"

	"github.com/canvasxyz/teekit-qvl/pkg/verror"
)

// Chain is an ordered certificate path, leaf at index 0, root at the last
// index.
type Chain []*x509.Certificate

// Leaf returns the chain's leaf certificate.
func (c Chain) Leaf() *x509.Certificate {
	return c[0]
}

// Root returns the chain's terminal certificate.
func (c Chain) Root() *x509.Certificate {
	return c[len(c)-1]
}

// Build identifies the leaf (the unique certificate that is not the issuer
// of any other certificate in the bag) and walks issuer -> subject links
// until it reaches a self-signed certificate or runs out of parents.
//
// Extra certificates that aren't reachable from the leaf are tolerated and
// simply excluded from the returned chain (spec invariant: additional
// unrelated certs in the bag must not change the outcome).
func Build(certs []*x509.Certificate) (Chain, error) {
	if len(certs) < 2 {
		return nil, verror.New(verror.BrokenChain, "build", "fewer than 2 certificates supplied")
	}

	leaf, err := findLeaf(certs)
	if err != nil {
		return nil, err
	}

	bySubject := make(map[string]*x509.Certificate, len(certs))
	for _, c := range certs {
		bySubject[string(c.RawSubject)] = c
	}

	chain := Chain{leaf}
	current := leaf
	seen := map[string]bool{string(current.RawSubject): true}

	for {
		if isSelfSigned(current) {
			return chain, nil
		}
		parent, ok := bySubject[string(current.RawIssuer)]
		if !ok {
			return nil, verror.New(verror.BrokenChain, "build", "no certificate in the supplied bag matches the next issuer")
		}
		if seen[string(parent.RawSubject)] {
			return nil, verror.New(verror.BrokenChain, "build", "cycle detected while walking issuer chain")
		}
		chain = append(chain, parent)
		seen[string(parent.RawSubject)] = true
		current = parent
	}
}

// findLeaf returns the unique certificate in certs that is neither
// self-signed nor the issuer of any other certificate in the set. More
// than one candidate fails with AmbiguousChain.
func findLeaf(certs []*x509.Certificate) (*x509.Certificate, error) {
	isIssuerOfSomeone := make(map[string]bool, len(certs))
	for _, c := range certs {
		for _, other := range certs {
			if other == c {
				continue
			}
			if string(other.RawIssuer) == string(c.RawSubject) {
				isIssuerOfSomeone[string(c.RawSubject)] = true
			}
		}
	}

	var candidates []*x509.Certificate
	for _, c := range certs {
		if !isIssuerOfSomeone[string(c.RawSubject)] && !isSelfSigned(c) {
			candidates = append(candidates, c)
		}
	}

	switch len(candidates) {
	case 0:
		return nil, verror.New(verror.BrokenChain, "find-leaf", "every certificate in the bag is self-signed or an issuer of another; no leaf candidate")
	case 1:
		return candidates[0], nil
	default:
		return nil, verror.New(verror.AmbiguousChain, "find-leaf", "more than one certificate qualifies as the leaf")
	}
}

func isSelfSigned(c *x509.Certificate) bool {
	return string(c.RawIssuer) == string(c.RawSubject)
}

// Validate enforces spec.md §4.2's path-validation rules against an
// assembled chain: CA BasicConstraints/KeyUsage on every non-leaf
// certificate, pathLenConstraint, per-pair signature verification, and a
// validity window check against verificationTime.
func Validate(chain Chain, verificationTime time.Time) error {
	if len(chain) < 2 {
		return verror.New(verror.BrokenChain, "validate", "chain has fewer than 2 certificates")
	}

	for i, c := range chain {
		if verificationTime.Before(c.NotBefore) || verificationTime.After(c.NotAfter) {
			return verror.New(verror.Expired, "validate", "certificate outside its validity window")
		}
		if i == 0 {
			continue
		}
		if !c.IsCA || !c.BasicConstraintsValid {
			return verror.New(verror.InvalidChain, "validate", "non-leaf certificate missing CA basic constraint")
		}
		if c.KeyUsage != 0 && c.KeyUsage&x509.KeyUsageCertSign == 0 {
			return verror.New(verror.InvalidChain, "validate", "non-leaf certificate key usage excludes keyCertSign")
		}
		// subsequentCAs counts the intermediate CA certificates between
		// the leaf and this certificate (exclusive of both): index 1 is
		// directly above the leaf so has 0 subsequent CAs beneath it.
		subsequentCAs := i - 1
		if c.MaxPathLenZero && subsequentCAs > 0 {
			return verror.New(verror.InvalidChain, "validate", "pathLenConstraint of 0 violated by intermediate CA below it")
		}
		if c.MaxPathLen > 0 && subsequentCAs > c.MaxPathLen {
			return verror.New(verror.InvalidChain, "validate", "pathLenConstraint exceeded by subsequent CA certificates")
		}
	}

	if chain[0].IsCA {
		return verror.New(verror.InvalidChain, "validate", "leaf certificate asserts CA basic constraint")
	}

	for i := 0; i < len(chain)-1; i++ {
		child, parent := chain[i], chain[i+1]
		if err := child.CheckSignatureFrom(parent); err != nil {
			return verror.Wrap(verror.InvalidSignature, "validate", err)
		}
	}

	return nil
}
