// Package verifier validates Android Keystore attestation chains: it
// sequences chain-shape validation, PKIX path validation, KeyDescription
// parsing, a configurable constraint engine, and an optional challenge
// check into a single sum-typed Result.
package verifier

import (
	"context"
	"crypto/x509"
	"errors"

	"github.com/smallstep/keyattestation/constraint"
	"github.com/smallstep/keyattestation/keydescription"
)

// Verifier validates Android Keystore attestation chains against a set of
// trust anchors, a revocation source, and a constraint configuration.
type Verifier struct {
	path   *pathValidator
	config constraint.Config
}

// Option configures a Verifier at construction time.
type Option func(*Verifier)

// WithConstraintConfig overrides the default constraint configuration.
func WithConstraintConfig(cfg constraint.Config) Option {
	return func(v *Verifier) { v.config = cfg }
}

// NewVerifier builds a Verifier. It fails if any trust anchor currently
// returned by anchors is a known Android software attestation root.
func NewVerifier(anchors TrustAnchorSource, revoked RevokedSerialsSource, clock Clock, opts ...Option) (*Verifier, error) {
	pv, err := newPathValidator(anchors, revoked, clock)
	if err != nil {
		return nil, err
	}
	v := &Verifier{path: pv, config: constraint.New()}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Future is a channel-backed handle to the result of an in-flight
// VerifyAsync call, since Go has no first-class future/promise type.
type Future struct {
	done chan *Result
}

// Get blocks until the future resolves or ctx is cancelled, whichever
// comes first.
func (f *Future) Get(ctx context.Context) (*Result, error) {
	select {
	case r := <-f.done:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Verify synchronously validates chain (leaf-first, root last) and
// returns exactly one Result variant; it never panics or returns a Go
// error for an invalid chain. checker and log are both optional; a nil
// checker accepts every challenge, a nil log discards every observation.
func (v *Verifier) Verify(chain []*x509.Certificate, checker ChallengeChecker, log LogHook) *Result {
	return v.run(context.Background(), chain, checker, log)
}

// VerifyAsync is Verify's asynchronous counterpart: it suspends at exactly
// one point, the challenge-checker invocation; all other work runs to
// completion without yielding.
func (v *Verifier) VerifyAsync(ctx context.Context, chain []*x509.Certificate, checker ChallengeChecker, log LogHook) *Future {
	f := &Future{done: make(chan *Result, 1)}
	go func() {
		f.done <- v.run(ctx, chain, checker, log)
	}()
	return f
}

func (v *Verifier) run(ctx context.Context, chain []*x509.Certificate, checker ChallengeChecker, log LogHook) *Result {
	if log == nil {
		log = NopLogHook{}
	}

	raw := make([][]byte, len(chain))
	for i, c := range chain {
		raw[i] = c.Raw
	}
	log.LogInputChain(raw)

	result := v.verify(ctx, chain, checker, log)
	log.LogResult(result)
	return result
}

// verify implements the ordered verification sequence: chain shape, serial
// logging, provisioning info, path validation, extension parsing, challenge
// check, constraint evaluation, result construction.
func (v *Verifier) verify(ctx context.Context, certs []*x509.Certificate, checker ChallengeChecker, log LogHook) *Result {
	c, failure := newChain(certs)
	if failure != nil {
		return failure
	}

	serials := make([]string, 0, len(c.certs)-1)
	for _, cert := range c.certs[1:] {
		serials = append(serials, normalizeSerial(cert.SerialNumber))
	}
	log.LogCertSerialNumbers(serials)

	var provisioningInfo *keydescription.ProvisioningInfoMap
	if c.provisioningMethod == ProvisioningRemote {
		if value, ok := provisioningInfoExtensionValue(c.attestationCert); ok {
			info, err := keydescription.ParseProvisioningInfoMap(value)
			if err != nil {
				log.LogInfoMessage("provisioning info parse failed: " + err.Error())
			} else {
				provisioningInfo = info
				log.LogProvisioningInfoMap(info)
			}
		}
	}

	verifiedLeaf, failure := v.path.validate(c.certificatesWithoutAnchor)
	if failure != nil {
		return failure
	}

	extValue, ok := attestationExtensionValue(c.leaf)
	if !ok {
		return extensionParsingFailure(reasonMissingAttestationExtension, nil)
	}
	parsed, err := keydescription.Parse(extValue)
	if err != nil {
		var pe *keydescription.ParseError
		if errors.As(err, &pe) {
			return extensionParsingFailure(pe.Reason.String(), pe)
		}
		return extensionParsingFailure("MALFORMED_DER", err)
	}
	for _, notice := range parsed.Notices {
		log.LogInfoMessage(notice)
	}
	log.LogKeyDescription(parsed.KeyDescription)

	if checker != nil {
		ok, err := checker.Check(ctx, parsed.KeyDescription.AttestationChallenge)
		if err != nil {
			return &Result{Kind: KindChallengeMismatch, Cause: err}
		}
		if !ok {
			return challengeMismatch()
		}
	}

	if violation := constraint.Evaluate(parsed.KeyDescription, v.config); violation != nil {
		return extensionConstraintViolation(violation.Reason.String(), violation.Message)
	}

	device := deviceIdentityFromAuthorizationList(parsed.KeyDescription.HardwareEnforced)
	var bootState keydescription.VerifiedBootState
	if rot := parsed.KeyDescription.HardwareEnforced.RootOfTrust; rot != nil {
		bootState = rot.VerifiedBootState
	}

	return success(
		verifiedLeaf.PublicKey,
		parsed.KeyDescription.AttestationChallenge,
		parsed.KeyDescription.AttestationSecurityLevel,
		bootState,
		provisioningInfo,
		device,
	)
}
