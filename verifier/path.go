package verifier

import (
	"crypto/x509"
	"math/big"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/smallstep/keyattestation/internal/androidroot"
)

// TrustAnchorSource supplies the set of trusted root certificates for one
// verification call. It is invoked once per Verify and may refresh between
// calls; implementations must be safe to call concurrently.
type TrustAnchorSource interface {
	TrustAnchors() ([]*x509.Certificate, error)
}

// TrustAnchorSourceFunc adapts a function to TrustAnchorSource.
type TrustAnchorSourceFunc func() ([]*x509.Certificate, error)

func (f TrustAnchorSourceFunc) TrustAnchors() ([]*x509.Certificate, error) { return f() }

// RevokedSerialsSource supplies the set of revoked certificate serial
// numbers (lowercase hex, no leading zeros) for one verification call.
type RevokedSerialsSource interface {
	RevokedSerials() (map[string]bool, error)
}

// RevokedSerialsSourceFunc adapts a function to RevokedSerialsSource.
type RevokedSerialsSourceFunc func() (map[string]bool, error)

func (f RevokedSerialsSourceFunc) RevokedSerials() (map[string]bool, error) { return f() }

// Clock supplies the current time used for certificate validity checks,
// letting tests inject a fixed instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default Clock, backed by time.Now.
var SystemClock Clock = systemClock{}

// pathValidator composes a PKIX validation call with a revocation pass
// over every certificate's serial number against a revoked-set. There is
// no soft-fail: a serial found in the set rejects the chain outright. It
// is constructed once by NewVerifier and rejects at construction time any
// anchor that is a known Android software attestation root.
type pathValidator struct {
	anchors TrustAnchorSource
	revoked RevokedSerialsSource
	clock   Clock
}

// newPathValidator builds a pathValidator, validating that none of the
// anchors currently available from anchors is the software attestation
// root. Since TrustAnchorSource may refresh later, this is a best-effort
// fail-fast check at construction time, not an ongoing guarantee.
func newPathValidator(anchors TrustAnchorSource, revoked RevokedSerialsSource, clock Clock) (*pathValidator, error) {
	if clock == nil {
		clock = SystemClock
	}
	roots, err := anchors.TrustAnchors()
	if err != nil {
		return nil, errors.Wrap(err, "loading trust anchors")
	}
	for _, root := range roots {
		if androidroot.IsSoftwareRoot(root) {
			return nil, errors.New("trust anchor is the Android software attestation root")
		}
	}
	return &pathValidator{anchors: anchors, revoked: revoked, clock: clock}, nil
}

// validate runs PKIX path validation over certs (leaf-first, anchor
// excluded) against the configured trust anchors and revoked-serial set.
// On success it returns the verified chain's leaf certificate so the
// caller can read its public key.
func (p *pathValidator) validate(certs []*x509.Certificate) (*x509.Certificate, *Result) {
	if len(certs) == 0 {
		return nil, pathValidationFailure("UNSPECIFIED", errors.New("empty chain"))
	}

	revoked, err := p.revoked.RevokedSerials()
	if err != nil {
		return nil, pathValidationFailure("UNSPECIFIED", errors.Wrap(err, "loading revoked serials"))
	}
	for _, c := range certs {
		if serial := normalizeSerial(c.SerialNumber); revoked[serial] {
			return nil, pathValidationFailure("REVOKED", errors.Errorf("certificate %s is revoked", serial))
		}
	}

	roots, err := p.anchors.TrustAnchors()
	if err != nil {
		return nil, pathValidationFailure("UNSPECIFIED", errors.Wrap(err, "loading trust anchors"))
	}
	rootPool := x509.NewCertPool()
	for _, r := range roots {
		rootPool.AddCert(r)
	}

	leaf := certs[0]
	intermediatePool := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediatePool.AddCert(c)
	}

	opts := x509.VerifyOptions{
		Roots:         rootPool,
		Intermediates: intermediatePool,
		CurrentTime:   p.clock.Now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}

	if _, err := leaf.Verify(opts); err != nil {
		return leaf, pathValidationFailure(pkixFailureReason(err), err)
	}
	return leaf, nil
}

// normalizeSerial renders a serial number as lowercase hex with no leading
// zeros, matching the wire format of the revoked-serials source.
func normalizeSerial(serial *big.Int) string {
	if serial == nil {
		return ""
	}
	return serial.Text(16)
}

func pkixFailureReason(err error) string {
	switch err.(type) {
	case x509.UnknownAuthorityError:
		return "NO_TRUST_ANCHOR"
	case x509.CertificateInvalidError:
		ciErr := err.(x509.CertificateInvalidError)
		switch ciErr.Reason {
		case x509.Expired:
			if strings.Contains(ciErr.Detail, "before") {
				return "NOT_YET_VALID"
			}
			return "EXPIRED"
		case x509.IncompatibleUsage, x509.NameConstraintsWithoutSANs, x509.NameMismatch:
			return "NAME_CHAINING"
		default:
			return "UNSPECIFIED"
		}
	case x509.HostnameError:
		return "NAME_CHAINING"
	case x509.ConstraintViolationError:
		return "NAME_CHAINING"
	default:
		return "INVALID_SIGNATURE"
	}
}
