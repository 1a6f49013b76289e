package verifier

import (
	"bytes"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"

	"github.com/smallstep/keyattestation/keydescription"
)

// ProvisioningMethod records how the attestation key in a chain was
// provisioned, inferred from the intermediate certificate's subject. It is
// an observation, never a verification gate.
type ProvisioningMethod int

const (
	ProvisioningUnknown ProvisioningMethod = iota
	ProvisioningFactory
	ProvisioningRemote
)

func (m ProvisioningMethod) String() string {
	switch m {
	case ProvisioningFactory:
		return "FACTORY_PROVISIONED"
	case ProvisioningRemote:
		return "REMOTELY_PROVISIONED"
	default:
		return "UNKNOWN"
	}
}

// Chain-shape reason codes, surfaced as Result.Reason on a
// ChainParsingFailure.
const (
	reasonTooShort                       = "At least 3 certificates are required"
	reasonMissingAttestationExtension    = "TARGET_MISSING_ATTESTATION_EXTENSION"
	reasonChainExtendedWithFakeExtension = "CHAIN_EXTENDED_WITH_FAKE_ATTESTATION_EXTENSION"
	reasonChainExtendedForKey            = "CHAIN_EXTENDED_FOR_KEY"
	reasonRootNotFound                   = "Root certificate not found"
)

// chain wraps a raw certificate slice with the attestation-shape
// projections the rest of the verifier needs: the leaf, the certificate
// that attested it, the intermediate immediately below the root, and the
// slice with the trust anchor removed.
type chain struct {
	certs                     []*x509.Certificate
	leaf                      *x509.Certificate
	attestationCert           *x509.Certificate
	intermediate              *x509.Certificate
	certificatesWithoutAnchor []*x509.Certificate
	provisioningMethod        ProvisioningMethod
}

// newChain checks the shape of certs and builds a chain wrapper, or
// returns a ChainParsingFailure Result. The attestation extension must
// appear on exactly one certificate, the leaf: an extension found anywhere
// later in the chain means the chain was extended below the legitimate
// attestation certificate to smuggle in an attacker-controlled key.
func newChain(certs []*x509.Certificate) (*chain, *Result) {
	if len(certs) < 3 {
		return nil, chainParsingFailure(reasonTooShort, reasonTooShort)
	}

	lastWithExt := -1
	for i, c := range certs {
		if hasAttestationExtension(c) {
			lastWithExt = i
		}
	}

	switch {
	case lastWithExt == -1:
		return nil, chainParsingFailure(reasonMissingAttestationExtension, "Attestation extension not found")
	case lastWithExt == 0:
		// ok, the common case
	case hasAttestationExtension(certs[0]):
		return nil, chainParsingFailure(reasonChainExtendedWithFakeExtension, "more than one certificate carries the attestation extension")
	default:
		return nil, chainParsingFailure(reasonChainExtendedForKey, "Certificate after target certificate")
	}

	root := certs[len(certs)-1]
	if !isSelfIssued(root) {
		return nil, chainParsingFailure(reasonRootNotFound, "Root certificate not found")
	}

	without := certs[:len(certs)-1]
	c := &chain{
		certs:                     certs,
		leaf:                      certs[0],
		attestationCert:           certs[1],
		intermediate:              without[len(without)-1],
		certificatesWithoutAnchor: without,
	}
	c.provisioningMethod = inferProvisioningMethod(c.intermediate)
	return c, nil
}

func hasAttestationExtension(cert *x509.Certificate) bool {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(keydescription.OID) {
			return true
		}
	}
	return false
}

// attestationExtensionValue returns the raw value of the attestation
// extension on cert, if present.
func attestationExtensionValue(cert *x509.Certificate) ([]byte, bool) {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(keydescription.OID) {
			return ext.Value, true
		}
	}
	return nil, false
}

// provisioningInfoExtensionValue returns the raw value of the provisioning
// info extension on cert, if present.
func provisioningInfoExtensionValue(cert *x509.Certificate) ([]byte, bool) {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(keydescription.ProvisioningOID) {
			return ext.Value, true
		}
	}
	return nil, false
}

// isSelfIssued compares the encoded subject and issuer names byte-wise,
// the same check crypto/x509 itself uses to recognize a self-issued
// certificate.
func isSelfIssued(cert *x509.Certificate) bool {
	return bytes.Equal(cert.RawSubject, cert.RawIssuer)
}

// RDN attribute types used to recognize factory provisioning, matched
// structurally against the parsed subject rather than by splitting its
// RFC 1779 string representation, which breaks on escaped commas inside a
// DN value.
var (
	oidSerialNumber = asn1.ObjectIdentifier{2, 5, 4, 5}
	oidTitle        = asn1.ObjectIdentifier{2, 5, 4, 12}
)

// inferProvisioningMethod classifies the intermediate's subject. A subject
// carrying both a serialNumber and a title of TEE or StrongBox is a
// factory-provisioned chain; the Droid CA2 intermediate operated by Google
// identifies a remotely-provisioned one. Subject.Names holds every parsed
// attribute, including ones pkix.Name has no dedicated field for.
func inferProvisioningMethod(intermediate *x509.Certificate) ProvisioningMethod {
	var title string
	var hasSerialNumber, hasTitle bool
	for _, atv := range intermediate.Subject.Names {
		switch {
		case atv.Type.Equal(oidSerialNumber):
			hasSerialNumber = true
		case atv.Type.Equal(oidTitle):
			if s, ok := atv.Value.(string); ok {
				title, hasTitle = s, true
			}
		}
	}
	if hasSerialNumber && hasTitle && (title == "TEE" || title == "StrongBox") {
		return ProvisioningFactory
	}
	if intermediate.Subject.CommonName == "Droid CA2" && hasOrg(intermediate.Subject, "Google LLC") {
		return ProvisioningRemote
	}
	return ProvisioningUnknown
}

func hasOrg(name pkix.Name, org string) bool {
	for _, o := range name.Organization {
		if o == org {
			return true
		}
	}
	return false
}
