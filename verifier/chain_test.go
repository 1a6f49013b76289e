package verifier

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallstep/keyattestation/keydescription"
)

// attestationExtension builds the leaf extension for a minimal
// KeyDescription, used to place the extension at arbitrary chain positions.
func attestationExtension(t *testing.T) pkix.Extension {
	t.Helper()
	der, err := keydescription.EncodeToASN1(sampleAttestationKeyDescription([]byte("challenge")))
	require.NoError(t, err)
	return pkix.Extension{Id: keydescription.OID, Critical: false, Value: der}
}

func TestNewChainTooShort(t *testing.T) {
	kd := sampleAttestationKeyDescription([]byte("challenge"))
	leaf, _, root := buildChain(t, kd)

	_, failure := newChain([]*x509.Certificate{leaf.cert, root.cert})
	require.NotNil(t, failure)
	require.Equal(t, KindChainParsingFailure, failure.Kind)
	require.Equal(t, reasonTooShort, failure.Reason)
}

func TestNewChainMissingAttestationExtension(t *testing.T) {
	root := signCert(t, baseTemplate(1, "root"), nil)
	intermediate := signCert(t, baseTemplate(2, "intermediate"), root)
	leafTmpl := baseTemplate(3, "leaf")
	leafTmpl.IsCA = false
	leaf := signCert(t, leafTmpl, intermediate)

	_, failure := newChain([]*x509.Certificate{leaf.cert, intermediate.cert, root.cert})
	require.NotNil(t, failure)
	require.Equal(t, KindChainParsingFailure, failure.Kind)
	require.Equal(t, reasonMissingAttestationExtension, failure.Reason)
}

func TestNewChainExtendedWithFakeAttestationExtension(t *testing.T) {
	ext := attestationExtension(t)

	root := signCert(t, baseTemplate(1, "root"), nil)
	intTmpl := baseTemplate(2, "intermediate")
	intTmpl.ExtraExtensions = []pkix.Extension{ext}
	intermediate := signCert(t, intTmpl, root)
	leafTmpl := baseTemplate(3, "leaf")
	leafTmpl.IsCA = false
	leafTmpl.ExtraExtensions = []pkix.Extension{ext}
	leaf := signCert(t, leafTmpl, intermediate)

	_, failure := newChain([]*x509.Certificate{leaf.cert, intermediate.cert, root.cert})
	require.NotNil(t, failure)
	require.Equal(t, KindChainParsingFailure, failure.Kind)
	require.Equal(t, reasonChainExtendedWithFakeExtension, failure.Reason)
}

func TestNewChainExtendedForKey(t *testing.T) {
	ext := attestationExtension(t)

	root := signCert(t, baseTemplate(1, "root"), nil)
	intTmpl := baseTemplate(2, "intermediate")
	intTmpl.ExtraExtensions = []pkix.Extension{ext}
	intermediate := signCert(t, intTmpl, root)
	leafTmpl := baseTemplate(3, "leaf")
	leafTmpl.IsCA = false
	leaf := signCert(t, leafTmpl, intermediate)

	_, failure := newChain([]*x509.Certificate{leaf.cert, intermediate.cert, root.cert})
	require.NotNil(t, failure)
	require.Equal(t, KindChainParsingFailure, failure.Kind)
	require.Equal(t, reasonChainExtendedForKey, failure.Reason)
}

func TestNewChainRootNotSelfIssued(t *testing.T) {
	kd := sampleAttestationKeyDescription([]byte("challenge"))
	leaf, intermediate, root := buildChain(t, kd)

	// A chain whose last certificate is not self-issued has no anchor.
	sub := signCert(t, baseTemplate(4, "sub"), root)
	_, failure := newChain([]*x509.Certificate{leaf.cert, intermediate.cert, sub.cert})
	require.NotNil(t, failure)
	require.Equal(t, KindChainParsingFailure, failure.Kind)
	require.Equal(t, reasonRootNotFound, failure.Reason)
}

func TestNewChainProjections(t *testing.T) {
	kd := sampleAttestationKeyDescription([]byte("challenge"))
	leaf, intermediate, root := buildChain(t, kd)

	c, failure := newChain([]*x509.Certificate{leaf.cert, intermediate.cert, root.cert})
	require.Nil(t, failure)
	require.Same(t, leaf.cert, c.leaf)
	require.Same(t, intermediate.cert, c.attestationCert)
	require.Same(t, intermediate.cert, c.intermediate)
	require.Len(t, c.certificatesWithoutAnchor, 2)
}

func TestInferProvisioningMethodFactory(t *testing.T) {
	tmpl := baseTemplate(2, "")
	tmpl.Subject = pkix.Name{
		SerialNumber: "f92009e853b6b045",
		ExtraNames: []pkix.AttributeTypeAndValue{
			{Type: oidTitle, Value: "TEE"},
		},
	}
	root := signCert(t, baseTemplate(1, "root"), nil)
	intermediate := signCert(t, tmpl, root)

	require.Equal(t, ProvisioningFactory, inferProvisioningMethod(intermediate.cert))
}

func TestInferProvisioningMethodStrongBox(t *testing.T) {
	tmpl := baseTemplate(2, "")
	tmpl.Subject = pkix.Name{
		SerialNumber: "f92009e853b6b045",
		ExtraNames: []pkix.AttributeTypeAndValue{
			{Type: oidTitle, Value: "StrongBox"},
		},
	}
	root := signCert(t, baseTemplate(1, "root"), nil)
	intermediate := signCert(t, tmpl, root)

	require.Equal(t, ProvisioningFactory, inferProvisioningMethod(intermediate.cert))
}

func TestInferProvisioningMethodRemote(t *testing.T) {
	tmpl := baseTemplate(2, "Droid CA2")
	tmpl.Subject.Organization = []string{"Google LLC"}
	root := signCert(t, baseTemplate(1, "root"), nil)
	intermediate := signCert(t, tmpl, root)

	require.Equal(t, ProvisioningRemote, inferProvisioningMethod(intermediate.cert))
}

func TestInferProvisioningMethodUnknown(t *testing.T) {
	root := signCert(t, baseTemplate(1, "root"), nil)
	intermediate := signCert(t, baseTemplate(2, "intermediate"), root)

	require.Equal(t, ProvisioningUnknown, inferProvisioningMethod(intermediate.cert))
}
