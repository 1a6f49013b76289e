package constraint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallstep/keyattestation/keydescription"
)

func baseKeyDescription() *keydescription.KeyDescription {
	return &keydescription.KeyDescription{
		AttestationSecurityLevel: keydescription.SecurityLevelTrustedEnvironment,
		KeyMintSecurityLevel:     keydescription.SecurityLevelTrustedEnvironment,
		SoftwareEnforced: &keydescription.AuthorizationList{
			AreTagsOrdered: true,
		},
		HardwareEnforced: &keydescription.AuthorizationList{
			Origin: keydescription.OriginGenerated,
			RootOfTrust: &keydescription.RootOfTrust{
				VerifiedBootState: keydescription.BootStateVerified,
			},
			AreTagsOrdered: true,
		},
	}
}

func TestEvaluateDefaultConfigAccepts(t *testing.T) {
	kd := baseKeyDescription()
	v := Evaluate(kd, New())
	require.Nil(t, v)
}

func TestEvaluateKeyOriginViolation(t *testing.T) {
	kd := baseKeyDescription()
	kd.HardwareEnforced.Origin = big.NewInt(2) // imported, not generated

	v := Evaluate(kd, New())
	require.NotNil(t, v)
	require.Equal(t, KeyOriginConstraintViolation, v.Reason)
}

func TestEvaluateKeyOriginAbsentViolation(t *testing.T) {
	kd := baseKeyDescription()
	kd.HardwareEnforced.Origin = nil

	v := Evaluate(kd, New())
	require.NotNil(t, v)
	require.Equal(t, KeyOriginConstraintViolation, v.Reason)
}

func TestEvaluateSecurityLevelViolation(t *testing.T) {
	kd := baseKeyDescription()
	kd.AttestationSecurityLevel = keydescription.SecurityLevelSoftware
	kd.KeyMintSecurityLevel = keydescription.SecurityLevelSoftware

	v := Evaluate(kd, New())
	require.NotNil(t, v)
	require.Equal(t, SecurityLevelConstraintViolation, v.Reason)
}

func TestEvaluateSecurityLevelConsistentMode(t *testing.T) {
	kd := baseKeyDescription()
	kd.AttestationSecurityLevel = keydescription.SecurityLevelStrongBox
	kd.KeyMintSecurityLevel = keydescription.SecurityLevelStrongBox

	cfg := New(WithSecurityLevel(SecurityLevelRule{Mode: SecurityLevelConsistent}))
	v := Evaluate(kd, cfg)
	require.Nil(t, v)

	kd.KeyMintSecurityLevel = keydescription.SecurityLevelTrustedEnvironment
	v = Evaluate(kd, cfg)
	require.NotNil(t, v)
	require.Equal(t, SecurityLevelConstraintViolation, v.Reason)
}

func TestEvaluateRootOfTrustAbsentViolation(t *testing.T) {
	kd := baseKeyDescription()
	kd.HardwareEnforced.RootOfTrust = nil

	v := Evaluate(kd, New())
	require.NotNil(t, v)
	require.Equal(t, RootOfTrustConstraintViolation, v.Reason)
}

func TestEvaluateRootOfTrustIgnoredWhenConfigured(t *testing.T) {
	kd := baseKeyDescription()
	kd.HardwareEnforced.RootOfTrust = nil

	cfg := New(WithRootOfTrust(ModeIgnore))
	v := Evaluate(kd, cfg)
	require.Nil(t, v)
}

func TestEvaluateAuthorizationListTagOrderIgnoredByDefault(t *testing.T) {
	kd := baseKeyDescription()
	kd.HardwareEnforced.AreTagsOrdered = false

	v := Evaluate(kd, New())
	require.Nil(t, v, "tag order is IGNORE by default")
}

func TestEvaluateAuthorizationListTagOrderStrict(t *testing.T) {
	kd := baseKeyDescription()
	kd.HardwareEnforced.AreTagsOrdered = false

	cfg := New(WithAuthorizationListTagOrder(ModeStrict))
	v := Evaluate(kd, cfg)
	require.NotNil(t, v)
	require.Equal(t, AuthorizationListOrderingConstraintViolation, v.Reason)
}

func TestEvaluateOrderingIsKeyOriginFirst(t *testing.T) {
	// Both keyOrigin and securityLevel are violated; keyOrigin must win
	// since it is checked first per the fixed evaluation order.
	kd := baseKeyDescription()
	kd.HardwareEnforced.Origin = big.NewInt(2)
	kd.AttestationSecurityLevel = keydescription.SecurityLevelSoftware
	kd.KeyMintSecurityLevel = keydescription.SecurityLevelSoftware

	v := Evaluate(kd, New())
	require.NotNil(t, v)
	require.Equal(t, KeyOriginConstraintViolation, v.Reason)
}
