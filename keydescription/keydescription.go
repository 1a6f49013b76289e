// Package keydescription parses the Android Keystore attestation
// extension (OID 1.3.6.1.4.1.11129.2.1.17) into a strongly-typed
// KeyDescription, and the companion remote-provisioning info extension
// (OID 1.3.6.1.4.1.11129.2.1.30).
package keydescription

import (
	"encoding/asn1"
	"math/big"

	"github.com/pkg/errors"
)

// OID is the object identifier of the KeyDescription attestation
// extension.
var OID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 1, 17}

// SecurityLevel is the enclave strength backing a key or the attestation
// itself.
type SecurityLevel int

const (
	SecurityLevelSoftware SecurityLevel = iota
	SecurityLevelTrustedEnvironment
	SecurityLevelStrongBox
)

func (s SecurityLevel) String() string {
	switch s {
	case SecurityLevelSoftware:
		return "SOFTWARE"
	case SecurityLevelTrustedEnvironment:
		return "TRUSTED_ENVIRONMENT"
	case SecurityLevelStrongBox:
		return "STRONG_BOX"
	default:
		return "UNKNOWN"
	}
}

func securityLevelFromInt(v int) (SecurityLevel, error) {
	switch v {
	case int(SecurityLevelSoftware), int(SecurityLevelTrustedEnvironment), int(SecurityLevelStrongBox):
		return SecurityLevel(v), nil
	default:
		return 0, &UnknownEnumValueError{Field: "securityLevel", Value: v}
	}
}

// KeyDescription is the parsed value of the attestation extension: a
// fixed-arity positional record naming the attested key's version,
// security posture, challenge, and the two authorization lists that
// describe what the software and the hardware respectively enforce about
// it.
type KeyDescription struct {
	AttestationVersion       *big.Int
	AttestationSecurityLevel SecurityLevel
	KeyMintVersion           *big.Int
	KeyMintSecurityLevel     SecurityLevel
	AttestationChallenge     []byte
	UniqueID                 []byte
	SoftwareEnforced         *AuthorizationList
	HardwareEnforced         *AuthorizationList
}

// rawKeyDescription mirrors the positional top-level SEQUENCE. The two
// AuthorizationList fields are decoded as raw bytes here and parsed
// separately by parseAuthorizationList, since they need tag-order tracking
// encoding/asn1's struct decoding cannot provide.
type rawKeyDescription struct {
	AttestationVersion       *big.Int
	AttestationSecurityLevel asn1.Enumerated
	KeyMintVersion           *big.Int
	KeyMintSecurityLevel     asn1.Enumerated
	AttestationChallenge     []byte
	UniqueID                 []byte
	SoftwareEnforced         asn1.RawValue
	HardwareEnforced         asn1.RawValue
}

// ParseResult bundles a successfully parsed KeyDescription with the
// human-readable, non-fatal observations collected while parsing it
// (unordered tags, odd patch-level widths, malformed optional fields).
// Callers forward Notices to a log hook; they never indicate failure.
type ParseResult struct {
	KeyDescription *KeyDescription
	Notices        []string
}

// Parse decodes the DER bytes of an X.509 extension's OCTET STRING value
// (itself wrapping the inner KeyDescription SEQUENCE) into a
// KeyDescription. Parse is total: every input either yields a KeyDescription
// or a *ParseError describing why it could not be produced.
func Parse(extensionValue []byte) (*ParseResult, error) {
	var inner []byte
	if rest, err := asn1.Unmarshal(extensionValue, &inner); err != nil {
		return nil, newParseError(ReasonMalformedDER, "extension value is not an OCTET STRING", err)
	} else if len(rest) != 0 {
		return nil, newParseError(ReasonMalformedDER, "trailing data after extension OCTET STRING", nil)
	}

	var raw rawKeyDescription
	rest, err := asn1.Unmarshal(inner, &raw)
	if err != nil {
		return nil, newParseError(ReasonWrongArity, "KeyDescription SEQUENCE", err)
	}
	if len(rest) != 0 {
		return nil, newParseError(ReasonMalformedDER, "trailing data after KeyDescription SEQUENCE", nil)
	}

	attSecLevel, err := securityLevelFromInt(int(raw.AttestationSecurityLevel))
	if err != nil {
		return nil, newParseError(ReasonInvalidEnumValue, "attestationSecurityLevel", err)
	}
	kmSecLevel, err := securityLevelFromInt(int(raw.KeyMintSecurityLevel))
	if err != nil {
		return nil, newParseError(ReasonInvalidEnumValue, "keyMintSecurityLevel", err)
	}

	if raw.SoftwareEnforced.Tag != asn1.TagSequence || !raw.SoftwareEnforced.IsCompound {
		return nil, newParseError(ReasonWrongArity, "softwareEnforced is not a SEQUENCE", nil)
	}
	if raw.HardwareEnforced.Tag != asn1.TagSequence || !raw.HardwareEnforced.IsCompound {
		return nil, newParseError(ReasonWrongArity, "hardwareEnforced is not a SEQUENCE", nil)
	}

	softwareEnforced, swNotices, err := parseAuthorizationList(raw.SoftwareEnforced.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "softwareEnforced")
	}
	hardwareEnforced, hwNotices, err := parseAuthorizationList(raw.HardwareEnforced.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "hardwareEnforced")
	}

	notices := make([]string, 0, len(swNotices)+len(hwNotices))
	for _, n := range swNotices {
		notices = append(notices, "softwareEnforced: "+n)
	}
	for _, n := range hwNotices {
		notices = append(notices, "hardwareEnforced: "+n)
	}
	if !softwareEnforced.AreTagsOrdered {
		notices = append(notices, "softwareEnforced: tags are not in ascending order")
	}
	if !hardwareEnforced.AreTagsOrdered {
		notices = append(notices, "hardwareEnforced: tags are not in ascending order")
	}

	kd := &KeyDescription{
		AttestationVersion:       raw.AttestationVersion,
		AttestationSecurityLevel: attSecLevel,
		KeyMintVersion:           raw.KeyMintVersion,
		KeyMintSecurityLevel:     kmSecLevel,
		AttestationChallenge:     raw.AttestationChallenge,
		UniqueID:                 raw.UniqueID,
		SoftwareEnforced:         softwareEnforced,
		HardwareEnforced:         hardwareEnforced,
	}
	return &ParseResult{KeyDescription: kd, Notices: notices}, nil
}
