package verifier

import (
	"crypto"

	"github.com/smallstep/keyattestation/keydescription"
)

// Kind discriminates the closed set of verification outcomes carried by
// Result.
type Kind int

const (
	KindSuccess Kind = iota
	KindChallengeMismatch
	KindPathValidationFailure
	KindChainParsingFailure
	KindExtensionParsingFailure
	KindExtensionConstraintViolation
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "Success"
	case KindChallengeMismatch:
		return "ChallengeMismatch"
	case KindPathValidationFailure:
		return "PathValidationFailure"
	case KindChainParsingFailure:
		return "ChainParsingFailure"
	case KindExtensionParsingFailure:
		return "ExtensionParsingFailure"
	case KindExtensionConstraintViolation:
		return "ExtensionConstraintViolation"
	default:
		return "Unknown"
	}
}

// DeviceIdentity is the projection of the hardware-enforced authorization
// list's attestation-id fields, computed once at result-construction time.
type DeviceIdentity struct {
	Brand        string
	Device       string
	Product      string
	Serial       string
	IMEIs        []string
	MEID         string
	Manufacturer string
	Model        string
}

func deviceIdentityFromAuthorizationList(al *keydescription.AuthorizationList) DeviceIdentity {
	if al == nil {
		return DeviceIdentity{}
	}
	id := DeviceIdentity{
		Brand:        derefString(al.AttestationIDBrand),
		Device:       derefString(al.AttestationIDDevice),
		Product:      derefString(al.AttestationIDProduct),
		Serial:       derefString(al.AttestationIDSerial),
		MEID:         derefString(al.AttestationIDMeid),
		Manufacturer: derefString(al.AttestationIDManufacturer),
		Model:        derefString(al.AttestationIDModel),
	}
	if al.AttestationIDImei != nil {
		id.IMEIs = append(id.IMEIs, *al.AttestationIDImei)
	}
	if al.AttestationIDSecondImei != nil {
		id.IMEIs = append(id.IMEIs, *al.AttestationIDSecondImei)
	}
	return id
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Result is the outcome of one verification call: exactly one of the
// payload fields below is meaningful, selected by Kind.
type Result struct {
	Kind Kind

	// Success payload.
	PublicKey         crypto.PublicKey
	Challenge         []byte
	SecurityLevel     keydescription.SecurityLevel
	VerifiedBootState keydescription.VerifiedBootState
	ProvisioningInfo  *keydescription.ProvisioningInfoMap
	DeviceIdentity    DeviceIdentity

	// Failure payloads.
	Cause       error
	Reason      string
	Description string
}

func (r *Result) Error() string {
	switch r.Kind {
	case KindSuccess:
		return ""
	case KindChallengeMismatch:
		return "challenge mismatch"
	case KindExtensionConstraintViolation:
		return r.Description
	default:
		if r.Cause != nil {
			return r.Kind.String() + ": " + r.Cause.Error()
		}
		return r.Kind.String()
	}
}

func success(publicKey crypto.PublicKey, challenge []byte, securityLevel keydescription.SecurityLevel, bootState keydescription.VerifiedBootState, provisioning *keydescription.ProvisioningInfoMap, device DeviceIdentity) *Result {
	return &Result{
		Kind:              KindSuccess,
		PublicKey:         publicKey,
		Challenge:         challenge,
		SecurityLevel:     securityLevel,
		VerifiedBootState: bootState,
		ProvisioningInfo:  provisioning,
		DeviceIdentity:    device,
	}
}

func challengeMismatch() *Result {
	return &Result{Kind: KindChallengeMismatch}
}

func chainParsingFailure(reason, description string) *Result {
	return &Result{Kind: KindChainParsingFailure, Reason: reason, Description: description}
}

func pathValidationFailure(reason string, cause error) *Result {
	return &Result{Kind: KindPathValidationFailure, Reason: reason, Cause: cause}
}

func extensionParsingFailure(reason string, cause error) *Result {
	return &Result{Kind: KindExtensionParsingFailure, Reason: reason, Cause: cause}
}

func extensionConstraintViolation(reason, description string) *Result {
	return &Result{Kind: KindExtensionConstraintViolation, Reason: reason, Description: description}
}
