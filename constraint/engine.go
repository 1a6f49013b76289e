package constraint

import (
	"fmt"

	"github.com/smallstep/keyattestation/keydescription"
)

// ReasonCode identifies which constrained field a Violation failed on.
type ReasonCode int

const (
	KeyOriginConstraintViolation ReasonCode = iota
	SecurityLevelConstraintViolation
	RootOfTrustConstraintViolation
	AuthorizationListOrderingConstraintViolation
)

func (r ReasonCode) String() string {
	switch r {
	case KeyOriginConstraintViolation:
		return "KEY_ORIGIN_CONSTRAINT_VIOLATION"
	case SecurityLevelConstraintViolation:
		return "SECURITY_LEVEL_CONSTRAINT_VIOLATION"
	case RootOfTrustConstraintViolation:
		return "ROOT_OF_TRUST_CONSTRAINT_VIOLATION"
	case AuthorizationListOrderingConstraintViolation:
		return "AUTHORIZATION_LIST_ORDERING_CONSTRAINT_VIOLATION"
	default:
		return "UNKNOWN_CONSTRAINT_VIOLATION"
	}
}

// Violation reports the first constraint the engine found unsatisfied.
type Violation struct {
	Reason  ReasonCode
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s", v.Reason, v.Message)
}

// Evaluate checks kd against cfg in a fixed order: keyOrigin, then
// securityLevel, then rootOfTrust, then authorizationListTagOrder. It
// returns the first violation found, or nil if every constraint is
// satisfied.
//
// keyOrigin and rootOfTrust are read from HardwareEnforced, since KeyMint
// places both there; the security-level check instead compares kd's two
// top-level security-level fields against each other and against cfg.
func Evaluate(kd *keydescription.KeyDescription, cfg Config) *Violation {
	if v := checkKeyOrigin(kd, cfg.KeyOrigin); v != nil {
		return v
	}
	if v := checkSecurityLevel(kd, cfg.SecurityLevel); v != nil {
		return v
	}
	if v := checkRootOfTrust(kd, cfg.RootOfTrust); v != nil {
		return v
	}
	if v := checkAuthorizationListTagOrder(kd, cfg.AuthorizationListTagOrder); v != nil {
		return v
	}
	return nil
}

func checkKeyOrigin(kd *keydescription.KeyDescription, level ValidationLevel[int64]) *Violation {
	origin := kd.HardwareEnforced.Origin
	present := origin != nil
	var value int64
	if present {
		value = origin.Int64()
	}
	if evaluate(level, present, value) {
		return nil
	}
	return &Violation{
		Reason:  KeyOriginConstraintViolation,
		Message: fmt.Sprintf("hardwareEnforced.origin does not satisfy %s", describeLevel(level)),
	}
}

func checkSecurityLevel(kd *keydescription.KeyDescription, rule SecurityLevelRule) *Violation {
	fail := func(msg string) *Violation {
		return &Violation{Reason: SecurityLevelConstraintViolation, Message: msg}
	}

	switch rule.Mode {
	case SecurityLevelIgnore:
		return nil
	case SecurityLevelNotNull:
		// Both fields are mandatory in KeyDescription's grammar, so
		// NOT_NULL is always satisfied once parsing has succeeded.
		return nil
	case SecurityLevelStrict:
		if kd.AttestationSecurityLevel != rule.Expected {
			return fail(fmt.Sprintf("attestationSecurityLevel is %s, want %s", kd.AttestationSecurityLevel, rule.Expected))
		}
		if kd.KeyMintSecurityLevel != rule.Expected {
			return fail(fmt.Sprintf("keyMintSecurityLevel is %s, want %s", kd.KeyMintSecurityLevel, rule.Expected))
		}
		return nil
	case SecurityLevelConsistent:
		if kd.AttestationSecurityLevel != kd.KeyMintSecurityLevel {
			return fail(fmt.Sprintf("attestationSecurityLevel (%s) and keyMintSecurityLevel (%s) disagree", kd.AttestationSecurityLevel, kd.KeyMintSecurityLevel))
		}
		return nil
	case SecurityLevelNotSoftware:
		if kd.AttestationSecurityLevel != kd.KeyMintSecurityLevel {
			return fail(fmt.Sprintf("attestationSecurityLevel (%s) and keyMintSecurityLevel (%s) disagree", kd.AttestationSecurityLevel, kd.KeyMintSecurityLevel))
		}
		if kd.AttestationSecurityLevel == keydescription.SecurityLevelSoftware {
			return fail("security level is SOFTWARE")
		}
		return nil
	default:
		return fail("unknown security level mode")
	}
}

func checkRootOfTrust(kd *keydescription.KeyDescription, mode Mode) *Violation {
	present := kd.HardwareEnforced.RootOfTrust != nil
	switch mode {
	case ModeIgnore:
		return nil
	case ModeStrict, ModeNotNull:
		if present {
			return nil
		}
		return &Violation{
			Reason:  RootOfTrustConstraintViolation,
			Message: "hardwareEnforced.rootOfTrust is absent",
		}
	default:
		return &Violation{Reason: RootOfTrustConstraintViolation, Message: "unknown root of trust mode"}
	}
}

func checkAuthorizationListTagOrder(kd *keydescription.KeyDescription, mode Mode) *Violation {
	if mode == ModeIgnore {
		return nil
	}
	if kd.SoftwareEnforced.AreTagsOrdered && kd.HardwareEnforced.AreTagsOrdered {
		return nil
	}
	return &Violation{
		Reason:  AuthorizationListOrderingConstraintViolation,
		Message: "authorization list tags are not in strictly ascending order",
	}
}

func describeLevel[T comparable](level ValidationLevel[T]) string {
	switch level.Mode {
	case ModeStrict:
		return fmt.Sprintf("STRICT(%v)", level.Expected)
	default:
		return level.Mode.String()
	}
}
