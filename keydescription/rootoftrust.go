package keydescription

import (
	"encoding/asn1"

	"github.com/pkg/errors"
)

// VerifiedBootState indicates whether the boot chain was verified against a
// known key, a user-installed key, not verified at all, or failed
// verification outright.
type VerifiedBootState int

const (
	BootStateVerified VerifiedBootState = iota
	BootStateSelfSigned
	BootStateUnverified
	BootStateFailed
)

func (s VerifiedBootState) String() string {
	switch s {
	case BootStateVerified:
		return "VERIFIED"
	case BootStateSelfSigned:
		return "SELF_SIGNED"
	case BootStateUnverified:
		return "UNVERIFIED"
	case BootStateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// RootOfTrust is the boot-verified identity of the device's boot code and
// state, carried inside the hardware-enforced authorization list under tag
// 704.
type RootOfTrust struct {
	VerifiedBootKey   []byte
	DeviceLocked      bool
	VerifiedBootState VerifiedBootState
	// VerifiedBootHash is present only on arity-4 encodings.
	VerifiedBootHash []byte
}

// rawRootOfTrust mirrors the positional SEQUENCE:
//
//	RootOfTrust ::= SEQUENCE {
//	  verifiedBootKey    OCTET STRING,
//	  deviceLocked       BOOLEAN,
//	  verifiedBootState  ENUMERATED,
//	  verifiedBootHash   OCTET STRING OPTIONAL }
type rawRootOfTrust struct {
	VerifiedBootKey   []byte
	DeviceLocked      bool
	VerifiedBootState asn1.Enumerated
	VerifiedBootHash  []byte `asn1:"optional"`
}

// parseRootOfTrust parses a RootOfTrust from an element body holding the
// full SEQUENCE TLV, after asSequence has checked its shape. Arity 3 (no
// hash) and arity 4 (with hash) are both legal; any other shape is a parse
// error. RootOfTrust is a structural field, so a malformed value here is
// always fatal, never logged-absent.
func parseRootOfTrust(body []byte) (*RootOfTrust, error) {
	seq, err := asSequence(body)
	if err != nil {
		return nil, errors.Wrap(err, "RootOfTrust")
	}
	arity := 0
	for elems := seq; len(elems) > 0; arity++ {
		var rv asn1.RawValue
		if elems, err = asn1.Unmarshal(elems, &rv); err != nil {
			return nil, errors.Wrap(err, "RootOfTrust")
		}
	}
	if arity != 3 && arity != 4 {
		return nil, errors.Errorf("RootOfTrust: arity %d, want 3 or 4", arity)
	}
	var raw rawRootOfTrust
	rest, err := asn1.Unmarshal(body, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "RootOfTrust")
	}
	if len(rest) != 0 {
		return nil, errors.New("RootOfTrust: trailing data")
	}
	state, err := verifiedBootStateFromInt(int(raw.VerifiedBootState))
	if err != nil {
		return nil, errors.Wrap(err, "RootOfTrust")
	}
	return &RootOfTrust{
		VerifiedBootKey:   raw.VerifiedBootKey,
		DeviceLocked:      raw.DeviceLocked,
		VerifiedBootState: state,
		VerifiedBootHash:  raw.VerifiedBootHash,
	}, nil
}

func verifiedBootStateFromInt(v int) (VerifiedBootState, error) {
	switch v {
	case int(BootStateVerified), int(BootStateSelfSigned), int(BootStateUnverified), int(BootStateFailed):
		return VerifiedBootState(v), nil
	default:
		return 0, &UnknownEnumValueError{Field: "verifiedBootState", Value: v}
	}
}
