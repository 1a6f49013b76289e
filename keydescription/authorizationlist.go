package keydescription

import (
	"fmt"
	"math/big"
)

// AuthorizationList is an open record of the ~40 optional KeyMint
// authorization fields. A field is either absent (its pointer/slice is nil
// or, for a boolean field, its value is false) or present with a typed
// value. Sets of
// integers are unordered; boolean fields are modeled as "absent OR true"
// since their protocol never carries an explicit false.
type AuthorizationList struct {
	Purposes                  []*big.Int
	Algorithm                 *big.Int
	KeySize                   *big.Int
	Digests                   []*big.Int
	Paddings                  []*big.Int
	ECCurve                   *big.Int
	RSAPublicExponent         *big.Int
	RollbackResistance        bool
	ActiveDateTime            *big.Int
	OriginationExpireDateTime *big.Int
	UsageExpireDateTime       *big.Int
	UsageCountLimit           *big.Int
	NoAuthRequired            bool
	UserAuthType              *big.Int
	AuthTimeout               *big.Int
	AllowWhileOnBody          bool
	TrustedUserPresenceReq    bool
	TrustedConfirmationReq    bool
	UnlockedDeviceRequired    bool
	CreationDateTime          *big.Int
	Origin                    *big.Int
	RootOfTrust               *RootOfTrust
	OSVersion                 *big.Int
	OSPatchLevel              *PatchLevel
	AttestationApplicationID  *AttestationApplicationId
	AttestationIDBrand        *string
	AttestationIDDevice       *string
	AttestationIDProduct      *string
	AttestationIDSerial       *string
	AttestationIDImei         *string
	AttestationIDMeid         *string
	AttestationIDManufacturer *string
	AttestationIDModel        *string
	VendorPatchLevel          *PatchLevel
	BootPatchLevel            *PatchLevel
	DeviceUniqueAttestation   bool
	AttestationIDSecondImei   *string
	ModuleHash                []byte

	// AreTagsOrdered records whether the tags, as encountered in the DER
	// encoding, appeared in strictly ascending tag-number order. A false
	// value is a recoverable observation, not a parse failure.
	AreTagsOrdered bool
}

// parseAuthorizationList builds an AuthorizationList from the content
// octets of an AuthorizationList SEQUENCE. notices accumulates
// human-readable observations (unordered tags, malformed optional fields,
// odd patch-level widths) for the caller to forward to a log hook; it never
// causes parseAuthorizationList itself to fail.
func parseAuthorizationList(body []byte) (*AuthorizationList, []string, error) {
	elems, err := walkElements(body)
	if err != nil {
		return nil, nil, newParseError(ReasonMalformedDER, "AuthorizationList", err)
	}

	var notices []string

	// Last occurrence wins on duplicate tags. Every occurrence, duplicates
	// included, lands in order so that duplicated tags surface through the
	// areTagsOrdered observation.
	byTag := make(map[Tag]element, len(elems))
	order := make([]Tag, 0, len(elems))
	for _, e := range elems {
		tag := Tag(e.tag)
		if _, ok := tagShape[tag]; !ok {
			return nil, nil, newParseError(ReasonUnknownTagNumber, fmt.Sprintf("tag %d", tag), nil)
		}
		if _, dup := byTag[tag]; dup {
			notices = append(notices, fmt.Sprintf("duplicate tag %d: last occurrence wins", tag))
		}
		order = append(order, tag)
		byTag[tag] = e
	}

	al := &AuthorizationList{AreTagsOrdered: isAscending(order)}

	for tag, e := range byTag {
		if tag.boolean() {
			v, err := asBoolean(e.body)
			if err != nil {
				return nil, nil, newParseError(ReasonMalformedDER, fmt.Sprintf("tag %d", tag), err)
			}
			if !v {
				return nil, nil, newParseError(ReasonBooleanFieldFalse, fmt.Sprintf("tag %d", tag), nil)
			}
			setBool(al, tag, true)
			continue
		}
		if tag.structural() {
			if err := setStructural(al, tag, e.body); err != nil {
				return nil, nil, err
			}
			continue
		}
		if notice := setOptional(al, tag, e.body); notice != "" {
			notices = append(notices, notice)
		}
	}

	return al, notices, nil
}

func isAscending(order []Tag) bool {
	for i := 1; i < len(order); i++ {
		if order[i] <= order[i-1] {
			return false
		}
	}
	return true
}

func setBool(al *AuthorizationList, tag Tag, v bool) {
	switch tag {
	case TagRollbackResistance:
		al.RollbackResistance = v
	case TagNoAuthRequired:
		al.NoAuthRequired = v
	case TagAllowWhileOnBody:
		al.AllowWhileOnBody = v
	case TagTrustedUserPresenceReq:
		al.TrustedUserPresenceReq = v
	case TagTrustedConfirmationReq:
		al.TrustedConfirmationReq = v
	case TagUnlockedDeviceRequired:
		al.UnlockedDeviceRequired = v
	case TagDeviceUniqueAttestation:
		al.DeviceUniqueAttestation = v
	}
}

// setStructural parses a structural field (RootOfTrust,
// AttestationApplicationId). A malformed value here is always a fatal
// parse error, never logged-absent.
func setStructural(al *AuthorizationList, tag Tag, body []byte) error {
	switch tag {
	case TagRootOfTrust:
		rot, err := parseRootOfTrust(body)
		if err != nil {
			return newParseError(ReasonMalformedDER, "RootOfTrust", err)
		}
		al.RootOfTrust = rot
	case TagAttestationApplicationID:
		id, err := parseAttestationApplicationId(body)
		if err != nil {
			return newParseError(ReasonMalformedDER, "AttestationApplicationId", err)
		}
		al.AttestationApplicationID = id
	}
	return nil
}

// setOptional parses an optional, non-structural, non-boolean field. A
// per-field error here is recovered: the field is left absent and a
// non-empty notice is returned for the caller to log.
func setOptional(al *AuthorizationList, tag Tag, body []byte) (notice string) {
	fail := func(err error) string {
		return fmt.Sprintf("tag %d: %v", tag, err)
	}

	switch tag {
	case TagPurpose:
		v, err := asIntSet(body)
		if err != nil {
			return fail(err)
		}
		al.Purposes = v
	case TagDigest:
		v, err := asIntSet(body)
		if err != nil {
			return fail(err)
		}
		al.Digests = v
	case TagPadding:
		v, err := asIntSet(body)
		if err != nil {
			return fail(err)
		}
		al.Paddings = v
	case TagAlgorithm:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.Algorithm = v
	case TagKeySize:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.KeySize = v
	case TagECCurve:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.ECCurve = v
	case TagRSAPublicExponent:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.RSAPublicExponent = v
	case TagActiveDateTime:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.ActiveDateTime = v
	case TagOriginationExpireDateTime:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.OriginationExpireDateTime = v
	case TagUsageExpireDateTime:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.UsageExpireDateTime = v
	case TagUsageCountLimit:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.UsageCountLimit = v
	case TagUserAuthType:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.UserAuthType = v
	case TagAuthTimeout:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.AuthTimeout = v
	case TagCreationDateTime:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.CreationDateTime = v
	case TagOrigin:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.Origin = v
	case TagOSVersion:
		v, err := asInteger(body)
		if err != nil {
			return fail(err)
		}
		al.OSVersion = v
	case TagOSPatchLevel:
		return setPatchLevel(&al.OSPatchLevel, tag, body)
	case TagVendorPatchLevel:
		return setPatchLevel(&al.VendorPatchLevel, tag, body)
	case TagBootPatchLevel:
		return setPatchLevel(&al.BootPatchLevel, tag, body)
	case TagAttestationIDBrand:
		return setString(&al.AttestationIDBrand, tag, body)
	case TagAttestationIDDevice:
		return setString(&al.AttestationIDDevice, tag, body)
	case TagAttestationIDProduct:
		return setString(&al.AttestationIDProduct, tag, body)
	case TagAttestationIDSerial:
		return setString(&al.AttestationIDSerial, tag, body)
	case TagAttestationIDImei:
		return setString(&al.AttestationIDImei, tag, body)
	case TagAttestationIDMeid:
		return setString(&al.AttestationIDMeid, tag, body)
	case TagAttestationIDManufacturer:
		return setString(&al.AttestationIDManufacturer, tag, body)
	case TagAttestationIDModel:
		return setString(&al.AttestationIDModel, tag, body)
	case TagAttestationIDSecondImei:
		return setString(&al.AttestationIDSecondImei, tag, body)
	case TagModuleHash:
		v, err := asOctetString(body)
		if err != nil {
			return fail(err)
		}
		al.ModuleHash = v
	}
	return ""
}

func setString(dst **string, tag Tag, body []byte) string {
	v, err := asUTF8String(body)
	if err != nil {
		return fmt.Sprintf("tag %d: %v", tag, err)
	}
	*dst = &v
	return ""
}

func setPatchLevel(dst **PatchLevel, tag Tag, body []byte) string {
	n, err := asInteger(body)
	if err != nil {
		return fmt.Sprintf("tag %d: %v", tag, err)
	}
	pl, ok := parsePatchLevel(n.Int64())
	if !ok {
		return fmt.Sprintf("tag %d: patch level %s has unexpected width, treating as absent", tag, n.String())
	}
	*dst = &pl
	return ""
}
