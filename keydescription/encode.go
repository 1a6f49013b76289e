package keydescription

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

// EncodeToASN1 renders a KeyDescription back into the DER bytes of an
// X.509 extension value (an OCTET STRING wrapping the KeyDescription
// SEQUENCE), with AuthorizationList tags emitted in canonical ascending
// order. Parse(EncodeToASN1(kd)) reproduces every field Parse sets.
func EncodeToASN1(kd *KeyDescription) ([]byte, error) {
	swBytes, err := encodeAuthorizationList(kd.SoftwareEnforced)
	if err != nil {
		return nil, errors.Wrap(err, "softwareEnforced")
	}
	hwBytes, err := encodeAuthorizationList(kd.HardwareEnforced)
	if err != nil {
		return nil, errors.Wrap(err, "hardwareEnforced")
	}

	type rawOut struct {
		AttestationVersion       *big.Int
		AttestationSecurityLevel asn1.Enumerated
		KeyMintVersion           *big.Int
		KeyMintSecurityLevel     asn1.Enumerated
		AttestationChallenge     []byte
		UniqueID                 []byte
		SoftwareEnforced         asn1.RawValue
		HardwareEnforced         asn1.RawValue
	}
	out := rawOut{
		AttestationVersion:       nonNilInt(kd.AttestationVersion),
		AttestationSecurityLevel: asn1.Enumerated(kd.AttestationSecurityLevel),
		KeyMintVersion:           nonNilInt(kd.KeyMintVersion),
		KeyMintSecurityLevel:     asn1.Enumerated(kd.KeyMintSecurityLevel),
		AttestationChallenge:     kd.AttestationChallenge,
		UniqueID:                 kd.UniqueID,
		SoftwareEnforced:         asn1.RawValue{FullBytes: swBytes},
		HardwareEnforced:         asn1.RawValue{FullBytes: hwBytes},
	}
	inner, err := asn1.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "KeyDescription")
	}
	return asn1.Marshal(inner)
}

func nonNilInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// wrapExplicit builds a constructed, context-specific TLV of the given tag
// number around an already-encoded inner TLV (innerFullBytes). Used for
// structural fields (RootOfTrust, AttestationApplicationId) where the inner
// value is itself assembled via asn1.Marshal and must not be re-interpreted
// by asn1.MarshalWithParams's RawValue special-casing.
func wrapExplicit(tagNumber int, innerFullBytes []byte) []byte {
	var header []byte
	const contextConstructed = 0xA0
	if tagNumber < 0x1F {
		header = []byte{byte(contextConstructed | tagNumber)}
	} else {
		header = []byte{byte(contextConstructed | 0x1F)}
		header = append(header, encodeBase128(tagNumber)...)
	}
	return append(header, encodeLengthAndContent(innerFullBytes)...)
}

func encodeBase128(n int) []byte {
	if n == 0 {
		return []byte{0}
	}
	var rev []byte
	for n > 0 {
		rev = append(rev, byte(n&0x7F))
		n >>= 7
	}
	out := make([]byte, len(rev))
	for i, b := range rev {
		if i != 0 {
			b |= 0x80
		}
		out[len(rev)-1-i] = b
	}
	return out
}

func encodeLengthAndContent(content []byte) []byte {
	n := len(content)
	var length []byte
	switch {
	case n < 0x80:
		length = []byte{byte(n)}
	default:
		var rev []byte
		for n > 0 {
			rev = append(rev, byte(n&0xFF))
			n >>= 8
		}
		lb := make([]byte, len(rev))
		for i, b := range rev {
			lb[len(rev)-1-i] = b
		}
		length = append([]byte{byte(0x80 | len(lb))}, lb...)
	}
	return append(length, content...)
}

func encField(tag Tag, value interface{}) ([]byte, error) {
	b, err := asn1.MarshalWithParams(value, fmt.Sprintf("explicit,tag:%d", int(tag)))
	if err != nil {
		return nil, errors.Wrapf(err, "tag %d", tag)
	}
	return b, nil
}

func encFieldSet(tag Tag, value interface{}) ([]byte, error) {
	b, err := asn1.MarshalWithParams(value, fmt.Sprintf("explicit,set,tag:%d", int(tag)))
	if err != nil {
		return nil, errors.Wrapf(err, "tag %d", tag)
	}
	return b, nil
}

func encodeAuthorizationList(al *AuthorizationList) ([]byte, error) {
	if al == nil {
		al = &AuthorizationList{}
	}
	var content []byte

	// Emitters run in ascending tag order so the encoded list is canonical.
	emitters := []func() (bool, []byte, error){
		func() (bool, []byte, error) {
			if len(al.Purposes) == 0 {
				return false, nil, nil
			}
			b, err := encFieldSet(TagPurpose, al.Purposes)
			return true, b, err
		},
		func() (bool, []byte, error) { return encOptInt(TagAlgorithm, al.Algorithm) },
		func() (bool, []byte, error) { return encOptInt(TagKeySize, al.KeySize) },
		func() (bool, []byte, error) {
			if len(al.Digests) == 0 {
				return false, nil, nil
			}
			b, err := encFieldSet(TagDigest, al.Digests)
			return true, b, err
		},
		func() (bool, []byte, error) {
			if len(al.Paddings) == 0 {
				return false, nil, nil
			}
			b, err := encFieldSet(TagPadding, al.Paddings)
			return true, b, err
		},
		func() (bool, []byte, error) { return encOptInt(TagECCurve, al.ECCurve) },
		func() (bool, []byte, error) { return encOptInt(TagRSAPublicExponent, al.RSAPublicExponent) },
		func() (bool, []byte, error) { return encOptBool(TagRollbackResistance, al.RollbackResistance) },
		func() (bool, []byte, error) { return encOptInt(TagActiveDateTime, al.ActiveDateTime) },
		func() (bool, []byte, error) {
			return encOptInt(TagOriginationExpireDateTime, al.OriginationExpireDateTime)
		},
		func() (bool, []byte, error) { return encOptInt(TagUsageExpireDateTime, al.UsageExpireDateTime) },
		func() (bool, []byte, error) { return encOptInt(TagUsageCountLimit, al.UsageCountLimit) },
		func() (bool, []byte, error) { return encOptBool(TagNoAuthRequired, al.NoAuthRequired) },
		func() (bool, []byte, error) { return encOptInt(TagUserAuthType, al.UserAuthType) },
		func() (bool, []byte, error) { return encOptInt(TagAuthTimeout, al.AuthTimeout) },
		func() (bool, []byte, error) { return encOptBool(TagAllowWhileOnBody, al.AllowWhileOnBody) },
		func() (bool, []byte, error) { return encOptBool(TagTrustedUserPresenceReq, al.TrustedUserPresenceReq) },
		func() (bool, []byte, error) { return encOptBool(TagTrustedConfirmationReq, al.TrustedConfirmationReq) },
		func() (bool, []byte, error) { return encOptBool(TagUnlockedDeviceRequired, al.UnlockedDeviceRequired) },
		func() (bool, []byte, error) { return encOptInt(TagCreationDateTime, al.CreationDateTime) },
		func() (bool, []byte, error) { return encOptInt(TagOrigin, al.Origin) },
		func() (bool, []byte, error) { return encodeRootOfTrust(al.RootOfTrust) },
		func() (bool, []byte, error) { return encOptInt(TagOSVersion, al.OSVersion) },
		func() (bool, []byte, error) { return encOptPatchLevel(TagOSPatchLevel, al.OSPatchLevel) },
		func() (bool, []byte, error) { return encodeApplicationID(al.AttestationApplicationID) },
		func() (bool, []byte, error) { return encOptString(TagAttestationIDBrand, al.AttestationIDBrand) },
		func() (bool, []byte, error) { return encOptString(TagAttestationIDDevice, al.AttestationIDDevice) },
		func() (bool, []byte, error) { return encOptString(TagAttestationIDProduct, al.AttestationIDProduct) },
		func() (bool, []byte, error) { return encOptString(TagAttestationIDSerial, al.AttestationIDSerial) },
		func() (bool, []byte, error) { return encOptString(TagAttestationIDImei, al.AttestationIDImei) },
		func() (bool, []byte, error) { return encOptString(TagAttestationIDMeid, al.AttestationIDMeid) },
		func() (bool, []byte, error) {
			return encOptString(TagAttestationIDManufacturer, al.AttestationIDManufacturer)
		},
		func() (bool, []byte, error) { return encOptString(TagAttestationIDModel, al.AttestationIDModel) },
		func() (bool, []byte, error) { return encOptPatchLevel(TagVendorPatchLevel, al.VendorPatchLevel) },
		func() (bool, []byte, error) { return encOptPatchLevel(TagBootPatchLevel, al.BootPatchLevel) },
		func() (bool, []byte, error) {
			return encOptBool(TagDeviceUniqueAttestation, al.DeviceUniqueAttestation)
		},
		func() (bool, []byte, error) {
			return encOptString(TagAttestationIDSecondImei, al.AttestationIDSecondImei)
		},
		func() (bool, []byte, error) {
			if len(al.ModuleHash) == 0 {
				return false, nil, nil
			}
			b, err := encField(TagModuleHash, al.ModuleHash)
			return true, b, err
		},
	}

	for _, emit := range emitters {
		present, b, err := emit()
		if err != nil {
			return nil, err
		}
		if present {
			content = append(content, b...)
		}
	}

	seq := asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagSequence, IsCompound: true, Bytes: content}
	return asn1.Marshal(seq)
}

func encOptInt(tag Tag, v *big.Int) (bool, []byte, error) {
	if v == nil {
		return false, nil, nil
	}
	b, err := encField(tag, v)
	return true, b, err
}

func encOptBool(tag Tag, v bool) (bool, []byte, error) {
	if !v {
		return false, nil, nil
	}
	b, err := encField(tag, true)
	return true, b, err
}

func encOptString(tag Tag, v *string) (bool, []byte, error) {
	if v == nil {
		return false, nil, nil
	}
	b, err := encField(tag, []byte(*v))
	return true, b, err
}

func encOptPatchLevel(tag Tag, v *PatchLevel) (bool, []byte, error) {
	if v == nil {
		return false, nil, nil
	}
	n := v.Year*100 + v.Month
	if v.HasDay() {
		n = n*100 + v.Day
	}
	b, err := encField(tag, big.NewInt(int64(n)))
	return true, b, err
}

func encodeRootOfTrust(rot *RootOfTrust) (bool, []byte, error) {
	if rot == nil {
		return false, nil, nil
	}
	inner := rawRootOfTrust{
		VerifiedBootKey:   rot.VerifiedBootKey,
		DeviceLocked:      rot.DeviceLocked,
		VerifiedBootState: asn1.Enumerated(rot.VerifiedBootState),
		VerifiedBootHash:  rot.VerifiedBootHash,
	}
	seqBytes, err := asn1.Marshal(inner)
	if err != nil {
		return false, nil, errors.Wrap(err, "RootOfTrust")
	}
	return true, wrapExplicit(int(TagRootOfTrust), seqBytes), nil
}

func encodeApplicationID(id *AttestationApplicationId) (bool, []byte, error) {
	if id == nil {
		return false, nil, nil
	}
	records := make([]rawPackageInfo, 0, len(id.Packages))
	for _, p := range id.Packages {
		records = append(records, rawPackageInfo{PackageName: []byte(p.Name), Version: p.Version})
	}
	inner := rawApplicationID{PackageInfoRecords: records, SignatureDigests: id.Signatures}
	seqBytes, err := asn1.Marshal(inner)
	if err != nil {
		return false, nil, errors.Wrap(err, "AttestationApplicationId")
	}
	return true, wrapExplicit(int(TagAttestationApplicationID), seqBytes), nil
}
