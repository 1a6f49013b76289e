package keydescription

// Tag is a KeyMint authorization tag number, as defined by the Android
// Keystore attestation extension. Tag numbers are stable identifiers and
// double as the ASN.1 context tag under which the corresponding field is
// carried inside AuthorizationList.
type Tag int64

// KeyMint tag numbers used by AuthorizationList. Source:
// hardware/interfaces/security/keymint's KeyParameter tag enum, as
// reflected in the attestation extension's context-tagged SEQUENCE.
const (
	TagPurpose                   Tag = 1
	TagAlgorithm                 Tag = 2
	TagKeySize                   Tag = 3
	TagDigest                    Tag = 5
	TagPadding                   Tag = 6
	TagECCurve                   Tag = 10
	TagRSAPublicExponent         Tag = 200
	TagRollbackResistance        Tag = 303
	TagActiveDateTime            Tag = 400
	TagOriginationExpireDateTime Tag = 401
	TagUsageExpireDateTime       Tag = 402
	TagUsageCountLimit           Tag = 405
	TagNoAuthRequired            Tag = 503
	TagUserAuthType              Tag = 504
	TagAuthTimeout               Tag = 505
	TagAllowWhileOnBody          Tag = 506
	TagTrustedUserPresenceReq    Tag = 507
	TagTrustedConfirmationReq    Tag = 508
	TagUnlockedDeviceRequired    Tag = 509
	TagCreationDateTime          Tag = 701
	TagOrigin                    Tag = 702
	TagRootOfTrust               Tag = 704
	TagOSVersion                 Tag = 705
	TagOSPatchLevel              Tag = 706
	TagAttestationApplicationID  Tag = 709
	TagAttestationIDBrand        Tag = 710
	TagAttestationIDDevice       Tag = 711
	TagAttestationIDProduct      Tag = 712
	TagAttestationIDSerial       Tag = 713
	TagAttestationIDImei         Tag = 714
	TagAttestationIDMeid         Tag = 715
	TagAttestationIDManufacturer Tag = 716
	TagAttestationIDModel        Tag = 717
	TagVendorPatchLevel          Tag = 718
	TagBootPatchLevel            Tag = 719
	TagDeviceUniqueAttestation   Tag = 720
	TagAttestationIDSecondImei   Tag = 723
	TagModuleHash                Tag = 724
)

// kind is the ASN.1 shape used to decode a tag's value.
type kind int

const (
	kindIntSet kind = iota
	kindInt
	kindBytes
	kindBool
	kindRootOfTrust
	kindAttestationApplicationID
	kindUTF8String
)

// tagShape maps every known tag to the shape its value must be coerced to.
// Unknown tag numbers encountered while parsing an AuthorizationList are a
// fatal ExtensionParsingFailure with ReasonUnknownTagNumber.
var tagShape = map[Tag]kind{
	TagPurpose:                   kindIntSet,
	TagAlgorithm:                 kindInt,
	TagKeySize:                   kindInt,
	TagDigest:                    kindIntSet,
	TagPadding:                   kindIntSet,
	TagECCurve:                   kindInt,
	TagRSAPublicExponent:         kindInt,
	TagRollbackResistance:        kindBool,
	TagActiveDateTime:            kindInt,
	TagOriginationExpireDateTime: kindInt,
	TagUsageExpireDateTime:       kindInt,
	TagUsageCountLimit:           kindInt,
	TagNoAuthRequired:            kindBool,
	TagUserAuthType:              kindInt,
	TagAuthTimeout:               kindInt,
	TagAllowWhileOnBody:          kindBool,
	TagTrustedUserPresenceReq:    kindBool,
	TagTrustedConfirmationReq:    kindBool,
	TagUnlockedDeviceRequired:    kindBool,
	TagCreationDateTime:          kindInt,
	TagOrigin:                    kindInt,
	TagRootOfTrust:               kindRootOfTrust,
	TagOSVersion:                 kindInt,
	TagOSPatchLevel:              kindInt,
	TagAttestationApplicationID:  kindAttestationApplicationID,
	TagAttestationIDBrand:        kindUTF8String,
	TagAttestationIDDevice:       kindUTF8String,
	TagAttestationIDProduct:      kindUTF8String,
	TagAttestationIDSerial:       kindUTF8String,
	TagAttestationIDImei:         kindUTF8String,
	TagAttestationIDMeid:         kindUTF8String,
	TagAttestationIDManufacturer: kindUTF8String,
	TagAttestationIDModel:        kindUTF8String,
	TagVendorPatchLevel:          kindInt,
	TagBootPatchLevel:            kindInt,
	TagDeviceUniqueAttestation:   kindBool,
	TagAttestationIDSecondImei:   kindUTF8String,
	TagModuleHash:                kindBytes,
}

// structural tags are fatal on malformed values rather than logged-absent.
func (t Tag) structural() bool {
	return t == TagRootOfTrust || t == TagAttestationApplicationID
}

// boolean tags encode presence as truth; an explicit false value is a
// protocol violation and a parse error.
func (t Tag) boolean() bool {
	return tagShape[t] == kindBool
}
