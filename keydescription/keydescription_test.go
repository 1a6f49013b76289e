package keydescription

import (
	"encoding/asn1"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

var bigIntComparer = cmp.Comparer(func(x, y *big.Int) bool {
	if x == nil || y == nil {
		return x == y
	}
	return x.Cmp(y) == 0
})

func sampleKeyDescription() *KeyDescription {
	return &KeyDescription{
		AttestationVersion:       big.NewInt(300),
		AttestationSecurityLevel: SecurityLevelTrustedEnvironment,
		KeyMintVersion:           big.NewInt(300),
		KeyMintSecurityLevel:     SecurityLevelTrustedEnvironment,
		AttestationChallenge:     []byte("challenge-bytes"),
		UniqueID:                 nil,
		SoftwareEnforced: &AuthorizationList{
			CreationDateTime: big.NewInt(1700000000000),
			AreTagsOrdered:   true,
		},
		HardwareEnforced: &AuthorizationList{
			Purposes:     []*big.Int{big.NewInt(2), big.NewInt(3)},
			Algorithm:    big.NewInt(3),
			KeySize:      big.NewInt(256),
			Digests:      []*big.Int{big.NewInt(4)},
			Origin:       OriginGenerated,
			OSVersion:    big.NewInt(130000),
			OSPatchLevel: &PatchLevel{Year: 2026, Month: 7},
			RootOfTrust: &RootOfTrust{
				VerifiedBootKey:   []byte("bootkey"),
				DeviceLocked:      true,
				VerifiedBootState: BootStateVerified,
			},
			AttestationApplicationID: &AttestationApplicationId{
				Packages:   []PackageInfo{{Name: "com.example.app", Version: 1}},
				Signatures: [][]byte{[]byte("sig")},
			},
			AreTagsOrdered: true,
		},
	}
}

func TestParseEncodeRoundTrip(t *testing.T) {
	kd := sampleKeyDescription()

	der, err := EncodeToASN1(kd)
	require.NoError(t, err)

	result, err := Parse(der)
	require.NoError(t, err)
	require.Empty(t, result.Notices)

	if diff := cmp.Diff(kd, result.KeyDescription, bigIntComparer, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRootOfTrustWithHashRoundTrip(t *testing.T) {
	kd := sampleKeyDescription()
	kd.HardwareEnforced.RootOfTrust.VerifiedBootHash = []byte("boothash")

	der, err := EncodeToASN1(kd)
	require.NoError(t, err)

	result, err := Parse(der)
	require.NoError(t, err)
	require.Equal(t, []byte("boothash"), result.KeyDescription.HardwareEnforced.RootOfTrust.VerifiedBootHash)
}

func TestParseRejectsUnknownTag(t *testing.T) {
	// A context tag (999) with no entry in tagShape inside an otherwise
	// empty AuthorizationList.
	unknown := asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 999, IsCompound: true, Bytes: []byte{0x02, 0x01, 0x01}}
	unknownBytes, err := asn1.Marshal(unknown)
	require.NoError(t, err)

	al := asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagSequence, IsCompound: true, Bytes: unknownBytes}
	alBytes, err := asn1.Marshal(al)
	require.NoError(t, err)

	var outer asn1.RawValue
	_, err = asn1.Unmarshal(alBytes, &outer)
	require.NoError(t, err)

	_, _, err = parseAuthorizationList(outer.Bytes)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ReasonUnknownTagNumber, pe.Reason)
}

func TestParseRejectsBooleanFalse(t *testing.T) {
	falseVal, err := asn1.MarshalWithParams(false, "explicit,tag:303") // TagRollbackResistance
	require.NoError(t, err)

	al := asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagSequence, IsCompound: true, Bytes: falseVal}
	alBytes, err := asn1.Marshal(al)
	require.NoError(t, err)

	var outer asn1.RawValue
	_, err = asn1.Unmarshal(alBytes, &outer)
	require.NoError(t, err)

	_, _, err = parseAuthorizationList(outer.Bytes)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ReasonBooleanFieldFalse, pe.Reason)
}

func TestParsePatchLevelOddWidthIsRecovered(t *testing.T) {
	// A 5-digit patch level is neither yyyyMM nor yyyyMMdd; it should be
	// dropped with a notice rather than failing the parse.
	oddPatch, err := asn1.MarshalWithParams(big.NewInt(20261), "explicit,tag:706") // TagOSPatchLevel
	require.NoError(t, err)

	var outer asn1.RawValue
	seq, err := asn1.Marshal(asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagSequence, IsCompound: true, Bytes: oddPatch})
	require.NoError(t, err)
	_, err = asn1.Unmarshal(seq, &outer)
	require.NoError(t, err)

	al, notices, err := parseAuthorizationList(outer.Bytes)
	require.NoError(t, err)
	require.Nil(t, al.OSPatchLevel)
	require.Len(t, notices, 1)
}

func TestParseDuplicateTagLastWins(t *testing.T) {
	first, err := asn1.MarshalWithParams(big.NewInt(128), "explicit,tag:3") // TagKeySize
	require.NoError(t, err)
	second, err := asn1.MarshalWithParams(big.NewInt(256), "explicit,tag:3")
	require.NoError(t, err)

	al, notices, err := parseAuthorizationList(append(first, second...))
	require.NoError(t, err)
	require.Equal(t, int64(256), al.KeySize.Int64())
	require.False(t, al.AreTagsOrdered, "a duplicated tag is not strictly ascending")
	require.Len(t, notices, 1)
}

func TestParseUnorderedTagsObserved(t *testing.T) {
	keySize, err := asn1.MarshalWithParams(big.NewInt(256), "explicit,tag:3")
	require.NoError(t, err)
	algorithm, err := asn1.MarshalWithParams(big.NewInt(3), "explicit,tag:2")
	require.NoError(t, err)

	al, _, err := parseAuthorizationList(append(keySize, algorithm...))
	require.NoError(t, err)
	require.False(t, al.AreTagsOrdered)
	require.Equal(t, int64(256), al.KeySize.Int64())
	require.Equal(t, int64(3), al.Algorithm.Int64())
}

func TestParseMalformedAttestationIDIsRecovered(t *testing.T) {
	bad, err := asn1.MarshalWithParams([]byte{0xff, 0xfe}, "explicit,tag:710") // TagAttestationIDBrand
	require.NoError(t, err)

	al, notices, err := parseAuthorizationList(bad)
	require.NoError(t, err)
	require.Nil(t, al.AttestationIDBrand)
	require.Len(t, notices, 1)
}

func TestParseMalformedApplicationIDIsFatal(t *testing.T) {
	bad, err := asn1.MarshalWithParams(big.NewInt(1), "explicit,tag:709") // TagAttestationApplicationID
	require.NoError(t, err)

	_, _, err = parseAuthorizationList(bad)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParseMalformedRootOfTrustIsFatal(t *testing.T) {
	bad, err := asn1.MarshalWithParams(big.NewInt(1), "explicit,tag:704") // TagRootOfTrust
	require.NoError(t, err)

	_, _, err = parseAuthorizationList(bad)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestProvisioningInfoMapParsesCertificatesIssued(t *testing.T) {
	inner := []byte{0xa2, 0x01, 0x05, 0x02, 0x00} // CBOR {1: 5, 2: 0}
	encoded, err := asn1.Marshal(inner)
	require.NoError(t, err)

	info, err := ParseProvisioningInfoMap(encoded)
	require.NoError(t, err)
	require.Equal(t, uint64(5), info.CertificatesIssued)
}

func TestProvisioningInfoMapRequiresKeyOne(t *testing.T) {
	inner := []byte{0xa0} // CBOR empty map
	encoded, err := asn1.Marshal(inner)
	require.NoError(t, err)

	_, err = ParseProvisioningInfoMap(encoded)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, ReasonWrongArity, pe.Reason)
}
