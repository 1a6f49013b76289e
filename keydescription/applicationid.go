package keydescription

import (
	"encoding/asn1"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// PackageInfo is one installed-package record inside an
// AttestationApplicationId.
type PackageInfo struct {
	Name    string
	Version int64
}

// AttestationApplicationId identifies the set of applications permitted to
// use an attested key, carried inside both authorization lists under tag
// 709.
type AttestationApplicationId struct {
	Packages   []PackageInfo
	Signatures [][]byte
}

// rawPackageInfo mirrors AttestationPackageInfo ::= SEQUENCE { packageName
// OCTET STRING, version INTEGER }.
type rawPackageInfo struct {
	PackageName []byte
	Version     int64
}

// rawApplicationID mirrors:
//
//	AttestationApplicationId ::= SEQUENCE {
//	  packageInfoRecords SET OF AttestationPackageInfo,
//	  signatureDigests   SET OF OCTET STRING }
type rawApplicationID struct {
	PackageInfoRecords []rawPackageInfo `asn1:"set"`
	SignatureDigests   [][]byte         `asn1:"set"`
}

// parseAttestationApplicationId parses an AttestationApplicationId from an
// element body holding the full SEQUENCE TLV, after asSequence has checked
// its shape. It is a structural field: a malformed value, including non-UTF-8
// package names, is always a fatal parse error, never logged-absent.
func parseAttestationApplicationId(body []byte) (*AttestationApplicationId, error) {
	if _, err := asSequence(body); err != nil {
		return nil, errors.Wrap(err, "AttestationApplicationId")
	}
	var raw rawApplicationID
	rest, err := asn1.Unmarshal(body, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "AttestationApplicationId")
	}
	if len(rest) != 0 {
		return nil, errors.New("AttestationApplicationId: trailing data")
	}

	packages := make([]PackageInfo, 0, len(raw.PackageInfoRecords))
	for _, p := range raw.PackageInfoRecords {
		if !utf8.Valid(p.PackageName) {
			return nil, errors.New("AttestationApplicationId: malformed UTF-8 in package name")
		}
		packages = append(packages, PackageInfo{Name: string(p.PackageName), Version: p.Version})
	}
	return &AttestationApplicationId{
		Packages:   packages,
		Signatures: raw.SignatureDigests,
	}, nil
}
