package keydescription

import (
	"encoding/asn1"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// ProvisioningOID is the object identifier of the remote-provisioning info
// extension.
var ProvisioningOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 1, 30}

// ProvisioningInfoMap is the decoded CBOR payload of the provisioning info
// extension. Only key 1 (certificatesIssued) is modeled; additional map
// keys are ignored.
type ProvisioningInfoMap struct {
	CertificatesIssued uint64
}

// rawProvisioningInfoMap mirrors the CBOR map {1: certificatesIssued}; extra
// keys are ignored by cbor.Unmarshal's default struct-decode behavior when
// no matching field exists.
type rawProvisioningInfoMap struct {
	CertificatesIssued uint64 `cbor:"1,keyasint"`
}

// ParseProvisioningInfoMap decodes the ASN.1 OCTET STRING value of the
// provisioning info extension (CBOR-inside-OCTET-STRING) into a
// ProvisioningInfoMap. Key 1 must be present.
func ParseProvisioningInfoMap(extensionValue []byte) (*ProvisioningInfoMap, error) {
	var inner []byte
	if rest, err := asn1.Unmarshal(extensionValue, &inner); err != nil {
		return nil, newParseError(ReasonMalformedDER, "provisioning info extension value is not an OCTET STRING", err)
	} else if len(rest) != 0 {
		return nil, newParseError(ReasonMalformedDER, "trailing data after provisioning info OCTET STRING", nil)
	}

	var probe map[int]cbor.RawMessage
	if err := cbor.Unmarshal(inner, &probe); err != nil {
		return nil, newParseError(ReasonMalformedDER, "provisioning info is not a CBOR map", err)
	}
	if _, ok := probe[1]; !ok {
		return nil, newParseError(ReasonWrongArity, "provisioning info map is missing key 1", nil)
	}

	var raw rawProvisioningInfoMap
	if err := cbor.Unmarshal(inner, &raw); err != nil {
		return nil, newParseError(ReasonMalformedDER, "provisioning info key 1", errors.Wrap(err, "ProvisioningInfoMap"))
	}
	return &ProvisioningInfoMap{CertificatesIssued: raw.CertificatesIssued}, nil
}
