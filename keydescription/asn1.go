package keydescription

import (
	"encoding/asn1"
	"math/big"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// element is the generic ASN.1 value exposed by the primitive reader: a
// context-tagged child of a SEQUENCE, together with the raw bytes of its
// EXPLICIT-wrapped payload (a full, still-undecoded TLV of the underlying
// type).
type element struct {
	tag  int
	body []byte
}

// walkElements parses the content octets of a constructed ASN.1 value (the
// inside of a SEQUENCE) into its immediate context-tagged children, in
// encounter order. It does not interpret tag semantics or reject duplicate
// or out-of-order tags; callers use the returned order to compute
// areTagsOrdered and to decide duplicate-tag precedence.
func walkElements(data []byte) ([]element, error) {
	var out []element
	rest := data
	for len(rest) > 0 {
		var raw asn1.RawValue
		var err error
		rest, err = asn1.Unmarshal(rest, &raw)
		if err != nil {
			return nil, errors.Wrap(err, "malformed authorization list element")
		}
		if raw.Class != asn1.ClassContextSpecific {
			return nil, errors.Errorf("expected context-specific tag, got class %d", raw.Class)
		}
		out = append(out, element{tag: raw.Tag, body: raw.Bytes})
	}
	return out, nil
}

// asInteger coerces an element body to an arbitrary-precision integer.
func asInteger(body []byte) (*big.Int, error) {
	var v *big.Int
	if rest, err := asn1.Unmarshal(body, &v); err != nil {
		return nil, errors.Wrap(err, "not an INTEGER")
	} else if len(rest) != 0 {
		return nil, errors.New("trailing data after INTEGER")
	}
	return v, nil
}

// asEnumerated coerces an element body to an ENUMERATED discriminant.
func asEnumerated(body []byte) (int, error) {
	var v asn1.Enumerated
	if rest, err := asn1.Unmarshal(body, &v); err != nil {
		return 0, errors.Wrap(err, "not an ENUMERATED")
	} else if len(rest) != 0 {
		return 0, errors.New("trailing data after ENUMERATED")
	}
	return int(v), nil
}

// asOctetString coerces an element body to an opaque byte sequence.
func asOctetString(body []byte) ([]byte, error) {
	var v []byte
	if rest, err := asn1.Unmarshal(body, &v); err != nil {
		return nil, errors.Wrap(err, "not an OCTET STRING")
	} else if len(rest) != 0 {
		return nil, errors.New("trailing data after OCTET STRING")
	}
	return v, nil
}

// asBoolean coerces an element body to a BOOLEAN. Callers are responsible
// for rejecting an explicit false on boolean-valued tags; this function
// only performs the ASN.1 shape coercion.
func asBoolean(body []byte) (bool, error) {
	var v bool
	if rest, err := asn1.Unmarshal(body, &v); err != nil {
		return false, errors.Wrap(err, "not a BOOLEAN")
	} else if len(rest) != 0 {
		return false, errors.New("trailing data after BOOLEAN")
	}
	return v, nil
}

// asUTF8String coerces an element body containing raw UTF-8 bytes (carried
// as an OCTET STRING in KeyMint's encoding) to a Go string, rejecting
// malformed UTF-8 rather than substituting replacement characters.
func asUTF8String(body []byte) (string, error) {
	raw, err := asOctetString(body)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", errors.New("malformed UTF-8 in string-valued field")
	}
	return string(raw), nil
}

// asIntSet coerces an element body to an unordered SET OF INTEGER.
func asIntSet(body []byte) ([]*big.Int, error) {
	var raw asn1.RawValue
	if _, err := asn1.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "not a SET")
	}
	if raw.Tag != asn1.TagSet || !raw.IsCompound {
		return nil, errors.New("not a SET OF INTEGER")
	}
	rest := raw.Bytes
	var out []*big.Int
	for len(rest) > 0 {
		var n *big.Int
		var err error
		rest, err = asn1.Unmarshal(rest, &n)
		if err != nil {
			return nil, errors.Wrap(err, "malformed SET OF INTEGER member")
		}
		out = append(out, n)
	}
	return out, nil
}

// asSequence unwraps an element body to the content octets of a nested
// SEQUENCE. The RootOfTrust and AttestationApplicationId parsers use it to
// check an element's shape before decoding the full SEQUENCE TLV.
func asSequence(body []byte) ([]byte, error) {
	var raw asn1.RawValue
	if _, err := asn1.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "not a SEQUENCE")
	}
	if raw.Tag != asn1.TagSequence || !raw.IsCompound {
		return nil, errors.New("not a SEQUENCE")
	}
	return raw.Bytes, nil
}
