// Package androidroot identifies the well-known Android Keystore software
// attestation root, so newPathValidator can reject it as a trust anchor at
// construction time. This root signs attestations produced entirely in
// software (no hardware-backed key), and accepting it as an anchor would
// defeat the purpose of hardware attestation.
package androidroot

import "crypto/x509"

// softwareRootSubjects are the distinguished names KeyMint's software
// attestation root certificates are known to carry.
var softwareRootSubjects = map[string]bool{
	"CN=Android Keystore Software Attestation Root": true,
	"CN=Android Software Attestation Root":          true,
}

// IsSoftwareRoot reports whether cert is a known Android software
// attestation root.
func IsSoftwareRoot(cert *x509.Certificate) bool {
	if cert == nil {
		return false
	}
	return softwareRootSubjects[cert.Subject.String()]
}
