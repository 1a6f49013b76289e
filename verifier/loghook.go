package verifier

import (
	"encoding/hex"
	"log/slog"

	"github.com/smallstep/keyattestation/keydescription"
)

// LogHook receives observations emitted while verifying an attestation
// chain. Every method has a no-op default via NopLogHook, so callers only
// implement the subset they care about by embedding it. Implementations are
// invoked in-place on the verifying goroutine and must be safe for
// concurrent use when the same hook is shared across calls.
type LogHook interface {
	// LogInputChain is called with the raw DER bytes of every certificate
	// in the chain, in order, before any validation is attempted.
	LogInputChain(chain [][]byte)
	// LogResult is called with the final outcome before Verify returns.
	LogResult(result *Result)
	// LogKeyDescription is called once the leaf's attestation extension
	// has been successfully parsed.
	LogKeyDescription(kd *keydescription.KeyDescription)
	// LogProvisioningInfoMap is called when a remotely-provisioned chain's
	// provisioning info extension has been parsed.
	LogProvisioningInfoMap(info *keydescription.ProvisioningInfoMap)
	// LogCertSerialNumbers is called with the lowercase hex serial number
	// of every certificate except the leaf.
	LogCertSerialNumbers(serials []string)
	// LogInfoMessage is called for every recoverable oddity encountered
	// while parsing (unordered tags, malformed optional fields, odd patch
	// level widths).
	LogInfoMessage(message string)
}

// NopLogHook implements LogHook with no-op methods. Embed it to implement
// only the methods you need.
type NopLogHook struct{}

func (NopLogHook) LogInputChain(chain [][]byte)                                    {}
func (NopLogHook) LogResult(result *Result)                                        {}
func (NopLogHook) LogKeyDescription(kd *keydescription.KeyDescription)             {}
func (NopLogHook) LogProvisioningInfoMap(info *keydescription.ProvisioningInfoMap) {}
func (NopLogHook) LogCertSerialNumbers(serials []string)                           {}
func (NopLogHook) LogInfoMessage(message string)                                   {}

// SlogLogHook adapts a *slog.Logger to LogHook.
type SlogLogHook struct {
	Logger *slog.Logger
}

// NewSlogLogHook builds a SlogLogHook. A nil logger falls back to
// slog.Default().
func NewSlogLogHook(logger *slog.Logger) *SlogLogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogHook{Logger: logger}
}

func (h *SlogLogHook) LogInputChain(chain [][]byte) {
	h.Logger.Debug("input chain", "certificates", len(chain))
}

func (h *SlogLogHook) LogResult(result *Result) {
	if result.Reason == "" {
		h.Logger.Info("verification result", "kind", result.Kind.String())
		return
	}
	h.Logger.Info("verification result", "kind", result.Kind.String(), "reason", result.Reason)
}

func (h *SlogLogHook) LogKeyDescription(kd *keydescription.KeyDescription) {
	h.Logger.Debug("parsed key description",
		"attestationVersion", kd.AttestationVersion.String(),
		"attestationSecurityLevel", kd.AttestationSecurityLevel.String(),
		"keyMintSecurityLevel", kd.KeyMintSecurityLevel.String(),
		"challenge", hex.EncodeToString(kd.AttestationChallenge))
}

func (h *SlogLogHook) LogProvisioningInfoMap(info *keydescription.ProvisioningInfoMap) {
	h.Logger.Debug("parsed provisioning info", "certificatesIssued", info.CertificatesIssued)
}

func (h *SlogLogHook) LogCertSerialNumbers(serials []string) {
	h.Logger.Debug("certificate serial numbers", "serials", serials)
}

func (h *SlogLogHook) LogInfoMessage(message string) {
	h.Logger.Info(message)
}
