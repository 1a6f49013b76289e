package constraint

import (
	"github.com/smallstep/keyattestation/keydescription"
)

// SecurityLevelRule is the extended ValidationLevel variant used by the
// securityLevel constraint. Expected is meaningful only for
// SecurityLevelStrict.
type SecurityLevelRule struct {
	Mode     SecurityLevelMode
	Expected keydescription.SecurityLevel
}

// Config holds one validation level per constrained field, defaulted by
// New and overridable through Option values.
//
// KeyOrigin compares against the origin tag's int64 value rather than the
// *big.Int AuthorizationList.Origin carries, since ValidationLevel's
// equality check is Go's ==, and comparing *big.Int pointers would compare
// identity rather than value.
type Config struct {
	KeyOrigin                 ValidationLevel[int64]
	SecurityLevel             SecurityLevelRule
	RootOfTrust               Mode
	AuthorizationListTagOrder Mode
}

// Option configures a Config.
type Option func(*Config)

// WithKeyOrigin overrides the keyOrigin validation level. The default is
// STRICT(GENERATED).
func WithKeyOrigin(level ValidationLevel[int64]) Option {
	return func(c *Config) { c.KeyOrigin = level }
}

// WithSecurityLevel overrides the securityLevel validation rule. The
// default is STRICT(TRUSTED_ENVIRONMENT).
func WithSecurityLevel(rule SecurityLevelRule) Option {
	return func(c *Config) { c.SecurityLevel = rule }
}

// WithRootOfTrust overrides the rootOfTrust presence check. The default is
// NOT_NULL. Only ModeNotNull and ModeIgnore are meaningful; ModeStrict is
// treated as ModeNotNull since RootOfTrust has no single comparable
// "expected" value.
func WithRootOfTrust(mode Mode) Option {
	return func(c *Config) {
		if mode == ModeStrict {
			mode = ModeNotNull
		}
		c.RootOfTrust = mode
	}
}

// WithAuthorizationListTagOrder overrides the tag-order check. The default
// is IGNORE. Only ModeStrict and ModeIgnore are meaningful; ModeNotNull is
// treated as ModeStrict since "ordered" is a single boolean observation.
func WithAuthorizationListTagOrder(mode Mode) Option {
	return func(c *Config) {
		if mode == ModeNotNull {
			mode = ModeStrict
		}
		c.AuthorizationListTagOrder = mode
	}
}

// New builds a Config with the default levels, applying opts in order:
// keyOrigin STRICT(GENERATED), securityLevel STRICT(TRUSTED_ENVIRONMENT),
// rootOfTrust NOT_NULL, authorizationListTagOrder IGNORE.
func New(opts ...Option) Config {
	cfg := Config{
		KeyOrigin:                 Strict(keydescription.OriginGenerated.Int64()),
		SecurityLevel:             SecurityLevelRule{Mode: SecurityLevelStrict, Expected: keydescription.SecurityLevelTrustedEnvironment},
		RootOfTrust:               ModeNotNull,
		AuthorizationListTagOrder: ModeIgnore,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
