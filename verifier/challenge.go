package verifier

import (
	"context"
	"crypto/subtle"

	"github.com/smallstep/keyattestation/internal/cache"
)

// ChallengeChecker decides whether an attestation's challenge bytes are
// acceptable. Check is blocking-with-context: the idiomatic Go shape for
// the single specified suspension point in verification, rather than a
// bespoke future type.
type ChallengeChecker interface {
	Check(ctx context.Context, challenge []byte) (bool, error)
}

// ChallengeCheckerFunc adapts a function to ChallengeChecker.
type ChallengeCheckerFunc func(ctx context.Context, challenge []byte) (bool, error)

func (f ChallengeCheckerFunc) Check(ctx context.Context, challenge []byte) (bool, error) {
	return f(ctx, challenge)
}

// Matcher is a ChallengeChecker that accepts exactly one expected
// challenge value, compared in constant time.
type Matcher struct {
	Expected []byte
}

// NewMatcher builds a Matcher for expected.
func NewMatcher(expected []byte) *Matcher {
	return &Matcher{Expected: expected}
}

func (m *Matcher) Check(_ context.Context, challenge []byte) (bool, error) {
	if len(challenge) != len(m.Expected) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(challenge, m.Expected) == 1, nil
}

// LRUChallengeCache is a ChallengeChecker backed by a bounded,
// access-ordered set: a challenge is accepted the first time it is seen
// and rejected on every replay, evicting the least-recently-accessed entry
// once the configured capacity is exceeded. Safe for concurrent use.
type LRUChallengeCache struct {
	cache *cache.LRU
}

// NewLRUChallengeCache builds an LRUChallengeCache bounded to capacity
// distinct challenges.
func NewLRUChallengeCache(capacity int) *LRUChallengeCache {
	return &LRUChallengeCache{cache: cache.NewLRU(capacity)}
}

func (c *LRUChallengeCache) Check(_ context.Context, challenge []byte) (bool, error) {
	return c.cache.Accept(string(challenge)), nil
}

// ChainChecker composes ChallengeCheckers in order: each is awaited in
// turn, and the first one to return false short-circuits the remainder.
// An empty chain accepts unconditionally.
type ChainChecker struct {
	Checkers []ChallengeChecker
}

// NewChainChecker builds a ChainChecker over checkers, evaluated in order.
func NewChainChecker(checkers ...ChallengeChecker) *ChainChecker {
	return &ChainChecker{Checkers: checkers}
}

func (c *ChainChecker) Check(ctx context.Context, challenge []byte) (bool, error) {
	for _, checker := range c.Checkers {
		ok, err := checker.Check(ctx, challenge)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
