package verifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatcherAcceptsExactMatch(t *testing.T) {
	m := NewMatcher([]byte("expected"))
	ok, err := m.Check(context.Background(), []byte("expected"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMatcherRejectsMismatch(t *testing.T) {
	m := NewMatcher([]byte("expected"))
	ok, err := m.Check(context.Background(), []byte("other"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLRUChallengeCacheRejectsReplay(t *testing.T) {
	c := NewLRUChallengeCache(4)
	ok, err := c.Check(context.Background(), []byte("nonce-1"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.Check(context.Background(), []byte("nonce-1"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestChainCheckerShortCircuits(t *testing.T) {
	var calls int
	alwaysTrue := ChallengeCheckerFunc(func(context.Context, []byte) (bool, error) {
		calls++
		return true, nil
	})
	alwaysFalse := ChallengeCheckerFunc(func(context.Context, []byte) (bool, error) {
		calls++
		return false, nil
	})
	neverCalled := ChallengeCheckerFunc(func(context.Context, []byte) (bool, error) {
		t.Fatal("should not be invoked after a false result")
		return false, nil
	})

	chain := NewChainChecker(alwaysTrue, alwaysFalse, neverCalled)
	ok, err := chain.Check(context.Background(), []byte("x"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 2, calls)
}

func TestChainCheckerEmptyAcceptsUnconditionally(t *testing.T) {
	chain := NewChainChecker()
	ok, err := chain.Check(context.Background(), []byte("x"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestChainCheckerPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	failing := ChallengeCheckerFunc(func(context.Context, []byte) (bool, error) {
		return false, wantErr
	})
	chain := NewChainChecker(failing)
	_, err := chain.Check(context.Background(), []byte("x"))
	require.ErrorIs(t, err, wantErr)
}
