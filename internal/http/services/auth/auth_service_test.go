package auth

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/agrotm/accessguard/internal/http/dto/auth"
	"github.com/agrotm/accessguard/internal/security/attempt"
	"github.com/agrotm/accessguard/internal/security/lockout"
	"github.com/agrotm/accessguard/internal/security/nonce"
	"github.com/agrotm/accessguard/internal/security/wallet"
	"github.com/agrotm/accessguard/internal/session"
)

type countingNotifier struct {
	mu sync.Mutex
	n  int
}

func (c *countingNotifier) Notify(context.Context, string, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return nil
}

func (c *countingNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type testEnv struct {
	svc      Service
	sessions *session.Store
	notifier *countingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sessions := session.NewStore(5, 30*time.Minute)
	notifier := &countingNotifier{}
	svc := NewService(Deps{
		Nonces:   nonce.NewService(5 * time.Minute),
		Attempts: attempt.NewTracker(nil),
		Locks:    lockout.NewManager(15 * time.Minute),
		Sessions: sessions,
		Verifier: wallet.NewVerifier(),
		Notifier: notifier,
	})
	return &testEnv{svc: svc, sessions: sessions, notifier: notifier}
}

func newWallet(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func signPersonal(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	sig, err := crypto.Sign(crypto.Keccak256([]byte(prefixed)), key)
	require.NoError(t, err)
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig)
}

func challengeAndSign(t *testing.T, env *testEnv, key *ecdsa.PrivateKey, address string) dto.AuthenticateRequest {
	t.Helper()
	ch, err := env.svc.Challenge(context.Background(), dto.ChallengeRequest{Address: address, Network: "ethereum"})
	require.NoError(t, err)
	return dto.AuthenticateRequest{
		Address:   address,
		Network:   "ethereum",
		Signature: signPersonal(t, key, ch.Message),
	}
}

func TestChallenge(t *testing.T) {
	env := newTestEnv(t)

	ch, err := env.svc.Challenge(context.Background(), dto.ChallengeRequest{Address: "0xAbC1230000000000000000000000000000000000", Network: "ethereum"})
	require.NoError(t, err)
	assert.Contains(t, ch.Message, "Sign this message to authenticate with AGROTM DeFi Platform.")
	assert.Contains(t, ch.Message, "Nonce: ")
	assert.EqualValues(t, 300, ch.ExpiresIn)
}

func TestChallenge_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Challenge(ctx, dto.ChallengeRequest{Network: "ethereum"})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = env.svc.Challenge(ctx, dto.ChallengeRequest{Address: "0xabc", Network: "dogecoin"})
	assert.ErrorIs(t, err, ErrUnknownNetwork)
}

func TestLogin_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	key, address := newWallet(t)

	req := challengeAndSign(t, env, key, address)
	resp, err := env.svc.Login(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ethereum", resp.Network)

	principal, ok := env.sessions.Validate(resp.Token)
	require.True(t, ok)
	assert.Equal(t, "ethereum:"+resp.Address, principal)
}

func TestLogin_NonceIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	key, address := newWallet(t)

	req := challengeAndSign(t, env, key, address)
	_, err := env.svc.Login(context.Background(), req)
	require.NoError(t, err)

	// Replaying the same signed request must fail: the nonce is gone
	_, err = env.svc.Login(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidNonce)
}

func TestLogin_InvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	key, address := newWallet(t)
	otherKey, _ := newWallet(t)

	ch, err := env.svc.Challenge(context.Background(), dto.ChallengeRequest{Address: address, Network: "ethereum"})
	require.NoError(t, err)

	_, err = env.svc.Login(context.Background(), dto.AuthenticateRequest{
		Address:   address,
		Network:   "ethereum",
		Signature: signPersonal(t, otherKey, ch.Message),
	})
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// A fresh, correctly signed challenge still works afterwards
	req := challengeAndSign(t, env, key, address)
	_, err = env.svc.Login(context.Background(), req)
	assert.NoError(t, err)
}

func TestLogin_TrapFieldsRejected(t *testing.T) {
	env := newTestEnv(t)
	key, address := newWallet(t)

	req := challengeAndSign(t, env, key, address)
	req.Website = "http://spam.example"

	_, err := env.svc.Login(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidSignature, "bots get the same answer as a bad signature")
}

func TestLogin_RateLimitTriggersLockout(t *testing.T) {
	env := newTestEnv(t)
	_, address := newWallet(t)
	ctx := context.Background()

	// Three failed attempts consume the login budget
	for i := 0; i < 3; i++ {
		_, err := env.svc.Login(ctx, dto.AuthenticateRequest{
			Address:   address,
			Network:   "ethereum",
			Signature: "0xdeadbeef",
		})
		assert.ErrorIs(t, err, ErrInvalidNonce, "attempt %d", i+1)
	}

	// The fourth attempt is denied and locks the identifier
	_, err := env.svc.Login(ctx, dto.AuthenticateRequest{
		Address:   address,
		Network:   "ethereum",
		Signature: "0xdeadbeef",
	})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, env.notifier.count())

	// From now on the lockout answers first, with the remaining time
	_, err = env.svc.Login(ctx, dto.AuthenticateRequest{
		Address:   address,
		Network:   "ethereum",
		Signature: "0xdeadbeef",
	})
	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Greater(t, locked.Remaining, 14*time.Minute)
}

func TestRegister_HasOwnBudget(t *testing.T) {
	env := newTestEnv(t)
	_, address := newWallet(t)
	ctx := context.Background()

	// Registration allows two attempts in its window
	for i := 0; i < 2; i++ {
		_, err := env.svc.Register(ctx, dto.AuthenticateRequest{
			Address:   address,
			Network:   "ethereum",
			Signature: "0xdeadbeef",
		})
		assert.ErrorIs(t, err, ErrInvalidNonce)
	}

	_, err := env.svc.Register(ctx, dto.AuthenticateRequest{
		Address:   address,
		Network:   "ethereum",
		Signature: "0xdeadbeef",
	})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestLogin_SuccessClearsAttempts(t *testing.T) {
	env := newTestEnv(t)
	key, address := newWallet(t)
	ctx := context.Background()

	// Two failures, then a success
	for i := 0; i < 2; i++ {
		_, err := env.svc.Login(ctx, dto.AuthenticateRequest{
			Address:   address,
			Network:   "ethereum",
			Signature: "0xdeadbeef",
		})
		require.ErrorIs(t, err, ErrInvalidNonce)
	}
	req := challengeAndSign(t, env, key, address)
	_, err := env.svc.Login(ctx, req)
	require.NoError(t, err)

	// The budget is fresh again: three more failures fit before lockout
	for i := 0; i < 3; i++ {
		_, err := env.svc.Login(ctx, dto.AuthenticateRequest{
			Address:   address,
			Network:   "ethereum",
			Signature: "0xdeadbeef",
		})
		assert.ErrorIs(t, err, ErrInvalidNonce, "attempt %d", i+1)
	}
}

func TestLogoutAndLogoutAll(t *testing.T) {
	env := newTestEnv(t)
	key, address := newWallet(t)
	ctx := context.Background()

	first, err := env.svc.Login(ctx, challengeAndSign(t, env, key, address))
	require.NoError(t, err)
	second, err := env.svc.Login(ctx, challengeAndSign(t, env, key, address))
	require.NoError(t, err)

	env.svc.Logout(ctx, first.Token)
	_, ok := env.sessions.Validate(first.Token)
	assert.False(t, ok)
	_, ok = env.sessions.Validate(second.Token)
	assert.True(t, ok, "logout only revokes the presented session")

	principal, _ := env.sessions.Validate(second.Token)
	env.svc.LogoutAll(ctx, principal)
	_, ok = env.sessions.Validate(second.Token)
	assert.False(t, ok)
}
