// Package wallet verifies wallet signatures for the supported networks.
//
// The verifier collapses every failure mode (malformed hex, short signature,
// bad curve point, wrong signer) into a plain "false" so callers cannot tell
// attack classes apart from honest mistakes.
package wallet

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

// Network identifies the wallet network a credential belongs to.
// It is a closed set: the verifier switches exhaustively over it and
// rejects anything it does not recognize.
type Network string

const (
	// NetworkEthereum covers EVM account-based wallets (MetaMask et al).
	NetworkEthereum Network = "ethereum"
	// NetworkSolana covers ed25519 ledger-based wallets (Phantom et al).
	NetworkSolana Network = "solana"
)

// ParseNetwork maps a wire string onto the closed Network set.
func ParseNetwork(s string) (Network, bool) {
	switch Network(strings.ToLower(strings.TrimSpace(s))) {
	case NetworkEthereum:
		return NetworkEthereum, true
	case NetworkSolana:
		return NetworkSolana, true
	default:
		return "", false
	}
}

// Verifier validates signatures against a claimed address or public key.
type Verifier struct{}

// NewVerifier returns a stateless Verifier.
func NewVerifier() Verifier {
	return Verifier{}
}

// Verify reports whether signature over message was produced by the holder
// of address on the given network. Unknown networks verify as false.
func (v Verifier) Verify(network Network, message, signature, address string) (ok bool) {
	// Some underlying curve libraries panic on adversarial input; any panic
	// resolves to false like every other failure.
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	switch network {
	case NetworkEthereum:
		return v.verifyEthereum(message, signature, address)
	case NetworkSolana:
		return v.verifySolana(message, signature, address)
	default:
		return false
	}
}

// verifyEthereum recovers the signer from an EIP-191 personal_sign signature
// and compares it (case-insensitively) with the claimed address.
func (v Verifier) verifyEthereum(message, signature, address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sig) != crypto.SignatureLength {
		return false
	}

	// Wallets emit V as 27/28; go-ethereum expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return false
	}

	pub, err := crypto.SigToPub(personalHash(message), sig)
	if err != nil {
		return false
	}

	recovered := crypto.PubkeyToAddress(*pub)
	return recovered == common.HexToAddress(address)
}

// personalHash computes the EIP-191 "Ethereum Signed Message" digest.
func personalHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// verifySolana checks an ed25519 signature over the raw message bytes against
// the claimed base58 public key. Signatures arrive base64-encoded from the
// wallet adapter; base58 is accepted as a fallback for Phantom-style clients.
func (v Verifier) verifySolana(message, signature, publicKey string) bool {
	pub, err := base58.Decode(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		sig, err = base58.Decode(signature)
		if err != nil || len(sig) != ed25519.SignatureSize {
			return false
		}
	}

	return ed25519.Verify(ed25519.PublicKey(pub), []byte(message), sig)
}
