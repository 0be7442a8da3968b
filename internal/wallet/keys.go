package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/aptomizer/core/internal/types"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

var ErrInvalidPrivateKey = errors.New("invalid private key")

// ed25519Scheme is the authentication key scheme byte of single ed25519 accounts.
const ed25519Scheme = 0x00

// KeyPair is an ed25519 Aptos account.
type KeyPair struct {
	Address    string
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateKeyPair creates a new random account.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return KeyPair{Address: AddressFromPublicKey(pub), PublicKey: pub, PrivateKey: priv}, nil
}

// KeyPairFromHex restores an account from a "0x"-prefixed 32 byte seed.
func KeyPairFromHex(privateKeyHex string) (KeyPair, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: not hex", ErrInvalidPrivateKey)
	}
	if len(seed) != ed25519.SeedSize {
		return KeyPair{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrivateKey, ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return KeyPair{Address: AddressFromPublicKey(pub), PublicKey: pub, PrivateKey: priv}, nil
}

// AddressFromPublicKey returns sha3-256(publicKey || 0x00), the address of a
// fresh single-key account.
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	h := sha3.New256()
	h.Write(pub)
	h.Write([]byte{ed25519Scheme})
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// PrivateKeyHex returns the "0x"-prefixed seed.
func (k KeyPair) PrivateKeyHex() string {
	return "0x" + hex.EncodeToString(k.PrivateKey.Seed())
}

// PublicKeyHex returns the "0x"-prefixed public key.
func (k KeyPair) PublicKeyHex() string {
	return "0x" + hex.EncodeToString(k.PublicKey)
}

// Keystore creates AI wallets and unlocks their keys through a SecretStore.
type Keystore struct {
	secrets SecretStore
}

// NewKeystore returns a Keystore using secrets.
func NewKeystore(secrets SecretStore) *Keystore {
	return &Keystore{secrets: secrets}
}

// NewAIWallet generates an account for userID with an encrypted private key.
// The wallet is not persisted.
func (k *Keystore) NewAIWallet(userID string) (types.AIWallet, error) {
	pair, err := GenerateKeyPair()
	if err != nil {
		return types.AIWallet{}, err
	}

	encrypted, err := k.secrets.Encrypt([]byte(pair.PrivateKeyHex()))
	if err != nil {
		return types.AIWallet{}, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	walletLogger.Info().Str("userId", userID).Str("address", pair.Address).Msg("AI wallet generated")

	return types.AIWallet{
		ID:                  uuid.New().String(),
		UserID:              userID,
		WalletAddress:       pair.Address,
		PublicKey:           pair.PublicKeyHex(),
		EncryptedPrivateKey: encrypted,
	}, nil
}

// Unlock decrypts the key of an AI wallet and checks it matches the stored address.
func (k *Keystore) Unlock(w types.AIWallet) (KeyPair, error) {
	plaintext, err := k.secrets.Decrypt(w.EncryptedPrivateKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to decrypt AI wallet key: %w", err)
	}

	pair, err := KeyPairFromHex(string(plaintext))
	if err != nil {
		return KeyPair{}, err
	}
	if !strings.EqualFold(pair.Address, w.WalletAddress) {
		return KeyPair{}, fmt.Errorf("%w: key does not match wallet %s", ErrInvalidPrivateKey, w.WalletAddress)
	}
	return pair, nil
}
