/*

This file contains the secret store protecting AI wallet private keys at rest.

Blobs use the "ivHex:cipherHex" format: AES-256-CBC with PKCS#7 padding and a
random 16 byte IV per encryption. The store never falls back to a built-in key.

*/

package wallet

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrSecretTooShort      = errors.New("encryption secret is too short")
	ErrMalformedCiphertext = errors.New("ciphertext is malformed")
	ErrDecryptionFailed    = errors.New("decryption failed")
)

// MinSecretLength is the shortest secret NewAESCBCStore accepts.
const MinSecretLength = 32

// keyDerivationInfo binds derived keys to this use.
const keyDerivationInfo = "aptomizer ai wallet key encryption"

// SecretStore encrypts and decrypts small secrets such as private keys.
type SecretStore interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(blob string) ([]byte, error)
}

// AESCBCStore is a SecretStore backed by AES-256-CBC.
type AESCBCStore struct {
	block cipher.Block
}

// NewAESCBCStore builds a store from secret. A secret of exactly 32 bytes is
// the key itself, so rows written with that key stay readable. A 64 digit hex
// secret is decoded to the key. Anything else is stretched with HKDF-SHA256.
func NewAESCBCStore(secret string) (*AESCBCStore, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d characters, got %d", ErrSecretTooShort, MinSecretLength, len(secret))
	}

	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return &AESCBCStore{block: block}, nil
}

func deriveKey(secret string) ([]byte, error) {
	if len(secret) == 32 {
		return []byte(secret), nil
	}
	if len(secret) == 64 {
		if key, err := hex.DecodeString(secret); err == nil {
			return key, nil
		}
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyDerivationInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	return key, nil
}

// Encrypt returns "ivHex:cipherHex".
func (s *AESCBCStore) Encrypt(plaintext []byte) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(s.block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (s *AESCBCStore) Decrypt(blob string) ([]byte, error) {
	ivHex, cipherHex, found := strings.Cut(blob, ":")
	if !found {
		return nil, fmt.Errorf("%w: missing IV separator", ErrMalformedCiphertext)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: IV must be %d hex encoded bytes", ErrMalformedCiphertext, aes.BlockSize)
	}
	data, err := hex.DecodeString(cipherHex)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not hex", ErrMalformedCiphertext)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of the block size", ErrMalformedCiphertext, len(data))
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(s.block, iv).CryptBlocks(out, data)

	plaintext, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
