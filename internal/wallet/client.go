package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aptomizer/core/internal/datafetcher"
	"github.com/aptomizer/core/internal/logger"
)

// Error definitions for the signing flow
var (
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrAccountRetrievalFailed = errors.New("account retrieval failed")
	ErrGasEstimationFailed    = errors.New("gas estimation failed")
	ErrTxBuildFailed          = errors.New("transaction build failed")
	ErrTxSignFailed           = errors.New("transaction signing failed")
	ErrTxSubmitFailed         = errors.New("transaction submission failed")
)

var walletLogger = logger.GetForComponent("wallet_client")

// Transaction defaults.
const (
	DefaultMaxGasAmount = 200_000
	DefaultExpiration   = 60 * time.Second
)

// ChainClient is the subset of the fullnode API needed to submit transactions.
type ChainClient interface {
	Account(ctx context.Context, address string) (datafetcher.AccountInfo, error)
	EstimateGasPrice(ctx context.Context) (uint64, error)
	EncodeSubmission(ctx context.Context, txn any) (string, error)
	SubmitTransaction(ctx context.Context, signed any) (string, error)
}

// UnsignedTransaction is the JSON form of a user transaction before signing.
type UnsignedTransaction struct {
	Sender                  string               `json:"sender"`
	SequenceNumber          string               `json:"sequence_number"`
	MaxGasAmount            string               `json:"max_gas_amount"`
	GasUnitPrice            string               `json:"gas_unit_price"`
	ExpirationTimestampSecs string               `json:"expiration_timestamp_secs"`
	Payload                 EntryFunctionPayload `json:"payload"`
}

// Signature is a single ed25519 transaction authenticator.
type Signature struct {
	Type      string `json:"type"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// SignedTransaction is the body of POST /v1/transactions.
type SignedTransaction struct {
	UnsignedTransaction
	Signature Signature `json:"signature"`
}

// SigningClient signs and submits transactions for one account.
type SigningClient struct {
	chain        ChainClient
	key          KeyPair
	maxGasAmount uint64
	expiration   time.Duration
	now          func() time.Time
}

// NewSigningClient creates a signing client for key.
func NewSigningClient(chain ChainClient, key KeyPair) (*SigningClient, error) {
	if chain == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("chain client cannot be nil"))
	}
	if len(key.PrivateKey) != ed25519.PrivateKeySize {
		return nil, errors.Join(ErrInvalidConfig, ErrInvalidPrivateKey)
	}
	if err := datafetcher.ValidateAddress(key.Address); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	return &SigningClient{
		chain:        chain,
		key:          key,
		maxGasAmount: DefaultMaxGasAmount,
		expiration:   DefaultExpiration,
		now:          time.Now,
	}, nil
}

// Address returns the sender address.
func (c *SigningClient) Address() string {
	return c.key.Address
}

// Submit builds, signs and submits payload, returning the transaction hash.
// It does not wait for the transaction to be committed.
func (c *SigningClient) Submit(ctx context.Context, payload EntryFunctionPayload) (string, error) {
	if err := validatePayload(payload); err != nil {
		return "", errors.Join(ErrTxBuildFailed, err)
	}

	account, err := c.chain.Account(ctx, c.key.Address)
	if err != nil {
		return "", errors.Join(ErrAccountRetrievalFailed, err)
	}
	if _, err := strconv.ParseUint(account.SequenceNumber, 10, 64); err != nil {
		return "", errors.Join(ErrAccountRetrievalFailed, fmt.Errorf("invalid sequence number %q", account.SequenceNumber))
	}

	gasPrice, err := c.chain.EstimateGasPrice(ctx)
	if err != nil {
		return "", errors.Join(ErrGasEstimationFailed, err)
	}
	if gasPrice == 0 {
		return "", errors.Join(ErrGasEstimationFailed, errors.New("gas price estimate is zero"))
	}

	txn := UnsignedTransaction{
		Sender:                  c.key.Address,
		SequenceNumber:          account.SequenceNumber,
		MaxGasAmount:            strconv.FormatUint(c.maxGasAmount, 10),
		GasUnitPrice:            strconv.FormatUint(gasPrice, 10),
		ExpirationTimestampSecs: strconv.FormatInt(c.now().Add(c.expiration).Unix(), 10),
		Payload:                 payload,
	}

	signingMessage, err := c.chain.EncodeSubmission(ctx, txn)
	if err != nil {
		return "", errors.Join(ErrTxBuildFailed, err)
	}
	message, err := hex.DecodeString(strings.TrimPrefix(signingMessage, "0x"))
	if err != nil || len(message) == 0 {
		return "", errors.Join(ErrTxSignFailed, fmt.Errorf("signing message is not hex: %q", signingMessage))
	}

	signed := SignedTransaction{
		UnsignedTransaction: txn,
		Signature: Signature{
			Type:      "ed25519_signature",
			PublicKey: c.key.PublicKeyHex(),
			Signature: "0x" + hex.EncodeToString(ed25519.Sign(c.key.PrivateKey, message)),
		},
	}

	hash, err := c.chain.SubmitTransaction(ctx, signed)
	if err != nil {
		walletLogger.Error().Err(err).Str("function", payload.Function).Str("sender", c.key.Address).Msg("Transaction submission failed")
		return "", errors.Join(ErrTxSubmitFailed, err)
	}

	walletLogger.Info().
		Str("hash", hash).
		Str("function", payload.Function).
		Str("sender", c.key.Address).
		Str("sequenceNumber", account.SequenceNumber).
		Uint64("gasUnitPrice", gasPrice).
		Msg("Transaction submitted")

	return hash, nil
}
