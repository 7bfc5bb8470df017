package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/argon2"

	"github.com/amirk1998/stockkeeper/pkg/errors"
)

const (
	// Argon2id parameters (OWASP recommendations)
	argon2Time      = 3
	argon2Memory    = 64 * 1024 // 64 MB
	argon2Threads   = 2
	argon2KeyLength = 32

	SaltLength      = 16
	maxSaltAttempts = 32

	saltCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

const (
	HashSHA256   = "sha256"
	HashArgon2id = "argon2id"
)

// Hasher derives the stored digest from a password and its salt. Every
// implementation returns 64 lowercase hex characters.
type Hasher interface {
	Hash(password, salt string) (string, error)
}

// NewHasher returns the hasher registered under name.
func NewHasher(name string) (Hasher, error) {
	switch name {
	case "", HashSHA256:
		return SHA256Hasher{}, nil
	case HashArgon2id:
		return NewArgon2Hasher(), nil
	default:
		return nil, fmt.Errorf("unknown password hash %q", name)
	}
}

// SHA256Hasher computes hex(sha256(password + salt)).
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(password, salt string) (string, error) {
	if password == "" || salt == "" {
		return "", errors.ErrInvalidInput
	}
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:]), nil
}

type Argon2Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
}

func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{
		time:    argon2Time,
		memory:  argon2Memory,
		threads: argon2Threads,
	}
}

// Hash generates a hex encoded Argon2id key. Parameters are fixed because
// the credentials file has no column for them.
func (h *Argon2Hasher) Hash(password, salt string) (string, error) {
	if password == "" || salt == "" {
		return "", errors.ErrInvalidInput
	}

	key := argon2.IDKey(
		[]byte(password),
		[]byte(salt),
		h.time,
		h.memory,
		h.threads,
		argon2KeyLength,
	)

	return hex.EncodeToString(key), nil
}

// Verify checks if password matches the stored digest
func Verify(h Hasher, password, salt, digest string) (bool, error) {
	computed, err := h.Hash(password, salt)
	if err != nil {
		return false, err
	}

	// Use constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1, nil
}

// GenerateSalt draws alphanumeric salts until taken reports one as unused.
func GenerateSalt(taken func(salt string) (bool, error)) (string, error) {
	for range maxSaltAttempts {
		salt, err := randomString(SaltLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}

		used, err := taken(salt)
		if err != nil {
			return "", err
		}
		if !used {
			return salt, nil
		}
	}

	return "", errors.ErrSaltSpaceExhausted
}

func randomString(n int) (string, error) {
	upper := big.NewInt(int64(len(saltCharset)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, upper)
		if err != nil {
			return "", err
		}
		buf[i] = saltCharset[idx.Int64()]
	}
	return string(buf), nil
}
