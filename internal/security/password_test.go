package security

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/amirk1998/stockkeeper/pkg/errors"
)

func TestSHA256Hasher(t *testing.T) {
	h := SHA256Hasher{}

	// sha256("abc")
	digest, err := h.Hash("a", "bc")
	require.NoError(t, err)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", digest)

	again, err := h.Hash("a", "bc")
	require.NoError(t, err)
	require.Equal(t, digest, again)

	other, err := h.Hash("a", "bd")
	require.NoError(t, err)
	require.NotEqual(t, digest, other)

	_, err = h.Hash("", "salt")
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestArgon2Hasher(t *testing.T) {
	h := &Argon2Hasher{time: 1, memory: 1024, threads: 1}

	digest, err := h.Hash("Secret1", "AbCdEfGh12345678")
	require.NoError(t, err)
	require.Len(t, digest, 64)

	ok, err := Verify(h, "Secret1", "AbCdEfGh12345678", digest)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify(h, "Secret2", "AbCdEfGh12345678", digest)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher("")
	require.NoError(t, err)
	require.IsType(t, SHA256Hasher{}, h)

	h, err = NewHasher(HashArgon2id)
	require.NoError(t, err)
	require.IsType(t, &Argon2Hasher{}, h)

	_, err = NewHasher("md5")
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	h := SHA256Hasher{}
	digest, err := h.Hash("Secret1", "salt")
	require.NoError(t, err)

	ok, err := Verify(h, "Secret1", "salt", digest)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify(h, "secret1", "salt", digest)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGenerateSalt(t *testing.T) {
	salt, err := GenerateSalt(func(string) (bool, error) { return false, nil })
	require.NoError(t, err)
	require.Len(t, salt, SaltLength)
	for _, c := range salt {
		require.Contains(t, saltCharset, string(c))
	}
}

func TestGenerateSalt_RetriesOnCollision(t *testing.T) {
	calls := 0
	salt, err := GenerateSalt(func(string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	require.NoError(t, err)
	require.Len(t, salt, SaltLength)
	require.Equal(t, 3, calls)
}

func TestGenerateSalt_Exhausted(t *testing.T) {
	_, err := GenerateSalt(func(string) (bool, error) { return true, nil })
	require.ErrorIs(t, err, apperrors.ErrSaltSpaceExhausted)

	boom := errors.New("disk gone")
	_, err = GenerateSalt(func(string) (bool, error) { return false, boom })
	require.ErrorIs(t, err, boom)
}
