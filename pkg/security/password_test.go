package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("segredo1")
	require.NoError(t, err)
	assert.NotEqual(t, "segredo1", hash)

	assert.NoError(t, h.Compare(hash, "segredo1"))
	assert.ErrorIs(t, h.Compare(hash, "outro123"), ErrMismatch)
}

func TestHashRejectsShortPasswords(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	_, err := h.Hash("12345")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = h.Hash("123456")
	assert.NoError(t, err)
}
