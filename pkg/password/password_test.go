package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/library-loans/pkg/password"
)

func TestHash(t *testing.T) {
	hash, err := password.GetHash("qwerty123")
	require.NoError(t, err)
	require.NotEqual(t, "qwerty123", hash)

	require.NoError(t, password.CompareHash(hash, "qwerty123"))
	require.ErrorIs(t, password.CompareHash(hash, "qwerty124"), password.ErrMismatch)
	require.Error(t, password.CompareHash("not-a-hash", "qwerty123"))
}

func TestHash_TooLong(t *testing.T) {
	_, err := password.GetHash(strings.Repeat("é", 40))
	require.ErrorIs(t, err, password.ErrTooLong)

	_, err = password.GetHash(strings.Repeat("a", password.MaxBytes))
	require.NoError(t, err)
}
