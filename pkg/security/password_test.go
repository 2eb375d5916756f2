package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/security"
)

// cheap keeps argon2 fast enough for unit tests.
var cheap = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", cheap)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"), hash)

	ok, err := security.VerifyPassword("very-secure-password", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("very-secure-passwore", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	first, err := security.HashPassword("same-password", cheap)
	require.NoError(t, err)
	second, err := security.HashPassword("same-password", cheap)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = security.HashPassword("", cheap)
	assert.ErrorIs(t, err, security.ErrEmptyPassword)
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	valid, err := security.HashPassword("pw", cheap)
	require.NoError(t, err)

	for name, encoded := range map[string]string{
		"plain text":     "not-a-hash",
		"bcrypt":         "$2a$10$abcdefghijklmnopqrstuv",
		"other variant":  strings.Replace(valid, "$argon2id$", "$argon2i$", 1),
		"old version":    strings.Replace(valid, "$v=19$", "$v=16$", 1),
		"zero memory":    strings.Replace(valid, "m=8192", "m=0", 1),
		"missing key":    valid[:strings.LastIndex(valid, "$")+1],
		"undecodable":    valid + "!",
		"extra segments": valid + "$more",
	} {
		_, err := security.VerifyPassword("pw", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, name)
	}
}

func TestNeedsRehashFollowsConfiguredCost(t *testing.T) {
	hash, err := security.HashPassword("checkout-ready", cheap)
	require.NoError(t, err)
	assert.False(t, security.NeedsRehash(hash, cheap))

	slower := cheap
	slower.ArgonTime = 2
	assert.True(t, security.NeedsRehash(hash, slower))

	longerKey := cheap
	longerKey.ArgonKeyLen = 48
	assert.True(t, security.NeedsRehash(hash, longerKey))

	assert.True(t, security.NeedsRehash("$2a$10$legacybcrypt", cheap))
}

func TestCostIsClamped(t *testing.T) {
	hash, err := security.HashPassword("pw", config.PasswordConfig{ArgonMemoryKB: 1, ArgonTime: 0, ArgonParallelism: 0, ArgonSaltLen: 1, ArgonKeyLen: 1})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8,t=1,p=1$"), hash)

	ok, err := security.VerifyPassword("pw", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}
