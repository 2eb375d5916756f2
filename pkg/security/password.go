package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-api/pkg/config"
	"golang.org/x/crypto/argon2"
)

const argonScheme = "argon2id"

var (
	// ErrInvalidHash signals a stored hash that is not a PHC formatted argon2id string.
	ErrInvalidHash = errors.New("invalid argon2id hash")
	// ErrEmptyPassword is returned when hashing an empty secret.
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// argonHash is the parsed form of "$argon2id$v=19$m=..,t=..,p=..$salt$key".
type argonHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (h argonHash) String() string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argonScheme, argon2.Version, h.memory, h.time, h.threads,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func (h argonHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
}

// HashPassword derives a fresh argon2id hash using the configured cost.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	p := newCost(cfg)
	h := argonHash{memory: p.memory, time: p.time, threads: p.threads, salt: make([]byte, p.saltLen)}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h.key = make([]byte, p.keyLen)
	h.key = h.derive(password)
	return h.String(), nil
}

// VerifyPassword reports whether password matches encoded. A malformed hash
// is an error, a mismatch is not.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, h.derive(password)) == 1, nil
}

// NeedsRehash reports whether encoded was produced with a cost other than
// the one cfg asks for. Unparseable hashes always need one.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	h, err := parseHash(encoded)
	if err != nil {
		return true
	}
	p := newCost(cfg)
	return h.memory != p.memory ||
		h.time != p.time ||
		h.threads != p.threads ||
		uint32(len(h.salt)) != p.saltLen ||
		uint32(len(h.key)) != p.keyLen
}

type cost struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

func newCost(cfg config.PasswordConfig) cost {
	return cost{
		memory:  uint32(bound(cfg.ArgonMemoryKB, 8, 512*1024)),
		time:    uint32(bound(cfg.ArgonTime, 1, 10)),
		threads: uint8(bound(cfg.ArgonParallelism, 1, 255)),
		saltLen: uint32(bound(cfg.ArgonSaltLen, 8, 64)),
		keyLen:  uint32(bound(cfg.ArgonKeyLen, 16, 64)),
	}
}

func bound(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func parseHash(encoded string) (argonHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != argonScheme {
		return argonHash{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonHash{}, ErrInvalidHash
	}

	var h argonHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return argonHash{}, ErrInvalidHash
	}
	if h.memory == 0 || h.time == 0 || h.threads == 0 {
		return argonHash{}, ErrInvalidHash
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(h.salt) == 0 {
		return argonHash{}, ErrInvalidHash
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return argonHash{}, ErrInvalidHash
	}
	return h, nil
}
