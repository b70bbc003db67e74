package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"golang.org/x/crypto/argon2"
)

const hashPrefix = "$argon2id$"

// ErrInvalidHash is returned for stored hashes that are not argon2id PHC strings.
var ErrInvalidHash = errors.New("invalid argon2id hash")

var errEmptyPassword = errors.New("password cannot be empty")

// argonParams mirrors the m/t/p fields of a PHC string plus salt and key sizes.
type argonParams struct {
	memory  uint32
	passes  uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

// HashPassword derives an argon2id key and encodes it as
// $argon2id$v=19$m=<kb>,t=<passes>,p=<threads>$<salt>$<key>.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errEmptyPassword
	}
	p := paramsFrom(cfg)
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.threads, p.keyLen)
	return encode(p, salt, key), nil
}

// VerifyPassword reports whether password matches encoded. A malformed hash
// is an error; a wrong password is not.
func VerifyPassword(password, encoded string) (bool, error) {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(password), salt, p.passes, p.memory, p.threads, p.keyLen)
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker settings than cfg.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	p, _, _, err := decode(encoded)
	if err != nil {
		return true
	}
	want := paramsFrom(cfg)
	return p.memory < want.memory || p.passes < want.passes || p.keyLen < want.keyLen
}

func paramsFrom(cfg config.PasswordConfig) argonParams {
	return argonParams{
		memory:  uint32(bound(cfg.ArgonMemoryKB, 8, 512*1024)),
		passes:  uint32(bound(cfg.ArgonTime, 1, 10)),
		threads: uint8(bound(cfg.ArgonParallelism, 1, 255)),
		saltLen: uint32(bound(cfg.ArgonSaltLen, 8, 64)),
		keyLen:  uint32(bound(cfg.ArgonKeyLen, 16, 64)),
	}
}

func encode(p argonParams, salt, key []byte) string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		hashPrefix, argon2.Version, p.memory, p.passes, p.threads,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}

func decode(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams
	if !strings.HasPrefix(encoded, hashPrefix) {
		return p, nil, nil, ErrInvalidHash
	}
	fields := strings.Split(strings.TrimPrefix(encoded, hashPrefix), "$")
	if len(fields) != 4 {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrInvalidHash
	}
	var threads uint32
	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &p.memory, &p.passes, &threads); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if threads == 0 || threads > 255 || p.passes == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	p.threads = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(fields[2])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[3])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	p.saltLen = uint32(len(salt))
	p.keyLen = uint32(len(key))
	return p, salt, key, nil
}

func bound(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
