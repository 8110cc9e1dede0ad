package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
)

// Algorithm names a password hashing scheme.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmScrypt   Algorithm = "scrypt"
)

// Default cost factors.
const (
	DefaultBcryptCost   = 10
	DefaultArgon2idCost = 3  // time iterations
	DefaultScryptCost   = 15 // log2(N)
)

// Argon2id and scrypt fixed parameters.
const (
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 1
	argonKeyLen  = 32
	saltLen      = 16

	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	scryptMinLN  = 10
	scryptMaxLN  = 20

	// Upper bounds accepted when decoding stored hashes.
	argonMaxMemory = 1024 * 1024 // 1 GiB
	argonMaxTime   = 16
	scryptMaxR     = 8
	scryptMaxP     = 4
)

// ErrPasswordTooLong is returned by Hash when the plaintext exceeds what the
// configured algorithm can represent. Only bcrypt has such a limit (72 bytes);
// argon2id and scrypt accept any length.
var ErrPasswordTooLong = errors.New("password too long")

// Hasher hashes and verifies secrets. The zero value hashes with argon2id at
// DefaultArgon2idCost.
//
// Verify understands every supported format regardless of Algorithm, so
// changing the configured algorithm never invalidates stored hashes.
type Hasher struct {
	Algorithm Algorithm
	Cost      int
}

// NewHasher returns a Hasher for the named algorithm. An empty name selects
// argon2id; a non-positive cost selects the algorithm default.
func NewHasher(algorithm string, cost int) (*Hasher, error) {
	alg := Algorithm(strings.ToLower(algorithm))
	switch alg {
	case "":
		alg = AlgorithmArgon2id
	case AlgorithmBcrypt, AlgorithmArgon2id, AlgorithmScrypt:
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", algorithm)
	}

	h := &Hasher{Algorithm: alg, Cost: cost}
	if alg == AlgorithmBcrypt && cost > 0 && (cost < bcrypt.MinCost || cost > bcrypt.MaxCost) {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if alg == AlgorithmScrypt && cost > 0 && (cost < scryptMinLN || cost > scryptMaxLN) {
		return nil, fmt.Errorf("scrypt cost must be between %d and %d", scryptMinLN, scryptMaxLN)
	}
	return h, nil
}

// Hash derives a self-describing hash string from plaintext using a fresh
// random salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	switch h.algorithm() {
	case AlgorithmBcrypt:
		return hashBcrypt(plaintext, h.costOr(DefaultBcryptCost))
	case AlgorithmScrypt:
		return hashScrypt(plaintext, h.costOr(DefaultScryptCost))
	default:
		return hashArgon2id(plaintext, uint32(h.costOr(DefaultArgon2idCost))) //nolint:gosec // G115: cost is small and positive
	}
}

// Verify reports whether plaintext matches encoded. Unknown or malformed
// hashes yield false.
func (h *Hasher) Verify(plaintext, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plaintext)) == nil
	case strings.HasPrefix(encoded, "$argon2id$"):
		ok, err := verifyArgon2id(plaintext, encoded)
		return err == nil && ok
	case strings.HasPrefix(encoded, "$scrypt$"):
		ok, err := verifyScrypt(plaintext, encoded)
		return err == nil && ok
	default:
		return false
	}
}

func (h *Hasher) algorithm() Algorithm {
	if h == nil || h.Algorithm == "" {
		return AlgorithmArgon2id
	}
	return h.Algorithm
}

func (h *Hasher) costOr(def int) int {
	if h == nil || h.Cost <= 0 {
		return def
	}
	return h.Cost
}

func hashBcrypt(plaintext string, cost int) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(out), nil
}

// hashArgon2id returns a PHC string: $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func hashArgon2id(plaintext string, iterations uint32) (string, error) {
	salt, err := newSalt()
	if err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plaintext), salt, iterations, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, iterations, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// hashScrypt returns $scrypt$ln=15,r=8,p=1$<salt>$<hash>
func hashScrypt(plaintext string, ln int) (string, error) {
	salt, err := newSalt()
	if err != nil {
		return "", err
	}

	key, err := scrypt.Key([]byte(plaintext), salt, 1<<ln, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	return fmt.Sprintf("$scrypt$ln=%d,r=%d,p=%d$%s$%s",
		ln, scryptR, scryptP,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

func verifyArgon2id(plaintext, encoded string) (bool, error) {
	salt, key, params, err := decodeArgon2id(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(plaintext), salt, params.time, params.memory, params.threads, uint32(len(key))) //nolint:gosec // G115: key length always fits uint32

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func decodeArgon2id(encoded string) (salt, key []byte, params argonParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" { //nolint:mnd // PHC format has exactly 6 $-delimited parts
		return nil, nil, params, fmt.Errorf("invalid argon2id hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil { //nolint:govet // shadow
		return nil, nil, params, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, params, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil { //nolint:govet // shadow
		return nil, nil, params, fmt.Errorf("parsing parameters: %w", err)
	}
	if params.time == 0 || params.threads == 0 || params.time > argonMaxTime || params.memory > argonMaxMemory {
		return nil, nil, params, fmt.Errorf("invalid argon2id parameters")
	}

	salt, key, err = decodeSaltAndKey(parts[4], parts[5])
	return salt, key, params, err
}

func verifyScrypt(plaintext, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[1] != "scrypt" { //nolint:mnd // $scrypt$params$salt$hash
		return false, fmt.Errorf("invalid scrypt hash format")
	}

	var ln, r, p int
	if _, err := fmt.Sscanf(parts[2], "ln=%d,r=%d,p=%d", &ln, &r, &p); err != nil {
		return false, fmt.Errorf("parsing parameters: %w", err)
	}
	if ln < 1 || ln > scryptMaxLN || r < 1 || r > scryptMaxR || p < 1 || p > scryptMaxP {
		return false, fmt.Errorf("invalid scrypt parameters")
	}

	salt, key, err := decodeSaltAndKey(parts[3], parts[4])
	if err != nil {
		return false, err
	}

	candidate, err := scrypt.Key([]byte(plaintext), salt, 1<<ln, r, p, len(key))
	if err != nil {
		return false, fmt.Errorf("deriving key: %w", err)
	}

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

func decodeSaltAndKey(saltPart, keyPart string) (salt, key []byte, err error) {
	salt, err = base64.RawStdEncoding.DecodeString(saltPart)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding salt: %w", err)
	}

	key, err = base64.RawStdEncoding.DecodeString(keyPart)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding hash: %w", err)
	}
	if len(key) == 0 {
		return nil, nil, fmt.Errorf("empty hash")
	}
	return salt, key, nil
}
