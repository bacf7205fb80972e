package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"

	"github.com/redmonkez12/go-task-api/internal/config"
)

// Argon2id parameters - tuned for security vs performance balance
// Time: 3, Memory: 64MB, Threads: 4, KeyLen: 32 bytes
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16

	// Upper bounds accepted when decoding a stored hash, so a corrupted or
	// hostile record cannot make Verify allocate without limit.
	maxArgon2Memory = config.MaxArgon2MemoryKiB
	maxArgon2Time   = config.MaxArgon2Time
	maxArgon2KeyLen = 128
)

// PasswordHasher hashes and verifies passwords. The encoded output is opaque
// to every caller except the hasher itself.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encodedHash string) bool
}

type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
}

// DefaultArgon2Params returns the production parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:      argon2Time,
		MemoryKiB: argon2Memory,
		Threads:   argon2Threads,
		KeyLen:    argon2KeyLen,
	}
}

// Argon2Hasher implements PasswordHasher with argon2id. At most
// maxConcurrent hash computations run at once; callers wait on the
// semaphore and give up when their context is cancelled.
type Argon2Hasher struct {
	params Argon2Params
	sem    *semaphore.Weighted
}

func NewArgon2Hasher(params Argon2Params, maxConcurrent int) *Argon2Hasher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if params.KeyLen == 0 {
		params.KeyLen = argon2KeyLen
	}
	return &Argon2Hasher{
		params: params,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Hash creates an argon2id hash of the password with a fresh random salt.
// Output format: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
func (h *Argon2Hasher) Hash(ctx context.Context, password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, h.params.KeyLen)
	h.sem.Release(1)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks if a password matches the stored hash. A hash that does not
// parse, or carries another algorithm or version, never matches.
func (h *Argon2Hasher) Verify(ctx context.Context, password, encodedHash string) bool {
	params, salt, want, ok := decodeHash(encodedHash)
	if !ok {
		return false
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, params.Time, params.MemoryKiB, params.Threads, params.KeyLen)
	h.sem.Release(1)

	return subtle.ConstantTimeCompare(want, got) == 1
}

func decodeHash(encodedHash string) (Argon2Params, []byte, []byte, bool) {
	var params Argon2Params

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, hash
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return params, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params, nil, nil, false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return params, nil, nil, false
	}
	if iterations < 1 || iterations > maxArgon2Time || threads < 1 || memory < 8*uint32(threads) || memory > maxArgon2Memory {
		return params, nil, nil, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return params, nil, nil, false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxArgon2KeyLen {
		return params, nil, nil, false
	}

	params = Argon2Params{
		Time:      iterations,
		MemoryKiB: memory,
		Threads:   threads,
		KeyLen:    uint32(len(key)),
	}
	return params, salt, key, true
}
