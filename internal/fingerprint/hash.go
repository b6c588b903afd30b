package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"lukechampine.com/blake3"

	"mediadup/internal/services"
)

// Algorithm selects the content digest function.
type Algorithm string

const (
	AlgorithmBlake3 Algorithm = "blake3"
	AlgorithmSHA256 Algorithm = "sha256"
)

// chunkSize bounds memory while digesting multi-gigabyte videos.
const chunkSize = 1 << 20

// Digest is a content hash in "<prefix>:<hex>" form, e.g.
// "b3:9f86d08..." or "sha256:9f86d08...".
type Digest string

func (d Digest) String() string { return string(d) }

// Algorithm reports which digest function produced d.
func (d Digest) Algorithm() Algorithm {
	prefix, _, ok := strings.Cut(string(d), ":")
	if !ok {
		return ""
	}
	switch prefix {
	case "b3":
		return AlgorithmBlake3
	case "sha256":
		return AlgorithmSHA256
	default:
		return ""
	}
}

// Hex returns the hex-encoded hash without the algorithm prefix.
func (d Digest) Hex() string {
	_, hexPart, ok := strings.Cut(string(d), ":")
	if !ok {
		return string(d)
	}
	return hexPart
}

// ParseAlgorithm converts a configuration string into an Algorithm.
func ParseAlgorithm(value string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "blake3":
		return AlgorithmBlake3, nil
	case "sha256":
		return AlgorithmSHA256, nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm %q", value)
	}
}

func newHasher(algo Algorithm) (hash.Hash, string, error) {
	switch algo {
	case AlgorithmBlake3:
		return blake3.New(32, nil), "b3", nil
	case AlgorithmSHA256:
		return sha256.New(), "sha256", nil
	default:
		return nil, "", fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}

// HashReader streams r through the selected digest in bounded chunks.
// Cancellation is honoured between chunks.
func HashReader(ctx context.Context, r io.Reader, algo Algorithm) (Digest, error) {
	hasher, prefix, err := newHasher(algo)
	if err != nil {
		return "", err
	}

	buf := make([]byte, chunkSize)
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("read: %w", readErr)
		}
	}

	return Digest(prefix + ":" + hex.EncodeToString(hasher.Sum(nil))), nil
}

// HashFile digests the raw bytes of path. Identical bytes always yield an
// identical digest regardless of file name or metadata. Unreadable input
// surfaces as an IO-classified error, never a silent skip.
func HashFile(ctx context.Context, path string, algo Algorithm) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrIO, "fingerprint", "open", path, err)
	}
	defer file.Close()

	digest, err := HashReader(ctx, file, algo)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", services.Wrap(services.ErrIO, "fingerprint", "hash", path, err)
	}
	return digest, nil
}
