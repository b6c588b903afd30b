package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediadup/internal/services"
)

func writeTempFile(t *testing.T, name string, payload []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestHashFileIdenticalBytes(t *testing.T) {
	payload := bytes.Repeat([]byte("duplicate finder payload "), 4096)
	first := writeTempFile(t, "a.bin", payload)
	second := writeTempFile(t, "copy-of-a.bin", payload)

	digestA, err := HashFile(context.Background(), first, AlgorithmBlake3)
	if err != nil {
		t.Fatalf("hash first: %v", err)
	}
	digestB, err := HashFile(context.Background(), second, AlgorithmBlake3)
	if err != nil {
		t.Fatalf("hash second: %v", err)
	}

	if digestA != digestB {
		t.Fatalf("identical bytes produced different digests: %s vs %s", digestA, digestB)
	}
	if !strings.HasPrefix(string(digestA), "b3:") {
		t.Fatalf("expected b3 prefix, got %s", digestA)
	}
	if digestA.Algorithm() != AlgorithmBlake3 {
		t.Fatalf("unexpected algorithm %q", digestA.Algorithm())
	}
	if len(digestA.Hex()) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(digestA.Hex()))
	}
}

func TestHashReaderKnownAnswer(t *testing.T) {
	digest, err := HashReader(context.Background(), strings.NewReader("abc"), AlgorithmSHA256)
	if err != nil {
		t.Fatalf("hash reader: %v", err)
	}
	const want = "sha256:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if string(digest) != want {
		t.Fatalf("digest mismatch:\n got %s\nwant %s", digest, want)
	}
}

func TestHashFileAlgorithmsDiffer(t *testing.T) {
	path := writeTempFile(t, "payload.bin", []byte("same bytes, different digest"))

	blake, err := HashFile(context.Background(), path, AlgorithmBlake3)
	if err != nil {
		t.Fatalf("blake3: %v", err)
	}
	sha, err := HashFile(context.Background(), path, AlgorithmSHA256)
	if err != nil {
		t.Fatalf("sha256: %v", err)
	}

	if blake.Hex() == sha.Hex() {
		t.Fatal("expected different hex output per algorithm")
	}
	if sha.Algorithm() != AlgorithmSHA256 {
		t.Fatalf("unexpected algorithm %q", sha.Algorithm())
	}
}

func TestHashFileMissingIsIOError(t *testing.T) {
	_, err := HashFile(context.Background(), filepath.Join(t.TempDir(), "absent.jpg"), AlgorithmBlake3)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected IO classification, got %v", err)
	}
	if got := services.ClassifyFileError(err); got != services.OutcomeSkip {
		t.Fatalf("expected skip outcome, got %v", got)
	}
}

func TestHashReaderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := HashReader(ctx, strings.NewReader("never read"), AlgorithmBlake3)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{input: "blake3", want: AlgorithmBlake3},
		{input: "BLAKE3", want: AlgorithmBlake3},
		{input: "", want: AlgorithmBlake3},
		{input: "sha256", want: AlgorithmSHA256},
		{input: "md5", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseAlgorithm(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseAlgorithm(%q): expected error", tc.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAlgorithm(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
