package services

import "context"

type contextKey string

const (
	scanIDKey   contextKey = "scan_id"
	filePathKey contextKey = "file_path"
)

// WithScanID annotates context with the scan run identifier.
func WithScanID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, scanIDKey, id)
}

// ScanIDFromContext extracts the scan run identifier if present.
func ScanIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(scanIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFilePath annotates context with the file currently being fingerprinted.
func WithFilePath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, filePathKey, path)
}

// FilePathFromContext returns the in-flight file path if present.
func FilePathFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(filePathKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
