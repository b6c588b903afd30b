package logging

import (
	"context"
	"log/slog"

	"mediadup/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldScanID is the standardized structured logging key for scan run identifiers.
	FieldScanID = "scan_id"
	// FieldPath is the standardized structured logging key for file paths.
	FieldPath = "path"
	// FieldKind is the standardized structured logging key for media kinds.
	FieldKind = "kind"
	// FieldDigest is the standardized structured logging key for content digests.
	FieldDigest = "digest"
	// FieldCluster is the standardized structured logging key for cluster identifiers.
	FieldCluster = "cluster_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := services.ScanIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldScanID, id))
	}
	if path, ok := services.FilePathFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPath, path))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
