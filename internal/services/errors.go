package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIO                = errors.New("io error")
	ErrDecode            = errors.New("decode error")
	ErrExtractionTimeout = errors.New("extraction timeout")
	ErrIndexCorruption   = errors.New("index corruption")
	ErrConfiguration     = errors.New("configuration error")
	ErrValidation        = errors.New("validation error")
	ErrExternalTool      = errors.New("external tool error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FileOutcome describes how a per-file failure affects the running scan.
type FileOutcome int

const (
	// OutcomeDegrade keeps the file with digest-only participation.
	OutcomeDegrade FileOutcome = iota
	// OutcomeSkip drops the file from this scan; the scan continues.
	OutcomeSkip
	// OutcomeAbort stops the scan with a diagnostic.
	OutcomeAbort
)

// ClassifyFileError maps a per-file error to the outcome the engine should
// apply. Decode and timeout failures cost only perceptual data; unreadable
// sources lose the file; structural errors abort the whole scan rather than
// produce silently wrong clusters.
func ClassifyFileError(err error) FileOutcome {
	switch {
	case err == nil:
		return OutcomeDegrade
	case errors.Is(err, ErrDecode), errors.Is(err, ErrExtractionTimeout), errors.Is(err, ErrExternalTool):
		return OutcomeDegrade
	case errors.Is(err, ErrIndexCorruption), errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return OutcomeAbort
	default:
		return OutcomeSkip
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
