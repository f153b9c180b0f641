package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation error")
	ErrUpstreamAPI      = errors.New("upstream api error")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrDataQuality      = errors.New("data quality")
	ErrConfiguration    = errors.New("configuration error")
	ErrInternal         = errors.New("internal error")

	// ErrCommentsDisabled is an upstream subkind callers treat as success with zero comments.
	ErrCommentsDisabled = fmt.Errorf("%w: comments disabled", ErrUpstreamAPI)
)

// Error kind labels reported at the API boundary.
const (
	KindNotFound         = "not_found"
	KindConflict         = "conflict"
	KindValidation       = "validation"
	KindUpstreamAPI      = "upstream_api"
	KindCommentsDisabled = "comments_disabled"
	KindModelUnavailable = "model_unavailable"
	KindQuotaExceeded    = "quota_exceeded"
	KindDataQuality      = "data_quality"
	KindConfiguration    = "configuration"
	KindInternal         = "internal"
)

// Wrap builds an error message that includes component context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrInternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to its boundary label. Unclassified errors are internal.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCommentsDisabled):
		return KindCommentsDisabled
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuotaExceeded
	case errors.Is(err, ErrUpstreamAPI):
		return KindUpstreamAPI
	case errors.Is(err, ErrModelUnavailable):
		return KindModelUnavailable
	case errors.Is(err, ErrDataQuality):
		return KindDataQuality
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindInternal
	}
}

// Describe renders an error as "<kind>:<message>".
func Describe(err error) string {
	if err == nil {
		return ""
	}
	return Kind(err) + ":" + err.Error()
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
