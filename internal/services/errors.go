package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks tracking lookups that resolved to nothing when a
	// value was required. Plain lookup misses are zero values, not errors.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks pipeline validation failures.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidMode marks operations attempted outside asset or shot mode.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrInvalidContext marks publish actions attempted without a resolvable context.
	ErrInvalidContext = errors.New("invalid context")
	// ErrTemplateNotFound marks a path template the resolver cannot supply.
	// Callers treat it as sticky until the template becomes available.
	ErrTemplateNotFound = errors.New("template not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
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
	return strings.Join(parts, ": ")
}
