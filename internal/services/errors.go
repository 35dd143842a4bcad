package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProvider       = errors.New("provider error")
	ErrContentRefused = errors.New("content refused")
	ErrPostProcess    = errors.New("post-processing error")
	ErrValidation     = errors.New("validation error")
	ErrConfiguration  = errors.New("configuration error")
	ErrNotFound       = errors.New("not found")
	ErrTimeout        = errors.New("timeout")
	ErrTransient      = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Outcome classifications recorded alongside failed attempts.
const (
	OutcomeContentRefused = "content_refused"
	OutcomeProvider       = "provider"
	OutcomePostProcess    = "post_process"
	OutcomeTimeout        = "timeout"
	OutcomeCancelled      = "cancelled"
	OutcomeConfiguration  = "configuration"
	OutcomeValidation     = "validation"
	OutcomeUnknown        = "unknown"
)

// Classify maps an error to one of the Outcome* labels.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrContentRefused):
		return OutcomeContentRefused
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, ErrPostProcess):
		return OutcomePostProcess
	case errors.Is(err, ErrConfiguration):
		return OutcomeConfiguration
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, ErrProvider), errors.Is(err, ErrTransient):
		return OutcomeProvider
	default:
		return OutcomeUnknown
	}
}

// FailureReason renders the human-readable message stored on a failed asset.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "cancelled before completion"
	case errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout):
		return "timed out: " + strings.TrimSpace(err.Error())
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "generation failed"
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
