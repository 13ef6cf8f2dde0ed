// Package apperr defines the error kinds from the error-handling design:
// ConfigError, ProviderUnavailable, ToolInvocationError, MetaToolUsageError
// and ShutdownError. None of these are meant to cross a meta-tool boundary
// as a raw Go error; callers translate them into a structured tool result.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for logging and for metrics bookkeeping.
type Kind string

const (
	KindConfig              Kind = "config_error"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindToolInvocation      Kind = "tool_invocation_error"
	KindMetaToolUsage       Kind = "meta_tool_usage_error"
	KindShutdown            Kind = "shutdown_error"
)

// Error is a classified application error carrying the failing provider
// and tool, when applicable.
type Error struct {
	Kind     Kind
	Provider string
	Tool     string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, provider, tool, msg string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Tool: tool, Message: msg, Cause: cause}
}

func Config(msg string, cause error) *Error {
	return newErr(KindConfig, "", "", msg, cause)
}

func ProviderUnavailable(provider string) *Error {
	return newErr(KindProviderUnavailable, provider, "", "provider is not connected", nil)
}

func ToolInvocation(provider, tool string, cause error) *Error {
	return newErr(KindToolInvocation, provider, tool, "remote tool call failed", cause)
}

func MetaToolUsage(tool, msg string) *Error {
	return newErr(KindMetaToolUsage, "", tool, msg, nil)
}

func Shutdown(provider, tool string, cause error) *Error {
	return newErr(KindShutdown, provider, tool, "call canceled by shutdown", cause)
}

// IsUncounted reports whether err represents an outcome that must never be
// recorded as a metrics failure: a shutdown-induced cancellation shouldn't
// taint a provider's success rate.
func IsUncounted(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == KindShutdown
	}
	return errors.Is(err, errCanceled)
}

var errCanceled = errors.New("canceled")

// AsCanceled wraps ctx.Err() (context.Canceled/DeadlineExceeded) so call
// sites that only have a bare context error can still be recognized as
// uncounted without importing apperr's Kind machinery.
func AsCanceled(cause error) error {
	return fmt.Errorf("%w: %v", errCanceled, cause)
}

func (k Kind) String() string { return string(k) }
