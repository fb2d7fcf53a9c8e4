// Package faults provides the typed fault taxonomy for poll cycles.
// Classification happens at the adapter boundaries, so the cycle
// controller never inspects rendered error strings.
package faults

import (
	"errors"
	"fmt"
	"log/slog"
)

// Kind represents the category of fault for metrics and log demotion.
type Kind string

const (
	// KindConnect indicates a transport-level failure to establish an RCON session.
	KindConnect Kind = "connect"
	// KindBenignClosed indicates the remote server closed the connection
	// without genuinely erroring, e.g. a paused Zomboid server.
	KindBenignClosed Kind = "benign_closed"
	// KindQuery indicates a failed request/response exchange on an open session.
	KindQuery Kind = "query"
	// KindPublish indicates a failed Discord send, topic or presence write.
	KindPublish Kind = "publish"
	// KindStartup indicates a fatal pre-polling failure (config, channel resolution).
	KindStartup Kind = "startup"
)

// Fault represents a classified failure with message and context.
type Fault struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// LogLevel returns the slog level a fault of this kind is reported at.
// Benign-closed faults are demoted: the server being paused is expected
// operation, not something to page about.
func (f *Fault) LogLevel() slog.Level {
	if f.Kind == KindBenignClosed {
		return slog.LevelDebug
	}
	return slog.LevelError
}

// WithContext adds context fields to the fault (chainable).
func (f *Fault) WithContext(key string, value any) *Fault {
	if f.Context == nil {
		f.Context = make(map[string]any)
	}
	f.Context[key] = value
	return f
}

// Connect creates a connect fault.
func Connect(message string, cause error) *Fault {
	return &Fault{Kind: KindConnect, Message: message, Cause: cause, Context: make(map[string]any)}
}

// BenignClosed creates a benign-closed fault.
func BenignClosed(message string, cause error) *Fault {
	return &Fault{Kind: KindBenignClosed, Message: message, Cause: cause, Context: make(map[string]any)}
}

// Query creates a query fault.
func Query(message string, cause error) *Fault {
	return &Fault{Kind: KindQuery, Message: message, Cause: cause, Context: make(map[string]any)}
}

// Publish creates a publish fault.
func Publish(message string, cause error) *Fault {
	return &Fault{Kind: KindPublish, Message: message, Cause: cause, Context: make(map[string]any)}
}

// Startup creates a startup fault.
func Startup(message string, cause error) *Fault {
	return &Fault{Kind: KindStartup, Message: message, Cause: cause, Context: make(map[string]any)}
}

// AsFault converts any error into a classified *Fault. If err already is
// one, it is returned unchanged; otherwise it is wrapped with the given
// fallback kind.
func AsFault(err error, fallback Kind) *Fault {
	if err == nil {
		return nil
	}

	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	return &Fault{Kind: fallback, Message: "unclassified error", Cause: err, Context: make(map[string]any)}
}

// IsKind reports whether err is a *Fault of the given kind.
func IsKind(err error, kind Kind) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == kind
}
