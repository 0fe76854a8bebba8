// Package diag carries the engine's diagnostic-emission channel.
//
// The core never returns an error for a programmer-contract or client-data
// violation: instead it emits a Diagnostic through a Provider and treats
// the call as a no-op, returning the documented "safe" empty result.
// Provider is trimmed to a logging facet only — the engine has no
// request/response spans or histograms of its own to report, so a
// Tracer/Metrics facet is never introduced; the shape
// (ctx, msg, ...Attribute) matches a plain structured logger.
package diag

import (
	"context"
	"log/slog"
)

// Kind classifies a Diagnostic into its three error categories.
type Kind int

const (
	// KindProgrammerContract covers null inputs, cycles at Connect, a second
	// connection landing on a read-write input, mask-containment failures,
	// deleting a connected node, duplicate monitor registration, and
	// ReleaseSharedSpecs pointer mismatches.
	KindProgrammerContract Kind = iota
	// KindClientData covers mask-size mismatches, iteration over a
	// nonexistent input/output name, and reference-input cardinality errors.
	KindClientData
	// KindUnrecoverable covers spec-registry ref mismatches and invalid
	// ReorderInputConnections permutations; Provider still receives these,
	// but the caller may additionally panic when debug.Enabled is true.
	KindUnrecoverable
)

// String renders the Kind for log output.
func (k Kind) String() string {
	switch k {
	case KindProgrammerContract:
		return "programmer_contract"
	case KindClientData:
		return "client_data"
	case KindUnrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

// Attribute is a key-value pair attached to a log line or Diagnostic.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string Attribute.
func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

// Int creates an integer Attribute.
func Int(key string, value int) Attribute { return Attribute{Key: key, Value: value} }

// Uint64 creates a uint64 Attribute, used for IDs and version numbers.
func Uint64(key string, value uint64) Attribute { return Attribute{Key: key, Value: value} }

// Bool creates a boolean Attribute.
func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }

// Err creates an error Attribute. A nil err yields an empty string value.
func Err(err error) Attribute {
	if err == nil {
		return Attribute{Key: "error", Value: ""}
	}
	return Attribute{Key: "error", Value: err.Error()}
}

// Diagnostic is a single recoverable-error report.
type Diagnostic struct {
	Kind    Kind
	Op      string // operation that raised it, e.g. "Network.Connect"
	Message string
	Attrs   []Attribute
}

// Provider is the logging facet the engine emits diagnostics through.
// A nil-safe zero value is never used directly; callers get NopProvider{}
// by default (see network.WithDiagProvider).
type Provider interface {
	Debug(ctx context.Context, msg string, attrs ...Attribute)
	Info(ctx context.Context, msg string, attrs ...Attribute)
	Warn(ctx context.Context, msg string, attrs ...Attribute)
	Error(ctx context.Context, msg string, attrs ...Attribute)
}

// NopProvider discards every diagnostic. It is the default Provider so that
// constructing a Network has zero observability overhead until a caller
// opts in.
type NopProvider struct{}

func (NopProvider) Debug(context.Context, string, ...Attribute) {}
func (NopProvider) Info(context.Context, string, ...Attribute)  {}
func (NopProvider) Warn(context.Context, string, ...Attribute)  {}
func (NopProvider) Error(context.Context, string, ...Attribute) {}

// SlogProvider routes diagnostics through the standard library's log/slog
// rather than a third-party structured-logging library.
type SlogProvider struct {
	Logger *slog.Logger
}

// NewSlogProvider wraps logger, or slog.Default() if logger is nil.
func NewSlogProvider(logger *slog.Logger) SlogProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogProvider{Logger: logger}
}

func (p SlogProvider) log(ctx context.Context, level slog.Level, msg string, attrs []Attribute) {
	args := make([]any, 0, len(attrs)*2)
	for _, a := range attrs {
		args = append(args, a.Key, a.Value)
	}
	p.Logger.Log(ctx, level, msg, args...)
}

func (p SlogProvider) Debug(ctx context.Context, msg string, attrs ...Attribute) {
	p.log(ctx, slog.LevelDebug, msg, attrs)
}

func (p SlogProvider) Info(ctx context.Context, msg string, attrs ...Attribute) {
	p.log(ctx, slog.LevelInfo, msg, attrs)
}

func (p SlogProvider) Warn(ctx context.Context, msg string, attrs ...Attribute) {
	p.log(ctx, slog.LevelWarn, msg, attrs)
}

func (p SlogProvider) Error(ctx context.Context, msg string, attrs ...Attribute) {
	p.log(ctx, slog.LevelError, msg, attrs)
}

// Emit sends a Diagnostic to provider at a level derived from its Kind, and
// is a no-op when provider is nil.
func Emit(ctx context.Context, provider Provider, d Diagnostic) {
	if provider == nil {
		return
	}
	attrs := append([]Attribute{String("op", d.Op), String("kind", d.Kind.String())}, d.Attrs...)
	switch d.Kind {
	case KindUnrecoverable:
		provider.Error(ctx, d.Message, attrs...)
	default:
		provider.Warn(ctx, d.Message, attrs...)
	}
}
