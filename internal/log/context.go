package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const sequenceIDKey ctxKey = "sequence_id"

// ContextWithSequenceID stores the id of a shoot or preview sequence in the context.
func ContextWithSequenceID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sequenceIDKey, id)
}

// SequenceIDFromContext extracts the sequence id from context if present.
func SequenceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sequenceIDKey).(string); ok {
		return v
	}
	return ""
}

// FromContext decorates l with the sequence id carried by ctx, if any.
func FromContext(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	if id := SequenceIDFromContext(ctx); id != "" {
		return l.With().Str("sequence_id", id).Logger()
	}
	return l
}
