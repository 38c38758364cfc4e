package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const conversionIDKey ctxKey = "conversion_id"

// ContextWithConversionID stores the conversion ID in the context.
func ContextWithConversionID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, conversionIDKey, id)
}

// ConversionIDFromContext extracts the conversion ID from context if present.
func ConversionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(conversionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithContext enriches logger with the conversion ID carried by ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if id := ConversionIDFromContext(ctx); id != "" {
		return logger.With().Str("conversion_id", id).Logger()
	}
	return logger
}

// FromContext returns the logger attached to ctx, or the base logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		l := Base()
		return &l
	}
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		b := WithContext(ctx, Base())
		return &b
	}
	return l
}
