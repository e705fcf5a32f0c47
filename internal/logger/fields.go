package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider  = "ai_provider"
	FieldModel     = "ai_model"
	FieldContactID = "contact_id"
	FieldProductID = "product_id"
	FieldPersonaID = "persona_id"
	FieldTenantID  = "tenant_id"
)

// Strings turns alternating key/value arguments into zap string fields.
// Pairs with a blank key or value are dropped, as is a trailing key without a value.
func Strings(kv ...string) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key := strings.TrimSpace(kv[i])
		value := strings.TrimSpace(kv[i+1])
		if key == "" || value == "" {
			continue
		}
		fields = append(fields, zap.String(key, value))
	}
	return fields
}

// With attaches the non-empty key/value pairs to log. A nil logger becomes a no-op logger.
func With(log *zap.Logger, kv ...string) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}

	fields := Strings(kv...)
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}

// WithProvider tags log lines of an AI provider client.
func WithProvider(log *zap.Logger, provider, model string) *zap.Logger {
	return With(log, FieldProvider, provider, FieldModel, model)
}

// WithFit tags log lines of a single fit score calculation.
func WithFit(log *zap.Logger, contactID, productID, personaID string) *zap.Logger {
	return With(log,
		FieldContactID, contactID,
		FieldProductID, productID,
		FieldPersonaID, personaID,
	)
}

// WithMatch tags log lines of a persona lookup.
func WithMatch(log *zap.Logger, contactID, tenantID string) *zap.Logger {
	return With(log, FieldContactID, contactID, FieldTenantID, tenantID)
}
