package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldFile is the structured log field key for the candidate file name.
	FieldFile = "file"
	// FieldMIMEType is the structured log field key for the declared file type.
	FieldMIMEType = "mime_type"
	// FieldSubmission is the structured log field key for the submission sequence number.
	FieldSubmission = "submission"
	// FieldProvider is the structured log field key for the analyzer provider.
	FieldProvider = "analyzer_provider"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CandidateFields describes the file being validated or submitted.
func CandidateFields(name, mimeType string) []zap.Field {
	return StringFields(
		StringField{Key: FieldFile, Value: name},
		StringField{Key: FieldMIMEType, Value: mimeType},
	)
}

// WithProvider tags every entry with the analyzer provider.
func WithProvider(logger *zap.Logger, provider string) *zap.Logger {
	return WithFields(logger, StringFields(StringField{Key: FieldProvider, Value: provider})...)
}

// Preview flattens s to a single line and cuts it to limit runes for debug output.
// A non-positive limit yields an empty preview.
func Preview(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "..."
}
