// Package audit emits the append-only mapping decision trail. Field values
// may contain PHI and are truncated before they reach any log sink.
package audit

import (
	"io"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMaxValueLength caps how much of a mapped value appears in audit
// entries.
const DefaultMaxValueLength = 50

// Logger writes one entry per mapping decision to an append-only sink.
type Logger struct {
	log         zerolog.Logger
	maxValueLen int
}

// NewLogger creates an audit logger writing to the given sink.
func NewLogger(sink io.Writer, maxValueLen int) *Logger {
	if maxValueLen <= 0 {
		maxValueLen = DefaultMaxValueLength
	}
	return &Logger{
		log:         zerolog.New(sink).With().Timestamp().Str("log", "mapping_audit").Logger(),
		maxValueLen: maxValueLen,
	}
}

// Entry is one mapping decision to be audited.
type Entry struct {
	Manufacturer string
	TargetField  string
	SourceField  string
	Value        string
	Confidence   float64
	Decision     string
	Strategy     string
	CacheHit     bool
}

// Record appends one decision entry.
func (l *Logger) Record(entry Entry) {
	l.log.Info().
		Str("audit_id", uuid.NewString()).
		Str("manufacturer", entry.Manufacturer).
		Str("target_field", entry.TargetField).
		Str("source_field", entry.SourceField).
		Str("value", l.truncate(entry.Value)).
		Float64("confidence", entry.Confidence).
		Str("decision", entry.Decision).
		Str("strategy", entry.Strategy).
		Bool("cache_hit", entry.CacheHit).
		Msg("Mapping decision")
}

// truncate counts runes, not bytes, so multi-byte values are never split
// mid-character.
func (l *Logger) truncate(value string) string {
	if utf8.RuneCountInString(value) <= l.maxValueLen {
		return value
	}
	runes := []rune(value)
	return string(runes[:l.maxValueLen]) + "…"
}
