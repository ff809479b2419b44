package logger

import (
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a configured zerolog.Logger.
// level: debug, info, warn, error. pretty: human-readable console output.
func New(level string, pretty bool) zerolog.Logger {
	var w io.Writer = os.Stdout

	if pretty {
		w = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Caller().
		Logger()
}

// NewWithWriter creates a logger writing to a custom writer (useful for testing).
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// Component returns a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Fields dropped entirely before a processor request is logged.
var droppedFields = map[string]struct{}{
	"password": {},
	"cvv":      {},
	"ccexp":    {},
}

// Fields kept but masked.
var maskedFields = map[string]struct{}{
	"security_key": {},
	"api_key":      {},
}

// RedactForm returns a loggable copy of processor form fields with secrets
// removed and the card number cut to its last four digits. The input is not
// modified.
func RedactForm(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for key, vals := range values {
		k := strings.ToLower(key)
		if _, drop := droppedFields[k]; drop {
			continue
		}
		if _, mask := maskedFields[k]; mask {
			out[key] = "***"
			continue
		}
		if k == "ccnumber" {
			out[key] = MaskPAN(strings.Join(vals, ""))
			continue
		}
		out[key] = strings.Join(vals, ",")
	}
	return out
}

// MaskPAN keeps only the last four digits of a card number.
func MaskPAN(number string) string {
	digits := make([]byte, 0, len(number))
	for i := 0; i < len(number); i++ {
		if number[i] >= '0' && number[i] <= '9' {
			digits = append(digits, number[i])
		}
	}
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	return strings.Repeat("*", len(digits)-4) + string(digits[len(digits)-4:])
}
