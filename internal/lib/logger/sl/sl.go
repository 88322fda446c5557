package sl

import (
	"log/slog"
)

// Err wraps error into slog.Attr.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
