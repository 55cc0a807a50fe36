package telemetry

import (
	"fmt"
	"io"
	"log/slog"
)

// SetupLogger installs a JSON logger writing to w as the slog default.
// level is one of debug, info, warn or error; empty means info.
func SetupLogger(w io.Writer, level string) error {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return fmt.Errorf("log level %q: %w", level, err)
		}
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}
