package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithUser returns a logger with the user id attached.
// Use this for all logging within a per-user operation.
func WithUser(userID string) *slog.Logger {
	return slog.With("user_id", userID)
}

// WithModule returns a logger scoped to one module of a user's journey.
func WithModule(logger *slog.Logger, moduleID string) *slog.Logger {
	return logger.With("module_id", moduleID)
}
