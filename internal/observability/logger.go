package observability

import (
	"log/slog"
	"os"

	"github.com/sbditto85/eventide-go/internal/config"
)

// SetupLogger configures a JSON slog logger with environment fields, shared
// by every component of the consumer process.
func SetupLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{}
	if cfg.IsDev() {
		opts.Level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(h).With(
		slog.String("service", cfg.OTELServiceName),
		slog.String("env", cfg.AppEnv),
	)
	return logger
}
