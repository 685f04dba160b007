package store

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pressly/goose/v3"
)

// migrationLogger routes goose output through slog. goose only has a
// process-wide logger, so Open installs it before running migrations.
type migrationLogger struct {
	logger *slog.Logger
}

var _ goose.Logger = migrationLogger{}

func (l migrationLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "migrations"))
}

// Fatalf keeps goose's contract: the process ends.
func (l migrationLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "migrations"))
	os.Exit(1)
}
