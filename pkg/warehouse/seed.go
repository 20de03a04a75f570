package warehouse

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
)

var (
	//go:embed sql/*
	f embed.FS
)

// Seed creates the demo scored and application tables, replacing any
// previous copies. Intended for local sqlite warehouses.
func Seed(ctx context.Context, s *Session) error {
	if s == nil || s.db == nil {
		return errSessionNotInitialized
	}

	slog.Debug("creating demo tables...")
	b, err := f.ReadFile("sql/demo.sql")
	if err != nil {
		return fmt.Errorf("failed to read the demo schema file: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("failed to create demo tables: %w", err)
	}
	slog.Debug("demo tables created")
	return nil
}
