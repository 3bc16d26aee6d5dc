package services

import (
	"context"

	"royalchoice/internal/metrics"
	"royalchoice/internal/repositories"

	"go.uber.org/zap"
)

// MigrationService runs the cart layout migration during startup.
type MigrationService struct {
	migrator repositories.CartMigrator
	log      *zap.Logger
}

func NewMigrationService(migrator repositories.CartMigrator, log *zap.Logger) *MigrationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MigrationService{migrator: migrator, log: log}
}

// Run migrates every outdated cart and returns once the pass is complete.
// Per-user failures are reported in the error; the other users are still migrated.
func (s *MigrationService) Run(ctx context.Context) (repositories.MigrationReport, error) {
	report, err := s.migrator.MigrateCarts(ctx)
	metrics.RecordCartMigration(report.Upgraded, report.Scanned-report.Upgraded)

	fields := []zap.Field{
		zap.Int("scanned", report.Scanned),
		zap.Int("upgraded", report.Upgraded),
		zap.Int("entries_rewritten", report.EntriesRewritten),
		zap.Int("entries_dropped", report.EntriesDropped),
	}
	if err != nil {
		s.log.Error("cart migration finished with errors", append(fields, zap.Error(err))...)
		return report, err
	}
	s.log.Info("cart migration completed", fields...)
	return report, nil
}
