package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"shareit/internal/config"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const defaultSnapshotInterval = 24 * time.Hour

// BackupService periodically snapshots the booking store. VACUUM INTO gives a
// consistent copy while the engine keeps writing; the retention sweep keeps
// the snapshot directory bounded.
type BackupService struct {
	sourcePath string
	cfg        config.BackupConfig
	logger     zerolog.Logger
}

func NewBackupService(sourcePath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "backup").Logger()
	}
	return &BackupService{
		sourcePath: sourcePath,
		cfg:        cfg,
		logger:     base,
	}
}

func (s *BackupService) interval() time.Duration {
	if s.cfg.Schedule == "" {
		return defaultSnapshotInterval
	}
	d, err := time.ParseDuration(s.cfg.Schedule)
	if err != nil {
		s.logger.Warn().Err(err).Str("schedule", s.cfg.Schedule).Msg("unparseable backup schedule, using 24h")
		return defaultSnapshotInterval
	}
	return d
}

// Start snapshots once immediately, then on every tick until ctx is done.
func (s *BackupService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("booking store backups disabled")
		return
	}

	interval := s.interval()
	s.logger.Info().Dur("interval", interval).Str("storage", s.cfg.StoragePath).Msg("booking store backups started")

	if err := s.PerformBackup(); err != nil {
		s.logger.Error().Err(err).Msg("initial snapshot failed")
	}
	s.CleanupOldBackups()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PerformBackup(); err != nil {
				s.logger.Error().Err(err).Msg("scheduled snapshot failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup writes one snapshot of the booking store.
func (s *BackupService) PerformBackup() error {
	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	name := fmt.Sprintf("shareit_%s.db", time.Now().Format("20060102_150405"))
	target := filepath.Join(s.cfg.StoragePath, name)

	src, err := sql.Open("sqlite3", s.sourcePath)
	if err != nil {
		return fmt.Errorf("open booking store: %w", err)
	}
	defer src.Close()

	if _, err := src.Exec(fmt.Sprintf("VACUUM INTO '%s'", target)); err != nil {
		// VACUUM INTO needs sqlite >= 3.27; older installs fall back to a
		// raw file copy, which is only safe while writes are quiet.
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, copying the store file")
		if copyErr := copyFile(s.sourcePath, target); copyErr != nil {
			return fmt.Errorf("copy booking store: %w", copyErr)
		}
	}

	s.logger.Info().Str("snapshot", target).Msg("booking store snapshot written")
	return nil
}

// CleanupOldBackups removes snapshots older than the retention window.
func (s *BackupService) CleanupOldBackups() {
	if s.cfg.RetentionDays <= 0 {
		return
	}

	entries, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("read snapshot directory")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.cfg.StoragePath, entry.Name())); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Int("retention_days", s.cfg.RetentionDays).Msg("expired snapshots removed")
	}
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(to)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
