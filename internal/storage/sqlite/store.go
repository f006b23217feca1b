// Package sqlite provides a SQLite-backed store for guild verification configs.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/captchagate/captchagate/verification"
)

const schema = `CREATE TABLE IF NOT EXISTS guild_verification (
	guild_id   TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL,
	role_id    TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store persists verification.GuildConfig values in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ verification.Store = (*Store)(nil)

// Open opens a SQLite store at path and creates its table when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveGuildConfig inserts or replaces the config of one guild.
func (s *Store) SaveGuildConfig(ctx context.Context, guildID string, config *verification.GuildConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(guildID) == "" {
		return fmt.Errorf("guild id is required")
	}
	if config == nil {
		return fmt.Errorf("config is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO guild_verification (guild_id, channel_id, role_id, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(guild_id) DO UPDATE SET
	channel_id = excluded.channel_id,
	role_id = excluded.role_id,
	updated_at = excluded.updated_at`,
		guildID,
		config.ChannelID,
		config.RoleID,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save guild config: %w", err)
	}
	return nil
}

// LoadGuildConfigs returns every stored config keyed by guild id.
func (s *Store) LoadGuildConfigs(ctx context.Context) (map[string]*verification.GuildConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT guild_id, channel_id, role_id FROM guild_verification`)
	if err != nil {
		return nil, fmt.Errorf("load guild configs: %w", err)
	}
	defer rows.Close()

	configs := map[string]*verification.GuildConfig{}
	for rows.Next() {
		var guildID string
		config := &verification.GuildConfig{}
		if err := rows.Scan(&guildID, &config.ChannelID, &config.RoleID); err != nil {
			return nil, fmt.Errorf("scan guild config: %w", err)
		}
		configs[guildID] = config
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guild configs: %w", err)
	}
	return configs, nil
}
