package audit

import (
	"actorbot/internal/core/domain"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	migrate "github.com/rubenv/sql-migrate"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "1_moderation_events",
			Up: []string{
				`CREATE TABLE moderation_events (
					id         VARCHAR(36) PRIMARY KEY,
					guild_id   VARCHAR(32) NOT NULL,
					channel_id VARCHAR(32) NOT NULL,
					user_name  TEXT NOT NULL,
					kind       VARCHAR(16) NOT NULL,
					source     VARCHAR(16) NOT NULL,
					categories TEXT NOT NULL,
					content    TEXT NOT NULL,
					url        TEXT NOT NULL,
					created_at BIGINT NOT NULL
				)`,
				`CREATE INDEX moderation_events_guild_created ON moderation_events (guild_id, created_at)`,
			},
			Down: []string{`DROP TABLE moderation_events`},
		},
	},
}

// SQLStore is the append-only moderation ledger.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// NewSQLStore opens the database and applies pending migrations.
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	var dialect string
	switch driver {
	case DriverSQLite, "":
		driver, dialect = DriverSQLite, "sqlite3"
	case DriverPostgres:
		dialect = "postgres"
	default:
		return nil, fmt.Errorf("unsupported audit driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if driver == DriverSQLite {
		// in-memory databases are per connection
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	n, err := migrate.Exec(db, dialect, migrations, migrate.Up)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate audit database: %w", err)
	}

	log.Info().Str("driver", driver).Int("migrations", n).Msg("audit ledger ready")
	return &SQLStore{db: db, postgres: driver == DriverPostgres}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Record(ctx context.Context, event domain.AuditEvent) error {
	q := `INSERT INTO moderation_events
		(id, guild_id, channel_id, user_name, kind, source, categories, content, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, s.rebind(q),
		event.ID, event.GuildID, event.ChannelID, event.UserName, string(event.Kind), string(event.Source),
		event.Categories, event.Content, event.URL, event.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("saving moderation event: %w", err)
	}

	return nil
}

func (s *SQLStore) Recent(ctx context.Context, guildID string, limit int) ([]domain.AuditEvent, error) {
	q := `SELECT id, guild_id, channel_id, user_name, kind, source, categories, content, url, created_at
		FROM moderation_events
		WHERE guild_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, s.rebind(q), guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching moderation events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var (
			e         domain.AuditEvent
			kind      string
			source    string
			createdAt int64
		)

		if err := rows.Scan(&e.ID, &e.GuildID, &e.ChannelID, &e.UserName, &kind, &source, &e.Categories,
			&e.Content, &e.URL, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning moderation event: %w", err)
		}

		e.Kind = domain.AuditKind(kind)
		e.Source = domain.AuditSource(source)
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		events = append(events, e)
	}

	return events, rows.Err()
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *SQLStore) rebind(q string) string {
	if !s.postgres {
		return q
	}

	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}
