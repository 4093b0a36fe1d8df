package sql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"github.com/bcnelson/netbox-restconf-sync/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Ensure Store implements storage.Storage.
var _ storage.Storage = (*Store)(nil)

// New creates a new SQL store. driver is "sqlite3" or "postgres".
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const eventColumns = `id, kind, event, object_id, payload, status, operations, error, replay_of, received_at, completed_at`

func (s *Store) CreateEvent(ctx context.Context, event *domain.EventRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.Kind, event.Event, event.ObjectID, event.Payload, event.Status,
		event.Operations, event.Error, event.ReplayOf, event.ReceivedAt.UTC(), utc(event.CompletedAt))
	return err
}

func (s *Store) GetEvent(ctx context.Context, id string) (*domain.EventRecord, error) {
	var event domain.EventRecord
	err := s.db.GetContext(ctx, &event,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *Store) ListEvents(ctx context.Context, filter domain.EventFilter) ([]*domain.EventRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY received_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
		if s.driver == "postgres" {
			limit = 1<<31 - 1
		}
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var events []*domain.EventRecord
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) UpdateEvent(ctx context.Context, event *domain.EventRecord) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE events SET event = $1, object_id = $2, status = $3, operations = $4, error = $5, completed_at = $6
		 WHERE id = $7`,
		event.Event, event.ObjectID, event.Status, event.Operations, event.Error, utc(event.CompletedAt), event.ID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) PruneEvents(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE received_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// utc normalizes timestamps so SQLite's text comparison orders them correctly.
func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
