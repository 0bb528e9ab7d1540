// Package store persists projects, tasks, sprints and milestones in a
// relational database. SQLite (pure Go) is the default; PostgreSQL is
// supported for hosted deployments.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ganttcal/internal/model"
)

// ErrNotFound is returned when an entity id does not exist.
var ErrNotFound = errors.New("store: entity not found")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store manages all entity persistence.
type Store struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// New opens (or creates) the database and initializes the schema.
func New(driver, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("store: empty dsn")
	}

	var db *sql.DB
	var err error
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		db, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)")
		if err == nil {
			db.SetMaxOpenConns(4)
			db.SetMaxIdleConns(2)
		}
	case DriverPostgres:
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			db.SetMaxOpenConns(10)
		}
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, driver: driver, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Driver reports the active dialect.
func (s *Store) Driver() string { return s.driver }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		project_id TEXT,
		name       TEXT NOT NULL,
		status     TEXT NOT NULL,
		priority   TEXT,
		start_date TEXT,
		deadline   TEXT,
		budget     DOUBLE PRECISION,
		spent      DOUBLE PRECISION,
		progress   DOUBLE PRECISION,
		source_id  TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);
	CREATE INDEX IF NOT EXISTS idx_entities_project ON entities(project_id);
	CREATE INDEX IF NOT EXISTS idx_entities_status ON entities(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const entityColumns = `id, kind, project_id, name, status, priority, start_date, deadline, budget, spent, progress, source_id`

// ListEntities returns all entities, optionally restricted to kinds.
func (s *Store) ListEntities(ctx context.Context, kinds ...model.Kind) ([]model.Entity, error) {
	q := `SELECT ` + entityColumns + ` FROM entities`
	args := make([]any, 0, len(kinds))
	if len(kinds) > 0 {
		marks := make([]string, len(kinds))
		for i, k := range kinds {
			marks[i] = "?"
			args = append(args, string(k))
		}
		q += ` WHERE kind IN (` + strings.Join(marks, ", ") + `)`
	}
	q += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// GetEntity retrieves an entity by id.
func (s *Store) GetEntity(ctx context.Context, id string) (*model.Entity, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+entityColumns+` FROM entities WHERE id = ?`), id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// CreateEntity inserts e. An empty ID is replaced by a new UUID, written
// back into e.
func (s *Store) CreateEntity(ctx context.Context, e *model.Entity) error {
	if e == nil {
		return errors.New("store: nil entity")
	}
	if e.Name == "" {
		return errors.New("store: entity name is required")
	}
	if e.Kind == "" {
		e.Kind = model.KindTask
	}
	if e.Status == "" {
		e.Status = defaultStatus(e.Kind)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	now := formatStamp(s.now())
	return retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx, s.rebind(
			`INSERT INTO entities (`+entityColumns+`, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			e.ID, string(e.Kind), nullString(e.ProjectID), e.Name, string(e.Status), nullString(string(e.Priority)),
			nullTime(e.StartDate), nullTime(e.Deadline),
			nullFloat(e.Budget), nullFloat(e.Spent), nullFloat(e.Progress),
			nullString(e.SourceID), now, now,
		)
		return err
	})
}

// UpdateSchedule stores new dates for an entity. This is the write side of
// a timeline drag.
func (s *Store) UpdateSchedule(ctx context.Context, u model.ScheduleUpdate) error {
	start, deadline := u.StartDate, u.Deadline
	return s.execOne(ctx,
		`UPDATE entities SET start_date = ?, deadline = ?, updated_at = ? WHERE id = ?`,
		nullTime(&start), nullTime(&deadline), formatStamp(s.now()), u.ID,
	)
}

// UpdateStatus changes the workflow status of an entity.
func (s *Store) UpdateStatus(ctx context.Context, id string, status model.Status) error {
	if status == "" {
		return errors.New("store: empty status")
	}
	return s.execOne(ctx,
		`UPDATE entities SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatStamp(s.now()), id,
	)
}

// DeleteEntity removes an entity. Tasks of a deleted project are kept and
// lose their project reference.
func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	return retryOnContention(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM entities WHERE id = ?`), id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE entities SET project_id = NULL WHERE project_id = ?`), id); err != nil {
			return fmt.Errorf("detach tasks: %w", err)
		}
		return tx.Commit()
	})
}

// execOne runs a write that must affect exactly one row.
func (s *Store) execOne(ctx context.Context, q string, args ...any) error {
	var affected int64
	err := retryOnContention(ctx, func() error {
		res, err := s.db.ExecContext(ctx, s.rebind(q), args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func defaultStatus(k model.Kind) model.Status {
	switch k {
	case model.KindTask:
		return model.StatusToDo
	case model.KindSprint, model.KindMilestone:
		return model.StatusUpcoming
	default:
		return model.StatusPlanning
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(sc scanner) (*model.Entity, error) {
	var (
		e                        model.Entity
		kind, status             string
		projectID, priority, src sql.NullString
		start, deadline          sql.NullString
		budget, spent, progress  sql.NullFloat64
	)
	if err := sc.Scan(&e.ID, &kind, &projectID, &e.Name, &status, &priority,
		&start, &deadline, &budget, &spent, &progress, &src); err != nil {
		return nil, err
	}
	e.Kind = model.Kind(kind)
	e.Status = model.Status(status)
	e.ProjectID = projectID.String
	e.Priority = model.Priority(priority.String)
	e.SourceID = src.String

	var err error
	if e.StartDate, err = parseNullTime(start); err != nil {
		return nil, fmt.Errorf("entity %s start_date: %w", e.ID, err)
	}
	if e.Deadline, err = parseNullTime(deadline); err != nil {
		return nil, fmt.Errorf("entity %s deadline: %w", e.ID, err)
	}
	e.Budget = floatPtr(budget)
	e.Spent = floatPtr(spent)
	e.Progress = floatPtr(progress)
	return &e, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// stampLayout is fixed width so that created_at/updated_at sort by time as
// text. RFC3339Nano trims trailing zeros and does not.
const stampLayout = "2006-01-02T15:04:05.000000000Z"

func formatStamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}
