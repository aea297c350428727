// Package ledger keeps a durable record of every metadata run and the sample
// names it produced, in SQLite or Postgres.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"platemap_metadata/internal/metadata"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "pgx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		plates INTEGER NOT NULL,
		samples INTEGER NOT NULL,
		blanks INTEGER NOT NULL,
		qc_notes INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS samples (
		run_id TEXT NOT NULL,
		sample_name TEXT NOT NULL,
		plate_id TEXT NOT NULL,
		well_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		is_blank INTEGER NOT NULL,
		qc_note TEXT NOT NULL,
		PRIMARY KEY (run_id, sample_name)
	)`,
}

type Ledger struct {
	db     *sql.DB
	driver string
}

// Run is the header row written for each completed run.
type Run struct {
	Source    string
	StartedAt time.Time
	Duration  time.Duration
	Summary   metadata.Summary
}

// Open connects to a postgres:// DSN with pgx, or treats anything else as a
// SQLite file path.
func Open(ctx context.Context, dsn string) (*Ledger, error) {
	driver := driverSQLite
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = driverPostgres
	} else {
		if dsn == "" {
			dsn = "platemap_ledger.db"
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s ledger: %w", driver, err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create ledger schema: %w", err)
		}
	}

	log.Debug().Str("driver", driver).Msg("Opened run ledger")
	return &Ledger{db: db, driver: driver}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRun stores the run and its samples in one transaction and returns the
// new run id.
func (l *Ledger) RecordRun(ctx context.Context, run Run, records []metadata.Record) (string, error) {
	id := uuid.NewString()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qcNotes := 0
	for _, n := range run.Summary.QCNotes {
		qcNotes += n
	}
	if _, err := tx.ExecContext(ctx, l.rebind(`INSERT INTO runs
		(id, source, started_at, duration_ms, plates, samples, blanks, qc_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		id, run.Source, run.StartedAt.UTC().Format(time.RFC3339), run.Duration.Milliseconds(),
		run.Summary.PlatesKept, run.Summary.Samples, run.Summary.Blanks, qcNotes,
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, l.rebind(`INSERT INTO samples
		(run_id, sample_name, plate_id, well_id, subject, is_blank, qc_note)
		VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return "", fmt.Errorf("prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		blank := 0
		if r.IsBlank {
			blank = 1
		}
		if _, err := stmt.ExecContext(ctx, id, r.Name, r.PlateID, r.WellID(), r.SubjectShorthand, blank, r.QCNote); err != nil {
			return "", fmt.Errorf("insert sample %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit ledger transaction: %w", err)
	}

	log.Info().
		Str("run_id", id).
		Int("samples", len(records)).
		Msg("Recorded run in ledger")
	return id, nil
}

// PriorRuns maps each of names already recorded by an earlier run to the most
// recent such run id. Names never seen before are absent.
func (l *Ledger) PriorRuns(ctx context.Context, names []string) (map[string]string, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	rows, err := l.db.QueryContext(ctx, `SELECT s.sample_name, s.run_id FROM samples s
		JOIN runs r ON r.id = s.run_id
		ORDER BY r.started_at, r.id`)
	if err != nil {
		return nil, fmt.Errorf("select prior samples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	seen := make(map[string]string)
	for rows.Next() {
		var name, runID string
		if err := rows.Scan(&name, &runID); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if wanted[name] {
			seen[name] = runID
		}
	}
	return seen, rows.Err()
}

// rebind rewrites ? placeholders as $n for Postgres.
func (l *Ledger) rebind(query string) string {
	if l.driver != driverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
