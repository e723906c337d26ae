// Package warehouse maintains the SQLite analytical mirror of the churn
// schema. The mirror is replaced wholesale (truncate-and-reload) on each
// sync; downstream consumers treat it as read-only.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/clearsight-analytics/churn-cli/internal/db"
	"github.com/clearsight-analytics/churn-cli/internal/etl"
)

// Mirror copies the churn schema from Postgres into a local SQLite file.
type Mirror struct {
	db   *sql.DB
	pool db.Pool
}

// NewMirror opens (or creates) the SQLite mirror at path and configures WAL
// mode. pool is the Postgres source; it may be nil for read-only consumers
// of an already-synced mirror.
func NewMirror(path string, pool db.Pool) (*Mirror, error) {
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "warehouse: exec %s", pragma)
		}
	}
	return &Mirror{db: sdb, pool: pool}, nil
}

// DB exposes the underlying handle for read-only consumers (chat, export).
func (m *Mirror) DB() *sql.DB { return m.db }

// Close closes the SQLite handle.
func (m *Mirror) Close() error { return m.db.Close() }

const mirrorMigration = `
CREATE TABLE IF NOT EXISTS customer_demographics (
	customer_id    TEXT PRIMARY KEY,
	gender         TEXT NOT NULL,
	senior_citizen BOOLEAN NOT NULL DEFAULT 0,
	partner        BOOLEAN NOT NULL DEFAULT 0,
	dependents     BOOLEAN NOT NULL DEFAULT 0,
	created_at     DATETIME,
	updated_at     DATETIME
);

CREATE TABLE IF NOT EXISTS customer_services (
	customer_id       TEXT PRIMARY KEY,
	phone_service     BOOLEAN NOT NULL DEFAULT 0,
	multiple_lines    TEXT,
	internet_service  TEXT,
	online_security   TEXT,
	online_backup     TEXT,
	device_protection TEXT,
	tech_support      TEXT,
	streaming_tv      TEXT,
	streaming_movies  TEXT,
	created_at        DATETIME,
	updated_at        DATETIME
);

CREATE TABLE IF NOT EXISTS customer_contracts (
	customer_id   TEXT PRIMARY KEY,
	tenure_months INTEGER NOT NULL DEFAULT 0,
	contract_type TEXT NOT NULL,
	created_at    DATETIME,
	updated_at    DATETIME
);

CREATE TABLE IF NOT EXISTS customer_billing (
	customer_id       TEXT PRIMARY KEY,
	monthly_charges   REAL NOT NULL DEFAULT 0,
	total_charges     REAL NOT NULL DEFAULT 0,
	paperless_billing BOOLEAN NOT NULL DEFAULT 0,
	payment_method    TEXT,
	created_at        DATETIME,
	updated_at        DATETIME
);

CREATE TABLE IF NOT EXISTS customer_churn (
	customer_id  TEXT PRIMARY KEY,
	churn_status BOOLEAN NOT NULL DEFAULT 0,
	churn_date   DATE,
	created_at   DATETIME,
	updated_at   DATETIME
);

CREATE TABLE IF NOT EXISTS customer_segments (
	customer_id  TEXT PRIMARY KEY,
	segment_id   INTEGER NOT NULL,
	segment_name TEXT NOT NULL,
	cltv_score   REAL NOT NULL DEFAULT 0,
	risk_score   REAL NOT NULL DEFAULT 0,
	created_at   DATETIME,
	updated_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_mirror_contract_type ON customer_contracts(contract_type);
CREATE INDEX IF NOT EXISTS idx_mirror_churn_status ON customer_churn(churn_status);
CREATE INDEX IF NOT EXISTS idx_mirror_segment_id ON customer_segments(segment_id);

CREATE VIEW IF NOT EXISTS customer_complete_view AS
SELECT
	d.customer_id,
	d.gender,
	d.senior_citizen,
	d.partner,
	d.dependents,
	s.phone_service,
	s.multiple_lines,
	s.internet_service,
	s.online_security,
	s.online_backup,
	s.device_protection,
	s.tech_support,
	s.streaming_tv,
	s.streaming_movies,
	c.tenure_months,
	c.contract_type,
	b.monthly_charges,
	b.total_charges,
	b.paperless_billing,
	b.payment_method,
	ch.churn_status,
	ch.churn_date,
	seg.segment_id,
	seg.segment_name,
	seg.cltv_score,
	seg.risk_score
FROM customer_demographics d
JOIN customer_services  s   ON s.customer_id  = d.customer_id
JOIN customer_contracts c   ON c.customer_id  = d.customer_id
JOIN customer_billing   b   ON b.customer_id  = d.customer_id
JOIN customer_churn     ch  ON ch.customer_id = d.customer_id
JOIN customer_segments  seg ON seg.customer_id = d.customer_id;
`

// Migrate creates the mirror tables and the complete view.
func (m *Mirror) Migrate(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, mirrorMigration)
	return eris.Wrap(err, "warehouse: migrate")
}

// Sync replaces the mirror contents with the current Postgres state. Each
// table is deleted and reloaded inside a single transaction in the same
// fixed order the loader uses, so a reader never sees a half-synced mirror.
func (m *Mirror) Sync(ctx context.Context) error {
	if m.pool == nil {
		return eris.New("warehouse: sync requires a source pool")
	}
	log := zap.L().With(zap.String("component", "warehouse.sync"))

	if err := m.Migrate(ctx); err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "warehouse: begin sync tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range etl.TableOrder {
		n, err := m.syncTable(ctx, tx, table)
		if err != nil {
			return err
		}
		log.Info("table mirrored", zap.String("table", table), zap.Int64("rows", n))
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "warehouse: commit sync tx")
	}
	log.Info("mirror sync complete")
	return nil
}

// numericCols are NUMERIC in Postgres; cast to float8 so scanned values are
// plain float64s SQLite can store directly.
var numericCols = map[string]bool{
	"monthly_charges": true,
	"total_charges":   true,
	"cltv_score":      true,
	"risk_score":      true,
}

func selectExprs(cols []string) []string {
	exprs := make([]string, len(cols))
	for i, c := range cols {
		if numericCols[c] {
			exprs[i] = c + "::float8 AS " + c
		} else {
			exprs[i] = c
		}
	}
	return exprs
}

func (m *Mirror) syncTable(ctx context.Context, tx *sql.Tx, table string) (int64, error) {
	cols := etl.Columns(table)

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, eris.Wrapf(err, "warehouse: truncate %s", table)
	}

	// Table and column names come from the fixed transform maps, never input.
	srcQuery := fmt.Sprintf("SELECT %s FROM churn.%s", strings.Join(selectExprs(cols), ", "), table)
	rows, err := m.pool.Query(ctx, srcQuery)
	if err != nil {
		return 0, eris.Wrapf(err, "warehouse: read %s", table)
	}
	defer rows.Close()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, eris.Wrapf(err, "warehouse: prepare insert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return n, eris.Wrapf(err, "warehouse: scan %s", table)
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return n, eris.Wrapf(err, "warehouse: insert into %s", table)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, eris.Wrapf(err, "warehouse: iterate %s", table)
	}
	return n, nil
}
