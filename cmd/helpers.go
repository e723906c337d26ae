package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/clearsight-analytics/churn-cli/internal/etl"
	"github.com/clearsight-analytics/churn-cli/internal/fetcher"
	"github.com/clearsight-analytics/churn-cli/internal/warehouse"
)

// storePool creates the Postgres connection pool for the relational store.
func storePool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		return nil, eris.New("cmd: no database_url configured (set store.database_url or CHURN_STORE_DATABASE_URL)")
	}

	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cmd: parse database_url")
	}
	if cfg.Store.MaxConns > 0 {
		pc.MaxConns = cfg.Store.MaxConns
	}
	if cfg.Store.MinConns > 0 {
		pc.MinConns = cfg.Store.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, eris.Wrap(err, "cmd: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "cmd: ping database")
	}

	return pool, nil
}

// openMirror opens the SQLite warehouse. pool may be nil for commands that
// only read the mirror.
func openMirror(pool *pgxpool.Pool) (*warehouse.Mirror, error) {
	if pool != nil {
		return warehouse.NewMirror(cfg.Warehouse.Path, pool)
	}
	return warehouse.NewMirror(cfg.Warehouse.Path, nil)
}

// segmentRules resolves the effective segment scoring rules: built-in
// defaults, then the optional rules file, then any non-zero config overrides.
func segmentRules() (etl.SegmentRules, error) {
	rules := etl.DefaultRules()
	if cfg.ETL.RulesFile != "" {
		loaded, err := etl.LoadRules(cfg.ETL.RulesFile)
		if err != nil {
			return etl.SegmentRules{}, err
		}
		rules = loaded
	}

	if cfg.Segments.RiskMonthToMonth > 0 {
		rules.RiskMonthToMonth = cfg.Segments.RiskMonthToMonth
	}
	if cfg.Segments.RiskOneYear > 0 {
		rules.RiskOneYear = cfg.Segments.RiskOneYear
	}
	if cfg.Segments.RiskElectronicChk > 0 {
		rules.RiskElectronicChk = cfg.Segments.RiskElectronicChk
	}
	if cfg.Segments.RiskFiberHighBill > 0 {
		rules.RiskFiberHighBill = cfg.Segments.RiskFiberHighBill
	}
	if cfg.Segments.RiskShortTenure > 0 {
		rules.RiskShortTenure = cfg.Segments.RiskShortTenure
	}

	return rules, nil
}

// extractOptions builds etl.ExtractOptions from config, optionally overriding
// the source.
func extractOptions(source string) etl.ExtractOptions {
	if source == "" {
		source = cfg.ETL.Source
	}
	delim := ','
	if cfg.ETL.Delimiter != "" {
		delim = rune(cfg.ETL.Delimiter[0])
	}
	return etl.ExtractOptions{
		Source:    source,
		Delimiter: delim,
		Encoding:  cfg.ETL.Encoding,
		Fetch: fetcher.Options{
			UserAgent:  cfg.ETL.UserAgent,
			Timeout:    5 * time.Minute,
			MaxRetries: cfg.ETL.MaxRetries,
		},
	}
}
