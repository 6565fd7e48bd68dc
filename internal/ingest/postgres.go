package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kass/bkd-geo-index/pkg/geom"
)

// LoadPointsFromPostgres reads points from a PostGIS-enabled Postgres
// table as an alternate input source to LoadPoints. table must have an
// "id" text column and a "location" geometry(Point,4326) column; rows are
// mapped straight to geom.Point, so the core never knows which adapter
// produced its input. This is read-only: the forest never writes results
// back to Postgres, since spec §6 defines no persisted state for the
// index itself.
func LoadPointsFromPostgres(ctx context.Context, dsn, table string) ([]geom.Point, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ingest: opening postgres connection: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ingest: pinging postgres: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, ST_Y(location), ST_X(location) FROM %s WHERE location IS NOT NULL`,
		pqQuoteIdent(table),
	)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ingest: querying %s: %w", table, err)
	}
	defer rows.Close()

	var points []geom.Point
	for rows.Next() {
		var p geom.Point
		if err := rows.Scan(&p.ID, &p.Lat, &p.Lon); err != nil {
			return nil, fmt.Errorf("ingest: scanning row: %w", err)
		}
		if !geom.CheckLatitude(p.Lat) || !geom.CheckLongitude(p.Lon) {
			return nil, fmt.Errorf("ingest: point %q out of range lat=%v lon=%v", p.ID, p.Lat, p.Lon)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ingest: reading rows: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("ingest: table %s contains no points", table)
	}

	return points, nil
}

// pqQuoteIdent quotes table as a Postgres identifier, doubling embedded
// quotes, so the caller-supplied table name can't break out of the
// generated SELECT.
func pqQuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
