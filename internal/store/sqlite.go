package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tanjir-dev/travel-recommender/internal/recommend"
)

// ErrNotFound is returned when no data is available for a given district.
var ErrNotFound = errors.New("no data for district")

// The partial unique index is what makes the current flag safe under
// concurrent batches: two writers can never both commit a current row for the
// same district.
const schema = `
CREATE TABLE IF NOT EXISTS readings (
  district_id   TEXT    NOT NULL,
  ts            TEXT    NOT NULL,
  temperature_c REAL    NOT NULL,
  humidity_pct  REAL,
  wind_speed_ms REAL,
  pm25          REAL,
  aqi           REAL,
  source        TEXT    NOT NULL,
  is_current    INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (district_id, ts)
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_readings_current
  ON readings(district_id) WHERE is_current = 1;
CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts);

CREATE TABLE IF NOT EXISTS scores (
  district_id    TEXT NOT NULL PRIMARY KEY,
  value          REAL NOT NULL,
  temp_component REAL NOT NULL,
  air_component  REAL NOT NULL,
  clamped        INTEGER NOT NULL DEFAULT 0,
  computed_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scores_value ON scores(value DESC, district_id ASC);
`

// OpenSQLite opens (and creates if needed) the SQLite database at path.
func OpenSQLite(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	// SQLite is best with low write concurrency; the per-district transactions
	// serialize on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// SQLiteRepository persists readings and scores in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates the repository and ensures the schema exists.
func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// UpsertCurrent swaps the current reading for a district atomically: the old
// current row is demoted (archived, not deleted) and the new one inserted and
// flagged current in the same transaction, so there is never a window with
// zero or two current rows. Readings older than the stored current one are
// ignored to keep current timestamps monotonic.
func (r *SQLiteRepository) UpsertCurrent(ctx context.Context, reading recommend.Reading, score recommend.Score) (recommend.Reading, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return recommend.Reading{}, recommend.E(recommend.KindPersistence, "sqlite.upsert", err)
	}
	defer tx.Rollback()

	var curTS sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT ts FROM readings WHERE district_id = ? AND is_current = 1`,
		reading.DistrictID,
	).Scan(&curTS)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return recommend.Reading{}, recommend.E(recommend.KindPersistence, "sqlite.upsert", err)
	}

	if curTS.Valid {
		prev, parseErr := parseTS(curTS.String)
		if parseErr != nil {
			return recommend.Reading{}, recommend.E(recommend.KindPersistence, "sqlite.upsert", parseErr)
		}
		if reading.Timestamp.Before(prev) {
			// Stale reading; keep the newer current row. Release the
			// transaction's connection before reading it back.
			if err := tx.Rollback(); err != nil {
				return recommend.Reading{}, recommend.E(recommend.KindPersistence, "sqlite.upsert", err)
			}
			cur, _, getErr := r.GetCurrent(ctx, reading.DistrictID)
			if getErr != nil {
				return recommend.Reading{}, getErr
			}
			return cur, nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE readings SET is_current = 0 WHERE district_id = ? AND is_current = 1`,
			reading.DistrictID,
		); err != nil {
			return recommend.Reading{}, recommend.E(recommend.KindPersistence, "sqlite.upsert", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO readings
		   (district_id, ts, temperature_c, humidity_pct, wind_speed_ms, pm25, aqi, source, is_current)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		reading.DistrictID,
		formatTS(reading.Timestamp),
		reading.TemperatureC,
		reading.HumidityPct,
		reading.WindSpeedMS,
		nullableFloat(reading.PM25),
		nullableFloat(reading.AQI),
		reading.Source,
	); err != nil {
		return recommend.Reading{}, recommend.E(recommend.KindPersistence, "sqlite.upsert", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scores (district_id, value, temp_component, air_component, clamped, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(district_id) DO UPDATE SET
		   value = excluded.value,
		   temp_component = excluded.temp_component,
		   air_component = excluded.air_component,
		   clamped = excluded.clamped,
		   computed_at = excluded.computed_at`,
		score.DistrictID,
		score.Value,
		score.TempComponent,
		score.AirComponent,
		boolToInt(score.Clamped),
		formatTS(score.ComputedAt),
	); err != nil {
		return recommend.Reading{}, recommend.E(recommend.KindPersistence, "sqlite.upsert", err)
	}

	if err := tx.Commit(); err != nil {
		return recommend.Reading{}, recommend.E(recommend.KindPersistence, "sqlite.upsert", err)
	}
	return reading, nil
}

// GetCurrent returns the current reading and score for a district.
func (r *SQLiteRepository) GetCurrent(ctx context.Context, districtID string) (recommend.Reading, recommend.Score, error) {
	var (
		reading    recommend.Reading
		score      recommend.Score
		ts         string
		computedAt string
		pm25, aqi  sql.NullFloat64
		clamped    int
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT r.district_id, r.ts, r.temperature_c, r.humidity_pct, r.wind_speed_ms,
		        r.pm25, r.aqi, r.source,
		        s.value, s.temp_component, s.air_component, s.clamped, s.computed_at
		   FROM readings r
		   JOIN scores s ON s.district_id = r.district_id
		  WHERE r.district_id = ? AND r.is_current = 1`,
		districtID,
	).Scan(
		&reading.DistrictID, &ts, &reading.TemperatureC, &reading.HumidityPct, &reading.WindSpeedMS,
		&pm25, &aqi, &reading.Source,
		&score.Value, &score.TempComponent, &score.AirComponent, &clamped, &computedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return recommend.Reading{}, recommend.Score{}, ErrNotFound
	}
	if err != nil {
		return recommend.Reading{}, recommend.Score{}, recommend.E(recommend.KindPersistence, "sqlite.getcurrent", err)
	}

	if reading.Timestamp, err = parseTS(ts); err != nil {
		return recommend.Reading{}, recommend.Score{}, recommend.E(recommend.KindPersistence, "sqlite.getcurrent", err)
	}
	if score.ComputedAt, err = parseTS(computedAt); err != nil {
		return recommend.Reading{}, recommend.Score{}, recommend.E(recommend.KindPersistence, "sqlite.getcurrent", err)
	}
	if pm25.Valid {
		v := pm25.Float64
		reading.PM25 = &v
	}
	if aqi.Valid {
		v := aqi.Float64
		reading.AQI = &v
	}
	score.DistrictID = reading.DistrictID
	score.Clamped = clamped != 0
	return reading, score, nil
}

// ListByScore returns districts with a score >= minScore, best first, ties
// broken by district ID for deterministic ordering.
func (r *SQLiteRepository) ListByScore(ctx context.Context, minScore float64, limit int) ([]recommend.DistrictScore, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT district_id, value, temp_component, air_component, clamped, computed_at
		   FROM scores
		  WHERE value >= ?
		  ORDER BY value DESC, district_id ASC
		  LIMIT ?`,
		minScore, limit,
	)
	if err != nil {
		return nil, recommend.E(recommend.KindPersistence, "sqlite.listbyscore", err)
	}
	defer rows.Close()

	var out []recommend.DistrictScore
	for rows.Next() {
		var (
			ds         recommend.DistrictScore
			clamped    int
			computedAt string
		)
		if err := rows.Scan(&ds.Score.DistrictID, &ds.Score.Value, &ds.Score.TempComponent,
			&ds.Score.AirComponent, &clamped, &computedAt); err != nil {
			return nil, recommend.E(recommend.KindPersistence, "sqlite.listbyscore", err)
		}
		ds.DistrictID = ds.Score.DistrictID
		ds.Score.Clamped = clamped != 0
		if ds.Score.ComputedAt, err = parseTS(computedAt); err != nil {
			return nil, recommend.E(recommend.KindPersistence, "sqlite.listbyscore", err)
		}
		out = append(out, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, recommend.E(recommend.KindPersistence, "sqlite.listbyscore", err)
	}
	return out, nil
}

func formatTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err2 := time.Parse(time.RFC3339, s)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
		return t, nil
	}
	return t, nil
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
