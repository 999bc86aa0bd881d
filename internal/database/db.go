// Package database persists decision events to Postgres. The journal is an
// optional sink: the engine runs without it, and a write failure never
// disturbs a reconciliation tick.
package database

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/schundi365/IndianTradingbot-sub006/internal/events"
)

// Journal is a database-backed event sink.
type Journal struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New opens the journal, creating the events table if it does not exist.
func New(dsn string) (*Journal, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &Journal{
		db:     db,
		logger: log.With().Str("component", "journal").Logger(),
	}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS decision_events (
			id BIGSERIAL PRIMARY KEY,
			event_type TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			symbol TEXT NOT NULL,
			position_id TEXT,
			leg_id TEXT,
			old_value DOUBLE PRECISION,
			new_value DOUBLE PRECISION,
			reason TEXT
		)
	`)
	return err
}

// Emit writes one event; failures are logged and swallowed.
func (j *Journal) Emit(ev events.Event) {
	_, err := j.db.Exec(`
		INSERT INTO decision_events (
			event_type, occurred_at, symbol, position_id, leg_id, old_value, new_value, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		string(ev.Type), ev.Time, ev.Symbol,
		nullable(ev.PositionID), nullable(ev.LegID),
		ev.Old, ev.New, nullable(ev.Reason))
	if err != nil {
		j.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("journal write failed")
	}
}

// Recent returns the latest n events for a symbol, newest first.
func (j *Journal) Recent(symbol string, n int) ([]events.Event, error) {
	rows, err := j.db.Query(`
		SELECT event_type, occurred_at, symbol,
		       COALESCE(position_id, ''), COALESCE(leg_id, ''),
		       COALESCE(old_value, 0), COALESCE(new_value, 0), COALESCE(reason, '')
		FROM decision_events
		WHERE symbol = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`, symbol, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var ev events.Event
		var typ string
		if err := rows.Scan(&typ, &ev.Time, &ev.Symbol, &ev.PositionID, &ev.LegID, &ev.Old, &ev.New, &ev.Reason); err != nil {
			return nil, err
		}
		ev.Type = events.Type(typ)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
