package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// RecentLimit is how many instruments a chat remembers.
const RecentLimit = 8

var ErrNotFound = errors.New("storage: not found")

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
	Close() error
}

type Store struct{ db DB }

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS recent_instruments(
		chat_id INTEGER NOT NULL, instrument_id TEXT NOT NULL, symbol TEXT, name TEXT, ts INTEGER,
		PRIMARY KEY(chat_id, instrument_id)
	);
	CREATE TABLE IF NOT EXISTS forecast_runs(
		chat_id INTEGER NOT NULL, instrument_id TEXT NOT NULL, run_id TEXT NOT NULL,
		horizon_days INTEGER, ts INTEGER,
		PRIMARY KEY(chat_id, instrument_id)
	)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

// RecentInstrument is an instrument a chat looked at.
type RecentInstrument struct {
	ID     string
	Symbol string
	Name   string
	Seen   time.Time
}

// PushRecent moves the instrument to the front of the chat's list and trims it to RecentLimit.
func (s *Store) PushRecent(chatID int64, item RecentInstrument) error {
	if item.Seen.IsZero() {
		item.Seen = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO recent_instruments(chat_id,instrument_id,symbol,name,ts) VALUES(?,?,?,?,?)
		ON CONFLICT(chat_id,instrument_id) DO UPDATE SET symbol=excluded.symbol, name=excluded.name, ts=excluded.ts`,
		chatID, item.ID, item.Symbol, item.Name, item.Seen.UnixNano())
	if err != nil {
		return fmt.Errorf("push recent: %w", err)
	}
	_, err = s.db.Exec(`DELETE FROM recent_instruments WHERE chat_id=? AND instrument_id NOT IN (
		SELECT instrument_id FROM recent_instruments WHERE chat_id=? ORDER BY ts DESC LIMIT ?)`,
		chatID, chatID, RecentLimit)
	if err != nil {
		return fmt.Errorf("trim recent: %w", err)
	}
	return nil
}

// RecentInstruments returns the chat's list, most recent first.
func (s *Store) RecentInstruments(chatID int64) ([]RecentInstrument, error) {
	rows, err := s.db.Query(`SELECT instrument_id, symbol, name, ts FROM recent_instruments
		WHERE chat_id=? ORDER BY ts DESC LIMIT ?`, chatID, RecentLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecentInstrument
	for rows.Next() {
		var (
			r         RecentInstrument
			sym, name sql.NullString
			ts        int64
		)
		if err := rows.Scan(&r.ID, &sym, &name, &ts); err != nil {
			return nil, err
		}
		r.Symbol, r.Name, r.Seen = sym.String, name.String, time.Unix(0, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ForecastRun remembers the last forecast a chat requested for an instrument.
type ForecastRun struct {
	InstrumentID string
	RunID        string
	HorizonDays  int
	Created      time.Time
}

func (s *Store) SaveForecastRun(chatID int64, run ForecastRun) error {
	if run.Created.IsZero() {
		run.Created = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO forecast_runs(chat_id,instrument_id,run_id,horizon_days,ts) VALUES(?,?,?,?,?)
		ON CONFLICT(chat_id,instrument_id) DO UPDATE SET run_id=excluded.run_id, horizon_days=excluded.horizon_days, ts=excluded.ts`,
		chatID, run.InstrumentID, run.RunID, run.HorizonDays, run.Created.UnixNano())
	return err
}

// LastForecastRun returns ErrNotFound when the chat never forecast the instrument.
func (s *Store) LastForecastRun(chatID int64, instrumentID string) (ForecastRun, error) {
	run := ForecastRun{InstrumentID: instrumentID}
	var ts int64
	err := s.db.QueryRow(`SELECT run_id, horizon_days, ts FROM forecast_runs WHERE chat_id=? AND instrument_id=?`,
		chatID, instrumentID).Scan(&run.RunID, &run.HorizonDays, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return ForecastRun{}, ErrNotFound
	}
	if err != nil {
		return ForecastRun{}, err
	}
	run.Created = time.Unix(0, ts)
	return run, nil
}
