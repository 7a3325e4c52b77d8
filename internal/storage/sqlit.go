package storage

import (
	"database/sql"
	"math"
	"strings"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Begin() (*sql.Tx, error)
	Close() error
}

type Store struct{ db DB }

// SimulationRecord is one saved run.
type SimulationRecord struct {
	ID                  int64
	Session             string
	Tickers             []string
	Start               time.Time
	End                 time.Time
	Amount              string // empty when no contribution was given
	PortfolioReturn     float64
	PortfolioVolatility float64
	CreatedAt           time.Time
}

// TickerCount is how often a ticker appeared in saved runs.
type TickerCount struct {
	Ticker string
	Count  int
}

const dateLayout = "2006-01-02"

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS simulations(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		tickers TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		amount TEXT,
		portfolio_return REAL,
		portfolio_volatility REAL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS simulation_tickers(
		simulation_id INTEGER NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
		ticker TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_simulations_session ON simulations(session, created_at)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

// SaveSimulation stores rec and its tickers in one transaction and returns
// its id. A zero CreatedAt is set to now.
func (s *Store) SaveSimulation(rec SimulationRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	var amount any
	if rec.Amount != "" {
		amount = rec.Amount
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() // no-op after Commit

	res, err := tx.Exec(`INSERT INTO simulations(session,tickers,start_date,end_date,amount,portfolio_return,portfolio_volatility,created_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		rec.Session, strings.Join(rec.Tickers, ","), rec.Start.Format(dateLayout), rec.End.Format(dateLayout),
		amount, nullableFloat(rec.PortfolioReturn), nullableFloat(rec.PortfolioVolatility), rec.CreatedAt.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, t := range rec.Tickers {
		if _, err := tx.Exec(`INSERT INTO simulation_tickers(simulation_id,ticker) VALUES(?,?)`, id, t); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// RecentSimulations returns the latest runs of session, newest first.
func (s *Store) RecentSimulations(session string, limit int) ([]SimulationRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT id,session,tickers,start_date,end_date,COALESCE(amount,''),
		portfolio_return,portfolio_volatility,created_at
		FROM simulations WHERE session=? ORDER BY created_at DESC, id DESC LIMIT ?`, session, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SimulationRecord
	for rows.Next() {
		var (
			rec          SimulationRecord
			tickers      string
			start, end   string
			ret, vol     sql.NullFloat64
			createdAtSec int64
		)
		if err := rows.Scan(&rec.ID, &rec.Session, &tickers, &start, &end, &rec.Amount, &ret, &vol, &createdAtSec); err != nil {
			return nil, err
		}
		if tickers != "" {
			rec.Tickers = strings.Split(tickers, ",")
		}
		rec.Start, _ = time.Parse(dateLayout, start)
		rec.End, _ = time.Parse(dateLayout, end)
		rec.PortfolioReturn = floatOrNaN(ret)
		rec.PortfolioVolatility = floatOrNaN(vol)
		rec.CreatedAt = time.Unix(createdAtSec, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TickerUsage counts tickers across runs created at or after since, most used first.
func (s *Store) TickerUsage(since time.Time, limit int) ([]TickerCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`SELECT t.ticker, COUNT(*) AS n
		FROM simulation_tickers t JOIN simulations s ON s.id = t.simulation_id
		WHERE s.created_at >= ?
		GROUP BY t.ticker ORDER BY n DESC, t.ticker ASC LIMIT ?`, since.Unix(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TickerCount
	for rows.Next() {
		var tc TickerCount
		if err := rows.Scan(&tc.Ticker, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// nullableFloat stores undefined statistics as NULL.
func nullableFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
