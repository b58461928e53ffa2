// Package store implements the persistent player account table: a row per
// unique player name holding games_played, games_won, wallet, and a
// logged_in flag, backed by SQLite via a pure-Go driver so the server
// doesn't need cgo.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrNameTaken     = errors.New("store: player name already registered")
	ErrUnknownPlayer = errors.New("store: no such player")
)

// PlayerRow is one persisted account.
type PlayerRow struct {
	ID          string
	Name        string
	GamesPlayed int
	GamesWon    int
	Wallet      int
	LoggedIn    bool
}

// Store is the persistence contract the session layer drives at login,
// registration, and logout; Lobby only ever sees the narrower
// lobby.StatsFlusher slice of this interface.
type Store interface {
	Register(ctx context.Context, name string, startingWallet int) (PlayerRow, error)
	Login(ctx context.Context, name string) (PlayerRow, error)
	Logout(ctx context.Context, name string) error
	Stats(ctx context.Context, name string) (PlayerRow, error)
	FlushStats(ctx context.Context, name string, gamesPlayedDelta, gamesWonDelta int, wallet int) error
}

// SQLStore implements Store over a database/sql handle. The zero value is
// not usable; construct with Open.
type SQLStore struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dsn and applies any
// pending migrations from the embedded migrations directory.
func Open(dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: serialize writers, one file handle

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, fmt.Errorf("store: set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)

// Register inserts a new player row with the given starting wallet.
// Duplicate names are rejected per the unique constraint on the name
// column.
func (s *SQLStore) Register(ctx context.Context, name string, startingWallet int) (PlayerRow, error) {
	row := PlayerRow{ID: uuid.NewString(), Name: name, Wallet: startingWallet}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, name, games_played, games_won, wallet, logged_in) VALUES (?, ?, 0, 0, ?, 0)`,
		row.ID, row.Name, row.Wallet)
	if err != nil {
		return PlayerRow{}, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	return row, nil
}

// Login requires the named row to exist and marks logged_in = true.
func (s *SQLStore) Login(ctx context.Context, name string) (PlayerRow, error) {
	row, err := s.Stats(ctx, name)
	if err != nil {
		return PlayerRow{}, err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE players SET logged_in = 1 WHERE name = ?`, name); err != nil {
		return PlayerRow{}, fmt.Errorf("store: login %s: %w", name, err)
	}
	row.LoggedIn = true
	return row, nil
}

// Logout clears logged_in for name.
func (s *SQLStore) Logout(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE players SET logged_in = 0 WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("store: logout %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	}
	return nil
}

// Stats reads the current row for name.
func (s *SQLStore) Stats(ctx context.Context, name string) (PlayerRow, error) {
	var row PlayerRow
	var loggedIn int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, games_played, games_won, wallet, logged_in FROM players WHERE name = ?`, name,
	).Scan(&row.ID, &row.Name, &row.GamesPlayed, &row.GamesWon, &row.Wallet, &loggedIn)
	if errors.Is(err, sql.ErrNoRows) {
		return PlayerRow{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	}
	if err != nil {
		return PlayerRow{}, fmt.Errorf("store: stats %s: %w", name, err)
	}
	row.LoggedIn = loggedIn != 0
	return row, nil
}

// FlushStats applies the end-of-round deltas: games_played and games_won
// accumulate, wallet is replaced outright with the in-memory authoritative
// value.
func (s *SQLStore) FlushStats(ctx context.Context, name string, gamesPlayedDelta, gamesWonDelta int, wallet int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE players SET games_played = games_played + ?, games_won = games_won + ?, wallet = ? WHERE name = ?`,
		gamesPlayedDelta, gamesWonDelta, wallet, name)
	if err != nil {
		return fmt.Errorf("store: flush %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	}
	return nil
}
