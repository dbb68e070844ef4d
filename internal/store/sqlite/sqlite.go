// Package sqlite persists the game library in a single SQLite database
// file. It uses the pure-Go modernc.org/sqlite driver so no cgo is
// required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/gamedex/gamedex/pkg/errors"
	"github.com/gamedex/gamedex/pkg/games"
	"github.com/gamedex/gamedex/pkg/library"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	title          TEXT    NOT NULL DEFAULT '',
	sorting_title  TEXT    NOT NULL DEFAULT '',
	description    TEXT    NOT NULL DEFAULT '',
	platforms      TEXT    NOT NULL DEFAULT '[]',
	genres         TEXT    NOT NULL DEFAULT '[]',
	sources        TEXT    NOT NULL DEFAULT '[]',
	status         TEXT    NOT NULL DEFAULT '',
	igdb_id        INTEGER NOT NULL DEFAULT 0,
	cover_url      TEXT    NOT NULL DEFAULT '',
	background_url TEXT    NOT NULL DEFAULT '',
	play_time      INTEGER NOT NULL DEFAULT 0,
	steam_id       INTEGER NOT NULL DEFAULT 0,
	epic_id        TEXT    NOT NULL DEFAULT '',
	gog_id         TEXT    NOT NULL DEFAULT '',
	itch_id        TEXT    NOT NULL DEFAULT '',
	screenshots    TEXT    NOT NULL DEFAULT '[]',
	developers     TEXT    NOT NULL DEFAULT '[]',
	publishers     TEXT    NOT NULL DEFAULT '[]',
	favorite       INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS games_igdb_id ON games(igdb_id) WHERE igdb_id != 0;

CREATE TABLE IF NOT EXISTS genres (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	igdb_id INTEGER NOT NULL UNIQUE,
	name    TEXT    NOT NULL
);
`

const gameColumns = `id, title, sorting_title, description, platforms, genres, sources,
	status, igdb_id, cover_url, background_url, play_time, steam_id, epic_id,
	gog_id, itch_id, screenshots, developers, publishers, favorite`

// Store is a library.Store backed by a SQLite database file.
type Store struct {
	db *sql.DB
}

var _ library.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// SQLite allows a single writer. Funnel everything through one
	// connection so concurrent callers queue instead of failing with
	// SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GameByIGDBID implements library.Store.
func (s *Store) GameByIGDBID(ctx context.Context, igdbID int64) (*games.Game, error) {
	if igdbID == 0 {
		return nil, errors.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE igdb_id = ?`, igdbID)
	return scanGame(row)
}

// GameByNativeID implements library.Store.
func (s *Store) GameByNativeID(ctx context.Context, storefront, nativeID string) (*games.Game, error) {
	if nativeID == "" {
		return nil, errors.ErrNotFound
	}
	var (
		column string
		value  any = nativeID
	)
	switch storefront {
	case "Steam":
		id, err := strconv.ParseInt(nativeID, 10, 64)
		if err != nil {
			return nil, errors.ErrNotFound
		}
		column, value = "steam_id", id
	case "Epic Games":
		column = "epic_id"
	case "GOG":
		column = "gog_id"
	case "Itch":
		column = "itch_id"
	default:
		return nil, errors.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE `+column+` = ?`, value)
	return scanGame(row)
}

// Insert implements library.Store. The assigned row id is written back
// to g.ID.
func (s *Store) Insert(ctx context.Context, g *games.Game) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO games (title, sorting_title, description, platforms, genres,
			sources, status, igdb_id, cover_url, background_url, play_time,
			steam_id, epic_id, gog_id, itch_id, screenshots, developers,
			publishers, favorite)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Title, g.SortingTitle, g.Description,
		encodeStrings(g.Platforms), encodeInt64s(g.Genres), encodeStrings(g.Sources),
		string(g.Status), g.IGDBID, g.CoverURL, g.BackgroundURL, g.PlayTime,
		g.SteamID, g.EpicID, g.GogID, g.ItchID,
		encodeStrings(g.Screenshots), encodeStrings(g.Developers),
		encodeStrings(g.Publishers), boolToInt(g.Favorite))
	if err != nil {
		return fmt.Errorf("insert game %q: %w", g.Title, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert game %q: %w", g.Title, err)
	}
	g.ID = id
	return nil
}

// Update implements library.Store.
func (s *Store) Update(ctx context.Context, g *games.Game) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE games SET title = ?, sorting_title = ?, description = ?,
			platforms = ?, genres = ?, sources = ?, status = ?, igdb_id = ?,
			cover_url = ?, background_url = ?, play_time = ?, steam_id = ?,
			epic_id = ?, gog_id = ?, itch_id = ?, screenshots = ?,
			developers = ?, publishers = ?, favorite = ?
		WHERE id = ?`,
		g.Title, g.SortingTitle, g.Description,
		encodeStrings(g.Platforms), encodeInt64s(g.Genres), encodeStrings(g.Sources),
		string(g.Status), g.IGDBID, g.CoverURL, g.BackgroundURL, g.PlayTime,
		g.SteamID, g.EpicID, g.GogID, g.ItchID,
		encodeStrings(g.Screenshots), encodeStrings(g.Developers),
		encodeStrings(g.Publishers), boolToInt(g.Favorite), g.ID)
	if err != nil {
		return fmt.Errorf("update game %d: %w", g.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update game %d: %w", g.ID, err)
	}
	if n == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Games implements library.Store. Rows come back ordered by sorting
// title so callers get a display-ready collection.
func (s *Store) Games(ctx context.Context) ([]games.Game, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY sorting_title COLLATE NOCASE, id`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()
	var out []games.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return out, nil
}

// Genres implements library.Store.
func (s *Store) Genres(ctx context.Context) ([]games.Genre, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, igdb_id, name FROM genres ORDER BY igdb_id`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()
	var out []games.Genre
	for rows.Next() {
		var g games.Genre
		if err := rows.Scan(&g.ID, &g.IGDBID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return out, nil
}

// PutGenre implements library.Store.
func (s *Store) PutGenre(ctx context.Context, g *games.Genre) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO genres (igdb_id, name) VALUES (?, ?)
		ON CONFLICT (igdb_id) DO UPDATE SET name = excluded.name`,
		g.IGDBID, g.Name)
	if err != nil {
		return fmt.Errorf("put genre %q: %w", g.Name, err)
	}
	if id, err := res.LastInsertId(); err == nil && id != 0 {
		g.ID = id
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*games.Game, error) {
	var (
		g                               games.Game
		platforms, genres, sources      string
		screenshots, devs, pubs, status string
		favorite                        int
	)
	err := row.Scan(&g.ID, &g.Title, &g.SortingTitle, &g.Description,
		&platforms, &genres, &sources, &status, &g.IGDBID, &g.CoverURL,
		&g.BackgroundURL, &g.PlayTime, &g.SteamID, &g.EpicID, &g.GogID,
		&g.ItchID, &screenshots, &devs, &pubs, &favorite)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan game: %w", err)
	}
	g.Status = games.PlayStatus(status)
	g.Favorite = favorite != 0
	if g.Platforms, err = decodeStrings(platforms); err != nil {
		return nil, fmt.Errorf("decode platforms for game %d: %w", g.ID, err)
	}
	if g.Genres, err = decodeInt64s(genres); err != nil {
		return nil, fmt.Errorf("decode genres for game %d: %w", g.ID, err)
	}
	if g.Sources, err = decodeStrings(sources); err != nil {
		return nil, fmt.Errorf("decode sources for game %d: %w", g.ID, err)
	}
	if g.Screenshots, err = decodeStrings(screenshots); err != nil {
		return nil, fmt.Errorf("decode screenshots for game %d: %w", g.ID, err)
	}
	if g.Developers, err = decodeStrings(devs); err != nil {
		return nil, fmt.Errorf("decode developers for game %d: %w", g.ID, err)
	}
	if g.Publishers, err = decodeStrings(pubs); err != nil {
		return nil, fmt.Errorf("decode publishers for game %d: %w", g.ID, err)
	}
	return &g, nil
}

func encodeStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func encodeInt64s(v []int64) string {
	if len(v) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeStrings(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeInt64s(s string) ([]int64, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var out []int64
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
