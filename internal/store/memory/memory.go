// Package memory provides an in-memory library.Store for tests and dry
// runs.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/gamedex/gamedex/pkg/errors"
	"github.com/gamedex/gamedex/pkg/games"
	"github.com/gamedex/gamedex/pkg/library"
)

// Store is an in-memory library.Store. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	games  map[int64]games.Game
	genres map[int64]games.Genre
}

var _ library.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		games:  make(map[int64]games.Game),
		genres: make(map[int64]games.Genre),
	}
}

// GameByIGDBID implements library.Store.
func (s *Store) GameByIGDBID(ctx context.Context, igdbID int64) (*games.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.games {
		if g.IGDBID == igdbID && igdbID != 0 {
			found := g
			return &found, nil
		}
	}
	return nil, errors.ErrNotFound
}

// GameByNativeID implements library.Store.
func (s *Store) GameByNativeID(ctx context.Context, storefront, nativeID string) (*games.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.games {
		if nativeIDMatches(&g, storefront, nativeID) {
			found := g
			return &found, nil
		}
	}
	return nil, errors.ErrNotFound
}

// Insert implements library.Store.
func (s *Store) Insert(ctx context.Context, g *games.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	g.ID = s.nextID
	s.games[g.ID] = *g
	return nil
}

// Update implements library.Store.
func (s *Store) Update(ctx context.Context, g *games.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[g.ID]; !ok {
		return errors.ErrNotFound
	}
	s.games[g.ID] = *g
	return nil
}

// Games implements library.Store.
func (s *Store) Games(ctx context.Context) ([]games.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]games.Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Genres implements library.Store.
func (s *Store) Genres(ctx context.Context) ([]games.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]games.Genre, 0, len(s.genres))
	for _, g := range s.genres {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IGDBID < out[j].IGDBID })
	return out, nil
}

// PutGenre implements library.Store.
func (s *Store) PutGenre(ctx context.Context, g *games.Genre) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == 0 {
		s.nextID++
		g.ID = s.nextID
	}
	s.genres[g.IGDBID] = *g
	return nil
}

// nativeIDMatches reports whether g carries nativeID for the given
// storefront. Unset sentinels never match.
func nativeIDMatches(g *games.Game, storefront, nativeID string) bool {
	if nativeID == "" {
		return false
	}
	switch storefront {
	case "Steam":
		id, err := strconv.ParseInt(nativeID, 10, 64)
		return err == nil && g.SteamID != 0 && g.SteamID == id
	case "Epic Games":
		return g.EpicID != "" && g.EpicID == nativeID
	case "GOG":
		return g.GogID != "" && g.GogID == nativeID
	case "Itch":
		return g.ItchID != "" && g.ItchID == nativeID
	}
	return false
}
