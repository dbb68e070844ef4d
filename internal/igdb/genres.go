package igdb

import (
	"context"

	"github.com/gamedex/gamedex/pkg/games"
)

const genreQuery = "fields id, name;\nlimit 500;"

// Genres fetches the catalog's genre table.
func (c *Client) Genres(ctx context.Context) ([]games.Genre, error) {
	response, err := c.Query(ctx, "genres", genreQuery)
	if err != nil {
		return nil, err
	}
	var genres []games.Genre
	for _, item := range response.Array() {
		genres = append(genres, games.Genre{
			IGDBID: item.Get("id").Int(),
			Name:   item.Get("name").String(),
		})
	}
	return genres, nil
}
