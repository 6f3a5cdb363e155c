package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

// Index wraps the client with query helpers. It satisfies the catalog's
// Searcher interface.
type Index struct {
	client *es.Client
}

func NewIndex(c *es.Client) *Index {
	return &Index{client: c}
}

// SearchEventIDs runs a full-text match over title and description and
// returns the matching event IDs, best match first.
func (i *Index) SearchEventIDs(ctx context.Context, text string, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}

	query := map[string]any{
		"size":    limit,
		"_source": false,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  text,
				"fields": []string{"title^2", "description", "venue"},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(IdxEvents),
		i.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search events: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := uuid.Parse(h.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
