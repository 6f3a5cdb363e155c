// Package search maintains the Elasticsearch index behind catalog text
// search. The index is a projection fed by the outbox worker; Postgres
// stays the source of truth.
package search

import (
	"bytes"
	"context"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
)

const IdxEvents = "events_v1"

var eventsMapping = `{"settings":{"number_of_shards":1},"mappings":{"dynamic":"strict","properties":{
	"title":{"type":"text"},"description":{"type":"text"},"venue":{"type":"text"},
	"organizer":{"type":"keyword"},"category":{"type":"keyword"},"status":{"type":"keyword"},
	"date":{"type":"date"},"registered_count":{"type":"integer"},"updated_at":{"type":"date"}
}}}`

func EnsureIndexes(ctx context.Context, c *es.Client) error {
	return ensure(ctx, c, IdxEvents, eventsMapping)
}

func ensure(ctx context.Context, c *es.Client, index, body string) error {
	exists, err := c.Indices.Exists([]string{index})
	if err == nil && exists.StatusCode == 200 {
		return nil
	}
	_, err = c.Indices.Create(index,
		c.Indices.Create.WithBody(bytes.NewBufferString(body)),
		c.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	return nil
}
