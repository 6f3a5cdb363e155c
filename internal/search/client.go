package search

import (
	"fmt"
	"log/slog"

	es "github.com/elastic/go-elasticsearch/v8"
)

func Connect(url string) (*es.Client, error) {
	client, err := es.NewClient(es.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}
	slog.Info("connected to elasticsearch", "url", url)
	return client, nil
}
