// Package search implements the similarity-search collaborator on Qdrant.
// The retrieval node treats it as an opaque search(query, k) function; this
// package owns embedding the query and talking gRPC to the collection.
package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/propchat-core/server/internal/agent/model"
	logx "github.com/propchat-core/server/pkg/logger"
)

// Embedder turns text into a dense vector for the collection's metric space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// QdrantSearcher implements model.Searcher backed by a Qdrant collection
// whose payloads carry a "content" field plus arbitrary metadata.
type QdrantSearcher struct {
	client     *qdrant.Client
	embedder   Embedder
	collection string
}

// parseURL extracts host, port and TLS flag from a Qdrant URL such as
// "https://host:6333" or "http://host:6334". The REST port 6333 is mapped to
// the gRPC port 6334.
func parseURL(rawURL string) (host string, port int, useTLS bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("search: invalid qdrant URL: %q", rawURL)
	}

	useTLS = u.Scheme == "https"
	host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, fmt.Errorf("search: invalid port in qdrant URL: %q", portStr)
		}
		if p == 6333 {
			port = 6334
		} else {
			port = p
		}
	} else {
		port = 6334
	}

	return host, port, useTLS, nil
}

// NewQdrantSearcher connects to the Qdrant server via gRPC.
func NewQdrantSearcher(cfg model.SearchConfig, embedder Embedder) (*QdrantSearcher, error) {
	host, port, useTLS, err := parseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("search: connect to qdrant at %s:%d: %w", host, port, err)
	}

	return &QdrantSearcher{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
	}, nil
}

// Search embeds the query and returns the top-k payloads as documents.
func (q *QdrantSearcher) Search(ctx context.Context, query string, k int) ([]model.Document, error) {
	if k <= 0 {
		k = 1
	}

	vector, err := q.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}

	limit := uint64(k)
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search: qdrant query: %w", err)
	}

	docs := make([]model.Document, 0, len(scored))
	for _, sp := range scored {
		content := sp.Payload["content"].GetStringValue()
		if content == "" {
			logx.Debug().Str("collection", q.collection).Msg("skipping point without content payload")
			continue
		}
		metadata := make(map[string]any)
		for key, value := range sp.Payload {
			if key == "content" {
				continue
			}
			metadata[key] = payloadValue(value)
		}
		if len(metadata) == 0 {
			metadata = nil
		}
		docs = append(docs, model.Document{Content: content, Metadata: metadata})
	}

	return docs, nil
}

// payloadValue converts a Qdrant payload value to a plain Go value for
// JSON-serializable metadata.
func payloadValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	default:
		return v.String()
	}
}

// Close releases the underlying gRPC connection.
func (q *QdrantSearcher) Close() error {
	return q.client.Close()
}

var _ model.Searcher = (*QdrantSearcher)(nil)
