package web_search

import (
	"context"
	"errors"

	"github.com/tool-pressure/xiaohongshu/tools/web_search/models"
	"github.com/tool-pressure/xiaohongshu/tools/web_search/serper"
)

// WebSearcher discovers pages matching a query. k bounds the number of
// results; sites restricts to the given domains; recency restricts to the
// last N days when positive.
type WebSearcher interface {
	Discover(ctx context.Context, q string, k int, sites []string, recency int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
)

var ErrUnsupportedProvider = errors.New("unsupported search provider")

func NewWebSearcher(provider Provider, apiKey string) (WebSearcher, error) {
	switch provider {
	case SerperProvider:
		return serper.Search{APIKey: apiKey}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
