package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"auto_blog_pipeline/config"
	"auto_blog_pipeline/logging"
)

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher abstracts the optional web-search provider.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// BingSearcher queries the Bing Web Search v7 API.
type BingSearcher struct {
	endpoint string
	apiKey   string
	count    int
	client   *http.Client
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// New returns a Bing searcher, or nil when no key is configured. A nil
// Searcher is a valid "search disabled" value for the pipeline.
func New(cfg config.SearchConfig, client *http.Client) Searcher {
	if cfg.APIKey == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	count := cfg.Count
	if count <= 0 {
		count = 5
	}
	return &BingSearcher{endpoint: cfg.Endpoint, apiKey: cfg.APIKey, count: count, client: client}
}

func (b *BingSearcher) Search(ctx context.Context, query string) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", b.apiKey)
	q := req.URL.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(b.count))
	q.Set("responseFilter", "Webpages")
	req.URL.RawQuery = q.Encode()

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bing search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bing search: status code %d", resp.StatusCode)
	}

	var data bingResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("bing search: decode: %w", err)
	}
	results := make([]Result, 0, len(data.WebPages.Value))
	for _, item := range data.WebPages.Value {
		results = append(results, Result{Title: item.Name, URL: item.URL, Snippet: item.Snippet})
	}
	return results, nil
}

// SearchAll runs every query in order and concatenates the hits. A failing
// query is logged and contributes nothing; it never aborts the batch.
func SearchAll(ctx context.Context, s Searcher, queries []string, logger *logging.Logger) []Result {
	var all []Result
	for _, q := range queries {
		if q == "" {
			continue
		}
		logger.Infof("[search] %s", q)
		results, err := s.Search(ctx, q)
		if err != nil {
			logger.Warnf("[search] %q failed: %v", q, err)
			continue
		}
		all = append(all, results...)
	}
	return all
}
