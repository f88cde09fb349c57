// Package evidence retrieves biomedical literature citations used to
// corroborate or refute the medical claims in a post. It queries the PubMed
// E-utilities API and is best-effort: callers treat an unavailable index as
// "zero citations", not as a hard failure.
package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"medwatch/internal/models"
)

// ErrUnavailable indicates the literature index was unreachable or returned a
// malformed response after the retry budget was exhausted.
var ErrUnavailable = errors.New("evidence index unavailable")

const defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Retriever queries the PubMed literature index for citations matching a set
// of medical concepts. It holds no pipeline state; every call is independent.
type Retriever struct {
	baseURL    string
	email      string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

// Config holds retriever configuration.
type Config struct {
	BaseURL string
	Email   string // identifies the caller to NCBI, required by their usage policy
	APIKey  string // optional, raises the request rate limit
}

// LoadConfig loads retriever configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		BaseURL: getEnv("PUBMED_BASE_URL", defaultBaseURL),
		Email:   os.Getenv("PUBMED_EMAIL"),
		APIKey:  os.Getenv("PUBMED_API_KEY"),
	}
}

// NewRetriever creates a retriever from configuration.
func NewRetriever(cfg *Config) *Retriever {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Retriever{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		email:   cfg.Email,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		maxRetries: 2,
	}
}

// Retrieve searches the literature index for the given concepts and returns
// up to maxResults citations ranked by relevance. An empty concept set yields
// an empty result without contacting the index.
func (r *Retriever) Retrieve(ctx context.Context, concepts []string, maxResults int) ([]models.Citation, error) {
	terms := make([]string, 0, len(concepts))
	for _, c := range concepts {
		if c = strings.TrimSpace(c); c != "" {
			terms = append(terms, c)
		}
	}
	if len(terms) == 0 || maxResults <= 0 {
		return nil, nil
	}

	query := strings.Join(terms, " OR ")
	ids, err := r.search(ctx, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		log.Printf("No PubMed results for query %q", query)
		return nil, nil
	}

	citations, err := r.summaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// esearch returns ids ranked by the index; relevance decays with rank
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	for i := range citations {
		citations[i].Relevance = 1.0 - float64(rank[citations[i].Identifier])/float64(len(ids))
	}

	SortCitations(citations)
	if len(citations) > maxResults {
		citations = citations[:maxResults]
	}
	return citations, nil
}

// SortCitations orders citations by relevance descending, ties broken by
// publication year descending and then identifier ascending so the ordering
// is deterministic.
func SortCitations(citations []models.Citation) {
	sort.Slice(citations, func(i, j int) bool {
		if citations[i].Relevance != citations[j].Relevance {
			return citations[i].Relevance > citations[j].Relevance
		}
		if citations[i].Year != citations[j].Year {
			return citations[i].Year > citations[j].Year
		}
		return citations[i].Identifier < citations[j].Identifier
	})
}

type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// search runs an esearch query and returns the ranked id list.
func (r *Retriever) search(ctx context.Context, query string, maxResults int) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmode": {"json"},
		"retmax":  {strconv.Itoa(maxResults)},
		"sort":    {"relevance"},
	}
	body, err := r.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var parsed esearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode esearch response: %w", err)
	}
	return parsed.ESearchResult.IDList, nil
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryDoc struct {
	UID     string `json:"uid"`
	Title   string `json:"title"`
	PubDate string `json:"pubdate"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

// summaries fetches citation metadata for the given ids via esummary.
func (r *Retriever) summaries(ctx context.Context, ids []string) ([]models.Citation, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"json"},
	}
	body, err := r.get(ctx, "/esummary.fcgi", params)
	if err != nil {
		return nil, err
	}

	var parsed esummaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode esummary response: %w", err)
	}

	citations := make([]models.Citation, 0, len(ids))
	for _, id := range ids {
		raw, ok := parsed.Result[id]
		if !ok {
			continue
		}
		var doc esummaryDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue // uids entry and other non-document keys
		}

		authors := make([]string, 0, len(doc.Authors))
		for _, a := range doc.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}

		identifier := doc.UID
		if identifier == "" {
			identifier = id
		}
		url := fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", identifier)
		for _, aid := range doc.ArticleIDs {
			if aid.IDType == "doi" && aid.Value != "" {
				url = "https://doi.org/" + aid.Value
				break
			}
		}

		citations = append(citations, models.Citation{
			Title:      doc.Title,
			Authors:    authors,
			Identifier: identifier,
			URL:        url,
			Year:       parseYear(doc.PubDate),
		})
	}
	return citations, nil
}

// get performs a GET with retries for transient failures.
func (r *Retriever) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if r.email != "" {
		params.Set("email", r.email)
	}
	if r.apiKey != "" {
		params.Set("api_key", r.apiKey)
	}
	endpoint := r.baseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		}
		return body, nil
	}
	return nil, lastErr
}

// parseYear extracts the leading year from a PubMed pubdate like "2023 Mar 4".
func parseYear(pubdate string) int {
	fields := strings.Fields(pubdate)
	if len(fields) == 0 {
		return 0
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return year
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
