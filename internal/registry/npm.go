package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const npmRequestTimeout = 10 * time.Second

// NPMSource queries the npm registry search API. It is the primary catalog:
// every hit is installable with npx.
type NPMSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewNPMSource creates a source against the given registry base URL
// (e.g. https://registry.npmjs.org).
func NewNPMSource(baseURL string, client *http.Client) *NPMSource {
	if client == nil {
		client = &http.Client{Timeout: npmRequestTimeout}
	}
	return &NPMSource{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

// Name implements Source.
func (s *NPMSource) Name() string { return "npm" }

type npmSearchResponse struct {
	Objects []struct {
		Package npmPackage `json:"package"`
	} `json:"objects"`
}

type npmPackage struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Links       struct {
		Repository string `json:"repository"`
	} `json:"links"`
}

// Search implements Source using the /-/v1/search endpoint. The query is
// scoped with the mcp keyword so generic npm packages do not flood results.
func (s *NPMSource) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	q := url.Values{}
	q.Set("text", query+" keywords:mcp")
	q.Set("size", strconv.Itoa(limit))

	var parsed npmSearchResponse
	if err := s.getJSON(ctx, s.baseURL+"/-/v1/search?"+q.Encode(), &parsed); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(parsed.Objects))
	for _, obj := range parsed.Objects {
		records = append(records, recordFromNPM(obj.Package))
	}
	return records, nil
}

type npmPackument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DistTags    struct {
		Latest string `json:"latest"`
	} `json:"dist-tags"`
	Repository struct {
		URL string `json:"url"`
	} `json:"repository"`
}

// Get implements Source by fetching the packument for an exact package name.
func (s *NPMSource) Get(ctx context.Context, name string) (*Record, error) {
	var parsed npmPackument
	err := s.getJSON(ctx, s.baseURL+"/"+url.PathEscape(name), &parsed)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	rec := Record{
		Name:          parsed.Name,
		Description:   parsed.Description,
		Version:       parsed.DistTags.Latest,
		RepositoryURL: parsed.Repository.URL,
		Packages: []Package{
			{Registry: "npm", Identifier: parsed.Name, Version: parsed.DistTags.Latest},
		},
	}
	return &rec, nil
}

func recordFromNPM(pkg npmPackage) Record {
	return Record{
		Name:          pkg.Name,
		Description:   pkg.Description,
		Version:       pkg.Version,
		RepositoryURL: pkg.Links.Repository,
		Packages: []Package{
			{Registry: "npm", Identifier: pkg.Name, Version: pkg.Version},
		},
	}
}

// getJSON performs a GET with one retry on HTTP 429 and decodes the body.
// A malformed body is an error, never a partial result.
func (s *NPMSource) getJSON(ctx context.Context, rawURL string, out any) error {
	body, err := fetchJSON(ctx, s.httpClient, rawURL, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing npm response: %w", err)
	}
	return nil
}

type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.url, e.code)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

// fetchJSON issues a GET and returns the body. On a 429 it backs off once
// and retries; any other non-200 status is an error.
func fetchJSON(ctx context.Context, client *http.Client, rawURL string, header http.Header) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "anchor-registry")
		for key, values := range header {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			resp.Body.Close()
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, &statusError{code: resp.StatusCode, url: rawURL}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response body: %w", err)
		}
		return body, nil
	}
}
