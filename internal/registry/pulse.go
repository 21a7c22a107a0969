package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const pulseRequestTimeout = 10 * time.Second

// PulseSource queries a community MCP catalog ("Pulse"-style JSON API). It
// is a secondary catalog: it contributes trust signals (usage counts,
// verified flags) and servers the primary registry does not index.
type PulseSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewPulseSource creates a source against the given API base URL.
func NewPulseSource(baseURL string, client *http.Client) *PulseSource {
	if client == nil {
		client = &http.Client{Timeout: pulseRequestTimeout}
	}
	return &PulseSource{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

// Name implements Source.
func (s *PulseSource) Name() string { return "pulse" }

type pulseServer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"short_description"`
	Version     string `json:"version"`
	SourceURL   string `json:"source_code_url"`
	UseCount    int    `json:"github_stars"`
	Verified    bool   `json:"official"`
	Packages    []struct {
		Registry   string `json:"registry_name"`
		Identifier string `json:"identifier"`
		Version    string `json:"version"`
	} `json:"packages"`
}

type pulseSearchResponse struct {
	Servers []pulseServer `json:"servers"`
}

// Search implements Source using the /v0beta/servers endpoint.
func (s *PulseSource) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("count_per_page", strconv.Itoa(limit))

	body, err := fetchJSON(ctx, s.httpClient, s.baseURL+"/v0beta/servers?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var parsed pulseSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing pulse response: %w", err)
	}

	records := make([]Record, 0, len(parsed.Servers))
	for _, srv := range parsed.Servers {
		records = append(records, recordFromPulse(srv))
	}
	return records, nil
}

// Get implements Source. The catalog has no exact-name endpoint, so it
// searches and picks an exact name or alternate-id match.
func (s *PulseSource) Get(ctx context.Context, name string) (*Record, error) {
	records, err := s.Search(ctx, name, 10)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if strings.EqualFold(records[i].Name, name) || strings.EqualFold(records[i].AlternateID, name) {
			return &records[i], nil
		}
	}
	return nil, nil
}

func recordFromPulse(srv pulseServer) Record {
	rec := Record{
		Name:          srv.Name,
		Description:   srv.Description,
		Version:       srv.Version,
		RepositoryURL: srv.SourceURL,
		UsageCount:    srv.UseCount,
		Verified:      srv.Verified,
		AlternateID:   srv.ID,
	}
	for _, pkg := range srv.Packages {
		rec.Packages = append(rec.Packages, Package{
			Registry:   pkg.Registry,
			Identifier: pkg.Identifier,
			Version:    pkg.Version,
		})
		// The catalog's npm identifier doubles as the cross-reference id
		// when the record itself has no id.
		if rec.AlternateID == "" && pkg.Registry == "npm" {
			rec.AlternateID = pkg.Identifier
		}
	}
	return rec
}
