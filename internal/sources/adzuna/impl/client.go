package impl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bakkerme/jobalert/internal/sources/adzuna"
)

const defaultBaseURL = "https://api.adzuna.com/v1/api/jobs"

type Client struct {
	client      *http.Client
	baseURL     string
	appID       string
	appKey      string
	userAgent   string
	maxBodySize int64
}

func NewClient(timeout time.Duration, userAgent, baseURL, appID, appKey string) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if userAgent == "" {
		userAgent = "jobalert/0.1"
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		client:      &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		appID:       strings.TrimSpace(appID),
		appKey:      strings.TrimSpace(appKey),
		userAgent:   userAgent,
		maxBodySize: 10 << 20, // 10 MiB
	}
}

type searchResponse struct {
	Results []result `json:"results"`
}

type result struct {
	ID          flexibleID  `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Company     displayName `json:"company"`
	Location    displayName `json:"location"`
	RedirectURL string      `json:"redirect_url"`
}

type displayName struct {
	DisplayName string `json:"display_name"`
}

// flexibleID accepts both "123" and 123.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("adzuna: id must be a string or number: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

func (c *Client) Search(ctx context.Context, query adzuna.Query) ([]adzuna.Job, error) {
	if c.appID == "" || c.appKey == "" {
		return nil, fmt.Errorf("adzuna: missing credentials (set ADZUNA_APP_ID and ADZUNA_APP_KEY)")
	}
	endpoint, err := c.searchURL(query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adzuna: %w", err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.maxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("adzuna: read body: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("adzuna: response too large")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg != "" {
			msg = ": " + msg
		}
		return nil, fmt.Errorf("adzuna: status %d%s", resp.StatusCode, msg)
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("adzuna: decode response: %w", err)
	}

	jobs := make([]adzuna.Job, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		jobs = append(jobs, adzuna.Job{
			ID:          string(r.ID),
			Title:       r.Title,
			Description: r.Description,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			RedirectURL: r.RedirectURL,
		})
	}
	return jobs, nil
}

func (c *Client) searchURL(query adzuna.Query) (string, error) {
	country := strings.ToLower(strings.TrimSpace(query.Country))
	if country == "" {
		return "", fmt.Errorf("adzuna: country is required")
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	params := url.Values{}
	params.Set("app_id", c.appID)
	params.Set("app_key", c.appKey)
	if query.ResultsPerPage > 0 {
		params.Set("results_per_page", strconv.Itoa(query.ResultsPerPage))
	}
	if what := joinOr(query.Keywords); what != "" {
		params.Set("what", what)
	}
	if where := joinOr(query.Locations); where != "" {
		params.Set("where", where)
	}

	return fmt.Sprintf("%s/%s/search/%d?%s", c.baseURL, url.PathEscape(country), page, params.Encode()), nil
}

func joinOr(terms []string) string {
	kept := make([]string, 0, len(terms))
	for _, term := range terms {
		if term = strings.TrimSpace(term); term != "" {
			kept = append(kept, term)
		}
	}
	return strings.Join(kept, " OR ")
}
