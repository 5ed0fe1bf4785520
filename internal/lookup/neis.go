// ABOUTME: NEIS open API client implementing the lookup.Client interface.
// ABOUTME: Decodes the schoolInfo and mealServiceDietInfo JSON envelopes.

package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://open.neis.go.kr/hub"

// noDataCode is the NEIS result code for an empty result set.
const noDataCode = "INFO-200"

// NEISClient talks to the NEIS open API over HTTP.
type NEISClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// NEISOption customizes a NEISClient.
type NEISOption func(*NEISClient)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(u string) NEISOption {
	return func(c *NEISClient) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) NEISOption {
	return func(c *NEISClient) {
		c.client = hc
	}
}

// WithClock overrides the time source for the meal-date parameter.
func WithClock(now func() time.Time) NEISOption {
	return func(c *NEISClient) {
		c.now = now
	}
}

// NewNEISClient creates a client for the NEIS open API. The API key may be
// empty; NEIS serves a limited number of unauthenticated requests.
func NewNEISClient(apiKey string, logger *slog.Logger, opts ...NEISOption) *NEISClient {
	if logger == nil {
		logger = slog.Default()
	}
	c := &NEISClient{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With("component", "neis"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// neisResult is the RESULT object NEIS returns both on errors and inside
// the head block of successful responses.
type neisResult struct {
	Code    string `json:"CODE"`
	Message string `json:"MESSAGE"`
}

// schoolRow is one school record from the schoolInfo service.
type schoolRow struct {
	OfficeCode string `json:"ATPT_OFCDC_SC_CODE"`
	SchoolCode string `json:"SD_SCHUL_CODE"`
	Name       string `json:"SCHUL_NM"`
	Region     string `json:"LCTN_SC_NM"`
}

// mealRow is one meal record from the mealServiceDietInfo service.
type mealRow struct {
	Date   string `json:"MLSV_YMD"`
	Dishes string `json:"DDISH_NM"`
}

// Search queries schoolInfo by school name.
func (c *NEISClient) Search(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("SCHUL_NM", query)

	var rows []schoolRow
	if err := c.get(ctx, "schoolInfo", params, &rows); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		candidates = append(candidates, Candidate{
			Name:       r.Name,
			Region:     r.Region,
			OfficeCode: r.OfficeCode,
			SchoolCode: r.SchoolCode,
		})
	}
	c.logger.Debug("school search", "query", query, "results", len(candidates))
	return candidates, nil
}

// Detail fetches today's meal menu for the identified school.
func (c *NEISClient) Detail(ctx context.Context, officeCode, schoolCode string) (string, error) {
	params := url.Values{}
	params.Set("ATPT_OFCDC_SC_CODE", officeCode)
	params.Set("SD_SCHUL_CODE", schoolCode)
	params.Set("MLSV_YMD", c.now().Format("20060102"))

	var rows []mealRow
	if err := c.get(ctx, "mealServiceDietInfo", params, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", ErrNotFound
	}

	// NEIS separates dishes with <br/> tags.
	menu := rows[0].Dishes
	menu = strings.ReplaceAll(menu, "<br/>", "\n")
	menu = strings.ReplaceAll(menu, "<br>", "\n")
	return strings.TrimSpace(menu), nil
}

// get performs a request against one NEIS service and decodes its rows into
// out, which must be a pointer to a slice of row structs.
func (c *NEISClient) get(ctx context.Context, service string, params url.Values, out any) error {
	params.Set("Type", "json")
	if c.apiKey != "" {
		params.Set("KEY", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, service, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", service, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", service, err)
	}

	return c.decodeRows(service, body, out)
}

// decodeRows unwraps the NEIS envelope. A successful response nests rows
// under the service name; an empty result set is a top-level RESULT object
// with code INFO-200.
func (c *NEISClient) decodeRows(service string, body []byte, out any) error {
	var errEnvelope struct {
		Result *neisResult `json:"RESULT"`
	}
	if err := json.Unmarshal(body, &errEnvelope); err == nil && errEnvelope.Result != nil {
		if errEnvelope.Result.Code == noDataCode {
			return ErrNotFound
		}
		return fmt.Errorf("%s: API error %s: %s", service, errEnvelope.Result.Code, errEnvelope.Result.Message)
	}

	var envelope map[string][]struct {
		Head []json.RawMessage `json:"head"`
		Row  json.RawMessage   `json:"row"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decoding %s envelope: %w", service, err)
	}

	blocks, ok := envelope[service]
	if !ok {
		return fmt.Errorf("%s: missing service block in response", service)
	}
	for _, block := range blocks {
		if block.Row == nil {
			continue
		}
		if err := json.Unmarshal(block.Row, out); err != nil {
			return fmt.Errorf("decoding %s rows: %w", service, err)
		}
		return nil
	}
	return ErrNotFound
}
