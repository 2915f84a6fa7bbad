// Package client provides a Go client for the travelsdb HTTP API.
//
// It covers every public endpoint:
//   - Record lookups (GetUser, GetLocation, GetVisit).
//   - Derived queries (UserVisits, LocationAverage).
//   - Mutations (Create*, Update*).
//
// Non-2xx responses are returned as *APIError, which unwraps to the matching
// core sentinel so callers can use errors.Is(err, core.ErrNotFound).
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sanonone/travelsdb/internal/protocol"
	"github.com/sanonone/travelsdb/pkg/core"
	"github.com/sanonone/travelsdb/pkg/core/types"
)

// --- Custom Errors ---

// APIError represents an error returned by the travelsdb API (status >= 400).
type APIError struct {
	StatusCode int
	// Kind is the "error" member of the body, e.g. "not_found".
	Kind string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Kind)
}

// Unwrap maps the error kind to its core sentinel.
func (e *APIError) Unwrap() error {
	kind, ok := core.ParseKind(e.Kind)
	if !ok {
		return nil
	}
	return kind.Err()
}

// --- JSON Response Structs ---

type visitsResponse struct {
	Visits []types.VisitEntry `json:"visits"`
}

type averageResponse struct {
	Avg float64 `json:"avg"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Client ---

// Client is the Go client for interacting with travelsdb.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at host:port.
func New(host string, port int) *Client {
	return NewWithURL(fmt.Sprintf("http://%s:%d", host, port), nil)
}

// NewWithURL creates a client for baseURL. A nil httpClient gets a 10 second timeout.
func NewWithURL(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// jsonRequest executes one API call and returns the body of a 2xx response.
func (c *Client) jsonRequest(method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON payload: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Kind: errResp.Error}
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Kind: string(respBody)}
	}

	return respBody, nil
}

func getJSON[T any](c *Client, endpoint string) (T, error) {
	var out T
	respBody, err := c.jsonRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return out, fmt.Errorf("invalid JSON response for %s: %w", endpoint, err)
	}
	return out, nil
}

func recordPath(e types.Entity, id uint32) string {
	return "/" + e.String() + "/" + strconv.FormatUint(uint64(id), 10)
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}

// --- Lookups ---

// GetUser fetches a user by id.
func (c *Client) GetUser(id types.UserID) (types.User, error) {
	return getJSON[types.User](c, recordPath(types.EntityUser, uint32(id)))
}

// GetLocation fetches a location by id.
func (c *Client) GetLocation(id types.LocationID) (types.Location, error) {
	return getJSON[types.Location](c, recordPath(types.EntityLocation, uint32(id)))
}

// GetVisit fetches a visit by id.
func (c *Client) GetVisit(id types.VisitID) (types.Visit, error) {
	return getJSON[types.Visit](c, recordPath(types.EntityVisit, uint32(id)))
}

// UserVisits lists a user's visits matching f, ordered by visited_at.
func (c *Client) UserVisits(id types.UserID, f types.VisitsFilter) ([]types.VisitEntry, error) {
	path := recordPath(types.EntityUser, uint32(id)) + "/visits"
	resp, err := getJSON[visitsResponse](c, withQuery(path, protocol.EncodeVisitsFilter(f)))
	if err != nil {
		return nil, err
	}
	return resp.Visits, nil
}

// LocationAverage returns the mean mark of a location's visits matching f,
// as rounded by the server. A location with no matching visits yields 0.
func (c *Client) LocationAverage(id types.LocationID, f types.AverageFilter) (float64, error) {
	path := recordPath(types.EntityLocation, uint32(id)) + "/avg"
	resp, err := getJSON[averageResponse](c, withQuery(path, protocol.EncodeAverageFilter(f)))
	if err != nil {
		return 0, err
	}
	return resp.Avg, nil
}

// --- Mutations ---

func (c *Client) post(e types.Entity, idSegment string, payload any) error {
	_, err := c.jsonRequest(http.MethodPost, "/"+e.String()+"/"+idSegment, payload)
	return err
}

// CreateUser adds a new user.
func (c *Client) CreateUser(u types.User) error {
	return c.post(types.EntityUser, "new", u)
}

// CreateLocation adds a new location.
func (c *Client) CreateLocation(l types.Location) error {
	return c.post(types.EntityLocation, "new", l)
}

// CreateVisit adds a new visit. Its user and location must already exist.
func (c *Client) CreateVisit(v types.Visit) error {
	return c.post(types.EntityVisit, "new", v)
}

// UpdateUser applies the set fields of p to an existing user.
func (c *Client) UpdateUser(id types.UserID, p types.UserPatch) error {
	return c.post(types.EntityUser, strconv.FormatUint(uint64(id), 10), p)
}

// UpdateLocation applies the set fields of p to an existing location.
func (c *Client) UpdateLocation(id types.LocationID, p types.LocationPatch) error {
	return c.post(types.EntityLocation, strconv.FormatUint(uint64(id), 10), p)
}

// UpdateVisit applies the set fields of p to an existing visit.
func (c *Client) UpdateVisit(id types.VisitID, p types.VisitPatch) error {
	return c.post(types.EntityVisit, strconv.FormatUint(uint64(id), 10), p)
}
