// Package identity looks students up in the directory service.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/clive/kiosk-go/internal/model"
)

// ErrServiceUnreachable is returned when the directory cannot be reached or
// answers with something unreadable.
var ErrServiceUnreachable = errors.New("identity: service unreachable")

// Result is the outcome of a lookup. Found is false for unknown students.
type Result struct {
	Found  bool
	Record model.IdentityRecord
}

// Client looks up a student by school number.
type Client interface {
	Lookup(ctx context.Context, id string) (Result, error)
}

// HTTPClient talks to GET {baseURL}/api/students/{id}
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a client with the given request timeout
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithBearerToken sets the token sent to a directory that requires one.
// An empty token sends no Authorization header.
func (c *HTTPClient) WithBearerToken(token string) *HTTPClient {
	c.token = token
	return c
}

// StudentResponse is the directory's wire format
type StudentResponse struct {
	Success bool         `json:"success"`
	Data    *StudentData `json:"data,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// StudentData is one student as the directory encodes it
type StudentData struct {
	OkulNo FlexString `json:"okul_no"`
	Ad     string     `json:"ad"`
	Soyad  string     `json:"soyad"`
	Sinif  FlexString `json:"sinif"`
}

// Record converts the wire shape to the domain record
func (d StudentData) Record() model.IdentityRecord {
	return model.IdentityRecord{
		ID:         string(d.OkulNo),
		GivenName:  d.Ad,
		FamilyName: d.Soyad,
		ClassName:  string(d.Sinif),
	}
}

// FlexString accepts a JSON string or number. School numbers and class names
// come back as either depending on how the roster was imported.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

// Lookup fetches a student. Non-2xx responses and success=false or missing data
// are reported as not found; transport and decoding failures as ErrServiceUnreachable.
func (c *HTTPClient) Lookup(ctx context.Context, id string) (Result, error) {
	endpoint := c.baseURL + "/api/students/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrServiceUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %v", ErrServiceUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Found: false}, nil
	}

	var sr StudentResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrServiceUnreachable, err)
	}
	if !sr.Success || sr.Data == nil {
		return Result{Found: false}, nil
	}

	return Result{Found: true, Record: sr.Data.Record()}, nil
}
