// Package httpstore implements the event store contract against a JSON/HTTP
// service.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	appLog "blockcal/internal/log"
	"blockcal/internal/model"
	"blockcal/internal/store"
)

// Client talks to a remote event store over HTTP.
//
// FetchAll is conditional: the ETag of the last successful fetch is replayed
// as If-None-Match, and a 304 is answered from the last decoded collection.
// Network errors propagate; the cached collection is never substituted for a
// failed fetch, since it may predate this client's own mutations.
type Client struct {
	baseURL string
	client  *http.Client

	mu       sync.Mutex
	etag     string
	lastSeen []store.Stored
	haveSeen bool
}

// New creates a store client for the given base URL
// (e.g. "https://calendar.example.com/api").
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// eventDTO is the flat wire shape of one stored event.
type eventDTO struct {
	ID string `json:"id"`
	model.EventRecord
}

// FetchAll implements store.Store.
func (c *Client) FetchAll(ctx context.Context) ([]store.Stored, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.etag != "" {
		req.Header.Set("If-None-Match", c.etag)
	}
	c.mu.Unlock()

	appLog.Debug("store fetch start", "url", redactURL(c.baseURL))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var dtos []eventDTO
		if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
			return nil, fmt.Errorf("decode event collection: %w", err)
		}
		out := make([]store.Stored, 0, len(dtos))
		for _, d := range dtos {
			out = append(out, store.Stored{ID: d.ID, Record: d.EventRecord})
		}

		c.mu.Lock()
		c.etag = resp.Header.Get("ETag")
		c.lastSeen = cloneStored(out)
		c.haveSeen = true
		c.mu.Unlock()

		appLog.Info("store fetch success", "url", redactURL(c.baseURL), "event_count", len(out))
		return out, nil

	case http.StatusNotModified:
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.haveSeen {
			return nil, errors.New("received 304 Not Modified without a prior collection")
		}
		appLog.Debug("store fetch not modified", "url", redactURL(c.baseURL))
		return cloneStored(c.lastSeen), nil

	default:
		return nil, responseError(resp)
	}
}

// Create implements store.Store.
func (c *Client) Create(ctx context.Context, rec model.EventRecord) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", responseError(resp)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if created.ID == "" {
		return "", errors.New("store returned an empty id")
	}
	c.invalidate()
	return created.ID, nil
}

// Update implements store.Store.
func (c *Client) Update(ctx context.Context, id string, rec model.EventRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.eventURL(id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doAck(req)
}

// Delete implements store.Store.
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.eventURL(id), nil)
	if err != nil {
		return err
	}
	return c.doAck(req)
}

func (c *Client) eventURL(id string) string {
	return c.baseURL + "/events/" + url.PathEscape(id)
}

// doAck runs a mutation request that only needs an acknowledgement.
func (c *Client) doAck(req *http.Request) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		c.invalidate()
		return nil
	case http.StatusNotFound:
		return store.ErrNotFound
	default:
		return responseError(resp)
	}
}

// invalidate drops the conditional-fetch state after a mutation so the next
// FetchAll observes the new collection rather than replaying a stale ETag.
func (c *Client) invalidate() {
	c.mu.Lock()
	c.etag = ""
	c.mu.Unlock()
}

// responseError extracts the server-provided message from an error response.
func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return errors.New(payload.Error)
	}
	return errors.New(resp.Status)
}

func cloneStored(in []store.Stored) []store.Stored {
	out := make([]store.Stored, len(in))
	copy(out, in)
	return out
}

// redactURL hides path and query of a store URL for logging.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "store://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}

var _ store.Store = (*Client)(nil)
