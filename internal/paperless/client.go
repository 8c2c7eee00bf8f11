// Package paperless provides a REST client for a paperless-ngx document
// store: token-authenticated, paginated listings, and retry with backoff on
// transient failures.
package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/raphaelgruber/paperflow/internal/models"
)

const defaultPageSize = 100

// Client talks to the paperless-ngx REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
	maxRetries uint64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMaxRetries sets how often a transient failure is retried.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// New creates a client for the API at baseURL authenticating with the given
// token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// transientError marks a failure worth retrying: network errors, 5xx, 429.
type transientError struct{ err error }

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

// do executes one API call with retry. path may be absolute (a pagination
// "next" URL) or relative to the base URL. A non-nil body is sent as JSON; a
// non-nil result receives the decoded response.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	endpoint := path
	if !strings.HasPrefix(path, "http") {
		endpoint = c.baseURL + path
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	attempt := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Token "+c.token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return transientError{fmt.Errorf("%s %s: %w", method, endpoint, err)}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return transientError{fmt.Errorf("read response: %w", err)}
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(fmt.Errorf("%s %s: %w", method, endpoint, models.ErrNotFound))
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return transientError{fmt.Errorf("%s %s: %s", method, endpoint, resp.Status)}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("%s %s: %s - %s", method, endpoint, resp.Status, truncate(respBody)))
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
			}
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		c.logger.Warn("retrying paperless request",
			"method", method, "url", endpoint, "wait", wait, "error", err)
	})
}

func truncate(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// listPage is one page of a paginated listing.
type listPage struct {
	Count   int             `json:"count"`
	Next    *string         `json:"next"`
	Results json.RawMessage `json:"results"`
}

// listAll follows pagination until every result is collected.
func listAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("page_size", strconv.Itoa(defaultPageSize))

	var all []T
	next := path + "?" + query.Encode()
	for {
		var page listPage
		if err := c.do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		var results []T
		if err := json.Unmarshal(page.Results, &results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
		all = append(all, results...)
		if page.Next == nil || *page.Next == "" {
			return all, nil
		}
		next = *page.Next
	}
}

// resourcePath maps an entity kind to its API collection.
func resourcePath(kind models.EntityKind) (string, error) {
	switch kind {
	case models.KindTag:
		return "/api/tags/", nil
	case models.KindCorrespondent:
		return "/api/correspondents/", nil
	case models.KindDocumentType:
		return "/api/document_types/", nil
	}
	return "", fmt.Errorf("unknown entity kind %q", kind)
}

// referenceFilter maps an entity kind to the document-listing filter that
// selects documents referencing one entity of that kind.
func referenceFilter(kind models.EntityKind, entityID int) (url.Values, error) {
	q := url.Values{}
	switch kind {
	case models.KindTag:
		q.Set("tags__id__in", strconv.Itoa(entityID))
	case models.KindCorrespondent:
		q.Set("correspondent__id", strconv.Itoa(entityID))
	case models.KindDocumentType:
		q.Set("document_type__id", strconv.Itoa(entityID))
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	return q, nil
}

// ListEntities returns every entity of the given kind.
func (c *Client) ListEntities(ctx context.Context, kind models.EntityKind) ([]models.NamedEntity, error) {
	path, err := resourcePath(kind)
	if err != nil {
		return nil, err
	}
	entities, err := listAll[models.NamedEntity](ctx, c, path, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s entities: %w", kind, err)
	}
	return entities, nil
}

// CreateEntity creates a named entity and returns it with its assigned id.
func (c *Client) CreateEntity(ctx context.Context, kind models.EntityKind, name string) (models.NamedEntity, error) {
	var created models.NamedEntity
	path, err := resourcePath(kind)
	if err != nil {
		return created, err
	}
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, path, body, &created); err != nil {
		return created, fmt.Errorf("create %s %q: %w", kind, name, err)
	}
	return created, nil
}

// DeleteEntity removes an entity. Deleting a missing entity returns
// models.ErrNotFound.
func (c *Client) DeleteEntity(ctx context.Context, kind models.EntityKind, entityID int) error {
	path, err := resourcePath(kind)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path+strconv.Itoa(entityID)+"/", nil, nil)
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	// ReferencingKind/ReferencingID select documents carrying one entity.
	ReferencingKind models.EntityKind
	ReferencingID   int
}

// ListDocuments returns documents matching the filter, or all documents for
// a zero filter.
func (c *Client) ListDocuments(ctx context.Context, filter DocumentFilter) ([]models.Document, error) {
	query := url.Values{}
	if filter.ReferencingKind != "" {
		var err error
		if query, err = referenceFilter(filter.ReferencingKind, filter.ReferencingID); err != nil {
			return nil, err
		}
	}
	docs, err := listAll[models.Document](ctx, c, "/api/documents/", query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// GetDocument fetches one document including its content.
func (c *Client) GetDocument(ctx context.Context, documentID int) (models.Document, error) {
	var doc models.Document
	err := c.do(ctx, http.MethodGet, "/api/documents/"+strconv.Itoa(documentID)+"/", nil, &doc)
	if err != nil {
		return doc, fmt.Errorf("get document %d: %w", documentID, err)
	}
	return doc, nil
}

// UpdateDocument applies a partial update. Nil fields are left untouched.
func (c *Client) UpdateDocument(ctx context.Context, update models.DocumentUpdate) error {
	patch := map[string]any{}
	if update.Title != nil {
		patch["title"] = *update.Title
	}
	if update.TagIDs != nil {
		patch["tags"] = update.TagIDs
	}
	if update.CorrespondentID != nil {
		patch["correspondent"] = *update.CorrespondentID
	}
	if update.DocumentTypeID != nil {
		patch["document_type"] = *update.DocumentTypeID
	}
	if len(patch) == 0 {
		return nil
	}
	err := c.do(ctx, http.MethodPatch, "/api/documents/"+strconv.Itoa(update.ID)+"/", patch, nil)
	if err != nil {
		return fmt.Errorf("update document %d: %w", update.ID, err)
	}
	return nil
}

// AddNote attaches a note to a document.
func (c *Client) AddNote(ctx context.Context, documentID int, note string) error {
	body := map[string]string{"note": note}
	err := c.do(ctx, http.MethodPost, "/api/documents/"+strconv.Itoa(documentID)+"/notes/", body, nil)
	if err != nil {
		return fmt.Errorf("add note to document %d: %w", documentID, err)
	}
	return nil
}

// ListNotes returns the notes attached to a document.
func (c *Client) ListNotes(ctx context.Context, documentID int) ([]models.Note, error) {
	var notes []models.Note
	err := c.do(ctx, http.MethodGet, "/api/documents/"+strconv.Itoa(documentID)+"/notes/", nil, &notes)
	if err != nil {
		return nil, fmt.Errorf("list notes for document %d: %w", documentID, err)
	}
	return notes, nil
}
