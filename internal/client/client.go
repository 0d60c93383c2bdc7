// Package client talks to the rating API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"challenge-cards/internal/domain"
)

// StatusError is a non-2xx answer from the API. It unwraps to the domain
// error matching the status code.
type StatusError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: status %d", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%v: %s", e.kind, e.Message)
}

func (e *StatusError) Unwrap() error { return e.kind }

func kindForStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrConflict
	default:
		return domain.ErrStorage
	}
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New returns a client for the API rooted at baseURL. Requests carry no
// deadline of their own; callers bound them with ctx.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type User struct {
	ID           int64               `json:"id"`
	Email        string              `json:"email"`
	FirstName    string              `json:"firstName"`
	LastName     string              `json:"lastName"`
	Demographics domain.Demographics `json:"demographics"`
}

type AuthResult struct {
	Token string
	User  User
}

type RegisterRequest struct {
	Email        string              `json:"email"`
	Password     string              `json:"password"`
	FirstName    string              `json:"firstName"`
	LastName     string              `json:"lastName"`
	Demographics domain.Demographics `json:"demographics"`
}

type authResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", req, &resp); err != nil {
		return nil, err
	}
	return &AuthResult{Token: resp.Token, User: resp.User}, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var resp authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return nil, err
	}
	return &AuthResult{Token: resp.Token, User: resp.User}, nil
}

func (c *Client) Profile(ctx context.Context, token string) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/profile", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

type ratingRequest struct {
	CardName    string `json:"cardName"`
	RatingType  string `json:"ratingType"`
	RatingValue int    `json:"ratingValue"`
}

// UpsertRating writes one (card, dimension) rating for the token's user.
func (c *Client) UpsertRating(ctx context.Context, token, cardName string, dim domain.Dimension, value int) (domain.UpsertResult, error) {
	var resp struct {
		Modified int `json:"modified"`
		Upserted int `json:"upserted"`
	}
	req := ratingRequest{CardName: cardName, RatingType: string(dim), RatingValue: value}
	if err := c.do(ctx, http.MethodPut, "/feedback", token, req, &resp); err != nil {
		return domain.UpsertResult{}, err
	}
	return domain.UpsertResult{Created: resp.Upserted == 1}, nil
}

type ratingResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	CardName    string    `json:"cardName"`
	RatingType  string    `json:"ratingType"`
	RatingValue int       `json:"ratingValue"`
	Timestamp   time.Time `json:"timestamp"`
}

// ListRatings returns every rating the token's user has stored. Records
// with an unrecognised rating type are skipped.
func (c *Client) ListRatings(ctx context.Context, token string) ([]domain.RatingRecord, error) {
	var resp struct {
		Ratings []ratingResponse `json:"ratings"`
	}
	if err := c.do(ctx, http.MethodGet, "/feedback", token, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.RatingRecord, 0, len(resp.Ratings))
	for _, r := range resp.Ratings {
		dim, err := domain.ParseDimension(r.RatingType)
		if err != nil {
			continue
		}
		out = append(out, domain.RatingRecord{
			ID:          r.ID,
			UserID:      r.UserID,
			CardName:    r.CardName,
			RatingType:  dim,
			RatingValue: r.RatingValue,
			Timestamp:   r.Timestamp,
		})
	}
	return out, nil
}

type ExportResult struct {
	Location string `json:"location"`
	URL      string `json:"url"`
}

func (c *Client) Export(ctx context.Context, token string) (*ExportResult, error) {
	var resp ExportResult
	if err := c.do(ctx, http.MethodPost, "/feedback/export", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrNetwork, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.Error, kind: kindForStatus(resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrNetwork, path, err)
	}
	return nil
}
