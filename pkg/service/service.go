// Package service is a typed client for the note engine's relay/name-server
// protocol. The server implementation is an external collaborator; this
// package only encodes and sends the six requests and decodes their
// responses, grounded on the teacher's sentinel-error style in
// pkg/common/utils.go (ErrNotFound, ErrAlreadyExists, ...).
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ivcnotes/core/internal/eddsa"
	"github.com/ivcnotes/core/internal/field"
	"github.com/ivcnotes/core/pkg/common"
)

var (
	// ErrUnavailable covers transport-level failures: the relay could not
	// be reached, or it returned a 5xx status.
	ErrUnavailable = errors.New("service: relay unavailable")
	// ErrSchema covers a response body that doesn't parse as expected, or
	// a 4xx status the caller should treat as a protocol violation rather
	// than retry.
	ErrSchema = errors.New("service: unexpected response")
	// ErrNotFound maps the relay's 404 on get_user/verify_nullifier.
	ErrNotFound = errors.New("service: not found")
)

// User mirrors the relay's User record (spec.md §6).
type User struct {
	Username       string   `json:"username"`
	Address        string   `json:"address"`
	PubKey         string   `json:"pubkey"`
	Nonce          uint64   `json:"nonce"`
	Messages       []string `json:"messages"`
	Notes          []string `json:"notes"`
	HasDoubleSpent bool     `json:"has_double_spent"`
}

// NoteHistoryRecord is the relay's stored note-history envelope shape, the
// {data, address, sender} triple spec.md §6 lists for create_and_transfer
// and the {..., _id} variant get_note_history_for_user returns.
type NoteHistoryRecord struct {
	Data    []byte `json:"data"`
	Address string `json:"address"`
	Sender  string `json:"sender"`
	ID      string `json:"_id,omitempty"`
}

// Client calls the relay/name-server's HTTP/JSON endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client against baseURL, using httpClient if non-nil or
// http.DefaultClient otherwise.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

func addressHex(a field.Address) string {
	b := a.Bytes()
	return common.BytesToHex(b[:])
}

func pubKeyHex(pub eddsa.PublicKey) string {
	x, y := pub.Point()
	xb, yb := x.Bytes(), y.Bytes()
	return common.BytesToHex(common.ConcatBytes(xb[:], yb[:]))
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrSchema, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrSchema, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrSchema, err)
	}
	return nil
}

// CreateUser registers a new identity with the relay (POST /create_user).
func (c *Client) CreateUser(ctx context.Context, username string, address field.Address, pub eddsa.PublicKey) (User, error) {
	req := struct {
		Username       string   `json:"username"`
		Address        string   `json:"address"`
		PubKey         string   `json:"pubkey"`
		Nonce          uint64   `json:"nonce"`
		Messages       []string `json:"messages"`
		Notes          []string `json:"notes"`
		HasDoubleSpent bool     `json:"has_double_spent"`
	}{
		Username: username,
		Address:  addressHex(address),
		PubKey:   pubKeyHex(pub),
		Messages: []string{},
		Notes:    []string{},
	}
	var user User
	if err := c.do(ctx, http.MethodPost, "/create_user", req, &user); err != nil {
		return User{}, fmt.Errorf("service: create_user: %w", err)
	}
	return user, nil
}

// GetUserByUsername fetches a User by username (GET /get_user).
func (c *Client) GetUserByUsername(ctx context.Context, username string) (User, error) {
	req := struct {
		Identifier struct {
			Username string `json:"Username"`
		} `json:"identifier"`
	}{}
	req.Identifier.Username = username
	var user User
	if err := c.do(ctx, http.MethodGet, "/get_user", req, &user); err != nil {
		return User{}, fmt.Errorf("service: get_user: %w", err)
	}
	return user, nil
}

// GetUserByAddress fetches a User by address (GET /get_user).
func (c *Client) GetUserByAddress(ctx context.Context, address field.Address) (User, error) {
	req := struct {
		Identifier struct {
			Address string `json:"Address"`
		} `json:"identifier"`
	}{}
	req.Identifier.Address = addressHex(address)
	var user User
	if err := c.do(ctx, http.MethodGet, "/get_user", req, &user); err != nil {
		return User{}, fmt.Errorf("service: get_user: %w", err)
	}
	return user, nil
}

// CreateAndTransferNoteHistory posts an encrypted envelope for delivery to
// recipientUsername (POST /create_and_transfer_note_history).
func (c *Client) CreateAndTransferNoteHistory(ctx context.Context, ownerUsername, recipientUsername string, record NoteHistoryRecord, message string) error {
	req := struct {
		OwnerUsername     string            `json:"owner_username"`
		RecipientUsername string            `json:"recipient_username"`
		NoteHistory       NoteHistoryRecord `json:"note_history"`
		Message           string            `json:"message"`
	}{
		OwnerUsername:     ownerUsername,
		RecipientUsername: recipientUsername,
		NoteHistory:       record,
		Message:           message,
	}
	if err := c.do(ctx, http.MethodPost, "/create_and_transfer_note_history", req, nil); err != nil {
		return fmt.Errorf("service: create_and_transfer_note_history: %w", err)
	}
	return nil
}

// GetNoteHistoryForUser fetches every pending envelope relayed to username
// (GET /get_note_history_for_user).
func (c *Client) GetNoteHistoryForUser(ctx context.Context, username string) ([]NoteHistoryRecord, error) {
	req := struct {
		Username string `json:"username"`
	}{Username: username}
	var records []NoteHistoryRecord
	if err := c.do(ctx, http.MethodGet, "/get_note_history_for_user", req, &records); err != nil {
		return nil, fmt.Errorf("service: get_note_history_for_user: %w", err)
	}
	return records, nil
}

// NullifierStatus is the {status, nullifier} response shape
// store_nullifier/verify_nullifier share.
type NullifierStatus struct {
	Status    string `json:"status"`
	Nullifier string `json:"nullifier"`
}

// StoreNullifier registers a spent note's nullifier with the relay
// (POST /store_nullifier).
func (c *Client) StoreNullifier(ctx context.Context, nullifier field.Nullifier, note []byte, step uint32, owner field.Address, state field.StateHash) (NullifierStatus, error) {
	req := struct {
		Nullifier string `json:"nullifier"`
		Note      []byte `json:"note"`
		Step      uint32 `json:"step"`
		Owner     string `json:"owner"`
		State     string `json:"state"`
	}{
		Nullifier: addressHex(nullifier),
		Note:      note,
		Step:      step,
		Owner:     addressHex(owner),
		State:     addressHex(state),
	}
	var status NullifierStatus
	if err := c.do(ctx, http.MethodPost, "/store_nullifier", req, &status); err != nil {
		return NullifierStatus{}, fmt.Errorf("service: store_nullifier: %w", err)
	}
	return status, nil
}

// VerifyNullifier checks whether nullifier is already registered for state
// (GET /verify_nullifier). ErrNotFound means it is not registered — the
// double-spend check is "has not been seen", not an error condition.
func (c *Client) VerifyNullifier(ctx context.Context, nullifier field.Nullifier, state field.StateHash) (NullifierStatus, error) {
	req := struct {
		Nullifier string `json:"nullifier"`
		State     string `json:"state"`
	}{
		Nullifier: addressHex(nullifier),
		State:     addressHex(state),
	}
	var status NullifierStatus
	if err := c.do(ctx, http.MethodGet, "/verify_nullifier", req, &status); err != nil {
		return NullifierStatus{}, err
	}
	return status, nil
}
