package identity

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	ErrIdentityNotFound = stderrors.New("identity not found")
	ErrEmailExists      = stderrors.New("identity email already exists")
	// ErrIdentityReferenced means the provider refused deletion because some
	// record still points at the identity; the anonymization pipeline missed a
	// reference and must not cascade.
	ErrIdentityReferenced = stderrors.New("identity still referenced")
)

// CreateUserParams describes a new authentication identity. Banned identities
// can never log in; system users are always created banned.
type CreateUserParams struct {
	Email    string
	Banned   bool
	IsSystem bool
}

// AdminClient is the account-identity administration facade, decoupled from
// the profile row the application keeps for each user.
type AdminClient interface {
	CreateUser(ctx context.Context, params CreateUserParams) (uuid.UUID, error)
	GetUserByEmail(ctx context.Context, email string) (uuid.UUID, error)
	BanUser(ctx context.Context, userID uuid.UUID) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type httpAdminClient struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewHTTPAdminClient talks to the auth provider's admin REST API using the
// service-role key.
func NewHTTPAdminClient(baseURL, serviceKey string) AdminClient {
	return &httpAdminClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type adminUser struct {
	ID string `json:"id"`
}

type adminUserList struct {
	Users []adminUser `json:"users"`
}

func (c *httpAdminClient) CreateUser(ctx context.Context, params CreateUserParams) (uuid.UUID, error) {
	body := map[string]any{
		"email":         params.Email,
		"email_confirm": true,
	}
	if params.Banned {
		// Effectively permanent; the provider has no "forever" value.
		body["ban_duration"] = "876000h"
	}
	if params.IsSystem {
		body["user_metadata"] = map[string]any{"is_system": true}
	}

	resp, err := c.do(ctx, http.MethodPost, "/admin/users", body)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return uuid.Nil, ErrEmailExists
	default:
		return uuid.Nil, unexpectedStatus(resp)
	}

	var created adminUser
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to decode create user response")
	}
	id, err := uuid.Parse(created.ID)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "invalid user id in create user response")
	}
	return id, nil
}

func (c *httpAdminClient) GetUserByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	path := "/admin/users?email=" + url.QueryEscape(email)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return uuid.Nil, unexpectedStatus(resp)
	}

	var list adminUserList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to decode user list response")
	}
	if len(list.Users) == 0 {
		return uuid.Nil, ErrIdentityNotFound
	}
	id, err := uuid.Parse(list.Users[0].ID)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "invalid user id in user list response")
	}
	return id, nil
}

func (c *httpAdminClient) BanUser(ctx context.Context, userID uuid.UUID) error {
	body := map[string]any{"ban_duration": "876000h"}
	resp, err := c.do(ctx, http.MethodPut, "/admin/users/"+userID.String(), body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrIdentityNotFound
	default:
		return unexpectedStatus(resp)
	}
}

func (c *httpAdminClient) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	resp, err := c.do(ctx, http.MethodDelete, "/admin/users/"+userID.String(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrIdentityNotFound
	case http.StatusConflict:
		return ErrIdentityReferenced
	default:
		return unexpectedStatus(resp)
	}
}

func (c *httpAdminClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build admin request")
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "admin request failed")
	}
	return resp, nil
}

func unexpectedStatus(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("admin api: unexpected status %d: %s", resp.StatusCode, payload)
}
