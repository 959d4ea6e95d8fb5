package clerkaccounts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var endpoint = "/v1/users"

type service struct {
	baseURL string
	key     string
	domain  string
	client  *http.Client
}

var _ core.AccountService = (*service)(nil)

func NewService(conf *core.Config) core.AccountService {
	return &service{
		baseURL: conf.Accounts.BaseURL,
		key:     conf.Accounts.APIKey,
		domain:  conf.Accounts.Domain,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateAccount provisions a sign-in identity at the provider. The username
// doubles as the email local part when no email is given; school and role
// travel in the unsafe metadata so the front end can route on them.
func (svc *service) CreateAccount(ctx context.Context, acct core.Account) error {
	email := acct.Email
	if email == "" {
		email = acct.Username
	}
	if svc.domain != "" {
		email = fmt.Sprintf("%s@%s", email, svc.domain)
	}

	payload := map[string]interface{}{
		"external_id":    acct.ExternalID,
		"first_name":     acct.Name,
		"username":       acct.Username,
		"email_address":  []string{email},
		"password":       acct.Password,
		"skip_password_checks": true,
		"unsafe_metadata": map[string]string{
			"role":   acct.Role,
			"school": acct.School,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding account")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+svc.key)
	req.Header.Set("Content-Type", "application/json")

	return svc.do(req)
}

// DeleteAccount removes the identity the given external ID maps to. Missing
// identities are treated as already deleted.
func (svc *service) DeleteAccount(ctx context.Context, externalID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, svc.baseURL+endpoint+"/"+externalID, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+svc.key)

	if err = svc.do(req); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (svc *service) do(req *http.Request) error {
	res, err := svc.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling account provider")
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &apiError{status: res.StatusCode, body: string(b)}
	}
	return nil
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("account provider returned %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound
}
