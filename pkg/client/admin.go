package client

import (
	"context"
	"fmt"
	"net/http"

	"parkly/pkg/model"
)

type AdminClient struct {
	httpClient *HttpClient
}

func NewAdminClient(baseURL string) *AdminClient {
	return &AdminClient{httpClient: NewHttpClient(baseURL)}
}

func (c *AdminClient) Register(ctx context.Context, reg model.AdminRegistration) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/admin/register", reg)
}

// Login returns the sealed bearer token for the given credentials.
func (c *AdminClient) Login(ctx context.Context, creds model.AdminCredentials) (*model.AdminToken, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/admin/login", creds)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login: status %d, code %s", resp.StatusCode, GetErrorCode(resp))
	}

	var token model.AdminToken
	if err := resp.DecodeData(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}
