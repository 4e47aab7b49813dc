package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"parkly/pkg/middleware"
	"parkly/pkg/model"
)

// ParkingClient talks to the parking API on behalf of one session.
type ParkingClient struct {
	httpClient *HttpClient
	sessionID  string
}

func NewParkingClient(baseURL string) *ParkingClient {
	return &ParkingClient{httpClient: NewHttpClient(baseURL)}
}

func (c *ParkingClient) HTTP() *HttpClient {
	return c.httpClient
}

func (c *ParkingClient) SessionID() string {
	return c.sessionID
}

// StartSession opens a session and binds it to every following call.
func (c *ParkingClient) StartSession(ctx context.Context) (*model.Session, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/sessions", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("start session: status %d, code %s", resp.StatusCode, GetErrorCode(resp))
	}

	var sess model.Session
	if err := resp.DecodeData(&sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	c.UseSession(sess.ID)
	return &sess, nil
}

func (c *ParkingClient) UseSession(id string) {
	c.sessionID = id
	c.httpClient.SetHeader(middleware.SessionHeader, id)
}

func (c *ParkingClient) EndSession(ctx context.Context) (*Response, error) {
	return c.httpClient.DELETE(ctx, "/api/v1/sessions/"+url.PathEscape(c.sessionID))
}

func (c *ParkingClient) Locations(ctx context.Context) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/locations")
}

func (c *ParkingClient) Location(ctx context.Context, name string) (*Response, error) {
	return c.httpClient.GET(ctx, locationPath(name))
}

func (c *ParkingClient) Counts(ctx context.Context, name string) (*Response, error) {
	return c.httpClient.GET(ctx, locationPath(name)+"/counts")
}

func (c *ParkingClient) Suggestion(ctx context.Context, name string) (*Response, error) {
	return c.httpClient.GET(ctx, locationPath(name)+"/suggestion")
}

func (c *ParkingClient) Slots(ctx context.Context, name string) (*Response, error) {
	return c.httpClient.GET(ctx, locationPath(name)+"/slots")
}

func (c *ParkingClient) Slot(ctx context.Context, name string, index int) (*Response, error) {
	return c.httpClient.GET(ctx, slotPath(name, index))
}

func (c *ParkingClient) Bookings(ctx context.Context, name string) (*Response, error) {
	return c.httpClient.GET(ctx, locationPath(name)+"/bookings")
}

func (c *ParkingClient) Summary(ctx context.Context) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/summary")
}

// Book sends the booking form. A non-empty idempotencyKey makes retries safe.
func (c *ParkingClient) Book(ctx context.Context, name string, index int, req model.BookingRequest, idempotencyKey string) (*Response, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{middleware.DefaultIdempotencyHeader: idempotencyKey}
	}
	return c.httpClient.POSTWithHeaders(ctx, slotPath(name, index)+"/booking", req, headers)
}

func (c *ParkingClient) Override(ctx context.Context, token, name string, index int, req model.BookingRequest) (*Response, error) {
	headers := map[string]string{"Authorization": "Bearer " + token}
	path := fmt.Sprintf("/api/v1/admin/locations/%s/slots/%d/booking", url.PathEscape(name), index)
	return c.httpClient.PUTWithHeaders(ctx, path, req, headers)
}

func locationPath(name string) string {
	return "/api/v1/locations/" + url.PathEscape(name)
}

func slotPath(name string, index int) string {
	return fmt.Sprintf("%s/slots/%d", locationPath(name), index)
}
