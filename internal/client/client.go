package client

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
	"time"

	"bookingwidget/internal/domain"
	"bookingwidget/internal/models"
)

var (
	ErrSlotTaken  = errors.New("time slot already booked")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)

// FieldError is one field rejected by the server.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the booking API.
type APIError struct {
	StatusCode int
	Message    string
	Details    []FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrSlotTaken:
		return e.StatusCode == http.StatusConflict
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrValidation:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

// Client calls the booking HTTP API. baseURL includes the /api prefix.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	cache    domain.SlotCache
	cacheTTL time.Duration
}

// NewClient constructs a client. A zero timeout means 10 seconds.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseSlotCache configures optional caching of booked slots per date.
// Only this client's own creates and deletes invalidate the cache, so a
// booking made elsewhere shows up after at most ttl. Until then that slot is
// still offered; creating it fails with ErrSlotTaken and drops the date
// from the cache.
func (c *Client) UseSlotCache(cache domain.SlotCache, ttl time.Duration) {
	c.cache = cache
	c.cacheTTL = ttl
}

type createResponse struct {
	Message string          `json:"message"`
	Booking *models.Booking `json:"booking"`
}

// CreateBooking submits a booking and returns the stored record.
func (c *Client) CreateBooking(ctx context.Context, b models.Booking) (*models.Booking, error) {
	body := map[string]string{
		"fullName":      b.FullName,
		"contactNumber": b.ContactNumber,
		"email":         b.Email,
		"service":       b.Service,
		"date":          b.Date,
		"time":          b.Time,
	}

	var resp createResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/bookings", body, &resp); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			// cached list of this date missed someone else's booking
			c.invalidate(ctx, b.Date)
		}
		return nil, err
	}
	if resp.Booking == nil {
		return nil, errors.New("create booking: empty response")
	}
	c.invalidate(ctx, resp.Booking.Date)
	return resp.Booking, nil
}

func (c *Client) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	var out []*models.Booking
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/bookings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	var out models.Booking
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/bookings/%d", c.baseURL, id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckAvailability asks whether one (date, time) slot is free.
func (c *Client) CheckAvailability(ctx context.Context, date, slot string) (bool, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("time", slot)

	var out struct {
		Available bool `json:"available"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/bookings/availability?"+q.Encode(), nil, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// BookedSlots returns the booked times on date, from cache when fresh.
func (c *Client) BookedSlots(ctx context.Context, date string) ([]string, error) {
	if c.cacheEnabled() {
		if slots, found, err := c.cache.GetBookedSlots(ctx, date); err == nil && found {
			return slots, nil
		}
	}

	var out struct {
		Date   string   `json:"date"`
		Booked []string `json:"booked"`
	}
	endpoint := c.baseURL + "/bookings/slots?" + url.Values{"date": {date}}.Encode()
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	if out.Booked == nil {
		out.Booked = []string{}
	}

	if c.cacheEnabled() {
		_ = c.cache.SetBookedSlots(ctx, date, out.Booked, c.cacheTTL)
	}
	return out.Booked, nil
}

// DeleteBooking removes a booking by id.
func (c *Client) DeleteBooking(ctx context.Context, id int64) error {
	var date string
	if c.cacheEnabled() {
		if b, err := c.GetBooking(ctx, id); err == nil {
			date = b.Date
		}
	}

	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("%s/bookings/%d", c.baseURL, id), nil, nil); err != nil {
		return err
	}
	c.invalidate(ctx, date)
	return nil
}

// Services returns the service and time-slot catalog of the server.
func (c *Client) Services(ctx context.Context) (models.Catalog, error) {
	var out models.Catalog
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/services", nil, &out); err != nil {
		return models.Catalog{}, err
	}
	return out, nil
}

// Export streams the xlsx export into w.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/bookings/export", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) cacheEnabled() bool {
	return c.cache != nil && c.cacheTTL > 0
}

func (c *Client) invalidate(ctx context.Context, date string) {
	if !c.cacheEnabled() || date == "" {
		return
	}
	_ = c.cache.Invalidate(ctx, date)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.addHeaders(req)
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error   string       `json:"error"`
		Details []FieldError `json:"details"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		apiErr.Message = body.Error
		apiErr.Details = body.Details
	}
	return apiErr
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
}
