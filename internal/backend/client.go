// Package backend is the HTTP client for the booking backend. All
// availability truth and booking persistence live server-side; this
// client only consumes them.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"domebooking/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrConflict maps a createBooking rejection after a stale read:
	// another customer took the slot between fetch and submit.
	ErrConflict = errors.New("slot is no longer available")
	ErrNotFound = errors.New("resource not found")
)

// APIError carries a backend-supplied message for non-2xx responses.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// Client is an HTTP client for the booking backend with optional Redis
// caching of GET endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	redis           *redis.Client
	facilityTTL     time.Duration
	availabilityTTL time.Duration
}

// New constructs a client with baseURL and API key.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures Redis caching for GET endpoints. Facility
// configs are near-static; availability snapshots get a short TTL so a
// manual refresh stays meaningful.
func (c *Client) UseRedisCache(redisClient *redis.Client, facilityTTL, availabilityTTL time.Duration) {
	c.redis = redisClient
	c.facilityTTL = facilityTTL
	c.availabilityTTL = availabilityTTL
}

// GetFacility loads one tenant's config.
func (c *Client) GetFacility(ctx context.Context, slug string) (*models.FacilityConfig, error) {
	endpoint := fmt.Sprintf("%s/api/v1/facility/%s", c.baseURL, url.PathEscape(slug))
	cacheKey := fmt.Sprintf("facility:%s", slug)

	var facility models.FacilityConfig
	if c.readCache(ctx, cacheKey, &facility) {
		return &facility, nil
	}

	if err := c.doGet(ctx, endpoint, &facility); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, facility, c.facilityTTL)
	return &facility, nil
}

// GetAvailability fetches the authoritative per-day snapshot for a
// facility and date (YYYY-MM-DD).
func (c *Client) GetAvailability(ctx context.Context, slug, date string) (models.AvailabilityGrid, error) {
	endpoint := fmt.Sprintf("%s/api/v1/availability/%s?date=%s", c.baseURL, url.PathEscape(slug), url.QueryEscape(date))
	cacheKey := fmt.Sprintf("availability:%s:%s", slug, date)

	var wrap struct {
		Grid models.AvailabilityGrid `json:"grid"`
	}
	if c.readCache(ctx, cacheKey, &wrap) {
		return wrap.Grid, nil
	}

	if err := c.doGet(ctx, endpoint, &wrap); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, wrap, c.availabilityTTL)
	return wrap.Grid, nil
}

// InvalidateAvailability drops the cached grid so the next fetch hits the
// backend. Called on cancellation and refresh events.
func (c *Client) InvalidateAvailability(ctx context.Context, slug, date string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, fmt.Sprintf("availability:%s:%s", slug, date)).Err()
}

// ApplyDiscount validates a code against the current rental amount and
// returns the concrete discount money amount.
func (c *Client) ApplyDiscount(ctx context.Context, slug, code string, baseAmount float64) (*models.DiscountResult, error) {
	endpoint := fmt.Sprintf("%s/api/v1/discount/%s/apply", c.baseURL, url.PathEscape(slug))
	body := map[string]any{"code": code, "baseAmount": baseAmount}

	var result models.DiscountResult
	if err := c.doPost(ctx, endpoint, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateBooking submits the assembled payload. A 409 means the slot was
// taken after a stale read and maps to ErrConflict.
func (c *Client) CreateBooking(ctx context.Context, slug string, payload models.BookingPayload) (*models.BookingResult, error) {
	endpoint := fmt.Sprintf("%s/api/v1/booking/%s", c.baseURL, url.PathEscape(slug))

	var result models.BookingResult
	if err := c.doPost(ctx, endpoint, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreatePaymentIntent requests an intent sized in minor units.
func (c *Client) CreatePaymentIntent(ctx context.Context, amountMinorUnits int64, currency string) (*models.PaymentIntent, error) {
	endpoint := fmt.Sprintf("%s/api/v1/payment/intent", c.baseURL)
	body := map[string]any{"amount": amountMinorUnits, "currency": currency}

	var intent models.PaymentIntent
	if err := c.doPost(ctx, endpoint, body, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// ConfirmPayment reports a successful charge. The backend sends the
// receipt email as a side effect.
func (c *Client) ConfirmPayment(ctx context.Context, bookingID, paymentIntentID string) error {
	endpoint := fmt.Sprintf("%s/api/v1/payment/confirm", c.baseURL)
	body := map[string]any{"bookingId": bookingID, "paymentIntentId": paymentIntentID}
	return c.doPost(ctx, endpoint, body, nil)
}

// GetCancellationDetails returns the booking plus the server-enforced
// 24-hour cancellation verdict.
func (c *Client) GetCancellationDetails(ctx context.Context, bookingID string) (*models.CancellationDetails, error) {
	endpoint := fmt.Sprintf("%s/api/v1/cancellation/%s", c.baseURL, url.PathEscape(bookingID))

	var details models.CancellationDetails
	if err := c.doGet(ctx, endpoint, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID string) error {
	endpoint := fmt.Sprintf("%s/api/v1/cancellation/%s", c.baseURL, url.PathEscape(bookingID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, nil)
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any, ttl time.Duration) {
	if c.redis == nil || ttl <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, ttl).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, endpoint string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	message := body.Message
	if message == "" {
		message = body.Error
	}

	switch resp.StatusCode {
	case http.StatusConflict:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrConflict, message)
		}
		return ErrConflict
	case http.StatusNotFound:
		return ErrNotFound
	}

	return &APIError{Status: resp.StatusCode, Message: message}
}
