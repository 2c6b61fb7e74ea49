package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"market-curves/internal/model"
)

const (
	DefaultWeatherURL  = "https://archive-api.open-meteo.com"
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
	defaultHTTPTimeout = 30 * time.Second
	sharedFetchTimeout = 2 * time.Minute
	weatherArchivePath = "/v1/archive"
	defaultWeatherZone = "auto"
	weatherDateLayout  = "2006-01-02"
)

// WeatherClient fetches daily weather history for a coordinate.
type WeatherClient struct {
	BaseURL     string
	Client      *http.Client
	MaxAttempts int
	RetryDelay  time.Duration

	group singleflight.Group
}

// NewWeatherClient creates a client with the default retry policy (3 attempts, 1s apart).
// If baseURL is empty, defaults to DefaultWeatherURL.
func NewWeatherClient(baseURL string) *WeatherClient {
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	return &WeatherClient{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		MaxAttempts: DefaultMaxAttempts,
		RetryDelay:  DefaultRetryDelay,
		Client: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

// WeatherError is a non-retryable error response from the weather API.
type WeatherError struct {
	StatusCode int
	Message    string
}

func (e *WeatherError) Error() string {
	return fmt.Sprintf("weather API returned status %d: %s", e.StatusCode, e.Message)
}

// FetchDaily queries daily fields for the request window.
//
// Transport failures, 429 and 5xx responses are retried up to MaxAttempts times with a
// fixed RetryDelay between attempts. Other failures are returned immediately. Identical
// requests in flight at the same time share one upstream call; that call does not stop
// when one waiting caller's ctx is cancelled, each caller just stops waiting.
//
// WARNING: If caching is enabled (ENABLE_WEATHER_CACHE=true), responses may be cached.
// Caching is ONLY for LOCAL DEVELOPMENT.
func (c *WeatherClient) FetchDaily(ctx context.Context, req model.WeatherRequest) (*model.WeatherResponse, error) {
	if err := validateWeatherRequest(req); err != nil {
		return nil, err
	}
	u, err := c.buildURL(req)
	if err != nil {
		return nil, err
	}

	cache := GetCache()
	if cached, found := cache.Get(u); found {
		log.Debugf("[Weather] Cache hit (lat=%.4f, lon=%.4f, start=%s, end=%s)",
			req.Latitude, req.Longitude, req.StartDate.Format(weatherDateLayout), req.EndDate.Format(weatherDateLayout))
		return cached, nil
	}

	ch := c.group.DoChan(u, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return c.fetchWithRetry(fetchCtx, u)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		log.Debugf("[Weather] Shared in-flight response for %s", u)
	}
	resp := res.Val.(*model.WeatherResponse)
	cache.Set(u, resp)
	return resp, nil
}

func (c *WeatherClient) fetchWithRetry(ctx context.Context, u string) (*model.WeatherResponse, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	delay := c.RetryDelay
	if delay < 0 {
		delay = 0
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)

	var result *model.WeatherResponse
	attempt := 0
	op := func() error {
		attempt++
		resp, err := c.fetchOnce(ctx, u)
		if err == nil {
			result = resp
			return nil
		}
		var transient *model.TransientFetchError
		if !errors.As(err, &transient) {
			return backoff.Permanent(err)
		}
		log.Warnf("[Weather] Attempt %d/%d failed: %v", attempt, attempts, err)
		return err
	}
	if err := backoff.Retry(op, policy); err != nil {
		var transient *model.TransientFetchError
		if errors.As(err, &transient) {
			return nil, fmt.Errorf("weather fetch failed after %d attempts: %w", attempt, err)
		}
		return nil, err
	}
	return result, nil
}

func (c *WeatherClient) fetchOnce(ctx context.Context, u string) (*model.WeatherResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.Client.Do(httpReq)
	duration := time.Since(startTime)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &model.TransientFetchError{Err: err}
	}
	defer resp.Body.Close()

	log.Debugf("[Weather] Response: %d (duration: %v)", resp.StatusCode, duration)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, &model.TransientFetchError{
			StatusCode: resp.StatusCode,
			Err:        errors.New(resp.Status),
		}
	default:
		var body struct {
			Reason string `json:"reason"`
		}
		msg := resp.Status
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Reason != "" {
			msg = body.Reason
		}
		return nil, &WeatherError{StatusCode: resp.StatusCode, Message: msg}
	}

	var result model.WeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	for field, vals := range result.Daily.Fields {
		if len(vals) != len(result.Daily.Time) {
			return nil, fmt.Errorf("field %s has %d values for %d days", field, len(vals), len(result.Daily.Time))
		}
	}
	log.Infof("[Weather] Received %d days, %d fields", len(result.Daily.Time), len(result.Daily.Fields))
	return &result, nil
}

func (c *WeatherClient) buildURL(req model.WeatherRequest) (string, error) {
	u, err := url.Parse(c.BaseURL + weatherArchivePath)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	tz := req.Timezone
	if tz == "" {
		tz = defaultWeatherZone
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(req.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(req.Longitude, 'f', -1, 64))
	q.Set("start_date", req.StartDate.Format(weatherDateLayout))
	q.Set("end_date", req.EndDate.Format(weatherDateLayout))
	q.Set("daily", strings.Join(req.Daily, ","))
	q.Set("timezone", tz)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func validateWeatherRequest(req model.WeatherRequest) error {
	if req.Latitude < -90 || req.Latitude > 90 {
		return fmt.Errorf("latitude must be within [-90, 90]")
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return fmt.Errorf("longitude must be within [-180, 180]")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return fmt.Errorf("start_date and end_date are required")
	}
	if req.StartDate.After(req.EndDate) {
		return fmt.Errorf("start_date must be before end_date")
	}
	if len(req.Daily) == 0 {
		return fmt.Errorf("at least one daily field is required")
	}
	return nil
}

// FetchDailyByString is a convenience method that parses date strings.
// startDate and endDate should be in "YYYY-MM-DD" format.
func (c *WeatherClient) FetchDailyByString(ctx context.Context, lat, lon float64, startDate, endDate string, daily []string, timezone string) (*model.WeatherResponse, error) {
	start, err := time.Parse(weatherDateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start_date format (expected YYYY-MM-DD): %w", err)
	}
	end, err := time.Parse(weatherDateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end_date format (expected YYYY-MM-DD): %w", err)
	}
	return c.FetchDaily(ctx, model.WeatherRequest{
		Latitude:  lat,
		Longitude: lon,
		StartDate: start,
		EndDate:   end,
		Daily:     daily,
		Timezone:  timezone,
	})
}
