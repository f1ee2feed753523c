package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultBaseURL = "http://localhost:8000"

// Client talks to the Workout Planner backend. It is safe for
// concurrent use; all state is set at construction time.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a backend client. It reads the base URL from the
// FITTRACK_API_URL environment variable by default; options override.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   os.Getenv("FITTRACK_API_URL"),
		timeout:   30 * time.Second,
		userAgent: "fittrack-cli",
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// Login exchanges email and password for a bearer token and the user's
// profile in one round trip. A 401 maps to ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns a bearer token and profile,
// so a successful sign-up is also a login.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser fetches the profile for the given bearer token.
// A 401 means the token is invalid or expired.
func (c *Client) CurrentUser(ctx context.Context, token string) (*UserProfile, error) {
	var resp UserProfile
	if err := c.do(ctx, http.MethodGet, "/users/me", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogWorkout records a workout entry under today's daily log.
func (c *Client) LogWorkout(ctx context.Context, token string, entry WorkoutEntry) (*WorkoutLogResult, error) {
	var resp WorkoutLogResult
	if err := c.do(ctx, http.MethodPost, "/workout/", token, entry, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DailyHistory fetches workouts and nutrition for one date (YYYY-MM-DD).
// Days with no data come back as empty, not as an error.
func (c *Client) DailyHistory(ctx context.Context, token, date string) (*DailyHistory, error) {
	var resp DailyHistory
	if err := c.do(ctx, http.MethodGet, "/data/"+url.PathEscape(date), token, nil, &resp); err != nil {
		return nil, err
	}
	resp.Date = date
	return &resp, nil
}

// HistoryRange fetches daily logs for an inclusive date range.
func (c *Client) HistoryRange(ctx context.Context, token, startDate, endDate string) ([]DailyHistory, error) {
	q := url.Values{}
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	var resp []DailyHistory
	if err := c.do(ctx, http.MethodGet, "/data/?"+q.Encode(), token, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ScanFood uploads a meal photo and returns the recognition result.
// The recognition pipeline itself is opaque to the client.
func (c *Client) ScanFood(ctx context.Context, token, filename string, image io.Reader) (*FoodPrediction, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create multipart field: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.baseURL, "/")+"/scan/", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.setCommonHeaders(httpReq, token)

	var resp FoodPrediction
	if err := c.send(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks backend liveness. It needs no credential.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", "", nil, nil)
}

// do performs a JSON request against the backend. token may be empty
// for unauthenticated endpoints. result may be nil to discard the body.
func (c *Client) do(ctx context.Context, method, path, token string, body, result any) error {
	u := strings.TrimRight(c.baseURL, "/") + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	c.setCommonHeaders(httpReq, token)

	return c.send(httpReq, result)
}

// send executes the prepared request, classifies failures, and decodes
// the response into result when non-nil.
func (c *Client) send(req *http.Request, result any) error {
	reqID := newRequestID()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		// The context may have expired even when the transport reports
		// a different error first.
		if ctxErr := req.Context().Err(); ctxErr != nil {
			err = ctxErr
		}
		c.logger.Debug("request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"request_id", reqID,
			"error", err,
		)
		return classifyTransport(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return classifyTransport(err)
	}

	c.logger.Debug("request completed",
		"method", req.Method,
		"path", req.URL.Path,
		"status", httpResp.StatusCode,
		"request_id", reqID,
		"duration", time.Since(start),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return classifyStatus(httpResp.StatusCode, extractDetail(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &UnexpectedStatusError{
				Status:  httpResp.StatusCode,
				Message: fmt.Sprintf("malformed response body: %v", err),
			}
		}
	}

	return nil
}

// setCommonHeaders attaches the bearer token and user agent.
func (c *Client) setCommonHeaders(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// extractDetail pulls the server's error message out of a failure body.
// The backend wraps messages as {"detail": "..."}; anything else is
// returned as-is, truncated.
func extractDetail(body []byte) string {
	var wrapper struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Detail != "" {
		return wrapper.Detail
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
