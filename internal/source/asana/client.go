package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/taskboard/internal/source"
)

// Client is a thin HTTP client for the Asana REST API v1.0.
// It handles Bearer token authentication, the {"data": ...} envelope, and
// automatic retry with exponential backoff on HTTP 429.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	logger     *slog.Logger
}

// NewClient creates a new Asana HTTP client. The baseURL is the API root
// (e.g., https://app.asana.com/api/1.0). The token is a Personal Access
// Token used for Bearer authentication.
func NewClient(baseURL, token string, timeout time.Duration, maxRetries int, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Get performs an HTTP GET request and unwraps the data envelope into result.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post sends body wrapped in a data envelope and unwraps the response.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Put sends body wrapped in a data envelope and unwraps the response.
func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

// Delete performs an HTTP DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do marshals a JSON request and delegates to send.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(envelope{Data: body})
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}
	contentType := ""
	if payload != nil {
		contentType = "application/json"
	}
	return c.send(ctx, method, path, payload, contentType, result)
}

// Upload posts a multipart form with a single file part plus plain fields.
func (c *Client) Upload(
	ctx context.Context,
	path string,
	fields map[string]string,
	fileName string,
	fileType string,
	data []byte,
	result interface{},
) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("writing form field %s: %w", k, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	h.Set("Content-Type", fileType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("writing file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing multipart body: %w", err)
	}

	return c.send(ctx, http.MethodPost, path, buf.Bytes(), w.FormDataContentType(), result)
}

// send builds the request, handles auth, rate limiting with exponential
// backoff, and decodes the data envelope.
func (c *Client) send(
	ctx context.Context,
	method string,
	path string,
	payload []byte,
	contentType string,
	result interface{},
) error {
	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// A fresh reader per attempt since the previous one was consumed.
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)
			c.logger.Warn("rate limited",
				"method", method, "path", path,
				"attempt", attempt, "wait", waitDuration)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return &source.AuthError{
				Message: fmt.Sprintf("authentication failed (401): check your Personal Access Token for %s", c.baseURL),
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &source.APIError{
				StatusCode: resp.StatusCode,
				Method:     method,
				Path:       path,
			}
			var errResp ErrorResponse
			if json.Unmarshal(respBody, &errResp) == nil && len(errResp.Errors) > 0 {
				for _, e := range errResp.Errors {
					apiErr.Messages = append(apiErr.Messages, e.Message)
				}
			} else if len(respBody) > 0 {
				apiErr.Messages = []string{string(respBody)}
			}
			return apiErr
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		env := envelope{Data: result}
		if err := json.Unmarshal(respBody, &env); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}

		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
