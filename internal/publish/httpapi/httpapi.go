// Package httpapi is the small JSON-over-HTTP client shared by the Graph API
// and LinkedIn publishers. Failures come back as *publish.Error with the
// response status and the platform's own error message.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/blacktop/postkit/internal/logutil"
	"github.com/blacktop/postkit/internal/publish"
	"github.com/hashicorp/go-cleanhttp"
)

// DefaultTimeout bounds every request made through NewHTTPClient.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is read for the message.
const maxErrorBody = 64 << 10

// NewHTTPClient returns a pooled client with the default timeout.
func NewHTTPClient() *http.Client {
	c := cleanhttp.DefaultPooledClient()
	c.Timeout = DefaultTimeout
	return c
}

// Client calls one platform's REST API.
type Client struct {
	platform publish.Platform
	baseURL  string
	http     *http.Client
}

// New builds a client rooted at baseURL. A nil httpClient uses NewHTTPClient.
func New(platform publish.Platform, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{
		platform: platform,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
	}
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Bearer string
	Header map[string]string
}

// Do sends req and returns the raw JSON body of a 2xx response.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", c.platform, err)
		}
		body = bytes.NewReader(buf)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.platform, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	logutil.Debugf("%s %s %s", c.platform, method, req.Path)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, publish.APIError(c.platform, 0, fmt.Sprintf("%s request failed: %v", c.platform, err), true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := ErrorMessage(data)
		if msg == "" {
			msg = resp.Status
		}
		return nil, publish.APIError(c.platform, resp.StatusCode, msg, publish.RetryableStatus(resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, publish.APIError(c.platform, resp.StatusCode, fmt.Sprintf("read %s response: %v", c.platform, err), true, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	return json.RawMessage(data), nil
}

// DoJSON sends req and decodes the response into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) (json.RawMessage, error) {
	raw, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, publish.APIError(c.platform, 0, fmt.Sprintf("decode %s response: %v", c.platform, err), false, err)
		}
	}
	return raw, nil
}

// ErrorMessage pulls a human message out of a Graph API
// ({"error":{"message":...}}) or LinkedIn ({"message":...}) error body.
func ErrorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return strings.TrimSpace(string(body))
	}
	switch e := parsed.Error.(type) {
	case map[string]any:
		if m, ok := e["message"].(string); ok && m != "" {
			return m
		}
	case string:
		if e != "" {
			return e
		}
	}
	return parsed.Message
}

// FetchMedia downloads an image referenced by URL so it can be uploaded to
// networks that do not accept remote URLs.
func FetchMedia(ctx context.Context, httpClient *http.Client, platform publish.Platform, imageURL string) ([]byte, string, error) {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", publish.Validation(platform, fmt.Sprintf("invalid image URL %q", imageURL))
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", publish.APIError(platform, 0, fmt.Sprintf("fetch image: %v", err), true, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", publish.APIError(platform, resp.StatusCode, fmt.Sprintf("fetch image: %s", resp.Status), publish.RetryableStatus(resp.StatusCode), nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", publish.APIError(platform, 0, fmt.Sprintf("read image: %v", err), true, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", publish.Validation(platform, fmt.Sprintf("unsupported image type %q for %q", contentType, imageURL))
	}
	return data, contentType, nil
}
