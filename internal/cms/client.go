package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harunnryd/polaris/internal/config"
	polarisErrors "github.com/harunnryd/polaris/internal/errors"
	"github.com/harunnryd/polaris/internal/logger"
)

const (
	serviceName     = "contentstack"
	apiVersionPath  = "/v3"
	maxResponseSize = 4 << 20
)

// Client talks to the Contentstack content management API. Only the read and
// write operations needed by the assistant are exposed; nothing here deletes
// or publishes content.
type Client struct {
	HTTPClient      *http.Client
	BaseURL         string
	Region          string
	APIKey          string
	ManagementToken string
}

func New(cfg config.CMSConfig) (*Client, error) {
	timeout, err := config.DurationOrDefault(cfg.RequestTimeout, config.DefaultCMSRequestTimeout)
	if err != nil {
		return nil, polarisErrors.Wrap(err, "cms.request_timeout")
	}

	return &Client{
		HTTPClient:      &http.Client{Timeout: timeout},
		BaseURL:         strings.TrimSpace(cfg.BaseURL),
		Region:          cfg.Region,
		APIKey:          cfg.APIKey,
		ManagementToken: cfg.ManagementToken,
	}, nil
}

// EntriesQuery narrows an entries listing.
type EntriesQuery struct {
	Locale string
	Limit  int
}

func (c *Client) ContentTypes(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, nil, nil, nil)
}

func (c *Client) ContentType(ctx context.Context, contentTypeUID string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, []string{contentTypeUID}, nil, nil)
}

func (c *Client) Entries(ctx context.Context, contentTypeUID string, q EntriesQuery) (json.RawMessage, error) {
	query := url.Values{}
	setLocale(query, q.Locale)
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	return c.do(ctx, http.MethodGet, []string{contentTypeUID, "entries"}, query, nil)
}

func (c *Client) Entry(ctx context.Context, contentTypeUID, entryUID, locale string) (json.RawMessage, error) {
	query := url.Values{}
	setLocale(query, locale)
	return c.do(ctx, http.MethodGet, []string{contentTypeUID, "entries", entryUID}, query, nil)
}

func (c *Client) CreateEntry(ctx context.Context, contentTypeUID string, entry json.RawMessage, locale string) (json.RawMessage, error) {
	query := url.Values{}
	setLocale(query, locale)
	return c.do(ctx, http.MethodPost, []string{contentTypeUID, "entries"}, query, entryBody(entry))
}

func (c *Client) UpdateEntry(ctx context.Context, contentTypeUID, entryUID string, entry json.RawMessage, locale string) (json.RawMessage, error) {
	query := url.Values{}
	setLocale(query, locale)
	return c.do(ctx, http.MethodPut, []string{contentTypeUID, "entries", entryUID}, query, entryBody(entry))
}

func (c *Client) do(ctx context.Context, method string, segments []string, query url.Values, body interface{}) (json.RawMessage, error) {
	path, err := contentTypesPath(segments...)
	if err != nil {
		return nil, polarisErrors.Wrap(err, "cms request")
	}
	endpoint, err := c.endpoint(path, query)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode cms request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("api_key", c.APIKey)
	req.Header.Set("authorization", c.ManagementToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		timeout, err := config.DurationOrDefault("", config.DefaultCMSRequestTimeout)
		if err != nil {
			return nil, polarisErrors.Wrap(err, "cms.request_timeout")
		}
		client = &http.Client{Timeout: timeout}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, polarisErrors.Wrap(err, "cms request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, polarisErrors.Wrap(err, "read cms response")
	}

	slog.Debug("CMS request completed", append(logger.Attrs(ctx), "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))...)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, polarisErrors.Upstream(serviceName, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("cms returned invalid JSON (%d bytes)", len(raw))
	}
	return json.RawMessage(raw), nil
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	base := c.BaseURL
	if base == "" {
		resolved, err := BaseURL(c.Region)
		if err != nil {
			return "", err
		}
		base = resolved
	}

	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", polarisErrors.Configuration(fmt.Sprintf("Invalid CMS base URL: %s.", base))
	}

	rawPath := strings.TrimSuffix(parsed.EscapedPath(), "/") + path
	unescaped, err := url.PathUnescape(rawPath)
	if err != nil {
		return "", fmt.Errorf("build cms path: %w", err)
	}
	parsed.Path = unescaped
	parsed.RawPath = rawPath
	if len(query) > 0 {
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

// contentTypesPath joins escaped segments under /v3/content_types. Dot
// segments and blanks are rejected so a UID can never leave the resource it
// names.
func contentTypesPath(segments ...string) (string, error) {
	var b strings.Builder
	b.WriteString(apiVersionPath)
	b.WriteString("/content_types")
	for _, s := range segments {
		if s == "" || s == "." || s == ".." {
			return "", fmt.Errorf("invalid cms path segment %q", s)
		}
		b.WriteString("/")
		b.WriteString(url.PathEscape(s))
	}
	return b.String(), nil
}

func setLocale(query url.Values, locale string) {
	if locale = strings.TrimSpace(locale); locale != "" {
		query.Set("locale", locale)
	}
}

func entryBody(entry json.RawMessage) map[string]json.RawMessage {
	return map[string]json.RawMessage{"entry": entry}
}
