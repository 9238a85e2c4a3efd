package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/mo"
)

// Method is the HTTP verb used to query the provider.
type Method string

const (
	MethodGet  Method = http.MethodGet
	MethodPost Method = http.MethodPost
)

const (
	// HeaderAPIKey and HeaderAPIHost follow the API-gateway scheme most
	// lookup providers are published behind.
	HeaderAPIKey  = "X-RapidAPI-Key"
	HeaderAPIHost = "X-RapidAPI-Host"

	formContentType = "application/x-www-form-urlencoded"
	urlParam        = "url"
)

// DefaultProxyEndpoint relays a target URL passed in its url query parameter.
const DefaultProxyEndpoint = "https://api.allorigins.win/raw"

// ParseMethod accepts GET or POST in any letter case.
func ParseMethod(raw string) (Method, error) {
	switch Method(strings.ToUpper(strings.TrimSpace(raw))) {
	case MethodGet:
		return MethodGet, nil
	case MethodPost:
		return MethodPost, nil
	default:
		return "", fmt.Errorf("unsupported provider method %q", raw)
	}
}

// ProviderConfig describes the single provider endpoint used for a resolution.
type ProviderConfig struct {
	APIKey        string `json:"apiKey"`
	APIHost       string `json:"apiHost"`
	BaseURL       string `json:"baseUrl"`
	Method        Method `json:"method"`
	UseProxy      bool   `json:"useProxy"`
	ProxyEndpoint string `json:"proxyEndpoint,omitempty"`
}

// Validate reports whether the configuration is complete enough to build a request.
func (c ProviderConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "api key")
	}
	if strings.TrimSpace(c.APIHost) == "" {
		missing = append(missing, "api host")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		missing = append(missing, "base url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrProviderNotConfigured, strings.Join(missing, ", "))
	}

	if _, err := ParseMethod(string(c.Method)); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderNotConfigured, err)
	}

	if !isAbsoluteHTTP(c.BaseURL) {
		return fmt.Errorf("%w: base url %q is not an absolute http(s) url", ErrProviderNotConfigured, c.BaseURL)
	}
	if c.ProxyEndpoint != "" && !isAbsoluteHTTP(c.ProxyEndpoint) {
		return fmt.Errorf("%w: proxy endpoint %q is not an absolute http(s) url", ErrProviderNotConfigured, c.ProxyEndpoint)
	}

	return nil
}

// Masked returns a copy safe to log or display.
func (c ProviderConfig) Masked() ProviderConfig {
	masked := c
	switch n := len(c.APIKey); {
	case n == 0:
	case n <= 4:
		masked.APIKey = strings.Repeat("*", n)
	default:
		masked.APIKey = strings.Repeat("*", n-4) + c.APIKey[n-4:]
	}
	return masked
}

func (c ProviderConfig) proxyEndpoint() string {
	if strings.TrimSpace(c.ProxyEndpoint) == "" {
		return DefaultProxyEndpoint
	}
	return c.ProxyEndpoint
}

// OutboundRequest fully describes one call to the provider.
type OutboundRequest struct {
	URL     string            `json:"url"`
	Method  Method            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    mo.Option[string] `json:"body"`
}

// HTTPRequest converts the description into a request bound to ctx.
func (r OutboundRequest) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if payload, ok := r.Body.Get(); ok {
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, string(r.Method), r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}

	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Build describes the request that asks the provider about videoURL. It
// performs no I/O and never fails; configuration is validated upstream.
func Build(videoURL string, cfg ProviderConfig) OutboundRequest {
	method, err := ParseMethod(string(cfg.Method))
	if err != nil {
		method = MethodGet
	}

	req := OutboundRequest{
		Method: method,
		Headers: map[string]string{
			HeaderAPIKey:  cfg.APIKey,
			HeaderAPIHost: cfg.APIHost,
		},
		Body: mo.None[string](),
	}

	switch method {
	case MethodPost:
		req.URL = cfg.BaseURL
		req.Body = mo.Some(urlParam + "=" + escapeComponent(videoURL))
		req.Headers["Content-Type"] = formContentType
	default:
		req.URL = appendQuery(cfg.BaseURL, urlParam, videoURL)
	}

	if cfg.UseProxy {
		req.URL = appendQuery(cfg.proxyEndpoint(), urlParam, req.URL)
	}

	return req
}

// escapeComponent percent-encodes s the way encodeURIComponent does: every
// reserved byte is escaped and spaces become %20 rather than '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func appendQuery(base, key, value string) string {
	sep := "?"
	switch {
	case strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&"):
		sep = ""
	case strings.Contains(base, "?"):
		sep = "&"
	}
	return base + sep + key + "=" + escapeComponent(value)
}

func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
