// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package webtool provides a generic, domain-restricted HTTP fetch tool
// (web_request) built on internal/httpclient. The Tavily tools in
// internal/websearch do not use it; they call internal/httpclient directly.
package webtool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/polanalyst/workbench/internal/httpclient"
	"github.com/polanalyst/workbench/internal/tool"
)

// WebRequestArgs defines the parameters for making HTTP requests.
type WebRequestArgs struct {
	URL     string            `json:"url" jsonschema:"required,description=The URL to request"`
	Method  string            `json:"method,omitempty" jsonschema:"description=HTTP method (GET POST PUT DELETE PATCH HEAD OPTIONS),default=GET,enum=GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS"`
	Headers map[string]string `json:"headers,omitempty" jsonschema:"description=HTTP headers as key-value pairs"`
	Body    string            `json:"body,omitempty" jsonschema:"description=Request body (for POST PUT PATCH)"`
}

// WebRequestConfig defines configuration for the web_request tool.
type WebRequestConfig struct {
	Timeout         time.Duration
	MaxRetries      int
	MaxRequestSize  int64
	MaxResponseSize int64
	AllowedDomains  []string
	DeniedDomains   []string
	AllowedMethods  []string
	AllowRedirects  bool
	MaxRedirects    int
	UserAgent       string
}

type webRequestTool struct {
	cfg *WebRequestConfig
	hc  *httpclient.Client
}

// NewWebRequest builds a generic domain-restricted HTTP fetch tool.
func NewWebRequest(cfg *WebRequestConfig) (tool.CallableTool, error) {
	if cfg == nil {
		cfg = &WebRequestConfig{
			Timeout:         30 * time.Second,
			MaxRetries:      3,
			MaxRequestSize:  1048576,
			MaxResponseSize: 10485760,
			AllowRedirects:  true,
			MaxRedirects:    10,
			UserAgent:       "polwatch-workbench/1.0",
		}
	}

	httpClientCfg := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !cfg.AllowRedirects {
				return http.ErrUseLastResponse
			}
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		},
	}

	hc := httpclient.New(
		httpclient.WithHTTPClient(httpClientCfg),
		httpclient.WithMaxRetries(cfg.MaxRetries),
	)

	return &webRequestTool{cfg: cfg, hc: hc}, nil
}

func (t *webRequestTool) Name() string        { return "web_request" }
func (t *webRequestTool) Timeout() time.Duration { return t.cfg.Timeout }
func (t *webRequestTool) Description() string {
	return "Make HTTP requests to external APIs and web services. Supports all HTTP methods, custom headers, and request bodies."
}

func (t *webRequestTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":     map[string]any{"type": "string"},
			"method":  map[string]any{"type": "string"},
			"headers": map[string]any{"type": "object"},
			"body":    map[string]any{"type": "string"},
		},
		"required": []string{"url"},
	}
}

func (t *webRequestTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	var req WebRequestArgs
	if v, ok := args["url"].(string); ok {
		req.URL = v
	}
	if v, ok := args["method"].(string); ok {
		req.Method = v
	}
	if v, ok := args["body"].(string); ok {
		req.Body = v
	}
	if v, ok := args["headers"].(map[string]string); ok {
		req.Headers = v
	}

	if err := t.validate(req); err != nil {
		return nil, err
	}
	return t.do(ctx, req)
}

func (t *webRequestTool) validate(args WebRequestArgs) error {
	parsedURL, err := url.Parse(args.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if err := validateDomain(t.cfg, parsedURL.Host); err != nil {
		return err
	}
	method := "GET"
	if args.Method != "" {
		method = strings.ToUpper(args.Method)
	}
	if err := validateMethod(t.cfg, method); err != nil {
		return err
	}
	if int64(len(args.Body)) > t.cfg.MaxRequestSize {
		return fmt.Errorf("request body too large: %d bytes (max: %d)", len(args.Body), t.cfg.MaxRequestSize)
	}
	return nil
}

func (t *webRequestTool) do(ctx context.Context, args WebRequestArgs) (map[string]any, error) {
	method := "GET"
	if args.Method != "" {
		method = strings.ToUpper(args.Method)
	}

	var body io.Reader
	if args.Body != "" {
		body = bytes.NewReader([]byte(args.Body))
	}

	req, err := http.NewRequestWithContext(ctx, method, args.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.cfg.UserAgent)
	for k, v := range args.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	limitedReader := io.LimitReader(resp.Body, t.cfg.MaxResponseSize+1)
	responseBody, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(responseBody)) > t.cfg.MaxResponseSize {
		return nil, fmt.Errorf("response too large: exceeds %d bytes", t.cfg.MaxResponseSize)
	}

	respHeaders := make(map[string]string)
	for k, v := range resp.Header {
		if len(v) > 0 {
			respHeaders[k] = v[0]
		}
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	return map[string]any{
		"success":      success,
		"content":      string(responseBody),
		"url":          args.URL,
		"method":       method,
		"status_code":  resp.StatusCode,
		"status":       resp.Status,
		"headers":      respHeaders,
		"content_type": resp.Header.Get("Content-Type"),
		"size":         len(responseBody),
	}, nil
}

func validateDomain(cfg *WebRequestConfig, host string) error {
	if len(cfg.AllowedDomains) == 0 && len(cfg.DeniedDomains) == 0 {
		return nil
	}
	for _, denied := range cfg.DeniedDomains {
		if matchesDomain(host, denied) {
			return fmt.Errorf("domain not allowed: %s (matches deny rule: %s)", host, denied)
		}
	}
	if len(cfg.AllowedDomains) > 0 {
		for _, allowed := range cfg.AllowedDomains {
			if matchesDomain(host, allowed) {
				return nil
			}
		}
		return fmt.Errorf("domain not allowed: %s (not in allowed list)", host)
	}
	return nil
}

func validateMethod(cfg *WebRequestConfig, method string) error {
	if len(cfg.AllowedMethods) == 0 {
		return nil
	}
	for _, allowed := range cfg.AllowedMethods {
		if strings.EqualFold(method, allowed) {
			return nil
		}
	}
	return fmt.Errorf("HTTP method not allowed: %s (allowed: %v)", method, cfg.AllowedMethods)
}

func matchesDomain(host, pattern string) bool {
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	if host == pattern {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:]
		return strings.HasSuffix(host, suffix)
	}
	return false
}
