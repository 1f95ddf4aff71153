// Package servicenow is the REST client for the ServiceNow-integrated CPQ
// backend. Every call carries the operator token in the authorization
// header and is recorded in Prometheus.
package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cpq-console/internal/common/auth"
	"cpq-console/internal/common/errors"
	commonhttp "cpq-console/internal/common/http"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/metrics"
)

// Client talks JSON to the backend's /api routes.
type Client struct {
	baseURL string
	http    *commonhttp.Client
	tokens  auth.TokenSource
	logger  logger.Logger
}

func NewClient(baseURL string, httpClient *commonhttp.Client, tokens auth.TokenSource, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
		logger:  logger.Component(log, "servicenow"),
	}
}

// call is one backend request. resource labels metrics and errors.
type call struct {
	method   string
	resource string
	path     string
	query    url.Values
	body     interface{}
}

func (c *Client) do(ctx context.Context, req call) ([]byte, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, errors.NewTokenUnavailableError(err)
	}

	var payload []byte
	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("authorization", tok.Value)
	if req.body != nil {
		payload, err = json.Marshal(req.body)
		if err != nil {
			return nil, errors.NewBackendRequestFailedError(req.resource, 0, fmt.Errorf("encode body: %w", err))
		}
		header.Set("Content-Type", "application/json")
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, commonhttp.Request{Method: req.method, URL: target, Header: header, Body: payload})
	metrics.BackendRequestDuration.WithLabelValues(req.resource, req.method).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BackendRequests.WithLabelValues(req.resource, req.method, "error").Inc()
		c.logger.Warn("Backend request failed", map[string]interface{}{
			"resource": req.resource, "method": req.method, "path": req.path, "error": err.Error(),
		})
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewBackendTimeoutError(req.resource, err)
		}
		return nil, errors.NewBackendRequestFailedError(req.resource, 0, err)
	}
	metrics.BackendRequests.WithLabelValues(req.resource, req.method, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.Body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.NewBackendUnauthorizedError(req.resource)
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NewResourceNotFoundError(req.resource, req.path)
	default:
		c.logger.Warn("Backend returned error status", map[string]interface{}{
			"resource": req.resource, "method": req.method, "status": resp.StatusCode,
		})
		return nil, errors.NewBackendRequestFailedError(req.resource, resp.StatusCode, stderrors.New(errorMessage(resp.Body)))
	}
}

// errorMessage extracts a human-readable message from an error body.
func errorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return "empty response body"
	}
	return msg
}

// decodeRecord decodes a single record, unwrapping a {"data": {...}} envelope
// when present.
func decodeRecord(body []byte, out interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		trimmed := bytes.TrimSpace(envelope.Data)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			return json.Unmarshal(trimmed, out)
		}
	}
	return json.Unmarshal(body, out)
}
