// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianFlow/pkg/logging"
	"github.com/AleutianAI/AleutianFlow/pkg/validation"
	"github.com/AleutianAI/AleutianFlow/services/flow/graph"
)

var tracer = otel.Tracer("flow.client")

// maxResponseBytes bounds remote payloads read into memory.
const maxResponseBytes = 8 << 20

// HTTPClient interface allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Store is the remote workflow store the push layer depends on.
type Store interface {
	Fetch(ctx context.Context, id string) (*graph.Workflow, error)
	Replace(ctx context.Context, id string, wf *graph.Workflow) (*ReplaceResult, error)
}

// ReplaceResult reports the remote state after a successful replace.
type ReplaceResult struct {
	Version string `json:"versionId"`
}

// Receipt is the full outcome of a Push, including retry bookkeeping.
type Receipt struct {
	State         PushState  `json:"state"`
	Retry         RetryState `json:"retry"`
	RemoteVersion string     `json:"remoteVersion,omitempty"`
}

// Config configures the remote client.
type Config struct {
	// BaseURL is the service root, e.g. "https://flows.example.com".
	BaseURL string

	// APIKey is sent on every request.
	APIKey string

	// Policy bounds the retry loop. Nil means DefaultRetryPolicy; an
	// explicit &RetryPolicy{} disables retries entirely.
	Policy *RetryPolicy

	// RequestsPerSecond rate-limits outgoing calls; 0 disables limiting.
	RequestsPerSecond float64

	// HTTPClient overrides the transport, mainly for tests. Defaults to
	// an http.Client with a 30s timeout.
	HTTPClient HTTPClient
}

// Client implements Store against the remote REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    HTTPClient
	policy  RetryPolicy
	limiter *rate.Limiter
	log     *logging.Logger
}

// New returns a configured Client. A nil logger falls back to the
// package default.
func New(cfg Config, log *logging.Logger) *Client {
	if log == nil {
		log = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	policy := DefaultRetryPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
		policy:  policy,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Fetch retrieves the remote workflow document.
func (c *Client) Fetch(ctx context.Context, id string) (*graph.Workflow, error) {
	if err := validation.ValidateIdentifier(id); err != nil {
		return nil, err
	}
	body, _, err := c.do(ctx, http.MethodGet, c.workflowURL(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var wf graph.Workflow
	if err := json.Unmarshal(body, &wf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &wf, nil
}

// Replace overwrites the remote workflow with the given document. The
// remote applies the document atomically; on any failure the remote
// workflow is unchanged.
func (c *Client) Replace(ctx context.Context, id string, wf *graph.Workflow) (*ReplaceResult, error) {
	if err := validation.ValidateIdentifier(id); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(wf)
	if err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}
	body, _, err := c.do(ctx, http.MethodPut, c.workflowURL(id), payload, nil)
	if err != nil {
		return nil, err
	}
	var result ReplaceResult
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return &result, nil
}

// Push replaces the remote workflow and returns a receipt with the
// retry history. It is Replace plus bookkeeping; callers that only need
// the document semantics can use Replace directly.
func (c *Client) Push(ctx context.Context, id string, wf *graph.Workflow) (*Receipt, error) {
	ctx, span := tracer.Start(ctx, "client.push",
		trace.WithAttributes(attribute.String("workflow.id", id)))
	defer span.End()

	if err := validation.ValidateIdentifier(id); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(wf)
	if err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}

	receipt := &Receipt{State: StatePending}
	body, _, err := c.do(ctx, http.MethodPut, c.workflowURL(id), payload, receipt)
	if err != nil {
		receipt.State = StateFailed
		pushRequests.WithLabelValues("failed").Inc()
		span.SetAttributes(attribute.Int("push.attempts", receipt.Retry.Attempts))
		span.SetStatus(codes.Error, "push failed")
		return receipt, err
	}

	var result ReplaceResult
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			receipt.State = StateFailed
			pushRequests.WithLabelValues("failed").Inc()
			return receipt, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	receipt.State = StateSucceeded
	receipt.RemoteVersion = result.Version
	pushRequests.WithLabelValues("succeeded").Inc()
	span.SetAttributes(attribute.Int("push.attempts", receipt.Retry.Attempts))
	c.log.Info("workflow pushed",
		"workflow_id", id,
		"attempts", receipt.Retry.Attempts,
		"remote_version", result.Version,
	)
	return receipt, nil
}

func (c *Client) workflowURL(id string) string {
	return c.baseURL + "/api/v1/workflows/" + id
}

// do runs one request with the retry loop. It returns the response body
// on any 2xx; every failure path returns a *PushError (or a bare
// context error when the caller cancelled). A non-nil receipt is walked
// through the state machine (pending -> retrying) and filled with the
// attempt history; the caller records the terminal state.
func (c *Client) do(ctx context.Context, method, url string, payload []byte, receipt *Receipt) ([]byte, int, error) {
	start := time.Now()
	defer func() {
		pushDuration.Observe(time.Since(start).Seconds())
	}()

	attempts := 0
	var lastErr error
	lastStatus := 0

	for attempts <= c.policy.MaxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
		attempts++
		if receipt != nil {
			receipt.Retry.Attempts = attempts
		}

		body, status, err := c.roundTrip(ctx, method, url, payload)
		if err == nil && status >= 200 && status < 300 {
			return body, status, nil
		}
		lastStatus = status

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, 0, ctxErr
			}
			if !retryableTransport(err) {
				return nil, 0, &PushError{Kind: FailurePermanent, Attempts: attempts, Err: err}
			}
			lastErr = err
		} else {
			if !retryableStatus(status) {
				return nil, status, &PushError{
					Kind:     FailurePermanent,
					Status:   status,
					Attempts: attempts,
					Err:      statusError(status, body),
				}
			}
			lastErr = statusError(status, body)
		}

		if attempts > c.policy.MaxRetries {
			break
		}
		delay := c.policy.delayFor(attempts)
		c.log.Warn("transient push failure, backing off",
			"url", url,
			"attempt", attempts,
			"status", status,
			"delay", delay,
		)
		pushRetries.Inc()
		if receipt != nil {
			receipt.State = StateRetrying
		}
		if !sleepWithContext(ctx, delay) {
			return nil, 0, ctx.Err()
		}
		if receipt != nil {
			receipt.Retry.CumulativeWait += delay
		}
	}

	return nil, lastStatus, &PushError{
		Kind:     FailureExhausted,
		Status:   lastStatus,
		Attempts: attempts,
		Err:      lastErr,
	}
}

// roundTrip makes a single HTTP attempt.
func (c *Client) roundTrip(ctx context.Context, method, url string, payload []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-N8N-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// statusError maps terminal HTTP statuses onto the package sentinels so
// callers can errors.Is them through the *PushError wrapper.
func statusError(status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return ErrWorkflowNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		if msg == "" {
			return fmt.Errorf("remote returned status %d", status)
		}
		return fmt.Errorf("remote returned status %d: %s", status, msg)
	}
}
