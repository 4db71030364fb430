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
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianFlow/pkg/logging"
	"github.com/AleutianAI/AleutianFlow/services/flow/graph"
)

// fastPolicy keeps retry tests quick; jitter still applies on top.
var fastPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func newTestClient(serverURL string) *Client {
	return New(Config{
		BaseURL: serverURL,
		APIKey:  "test-key",
		Policy:  &fastPolicy,
	}, logging.Discard())
}

// httpClientFunc adapts a function to the HTTPClient interface.
type httpClientFunc func(*http.Request) (*http.Response, error)

func (f httpClientFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func sampleWorkflow() *graph.Workflow {
	return &graph.Workflow{
		Name: "orders",
		Nodes: []graph.Node{
			{ID: "n1", Name: "Start", Type: "n8n-nodes-base.webhook", TypeVersion: 2},
		},
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/workflows/wf1", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-N8N-API-KEY"))
		json.NewEncoder(w).Encode(sampleWorkflow())
	}))
	defer srv.Close()

	wf, err := newTestClient(srv.URL).Fetch(context.Background(), "wf1")
	require.NoError(t, err)
	assert.Equal(t, "orders", wf.Name)
	require.Len(t, wf.Nodes, 1)
	assert.Equal(t, "Start", wf.Nodes[0].Name)
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrWorkflowNotFound)

	var pushErr *PushError
	require.ErrorAs(t, err, &pushErr)
	assert.Equal(t, FailurePermanent, pushErr.Kind)
	assert.Equal(t, 1, pushErr.Attempts)
}

func TestFetch_RejectsUnsafeIdentifier(t *testing.T) {
	var called atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "../admin")
	require.Error(t, err)
	assert.False(t, called.Load(), "unsafe id must be rejected before any request")
}

func TestPush_Succeeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var wf graph.Workflow
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wf))
		assert.Equal(t, "orders", wf.Name)

		json.NewEncoder(w).Encode(ReplaceResult{Version: "v42"})
	}))
	defer srv.Close()

	receipt, err := newTestClient(srv.URL).Push(context.Background(), "wf1", sampleWorkflow())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, receipt.State)
	assert.Equal(t, "v42", receipt.RemoteVersion)
	assert.Equal(t, 1, receipt.Retry.Attempts)
	assert.Zero(t, receipt.Retry.CumulativeWait)
}

func TestPush_RecoversAfterTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(ReplaceResult{Version: "v7"})
	}))
	defer srv.Close()

	receipt, err := newTestClient(srv.URL).Push(context.Background(), "wf1", sampleWorkflow())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, receipt.State)
	assert.Equal(t, "v7", receipt.RemoteVersion)
	assert.Equal(t, 3, receipt.Retry.Attempts)
	assert.Positive(t, receipt.Retry.CumulativeWait)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPush_ExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	receipt, err := newTestClient(srv.URL).Push(context.Background(), "wf1", sampleWorkflow())
	require.Error(t, err)
	assert.Equal(t, StateFailed, receipt.State)

	var pushErr *PushError
	require.ErrorAs(t, err, &pushErr)
	assert.Equal(t, FailureExhausted, pushErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, pushErr.Status)
	assert.Equal(t, fastPolicy.MaxRetries+1, pushErr.Attempts)
	assert.Equal(t, int32(fastPolicy.MaxRetries+1), calls.Load())
}

func TestPush_NoRetryOnAuthFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Push(context.Background(), "wf1", sampleWorkflow())
	require.ErrorIs(t, err, ErrUnauthorized)

	var pushErr *PushError
	require.ErrorAs(t, err, &pushErr)
	assert.Equal(t, FailurePermanent, pushErr.Kind)
	assert.Equal(t, int32(1), calls.Load(), "auth failures must not be retried")
}

func TestPush_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(ReplaceResult{Version: "v1"})
	}))
	defer srv.Close()

	receipt, err := newTestClient(srv.URL).Push(context.Background(), "wf1", sampleWorkflow())
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.Retry.Attempts)
}

func TestPush_CancellationStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{
		BaseURL: srv.URL,
		Policy:  &RetryPolicy{MaxRetries: 10, BaseDelay: time.Second, MaxDelay: 30 * time.Second},
	}, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Push(ctx, "wf1", sampleWorkflow())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second, "cancellation must cut the backoff short")
}

func TestPush_StateTransitions(t *testing.T) {
	// A single-goroutine transport lets the test observe the receipt's
	// state at the moment each attempt goes out.
	receipt := &Receipt{State: StatePending}
	var seen []PushState
	calls := 0
	transport := httpClientFunc(func(req *http.Request) (*http.Response, error) {
		seen = append(seen, receipt.State)
		calls++
		if calls <= 2 {
			return &http.Response{
				StatusCode: http.StatusServiceUnavailable,
				Body:       io.NopCloser(strings.NewReader("unavailable")),
			}, nil
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"versionId":"v9"}`)),
		}, nil
	})

	c := New(Config{BaseURL: "http://remote", HTTPClient: transport, Policy: &fastPolicy}, logging.Discard())
	_, _, err := c.do(context.Background(), http.MethodPut, c.workflowURL("wf1"), []byte("{}"), receipt)
	require.NoError(t, err)
	assert.Equal(t, []PushState{StatePending, StateRetrying, StateRetrying}, seen)
	assert.Equal(t, 3, receipt.Retry.Attempts)
}

func TestNew_ExplicitZeroPolicyDisablesRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Policy: &RetryPolicy{}}, logging.Discard())
	_, err := c.Push(context.Background(), "wf1", sampleWorkflow())
	require.Error(t, err)

	var pushErr *PushError
	require.ErrorAs(t, err, &pushErr)
	assert.Equal(t, FailureExhausted, pushErr.Kind)
	assert.Equal(t, 1, pushErr.Attempts)
	assert.Equal(t, int32(1), calls.Load(), "MaxRetries=0 means one attempt")
}

func TestNew_NilPolicyUsesDefaults(t *testing.T) {
	c := New(Config{BaseURL: "http://remote"}, logging.Discard())
	assert.Equal(t, DefaultRetryPolicy(), c.policy)
}

func TestReplace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ReplaceResult{Version: "v3"})
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Replace(context.Background(), "wf1", sampleWorkflow())
	require.NoError(t, err)
	assert.Equal(t, "v3", result.Version)
}

func TestFetch_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Fetch(context.Background(), "wf1")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRetryPolicy_DelaySchedule(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}

	tests := []struct {
		attempt int
		floor   time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 30 * time.Second}, // capped
	}
	for _, tt := range tests {
		d := p.delayFor(tt.attempt)
		assert.GreaterOrEqual(t, d, tt.floor, "attempt %d", tt.attempt)
		assert.Less(t, d, tt.floor+maxJitter, "attempt %d", tt.attempt)
	}
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, retryableStatus(http.StatusTooManyRequests))
	assert.True(t, retryableStatus(http.StatusServiceUnavailable))
	assert.True(t, retryableStatus(http.StatusGatewayTimeout))
	assert.False(t, retryableStatus(http.StatusBadRequest))
	assert.False(t, retryableStatus(http.StatusNotFound))
	assert.False(t, retryableStatus(http.StatusInternalServerError))
}
