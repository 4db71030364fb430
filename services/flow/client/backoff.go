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
	"math/rand"
	"time"
)

// maxJitter is the upper bound of the additive jitter applied to every
// backoff wait.
const maxJitter = 100 * time.Millisecond

// RetryPolicy bounds the retry loop for transient failures.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt, so a
	// push makes at most MaxRetries+1 requests.
	MaxRetries int

	// BaseDelay seeds the exponential schedule.
	BaseDelay time.Duration

	// MaxDelay caps the schedule before jitter.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the stock policy: 3 retries, 1s base, 30s
// cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// delayFor returns the wait before retry attempt n (1-based):
// min(base*2^(n-1), cap) plus up to maxJitter of random jitter.
func (p RetryPolicy) delayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay << (attempt - 1)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	return delay + time.Duration(rand.Int63n(int64(maxJitter)))
}

// RetryState is the per-push retry bookkeeping surfaced in receipts.
type RetryState struct {
	Attempts       int           `json:"attempts"`
	CumulativeWait time.Duration `json:"cumulativeWait"`
}

// sleepWithContext sleeps for duration or until the context is done,
// whichever comes first. Reports false when interrupted.
func sleepWithContext(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
