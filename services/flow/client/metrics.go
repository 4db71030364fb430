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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pushRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_push_requests_total",
			Help: "Workflow pushes, labeled by outcome (succeeded, failed).",
		},
		[]string{"outcome"},
	)

	pushRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flow_push_retries_total",
			Help: "Transient push failures that triggered a backoff retry.",
		},
	)

	pushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flow_push_duration_seconds",
			Help:    "End-to-end remote request duration including retries.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)
