// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	validationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flow_validation_runs_total",
		Help: "Total validation runs by outcome",
	}, []string{"outcome"})

	validationIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flow_validation_issues_total",
		Help: "Total validation issues by stage and severity",
	}, []string{"stage", "severity"})

	validationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "flow_validation_duration_seconds",
		Help:    "Duration of full five-stage validation",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})
)
