// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFlow/services/flow/client"
	"github.com/AleutianAI/AleutianFlow/services/flow/diff"
	"github.com/AleutianAI/AleutianFlow/services/flow/validate"
)

func newRemoteClient() *client.Client {
	return client.New(client.Config{
		BaseURL: cfg.Remote.BaseURL,
		APIKey:  cfg.Remote.APIKey,
		Policy: &client.RetryPolicy{
			MaxRetries: cfg.Remote.MaxRetries,
			BaseDelay:  cfg.Remote.BaseDelay.Std(),
			MaxDelay:   cfg.Remote.MaxDelay.Std(),
		},
		RequestsPerSecond: cfg.Remote.RequestsPerSecond,
	}, logger)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [workflow-id]",
	Short: "Fetch a workflow document from the remote service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := newRemoteClient().Fetch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printJSON(wf)
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [workflow-id] [operations.json]",
	Short: "Fetch, apply a diff batch, validate, and push back",
	Long: `Runs the full edit cycle: fetches the current remote document,
applies the diff batch locally, validates the result, and replaces the
remote workflow only when validation passes. Transient remote failures
are retried with exponential backoff.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		data, err := readBoundedFile(args[1])
		if err != nil {
			return err
		}
		var req diff.Request
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parse request %s: %w", args[1], err)
		}

		remote := newRemoteClient()
		start := time.Now()

		base, err := remote.Fetch(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", id, err)
		}

		engine := diff.NewEngine(nodeTypes, logger, diff.Options{Strict: cfg.Engine.Strict})
		result, err := engine.Apply(cmd.Context(), base, req.Operations)
		if err != nil {
			return err
		}
		if !result.Success {
			renderDiffResult(result)
			return fmt.Errorf("diff rejected: %d error(s), remote untouched",
				result.Validation.Summary.ErrorCount)
		}

		receipt, err := remote.Push(cmd.Context(), id, result.Graph)
		if err != nil {
			return fmt.Errorf("push %s: %w", id, err)
		}
		result.RemoteVersion = receipt.RemoteVersion

		logger.Info("push complete",
			"workflow_id", id,
			"attempts", receipt.Retry.Attempts,
			"elapsed", time.Since(start),
		)
		renderDiffResult(result)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [workflow-id] [workflow.json]",
	Short: "Replace a remote workflow with a local document",
	Long: `Converts the local document into a full-replace diff (stripping
remote-owned fields), validates it, and pushes it to the remote. The
remote workflow is replaced atomically or not at all.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		data, err := readBoundedFile(args[1])
		if err != nil {
			return err
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse workflow %s: %w", args[1], err)
		}

		ops, fixes, err := diff.FromDocument(doc)
		if err != nil {
			return err
		}

		engine := diff.NewEngine(nodeTypes, logger, diff.Options{Strict: cfg.Engine.Strict})
		result, err := engine.Apply(cmd.Context(), nil, ops)
		if err != nil {
			return err
		}
		result.FixesApplied = append(fixes, result.FixesApplied...)
		if !result.Success {
			renderDiffResult(result)
			return fmt.Errorf("document rejected: %d error(s)",
				result.Validation.Summary.ErrorCount)
		}

		receipt, err := newRemoteClient().Push(cmd.Context(), id, result.Graph)
		if err != nil {
			return fmt.Errorf("push %s: %w", id, err)
		}
		result.RemoteVersion = receipt.RemoteVersion
		renderDiffResult(result)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [workflow-id]",
	Short: "Fetch a remote workflow and validate it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := newRemoteClient().Fetch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		result := validate.New(nodeTypes, logger).Validate(cmd.Context(), wf, validate.Options{})
		renderValidation(result)
		if !result.Valid {
			return fmt.Errorf("workflow is invalid: %d error(s)", result.Summary.ErrorCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(checkCmd)
}
