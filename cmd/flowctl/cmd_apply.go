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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFlow/services/flow/diff"
	"github.com/AleutianAI/AleutianFlow/services/flow/graph"
)

var applyBaseFile string

var applyCmd = &cobra.Command{
	Use:   "apply [operations.json]",
	Short: "Apply a diff batch to a local workflow document",
	Long: `Reads a diff request (workflowId plus operations), applies it to the
workflow document given with --base (or an empty workflow), and prints
the result. The batch commits only if the resulting graph validates;
otherwise the errors are printed and the base is left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readBoundedFile(args[0])
		if err != nil {
			return err
		}
		var req diff.Request
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parse request %s: %w", args[0], err)
		}

		base := &graph.Workflow{}
		if applyBaseFile != "" {
			if base, err = readWorkflowFile(applyBaseFile); err != nil {
				return err
			}
		}

		engine := diff.NewEngine(nodeTypes, logger, diff.Options{Strict: cfg.Engine.Strict})
		result, err := engine.ApplyRequest(cmd.Context(), base, &req)
		if err != nil {
			return err
		}

		renderDiffResult(result)
		if !result.Success {
			return fmt.Errorf("diff rejected: %d error(s)", result.Validation.Summary.ErrorCount)
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().StringVar(&applyBaseFile, "base", "", "workflow document to apply the batch to")
	rootCmd.AddCommand(applyCmd)
}
