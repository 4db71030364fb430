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
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFlow/services/flow/graph"
	"github.com/AleutianAI/AleutianFlow/services/flow/validate"
)

// maxDocumentBytes caps workflow files read from disk.
const maxDocumentBytes = 8 << 20

var validateCmd = &cobra.Command{
	Use:   "validate [workflow.json]",
	Short: "Validate a workflow document without touching the remote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := readWorkflowFile(args[0])
		if err != nil {
			return err
		}

		v := validate.New(nodeTypes, logger)
		result := v.Validate(cmd.Context(), wf, validate.Options{})

		renderValidation(result)
		if !result.Valid {
			return fmt.Errorf("workflow is invalid: %d error(s)", result.Summary.ErrorCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func readWorkflowFile(path string) (*graph.Workflow, error) {
	data, err := readBoundedFile(path)
	if err != nil {
		return nil, err
	}
	var wf graph.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", path, err)
	}
	return &wf, nil
}

func readBoundedFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxDocumentBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", path, maxDocumentBytes)
	}
	return os.ReadFile(path)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Error("encode output", "error", err)
		return
	}
	fmt.Println(string(out))
}
