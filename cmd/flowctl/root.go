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
	"log"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianFlow/pkg/logging"
	"github.com/AleutianAI/AleutianFlow/services/flow/catalog"
	"github.com/AleutianAI/AleutianFlow/services/flow/config"
)

var (
	cfg        *config.Config
	logger     *logging.Logger
	nodeTypes  catalog.Provider
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "flowctl",
	Short: "Validate, diff, and push workflow graphs",
	Long: `flowctl edits remote workflow graphs safely: it applies batched
diff operations to a local copy, validates the result, and only pushes
documents that pass validation.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the config file")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}

		logger = logging.New(logging.Config{
			Level:   logging.ParseLevel(cfg.Logging.Level),
			LogDir:  cfg.Logging.LogDir,
			Service: "flowctl",
			JSON:    cfg.Logging.JSON,
		})

		if cfg.Catalog.Path != "" {
			nodeTypes, err = catalog.NewStaticFromFile(cfg.Catalog.Path)
			if err != nil {
				log.Fatalf("Error loading catalog %s: %v", cfg.Catalog.Path, err)
			}
		} else {
			nodeTypes = catalog.Default()
		}
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	}
}
