// riskgate - risk-gated customer support chat demo.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/riskgate/internal/audit"
	"github.com/jeranaias/riskgate/internal/cli"
	"github.com/jeranaias/riskgate/internal/config"
	"github.com/jeranaias/riskgate/internal/gate"
	"github.com/jeranaias/riskgate/internal/llm"
	"github.com/jeranaias/riskgate/internal/review"
	"github.com/jeranaias/riskgate/internal/session"
	"github.com/jeranaias/riskgate/internal/ui/app"
	"github.com/jeranaias/riskgate/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		if err := runTUI(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdChat:
		if err := runChat(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdExport:
		if err := cli.HandleExportCommand(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

// =============================================================================
// WIRING
// =============================================================================

// loadConfig resolves the effective configuration for this invocation.
func loadConfig(args cli.Args) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if args.Config != "" {
		cfg, err = config.LoadFromPath(args.Config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.ExportDir != "" {
		cfg.Export.Dir = args.ExportDir
	}
	return cfg, nil
}

// buildEngine assembles a fresh session, ledger, queue, and the LLM-backed
// capability stack into a routing engine.
func buildEngine(cfg *config.Config) (*gate.Engine, error) {
	caps, err := buildCapabilities(cfg)
	if err != nil {
		return nil, err
	}

	sess := session.New()
	ledger := audit.NewLedger()
	queue := review.NewQueue(ledger, sess)
	return gate.NewEngine(caps, sess, ledger, queue), nil
}

func buildCapabilities(cfg *config.Config) (*gate.Capabilities, error) {
	client := llm.NewClient(cfg.Service.BaseURL, cfg.Service.APIKey,
		llm.WithTimeout(cfg.Client.Timeout),
		llm.WithMaxRetries(cfg.Client.MaxRetries),
		llm.WithRequestsPerMinute(cfg.Client.RequestsPerMinute),
	)
	return gate.NewCapabilities(cfg, client)
}

// watchConfig hot-swaps the engine's capability stack when the config file
// changes on disk. Session state (transcript, ledger, pending review) is
// untouched by a reload.
func watchConfig(engine *gate.Engine, args cli.Args) *config.Watcher {
	path := args.Config
	if path == "" {
		var err error
		path, err = config.ConfigPath()
		if err != nil {
			return nil
		}
	}

	watcher, err := config.Watch(path)
	if err != nil {
		// No config file to watch is the common case on first run.
		return nil
	}

	go func() {
		for cfg := range watcher.Updates() {
			if args.ExportDir != "" {
				cfg.Export.Dir = args.ExportDir
			}
			caps, err := buildCapabilities(cfg)
			if err != nil {
				log.Printf("config reload ignored: %v", err)
				continue
			}
			engine.SetCapabilities(caps)
			log.Printf("config reloaded from %s", path)
		}
	}()

	return watcher
}

// =============================================================================
// COMMANDS
// =============================================================================

func runTUI(args cli.Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	if watcher := watchConfig(engine, args); watcher != nil {
		defer watcher.Close()
	}

	theme := styles.NewTheme()
	m := app.New(theme, engine, cfg.Export.Dir)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runChat(args cli.Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	if watcher := watchConfig(engine, args); watcher != nil {
		defer watcher.Close()
	}

	return cli.HandleChatCommand(args, cfg, engine)
}
