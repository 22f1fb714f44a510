// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for riskgate.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdExport
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet     bool
	Verbose   bool
	Config    string // Explicit config file path
	ExportDir string // Override audit export directory

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `riskgate - risk-gated customer support chat

Riskgate drafts support replies with an LLM and gates every draft through
a risk evaluator before the customer sees it. Low-risk drafts auto-send,
flagged drafts are held for a human specialist, and high-risk drafts are
blocked and escalated. Every routed turn lands in an append-only audit log.

Usage:
  riskgate                   Start the operator TUI (default)
  riskgate chat              Interactive terminal chat (no TUI)
  riskgate export            How to export the audit log
  riskgate version           Show version information
  riskgate help              Show this help

Global flags:
  --config PATH       Use a specific config file (default ~/.riskgate/config.toml)
  --export-dir PATH   Directory for audit exports
  -q, --quiet         Minimal output
  -v, --verbose       Verbose output

Interactive commands (during chat):
  /review             Show and resolve the held draft
  /audit              Show the audit log
  /export             Export the audit log to JSON
  /history            Show conversation history
  /raw                Show the last raw evaluation
  /quit, /q           Exit chat

Environment:
  RISKGATE_API_KEY    API key for the chat completion service
  OPENAI_API_KEY      Fallback if RISKGATE_API_KEY is unset

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("riskgate version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses the given arguments. Split out from Parse for testing.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	args.Raw = remaining[1:]

	switch cmd {
	case "tui":
		return CmdTUI, args
	case "chat":
		return CmdChat, args
	case "export":
		return CmdExport, args
	case "version", "--version", "-V":
		return CmdVersion, args
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// parseGlobalFlags extracts global flags, returning the remaining args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--config":
			if i+1 < len(argv) {
				i++
				args.Config = argv[i]
			}
		case "--export-dir":
			if i+1 < len(argv) {
				i++
				args.ExportDir = argv[i]
			}
		default:
			remaining = append(remaining, argv[i])
		}
	}

	return remaining, args
}

// HandleVersion handles the "version" command.
func HandleVersion() {
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}

// HandleExportCommand explains how exports work. The audit log is
// session-scoped, so there is nothing to export outside a live session.
func HandleExportCommand(args Args) error {
	fmt.Println("The audit log lives only for the duration of a chat session.")
	fmt.Println("Export it from inside a session:")
	fmt.Println()
	fmt.Println("  TUI:   press ctrl+e")
	fmt.Println("  chat:  type /export")
	fmt.Println()
	fmt.Println("Files are written as audit_log_YYYYMMDD_HHMMSS.json in the")
	fmt.Println("export directory (--export-dir, RISKGATE_EXPORT_DIR, or the")
	fmt.Println("current directory).")
	return nil
}
