// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for riskgate CLI.
//
// Handles the "riskgate chat" command: a terminal REPL that plays both
// seats of the demo. Customer messages run through the routing pipeline;
// when a draft is held, the same terminal becomes the specialist seat via
// /review.
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /review, /r         Show and resolve the held draft
//   /audit, /a          Show the audit log
//   /export, /e         Export the audit log to JSON
//   /history            Show conversation history
//   /raw                Show the last raw evaluation
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel the in-flight turn
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/riskgate/internal/config"
	"github.com/jeranaias/riskgate/internal/gate"
	"github.com/jeranaias/riskgate/internal/risk"
	"github.com/jeranaias/riskgate/internal/session"
	"github.com/jeranaias/riskgate/internal/ui/styles"
	"github.com/jeranaias/riskgate/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)

	summaryHeaderStyle = lipgloss.NewStyle().
				Foreground(styles.Cyan).
				Bold(true)
)

// riskBadge renders a classification in its semantic color.
func riskBadge(c risk.Classification) string {
	var color lipgloss.AdaptiveColor
	switch c {
	case risk.High:
		color = styles.Rose
	case risk.Medium:
		color = styles.Amber
	default:
		color = styles.Emerald
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(string(c))
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// EditText reads a line prefilled with text, for in-place draft editing.
// The cursor starts at the end of the prefill.
func (c *ChatCLI) EditText(prompt, text string) (string, error) {
	return c.line.PromptWithSuggestion(prompt, text, len([]rune(text)))
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	Engine *gate.Engine
	Config *config.Config

	ExportDir string
	Quiet     bool
	Verbose   bool

	StartTime time.Time

	// Cancel function for the in-flight turn. The mutex guards it against
	// the signal-handler goroutine.
	cancelMu sync.Mutex
	cancel   context.CancelFunc

	// Last completed outcome, for /raw
	lastOutcome *gate.Outcome

	InputCLI *ChatCLI
}

// NewChatSession creates a new chat session around a routing engine.
func NewChatSession(args Args, cfg *config.Config, engine *gate.Engine) *ChatSession {
	exportDir := cfg.Export.Dir
	if args.ExportDir != "" {
		exportDir = args.ExportDir
	}

	return &ChatSession{
		Engine:    engine,
		Config:    cfg,
		ExportDir: exportDir,
		Quiet:     args.Quiet,
		Verbose:   args.Verbose,
		StartTime: time.Now(),
		InputCLI:  NewChatCLI(),
	}
}

// setCancel installs the cancel function for the in-flight turn.
func (s *ChatSession) setCancel(cancel context.CancelFunc) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	s.cancel = cancel
}

// takeCancel removes and returns the installed cancel function, or nil if
// no turn is in flight.
func (s *ChatSession) takeCancel() context.CancelFunc {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	cancel := s.cancel
	s.cancel = nil
	return cancel
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChatCommand runs the interactive REPL.
func HandleChatCommand(args Args, cfg *config.Config, engine *gate.Engine) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	sess := NewChatSession(args, cfg, engine)
	defer sess.InputCLI.Close()

	if !sess.Quiet {
		printWelcome(sess)
	}

	// First Ctrl+C cancels the in-flight turn rather than killing the
	// process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if cancel := sess.takeCancel(); cancel != nil {
				cancel()
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		prompt := promptStyle.Render("you> ")
		if sess.Engine.ReviewPending() {
			prompt = warningStyle.Render("held> ")
		}

		input, err := sess.InputCLI.ReadInput(prompt)
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or a read error all end
			// the session.
			fmt.Println()
			printExitSummary(sess)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(input, sess)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !shouldContinue {
				printExitSummary(sess)
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(sess)
			return nil
		}

		if sess.Engine.ReviewPending() {
			fmt.Println(warningStyle.Render("A draft is held for review. Resolve it with /review first."))
			continue
		}

		if err := processMessage(sess, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage runs one customer message through the routing pipeline
// and prints whatever the customer would see.
func processMessage(sess *ChatSession, input string) error {
	ctx, cancel := context.WithCancel(context.Background())
	sess.setCancel(cancel)
	defer func() {
		sess.takeCancel()
		cancel()
	}()

	start := time.Now()
	outcome, err := sess.Engine.SubmitQuery(ctx, input)
	if err != nil {
		return err
	}
	sess.lastOutcome = outcome

	if !sess.Quiet {
		showRiskInfo(outcome)
	}

	// Print the turn the customer actually received.
	fmt.Println()
	reply := sess.Engine.Session().Last()
	switch outcome.Decision {
	case risk.AutoSend:
		displayResponse(reply.Content)
		fmt.Println()
	case risk.HumanReview:
		fmt.Println(warningStyle.Render(reply.Content))
		fmt.Println(infoStyle.Render("(specialist seat: type /review to resolve)"))
	case risk.EscalateBlock:
		fmt.Println(errorStyle.Render(reply.Content))
	}
	fmt.Println()

	if sess.Verbose {
		fmt.Fprintf(os.Stderr, "%s %s in %s\n",
			infoStyle.Render("[Audit]"),
			outcome.Entry.ID,
			time.Since(start).Round(time.Millisecond))
	}

	return nil
}

// showRiskInfo displays the routing decision inline.
func showRiskInfo(outcome *gate.Outcome) {
	eval := outcome.Eval
	vector := ""
	if eval.FlaggedVector != risk.VectorNone {
		vector = " (" + eval.FlaggedVector.Display() + ")"
	}
	fmt.Fprintf(os.Stderr, "%s %s -> %s%s\n",
		infoStyle.Render("[Risk]"),
		riskBadge(eval.Classification),
		eval.Decision.String(),
		vector)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (shouldContinue, error) where shouldContinue=false means exit.
func handleSlashCommand(cmd string, sess *ChatSession) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	switch strings.ToLower(parts[0]) {
	case "/help", "/h", "/?":
		printHelp()
		return true, nil

	case "/review", "/r":
		return true, handleReview(sess)

	case "/audit", "/a":
		printAudit(sess)
		return true, nil

	case "/export", "/e":
		return true, handleExport(sess)

	case "/history":
		printHistory(sess)
		return true, nil

	case "/raw":
		printRawEval(sess)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	case "/":
		printHelp()
		return true, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", parts[0])
	}
}

// handleReview shows the held draft and lets the specialist edit and
// approve it in place.
func handleReview(sess *ChatSession) error {
	item := sess.Engine.Queue().Pending()
	if item == nil {
		fmt.Println(infoStyle.Render("[No draft is held for review]"))
		return nil
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Held Draft"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Printf("  %s %s -> %s\n",
		infoStyle.Render("Risk:"),
		riskBadge(item.Eval.Classification),
		item.Eval.Decision.String())
	fmt.Printf("  %s %s\n", infoStyle.Render("Vector:"), item.Eval.FlaggedVector.Display())
	fmt.Printf("  %s %s\n", infoStyle.Render("Flagged:"), item.Eval.HighlightedText)
	fmt.Printf("  %s %s\n", infoStyle.Render("Reason:"), item.Eval.Explanation)
	fmt.Println()
	fmt.Println(infoStyle.Render("Edit the draft (enter sends it to the customer, Ctrl+C aborts):"))

	edited, err := sess.InputCLI.EditText(promptStyle.Render("edit> "), item.Draft)
	if err != nil {
		fmt.Println(warningStyle.Render("[Review aborted; draft still held]"))
		return nil
	}
	edited = strings.TrimSpace(edited)
	if edited == "" {
		return fmt.Errorf("cannot approve an empty response")
	}

	res, err := sess.Engine.ResolveReview(edited)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", commandStyle.Render("[Resolved]"), res.Action)
	fmt.Println()
	displayResponse(res.FinalResponse)
	fmt.Println()
	return nil
}

// handleExport writes the audit ledger to a timestamped JSON file.
func handleExport(sess *ChatSession) error {
	path, err := sess.Engine.Ledger().ExportToFile(sess.ExportDir)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", commandStyle.Render("[Exported]"), path)
	return nil
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// printWelcome prints the welcome banner.
func printWelcome(sess *ChatSession) {
	fmt.Println()
	fmt.Println(welcomeStyle.Render("riskgate interactive chat"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Draft model:"),
		commandStyle.Render(sess.Config.Service.DraftModel))
	fmt.Printf("%s %s\n",
		infoStyle.Render("Eval model:"),
		commandStyle.Render(sess.Config.Service.EvalModel))
	fmt.Println()

	// The transcript opens with the bot greeting.
	if greeting := sess.Engine.Session().Last(); greeting != nil {
		displayResponse(greeting.Content)
		fmt.Println()
	}

	fmt.Println(infoStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

// printHelp prints available commands.
func printHelp() {
	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Available Commands"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/review, /r", "Show and resolve the held draft"},
		{"/audit, /a", "Show the audit log"},
		{"/export, /e", "Export the audit log to JSON"},
		{"/history", "Show conversation history"},
		{"/raw", "Show the last raw evaluation"},
		{"/quit, /q", "Exit chat"},
	}

	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-15s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C cancels the in-flight turn, Ctrl+D exits"))
	fmt.Println()
}

// printAudit prints the audit log projection as a table.
func printAudit(sess *ChatSession) {
	rows := sess.Engine.Ledger().Projection()
	if len(rows) == 0 {
		fmt.Println(infoStyle.Render("[Audit log is empty]"))
		return
	}

	width := GetTerminalWidth()
	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Audit Log"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 20)))

	header := util.PadWidth("TIME", 10) +
		util.PadWidth("ID", 10) +
		util.PadWidth("RISK", 8) +
		util.PadWidth("DECISION", 24) +
		"VECTOR"
	fmt.Println("  " + infoStyle.Render(header))

	for _, row := range rows {
		vectorW := width - (10 + 10 + 8 + 24 + 4)
		if vectorW < 6 {
			vectorW = 6
		}
		fmt.Println("  " +
			util.PadWidth(row.Time, 10) +
			util.PadWidth(row.ID, 10) +
			util.PadWidth(row.Risk, 8) +
			util.PadWidth(util.TruncateWidth(row.Decision, 23), 24) +
			util.TruncateWidth(row.FlaggedVector, vectorW))
	}
	fmt.Println()
}

// printHistory prints the conversation transcript.
func printHistory(sess *ChatSession) {
	turns := sess.Engine.Session().Turns()
	if len(turns) == 0 {
		fmt.Println(infoStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Conversation History"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 25)))
	fmt.Println()

	for i, turn := range turns {
		role := "Bot"
		roleStyle := lipgloss.NewStyle().Foreground(styles.Purple)
		if turn.Role == session.RoleUser {
			role = "You"
			roleStyle = lipgloss.NewStyle().Foreground(styles.Cyan)
		}
		content := strings.ReplaceAll(turn.Content, "\n", " ")
		content = util.TruncateWidth(content, 100)
		fmt.Printf("  %d. %s: %s\n", i+1, roleStyle.Render(role), content)
	}

	fmt.Println()
}

// printRawEval prints the last evaluator output verbatim.
func printRawEval(sess *ChatSession) {
	if sess.lastOutcome == nil {
		fmt.Println(infoStyle.Render("[No evaluations yet]"))
		return
	}
	raw, err := sess.lastOutcome.Eval.ToJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
		return
	}
	fmt.Println(raw)
}

// printExitSummary prints the session summary on exit.
func printExitSummary(sess *ChatSession) {
	entries := sess.Engine.Ledger().Entries()
	if len(entries) == 0 {
		fmt.Println(infoStyle.Render("Goodbye!"))
		return
	}

	var autoSent, reviewed, blocked int
	for _, e := range entries {
		switch e.Decision {
		case string(risk.AutoSend):
			autoSent++
		case string(risk.EscalateBlock):
			blocked++
		default:
			// human_review, resolved or still pending
			reviewed++
		}
	}

	elapsed := time.Since(sess.StartTime).Round(time.Second)

	fmt.Println()
	fmt.Println(summaryHeaderStyle.Render("Session Summary"))
	fmt.Println(infoStyle.Render(strings.Repeat("─", 15)))
	fmt.Printf("  %s %d (%d auto-sent, %d reviewed, %d blocked)\n",
		infoStyle.Render("Turns:"),
		len(entries), autoSent, reviewed, blocked)
	fmt.Printf("  %s %s\n", infoStyle.Render("Duration:"), elapsed.String())
	fmt.Println()
	fmt.Println(infoStyle.Render("Goodbye!"))
}
