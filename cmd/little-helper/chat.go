package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/agent"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/auditlog"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/history"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/lockfile"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/provider"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/safety"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/settings"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/skill"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/skill/builtin"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/sysinfo"
	"github.com/M0nkeyFl0wer/your-little-helper-public-sub000/internal/websearch"
)

func chatCmd(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	mode := fs.String("mode", "find", "Working mode: find|fix|research|data|content|build")
	configPath := fs.String("config", "", "settings.json path (default: OS config dir)")
	stateDir := fs.String("state-dir", defaultStateDir(), "State directory (history, audit log, lock)")
	logFormat := fs.String("log-format", "text", "Log format: json|text")
	logLevel := fs.String("log-level", "warn", "Log level: debug|info|warn|error")
	_ = fs.Parse(args)

	logger := setupLogger(*logFormat, *logLevel)

	m, err := skill.ParseMode(*mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := runChat(m, *configPath, *stateDir, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runChat(mode skill.Mode, configPath, stateDir string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Settings and secrets.
	if configPath == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolve settings path: %w", err)
		}
		configPath = p
	}
	store := settings.NewStore(configPath)
	st, found, err := store.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	st.EnsureAllowedDirs()
	if !found {
		if err := store.Save(st); err != nil {
			logger.Warn("could not write initial settings", "error", err)
		}
	}

	secretsPath := filepath.Join(filepath.Dir(configPath), "secrets.json")
	secrets := settings.NewSecretsStore(secretsPath)
	if err := settings.PreloadBundledKeys(secrets); err != nil {
		logger.Warn("bundled key preload failed", "error", err)
	}

	// State directory: instance lock, audit trail, thread history.
	lock, err := lockfile.AcquireStateDir(stateDir)
	if err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			return errors.New("another Little Helper instance is already running")
		}
		return fmt.Errorf("lock state dir: %w", err)
	}
	defer lock.Release()

	audit, err := auditlog.New(auditlog.Options{Logger: logger, StateDir: stateDir})
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}

	threads, err := history.Open(filepath.Join(stateDir, "history.db"))
	if err != nil {
		return fmt.Errorf("open thread history: %w", err)
	}
	defer threads.Close()

	// Shared services.
	collector := sysinfo.NewCollector(logger)
	search := websearch.NewClient(websearch.Options{})
	router := provider.NewRouter(st.RouterOptions(secrets, nil, logger))

	home, _ := os.UserHomeDir()
	skillCtx := skill.NewContext(mode, home, stateDir)
	skillCtx.AllowList = st.AllowedDirs
	skillCtx.Auditor = audit

	registry := skill.NewRegistry()
	if err := builtin.RegisterAll(registry, builtin.Deps{
		Sysinfo:       collector,
		Search:        search,
		SearchEnabled: func() bool { return st.EnableInternetResearch },
		ArchiveDir:    filepath.Join(stateDir, "archive"),
	}); err != nil {
		return fmt.Errorf("register skills: %w", err)
	}
	runner := skill.NewRunner(registry, skill.RunnerOptions{Logger: logger})

	var systemSummary string
	if st.ShareSystemSummary {
		systemSummary = collector.Snapshot(ctx).Summary()
	}
	session := agent.NewSession(agent.SystemPrompt(agent.PromptConfig{
		Mode:          mode,
		UserName:      st.UserProfile.Name,
		AllowedDirs:   st.AllowedDirs,
		AllowTerminal: st.UserProfile.TerminalPermissionGranted,
		AllowWeb:      st.EnableInternetResearch,
		SystemSummary: systemSummary,
	}), agent.Options{
		Generator:     router,
		Search:        search,
		Skills:        runner,
		SkillCtx:      skillCtx,
		Auditor:       audit,
		Logger:        logger,
		AllowedDirs:   st.AllowedDirs,
		AllowTerminal: st.UserProfile.TerminalPermissionGranted,
		AllowWeb:      st.EnableInternetResearch,
	})

	thread, err := threads.CreateThread(ctx, uuid.NewString(), mode.String(), "")
	if err != nil {
		logger.Warn("thread create failed, history disabled", "error", err)
	}

	fmt.Printf("Little Helper - %s mode. Type a question, /pending, /approve N, /deny N, or /quit.\n", mode.DisplayName())
	repl(ctx, session, threads, thread.ID)
	return nil
}

func repl(ctx context.Context, session *agent.Session, threads *history.Store, threadID string) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := replCommand(ctx, session, line); quit {
				return
			}
			continue
		}
		if ctx.Err() != nil {
			return
		}
		runTurn(ctx, session, threads, threadID, line)
	}
}

// replCommand handles the slash commands. Returns true on /quit.
func replCommand(ctx context.Context, session *agent.Session, line string) bool {
	fields := strings.Fields(line)
	queue := session.Approvals()
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/pending":
		printPending(queue.Pending())
	case "/approve", "/deny":
		if len(fields) < 2 {
			fmt.Println("usage: " + fields[0] + " N")
			return false
		}
		n, err := strconv.Atoi(fields[1])
		pending := queue.Pending()
		if err != nil || n < 1 || n > len(pending) {
			fmt.Println("no pending command with that number; see /pending")
			return false
		}
		pc := pending[n-1]
		if fields[0] == "/deny" {
			queue.Deny(pc.ID)
			fmt.Printf("Denied: %s\n", pc.Command)
			return false
		}
		approve(ctx, session, pc)
	default:
		fmt.Println("commands: /pending /approve N /deny N /quit")
	}
	return false
}

func approve(ctx context.Context, session *agent.Session, pc agent.PendingCommand) {
	var password string
	if pc.Danger == safety.DangerLevelNeedsSudo {
		fmt.Print("sudo password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			fmt.Println("could not read password:", err)
			return
		}
		password = string(raw)
	}
	res, err := session.Approvals().Approve(ctx, pc.ID, password)
	if err != nil {
		fmt.Println("approve failed:", err)
		return
	}
	fmt.Printf("%s\n%s\n", res.Summary, res.Output)
	// Post the outcome back so the model sees it next turn.
	session.AppendMessage(provider.AssistantMessage(fmt.Sprintf(
		"I ran the approved command `%s`.\n%s", pc.Command, res.Summary)))
}

func runTurn(ctx context.Context, session *agent.Session, threads *history.Store, threadID, input string) {
	if threadID != "" {
		if _, err := threads.AppendMessage(ctx, threadID, "user", input); err != nil {
			slog.Debug("history append failed", "error", err)
		}
	}

	res, err := session.Turn(ctx, input, func(ch provider.StreamChunk) {
		switch ch.Kind {
		case provider.ChunkText:
			fmt.Print(ch.Text)
		case provider.ChunkToolUseStart:
			fmt.Printf("\n[using %s]\n", ch.ToolName)
		case provider.ChunkDone:
			if ch.StopReason == provider.StopReasonIterationReset {
				fmt.Print("\n---\n")
			}
		}
	})
	fmt.Println()
	if err != nil {
		fmt.Println(agent.FriendlyMessage(err))
		return
	}
	if res.Budget.DroppedMessages > 0 {
		fmt.Printf("(trimmed %d older messages to fit the context window)\n", res.Budget.DroppedMessages)
	}
	if res.PreviewFile != "" {
		fmt.Printf("(preview: %s)\n", res.PreviewFile)
	}
	if len(res.Pending) > 0 {
		fmt.Println("\nCommands waiting for your approval:")
		printPending(res.Pending)
	}
	if threadID != "" && res.Reply != "" {
		if _, err := threads.AppendMessage(ctx, threadID, "assistant", res.Reply); err != nil {
			slog.Debug("history append failed", "error", err)
		}
	}
}

func printPending(pending []agent.PendingCommand) {
	if len(pending) == 0 {
		fmt.Println("no pending commands")
		return
	}
	for i, pc := range pending {
		fmt.Printf("  %d. [%s] %s\n", i+1, pc.Danger, pc.Command)
	}
	fmt.Println("approve with /approve N, reject with /deny N")
}
