package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chatsentry/chatsentry/internal/config"
	"github.com/chatsentry/chatsentry/internal/daemon"
	"github.com/chatsentry/chatsentry/internal/database"
	"github.com/chatsentry/chatsentry/internal/imaging"
	"github.com/chatsentry/chatsentry/internal/logger"
	"github.com/chatsentry/chatsentry/internal/reporter"
	"github.com/chatsentry/chatsentry/internal/web"
	"github.com/chatsentry/chatsentry/pkg/platform"
	"github.com/chatsentry/chatsentry/pkg/utils"

	"github.com/rs/zerolog"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

const (
	appName     = "chatsentry"
	daemonChild = "CHATSENTRY_DAEMON_CHILD"
)

func main() {
	inv := parseArgs(os.Args[1:])
	if inv.command == "" {
		printUsage()
		os.Exit(1)
	}

	switch inv.command {
	case "start":
		startDaemon(inv)
	case "stop":
		stopDaemon(inv)
	case "status":
		showStatus(inv)
	case "report":
		generateReport(inv)
	case "errors":
		listErrors(inv)
	case "prune":
		pruneJudgments(inv)
	case "clear":
		clearDatabase(inv)
	case "ocr":
		runOCR(inv)
	case "judge":
		runJudgeText(inv)
	case "analyze":
		runAnalyzeImage(inv)
	case "version":
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", inv.command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`chatsentry - Chat window monitor with AI judgment and alerts

Usage:
  chatsentry <command> [options] [-config path]

Commands:
  start [--foreground]     Start the monitor daemon with the web API
  stop                     Stop the monitor daemon
  status                   Show daemon status and monitored window presence
  report [period] [--json] Judgment report (period: day, week, month)
  errors [n]               Show the n most recent pipeline errors (default 20)
  prune <days>             Delete judgments older than the given number of days
  clear                    Clear all judgments and error logs
  ocr <image.png>          Run text extraction on an image
  judge <text>             Ask the model about a piece of text
  analyze <image.png>      Ask the vision model about an image
  version                  Show version information
  help                     Show this help message

Examples:
  chatsentry start
  chatsentry start --foreground -config ./config.yaml
  chatsentry report week --json
  chatsentry judge "can someone write me a script to rename files"
  chatsentry stop

Environment Variables:
  CHATSENTRY_CONFIG             Config file path (default ./config.yaml)
  CHATSENTRY_WINDOW_TITLE       Main chat window title
  CHATSENTRY_DETAILS_TITLE      Details window title
  CHATSENTRY_POLL_INTERVAL      Poll interval ("2s" or seconds)
  CHATSENTRY_CHANGE_THRESHOLD   Changed pixels required to accept an update
  CHATSENTRY_DEBOUNCE_INTERVAL  Minimum time between accepted updates
  CHATSENTRY_AI_BASE_URL        OpenAI-compatible endpoint
  CHATSENTRY_DB_PATH            Database file path
  CHATSENTRY_PID_FILE           PID file path
  CHATSENTRY_LOG_LEVEL          debug, info, warn, error
  CHATSENTRY_WEB_HOST           Web API host
  CHATSENTRY_WEB_PORT           Web API port

Version: %s
`, version)
}

// invocation is the parsed command line
type invocation struct {
	command    string
	args       []string
	configPath string
	jsonOutput bool
	foreground bool
}

func parseArgs(argv []string) invocation {
	var inv invocation
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-config" || arg == "--config":
			if i+1 < len(argv) {
				inv.configPath = argv[i+1]
				i++
			}
		case strings.HasPrefix(arg, "-config=") || strings.HasPrefix(arg, "--config="):
			inv.configPath = arg[strings.Index(arg, "=")+1:]
		case arg == "--json":
			inv.jsonOutput = true
		case arg == "--foreground" || arg == "-f":
			inv.foreground = true
		case inv.command == "":
			inv.command = arg
		default:
			inv.args = append(inv.args, arg)
		}
	}
	return inv
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func loadConfig(inv invocation) *config.Config {
	cfg, err := config.Load(config.ResolvePath(inv.configPath))
	if err != nil {
		fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// cliLogger logs warnings and errors to the console only, so one-shot
// commands do not write into the daemon's log file.
func cliLogger(cfg *config.Config) zerolog.Logger {
	logCfg := cfg.Log
	logCfg.File = ""
	logCfg.Console = true
	if logCfg.Level == "info" || logCfg.Level == "" {
		logCfg.Level = "warn"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fatalf("Failed to initialize logger: %v", err)
	}
	return log
}

func openRepository(cfg *config.Config) (*database.DB, *database.Repository) {
	db, err := database.Connect(cfg.Paths.Database)
	if err != nil {
		fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		fatalf("Failed to initialize database: %v", err)
	}
	return db, database.NewRepository(db)
}

func startDaemon(inv invocation) {
	cfg := loadConfig(inv)

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		fatalf("Failed to check daemon status: %v", err)
	}
	if running {
		fatalf("Daemon is already running (PID: %d)", pid)
	}

	if !inv.foreground && os.Getenv(daemonChild) != "1" {
		daemonize(cfg)
		return
	}

	// a forked child has no terminal
	if os.Getenv(daemonChild) == "1" && cfg.Log.File != "" {
		cfg.Log.Console = false
	}

	runDaemon(cfg, dm)
}

func runDaemon(cfg *config.Config, dm *daemon.Daemon) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		fatalf("Failed to initialize logger: %v", err)
	}

	db, repo := openRepository(cfg)
	defer db.Close()

	manager, err := platform.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize window manager")
	}
	defer manager.Close()

	log.Info().Str("display_server", manager.GetDisplayServer()).Msg("Window manager initialized")

	if err := dm.WritePID(); err != nil {
		log.Fatal().Err(err).Msg("Failed to write PID file")
	}
	defer dm.RemovePID()

	svc := newPipeline(cfg, manager, repo, log)
	webServer := web.NewServer(cfg, repo, svc, logger.Component(log, "web"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Web server error")
		}
	}()

	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		if err := svc.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Monitor error")
		}
	}()

	log.Info().Msg("Starting chatsentry daemon...")
	log.Info().Str("addr", "http://"+webServer.GetAddress()).Msg("Web API available")
	log.Debug().Msgf("Configuration:\n%s", cfg.String())

	<-sigChan
	log.Info().Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	svc.Stop()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down web server")
	}

	select {
	case <-monitorDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Monitor did not finish its cycle before shutdown timeout")
	}

	log.Info().Msg("Daemon stopped successfully")
}

func daemonize(cfg *config.Config) {
	env := append(os.Environ(), daemonChild+"=1")

	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}

	procAttr := &os.ProcAttr{
		Env:   env,
		Files: []*os.File{nil, nil, nil}, // stdin, stdout, stderr to /dev/null
		Sys: &syscall.SysProcAttr{
			Setsid: true,
		},
	}

	process, err := os.StartProcess(exe, os.Args, procAttr)
	if err != nil {
		fatalf("Failed to start daemon process: %v", err)
	}

	fmt.Printf("Daemon started successfully (PID: %d)\n", process.Pid)
	fmt.Printf("Web API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	if cfg.Log.File != "" {
		fmt.Printf("Logs: %s\n", cfg.Log.File)
	}
}

func stopDaemon(inv invocation) {
	cfg := loadConfig(inv)
	dm := daemon.New(cfg.Daemon.PIDFile)

	running, pid, err := dm.IsRunning()
	if err != nil {
		fatalf("Failed to check daemon status: %v", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return
	}

	fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
	if err := dm.Stop(); err != nil {
		fatalf("Failed to stop daemon: %v", err)
	}

	fmt.Println("Daemon stopped successfully")
}

func showStatus(inv invocation) {
	cfg := loadConfig(inv)
	dm := daemon.New(cfg.Daemon.PIDFile)

	info, err := dm.Info()
	if err != nil {
		fmt.Println("Status: Not running")
	} else {
		fmt.Printf("Status: Running (PID: %d)\n", info.PID)
		if !info.StartedAt.IsZero() {
			fmt.Printf("Uptime: %s\n", utils.FormatRoundedUnit(int64(time.Since(info.StartedAt).Seconds())))
		}
		fmt.Printf("Memory: %.1f MB RSS (system %.0f%% used)\n", info.RSSMB, info.SystemMemPercent)
		fmt.Printf("CPU: %.1f%%  Threads: %d\n", info.CPUPercent, info.Threads)
		fmt.Printf("Poll Interval: %v\n", cfg.App.PollingInterval)
		fmt.Printf("Web API: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	}

	manager, err := platform.New()
	if err != nil {
		fmt.Printf("\nCould not connect to the display: %v\n", err)
		return
	}
	defer manager.Close()

	fmt.Printf("\nDisplay: %s\n", manager.GetDisplayServer())
	for _, title := range []string{cfg.App.WindowTitle, cfg.App.DetailsWindowTitle} {
		win, err := manager.FindWindow(title)
		switch {
		case err != nil:
			fmt.Printf("  %-20s lookup failed: %v\n", title, err)
		case win == nil:
			fmt.Printf("  %-20s not found\n", title)
		default:
			fmt.Printf("  %-20s %dx%d at (%d,%d)\n", title, win.Width, win.Height, win.X, win.Y)
		}
	}
}

func generateReport(inv invocation) {
	periodType := "day"
	if len(inv.args) > 0 {
		periodType = inv.args[0]
	}

	cfg := loadConfig(inv)
	db, repo := openRepository(cfg)
	defer db.Close()

	rep := reporter.New(repo)
	report, err := rep.GenerateReport(periodType)
	if err != nil {
		fatalf("Failed to generate report: %v", err)
	}

	if inv.jsonOutput {
		jsonStr, err := rep.FormatReportJSON(report)
		if err != nil {
			fatalf("Failed to format JSON: %v", err)
		}
		fmt.Println(jsonStr)
		return
	}
	fmt.Println(rep.FormatReportText(report))
}

func listErrors(inv invocation) {
	limit := 20
	if len(inv.args) > 0 {
		n, err := strconv.Atoi(inv.args[0])
		if err != nil || n <= 0 {
			fatalf("Invalid count: %s", inv.args[0])
		}
		limit = n
	}

	cfg := loadConfig(inv)
	db, repo := openRepository(cfg)
	defer db.Close()

	logs, err := repo.ListErrorLogs(limit)
	if err != nil {
		fatalf("Failed to list errors: %v", err)
	}
	if len(logs) == 0 {
		fmt.Println("No errors recorded")
		return
	}

	now := time.Now()
	for _, l := range logs {
		fmt.Printf("%-8s %-10s %-16s %s\n", utils.FormatAge(l.Timestamp, now), l.Stage, l.Kind, l.ErrorMsg)
	}
}

func pruneJudgments(inv invocation) {
	if len(inv.args) == 0 {
		fatalf("Usage: %s prune <days>", appName)
	}
	days, err := strconv.Atoi(inv.args[0])
	if err != nil || days < 1 {
		fatalf("Invalid number of days: %s", inv.args[0])
	}

	cfg := loadConfig(inv)
	db, repo := openRepository(cfg)
	defer db.Close()

	deleted, err := repo.DeleteOldJudgments(time.Now().AddDate(0, 0, -days))
	if err != nil {
		fatalf("Failed to prune judgments: %v", err)
	}
	fmt.Printf("Deleted %d judgments older than %d days\n", deleted, days)
}

func clearDatabase(inv invocation) {
	cfg := loadConfig(inv)

	fmt.Print("This will delete all judgments and error logs. Are you sure? (yes/no): ")
	var response string
	fmt.Scanln(&response)

	if response != "yes" && response != "y" {
		fmt.Println("Operation cancelled")
		return
	}

	db, repo := openRepository(cfg)
	defer db.Close()

	if err := repo.Clear(); err != nil {
		fatalf("Failed to clear database: %v", err)
	}

	fmt.Println("Database cleared successfully")
}

func runOCR(inv invocation) {
	if len(inv.args) == 0 {
		fatalf("Usage: %s ocr <image.png>", appName)
	}
	path := inv.args[0]

	cfg := loadConfig(inv)
	log := cliLogger(cfg)

	img, err := imaging.LoadPNG(path)
	if err != nil {
		fatalf("Failed to load image: %v", err)
	}

	processor := newOCRProcessor(cfg, log)
	text, err := processor.Process(context.Background(), img, filepath.Base(path))
	if err != nil {
		fatalf("Text extraction failed: %v", err)
	}
	if text == "" {
		fmt.Println("(no text found)")
		return
	}
	fmt.Println(text)
}

func runJudgeText(inv invocation) {
	if len(inv.args) == 0 {
		fatalf("Usage: %s judge <text>", appName)
	}

	cfg := loadConfig(inv)
	log := cliLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.AI.Timeout+5*time.Second)
	defer cancel()

	result, err := newJudgeService(cfg, log).AnalyzeText(ctx, strings.Join(inv.args, " "))
	if err != nil {
		fatalf("Judgment failed: %v", err)
	}
	printJudgment(result.Positive, result.Response, "")
}

func runAnalyzeImage(inv invocation) {
	if len(inv.args) == 0 {
		fatalf("Usage: %s analyze <image.png>", appName)
	}

	cfg := loadConfig(inv)
	log := cliLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.AI.Timeout+5*time.Second)
	defer cancel()

	result, err := newJudgeService(cfg, log).AnalyzeImage(ctx, inv.args[0])
	if err != nil {
		fatalf("Judgment failed: %v", err)
	}
	printJudgment(result.Positive, result.Response, result.CopyPath)
}

func printJudgment(positive bool, response, copyPath string) {
	verdict := "NO"
	if positive {
		verdict = "YES"
	}
	fmt.Printf("Verdict: %s\n", verdict)
	fmt.Printf("Response: %s\n", response)
	if copyPath != "" {
		fmt.Printf("Saved to: %s\n", copyPath)
	}
}
