// Command signin4me logs into the forum and performs the daily check-in.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/pkg/browser"

	"signin4me/internal/app"
	browseropts "signin4me/internal/browser"
	"signin4me/internal/config"
	"signin4me/internal/scheduler"
	"signin4me/internal/store"
)

func main() {
	// A local .env may carry SITE_COOKIES and the SIGNIN_* overrides.
	_ = godotenv.Load()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel(),
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runOnce(logger)
	case "daemon":
		runDaemon(logger)
	case "history":
		showHistory(logger)
	case "bot-test":
		runBotTest(logger)
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: signin4me open <config|data>")
			os.Exit(1)
		}
		runOpen(os.Args[2], logger)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: signin4me <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run           Log in and check in once, now")
	fmt.Println("  daemon        Run the daily check-in on the configured schedule")
	fmt.Println("  history       Show recent sign-in attempts")
	fmt.Println("  bot-test      Open bot.sannysoft.com to audit browser fingerprint")
	fmt.Println("  open config   Open config file in default editor")
	fmt.Println("  open data     Open data directory in file explorer")
}

func logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// loadConfig loads config.toml, creating it with defaults on first run,
// then layers the environment overrides on top.
func loadConfig(logger *slog.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			if err := cfg.Save(); err != nil {
				logger.Warn("could not save default config", "error", err)
			} else {
				path, _ := config.ConfigPath()
				logger.Info("created default config", "path", path)
			}
		} else {
			logger.Warn("could not load config, using defaults", "error", err)
			cfg = config.Default()
		}
	}
	cfg.ApplyEnvOverrides()
	return cfg
}

func openStore(logger *slog.Logger) *store.Store {
	dataDir, err := config.DataDir()
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return nil
	}
	st, err := store.New(filepath.Join(dataDir, "signin4me.db"))
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return nil
	}
	return st
}

func runOnce(logger *slog.Logger) {
	cfg := loadConfig(logger)
	st := openStore(logger)
	if st != nil {
		defer st.Close()
	}

	a := app.New(cfg, st, logger)
	if err := a.RunOnce(context.Background()); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func runDaemon(logger *slog.Logger) {
	cfg := loadConfig(logger)
	st := openStore(logger)
	if st != nil {
		defer st.Close()
	}

	a := app.New(cfg, st, logger)

	sched, err := scheduler.New(cfg.Schedule.Timezone, logger)
	if err != nil {
		logger.Error("invalid schedule config", "error", err)
		os.Exit(1)
	}

	err = sched.AddDailyJob("daily-checkin", cfg.Schedule.Time, func(ctx context.Context) error {
		if a.CheckedInToday() {
			logger.Info("already checked in today, skipping")
			return nil
		}
		return a.RunOnce(ctx)
	})
	if err != nil {
		logger.Error("could not schedule job", "error", err)
		os.Exit(1)
	}

	sched.Start()
	if next, ok := sched.NextRun("daily-checkin"); ok {
		logger.Info("daemon running", "next_run", next)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	<-sched.Stop().Done()
	logger.Info("daemon stopped")
}

func showHistory(logger *slog.Logger) {
	cfg := loadConfig(logger)
	st := openStore(logger)
	if st == nil {
		os.Exit(1)
	}
	defer st.Close()

	attempts, err := app.New(cfg, st, logger).History(20)
	if err != nil {
		logger.Error("could not read history", "error", err)
		os.Exit(1)
	}
	if len(attempts) == 0 {
		fmt.Println("No attempts recorded yet.")
		return
	}

	for _, a := range attempts {
		status := "FAIL"
		if a.Success && a.CheckedIn {
			status = "OK"
		} else if a.Success {
			status = "LOGIN-ONLY"
		}
		line := fmt.Sprintf("%s  %-13s %-10s", a.StartedAt.Local().Format("2006-01-02 15:04"), a.Method, status)
		if a.Reason != "" {
			line += "  " + a.Reason
		}
		fmt.Println(line)
	}
}

func runBotTest(logger *slog.Logger) {
	logger.Info("opening bot.sannysoft.com with stealth browser options")

	opts := browseropts.Options(false) // non-headless so you can see it

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	go func() {
		err := chromedp.Run(ctx,
			chromedp.Navigate("https://bot.sannysoft.com"),
		)
		if err != nil {
			logger.Error("failed to navigate", "error", err)
		}
	}()

	fmt.Println("Press Enter to end program...")
	fmt.Scanln()
}

func runOpen(target string, logger *slog.Logger) {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "data":
		path, err = config.DataDir()
	default:
		fmt.Printf("Unknown target: %s\n", target)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to get path", "error", err)
		os.Exit(1)
	}

	if err := browser.OpenFile(path); err != nil {
		logger.Error("failed to open", "path", path, "error", err)
		os.Exit(1)
	}
}
