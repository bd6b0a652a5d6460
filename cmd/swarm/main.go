package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/loop"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/game"
	"github.com/l1jgo/simcore/internal/persist"
	"github.com/l1jgo/simcore/internal/render"
	"github.com/l1jgo/simcore/internal/scripting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               simcore swarm               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := max(46-runewidth.StringWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-runewidth.StringWidth(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main logic ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/swarm.toml"
	if p := os.Getenv("SIMCORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	headless := os.Getenv("SIMCORE_HEADLESS") != ""
	if headless {
		cfg.Logging.File = ""
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Scripts and prefabs
	printSection("Content")
	scripts, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("load scripts: %w", err)
	}
	defer scripts.Close()
	printStat("Lua behaviors", len(scripts.Names()))

	var prefabs *data.PrefabTable
	if cfg.Data.Prefabs != "" {
		prefabs, err = data.LoadPrefabTable(cfg.Data.Prefabs)
		if err != nil {
			return fmt.Errorf("load prefabs: %w", err)
		}
		printStat("Prefabs", prefabs.Count())
	}
	fmt.Println()

	// 4. Optional snapshot store
	var snapshots *persist.SnapshotRepo
	if cfg.Database.Enabled {
		printSection("Database")
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(dbCtx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("Migrations applied")
		snapshots = persist.NewSnapshotRepo(db)
		fmt.Println()
	}

	if headless {
		printReady("Running headless, Ctrl+C to stop")
	} else {
		printReady("Starting terminal UI, q to quit")
	}

	stats, err := play(ctx, cfg, log, scripts, prefabs, snapshots, headless)
	if err != nil {
		return err
	}

	fmt.Println()
	printSection("Result")
	printStat("Frames", int(stats.Frames))
	printStat("Enemies spawned", stats.Spawned)
	printStat("Hits taken", stats.Hits)
	printStat("Health left", stats.PlayerHealth)
	if stats.Over {
		printOK("Player died")
	}
	return nil
}

// play runs one session until the user quits, the process is signalled or,
// headless, the player dies. The terminal is restored before it returns.
func play(ctx context.Context, cfg *config.Config, log *zap.Logger, scripts *scripting.Engine,
	prefabs *data.PrefabTable, snapshots *persist.SnapshotRepo, headless bool) (game.Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var interval time.Duration
	if cfg.Loop.FrameRate > 0 {
		interval = time.Second / time.Duration(cfg.Loop.FrameRate)
	}
	host := loop.NewTickerHost(interval)
	opts := game.Options{
		Logger:  log,
		Scripts: scripts,
		Prefabs: prefabs,
		Host:    host,
	}

	var (
		screen   tcell.Screen
		keyboard *render.Keyboard
		renderer *render.Renderer
	)
	if !headless {
		var err error
		screen, err = tcell.NewScreen()
		if err != nil {
			return game.Stats{}, fmt.Errorf("open terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return game.Stats{}, fmt.Errorf("init terminal: %w", err)
		}
		defer screen.Fini()
		screen.HideCursor()

		keyboard = render.NewKeyboard(nil, 0)
		renderer = render.NewRenderer(screen)
		opts.Input = keyboard
		opts.Renderer = renderer
	}

	sess, err := game.NewSession(cfg, opts)
	if err != nil {
		return game.Stats{}, fmt.Errorf("new session: %w", err)
	}
	defer sess.Close()

	label := cfg.Database.Snapshot
	if snapshots != nil && label != "" {
		restoreSnapshot(ctx, snapshots, sess, label, log)
	}

	if headless {
		event.Subscribe(sess.Bus(), func(game.PlayerDied) { cancel() })
	} else {
		go keyboard.Run(screen, renderer.Resize)
		go func() {
			select {
			case <-keyboard.Quit():
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	sess.Start()
	if err := host.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return game.Stats{}, fmt.Errorf("run loop: %w", err)
	}
	sess.Stop()
	stats := sess.Stats()
	log.Info("session ended",
		zap.Uint64("frames", stats.Frames),
		zap.Int("spawned", stats.Spawned),
		zap.Int("hits", stats.Hits),
		zap.Bool("player_died", stats.Over),
	)

	if snapshots != nil && label != "" {
		saveCtx, cancelSave := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelSave()
		if err := snapshots.Save(saveCtx, label, sess.Capture()); err != nil {
			log.Error("save snapshot failed", zap.String("label", label), zap.Error(err))
		}
	}
	return stats, nil
}

func restoreSnapshot(ctx context.Context, repo *persist.SnapshotRepo, sess *game.Session, label string, log *zap.Logger) {
	snaps, err := repo.Load(ctx, label)
	if errors.Is(err, persist.ErrNoSnapshot) {
		return
	}
	if err != nil {
		log.Warn("snapshot not restored", zap.String("label", label), zap.Error(err))
		return
	}
	res := sess.Restore(snaps)
	log.Info("snapshot restored",
		zap.String("label", label),
		zap.Int("applied", res.Applied),
		zap.Int("missing", len(res.Missing)),
	)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if cfg.File != "" {
			zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
		zapCfg.ErrorOutputPaths = []string{cfg.File}
	}

	return zapCfg.Build()
}
