package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ganttcal/internal/config"
	appLog "ganttcal/internal/log"
	"ganttcal/internal/render"
	"ganttcal/internal/scheduler"
	"ganttcal/internal/store"
	"ganttcal/internal/timeline"
	"ganttcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	print      string
	printWidth int
	seed       bool
}

func main() {
	flags := parseFlags()

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		appLog.Warn("failed to load .env", "reason", err)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		appLog.Warn("could not write default config, continuing with defaults", "config_path", flags.configPath, "reason", err)
	}
	conf.ApplyEnv()

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("ganttcal starting",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"default_view", conf.DefaultView,
		"refresh", conf.RefreshCron,
		"db_driver", conf.Database.Driver,
		"ics_count", len(conf.ICS),
		"capture", conf.Capture.Enabled,
		"once", flags.once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("ganttcal exited with error", err)
		os.Exit(1)
	}
	appLog.Info("ganttcal exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	st, err := store.New(conf.Database.Driver, conf.Database.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	clock := timeline.SystemClock{}

	if flags.seed {
		n, err := st.Seed(ctx, clock.Now().In(conf.Location()))
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		appLog.Info("demo data seeded", "inserted", n)
	}

	if flags.print != "" {
		return printTimeline(ctx, conf, st, clock, flags)
	}

	srv := web.NewServer(conf, st, clock)
	sched := scheduler.New(conf, st, srv, clock)

	if flags.once {
		return sched.RunOnce(ctx)
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	// Fill the feed cache before the first request arrives.
	go func() {
		if err := sched.Refresh(ctx); err != nil {
			appLog.Error("initial refresh failed", err)
		}
	}()

	err = srv.ListenAndServe(ctx)
	// Give in-flight jobs a moment to observe cancellation.
	time.Sleep(100 * time.Millisecond)
	return err
}

// printTimeline writes the terminal Gantt chart for the current window.
func printTimeline(ctx context.Context, conf *config.Config, st store.Interface, clock timeline.Clock, flags flagConfig) error {
	mode, err := timeline.ParseMode(flags.print)
	if err != nil {
		return err
	}
	entities, err := st.ListEntities(ctx)
	if err != nil {
		return err
	}
	now := clock.Now().In(conf.Location())
	w := timeline.ResolveWeekStart(mode, now, conf.FirstWeekday())
	fmt.Print(render.Terminal(w, render.BuildRows(entities, w, now), flags.printWidth))
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh(+capture) cycle and exit")
	flag.StringVar(&cfg.print, "print", "", "Print the timeline for MODE (week, month, quarter) and exit")
	flag.IntVar(&cfg.printWidth, "width", 100, "Terminal width used by -print")
	flag.BoolVar(&cfg.seed, "seed", false, "Insert demo data into an empty store")

	flag.Parse()

	return cfg
}
