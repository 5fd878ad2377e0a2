package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"countdown/internal/battery"
	"countdown/internal/capture"
	"countdown/internal/config"
	"countdown/internal/fetch"
	"countdown/internal/ics"
	appLog "countdown/internal/log"
	"countdown/internal/pipeline"
	"countdown/internal/publish"
	"countdown/internal/store"
	"countdown/internal/term"
	"countdown/internal/web"
)

const version = "0.3.0"

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	today      string
	preview    string
	daypart    string
	jsonOut    bool
}

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv()
	if flags.listen != "" && flags.listen != conf.Listen {
		if conf.Capture.URL == "http://"+conf.Listen+"/" {
			conf.Capture.URL = "http://" + flags.listen + "/"
		}
		conf.Listen = flags.listen
	}

	appLog.SetFormat(conf.LogFormat)
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("countdown starting",
		"version", version,
		"listen", conf.Listen,
		"document", fetch.RedactURL(conf.DocumentURL),
		"feeds", len(conf.HolidayFeeds),
		"store", conf.Store.Driver,
		"tick_seconds", conf.TickSeconds,
		"refresh", conf.RefreshCron,
		"once", flags.once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, conf.Store)
	if err != nil {
		appLog.Error("failed to open holiday store", err, "driver", conf.Store.Driver)
		os.Exit(1)
	}
	defer st.Close()

	svc := pipeline.New(pipeline.Options{
		DocumentURL: conf.DocumentURL,
		ThemesURL:   conf.ThemesURL,
		Feeds:       feedsFromConfig(conf.HolidayFeeds),
		Fetcher:     fetch.New(conf.CacheDir),
		Store:       st,
	})

	if flags.once {
		code := runOnce(ctx, svc, flags)
		st.Close()
		os.Exit(code)
	}

	if err := serve(ctx, conf, svc); err != nil {
		appLog.Error("countdown stopped with error", err)
		os.Exit(1)
	}
	appLog.Info("countdown exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/countdown/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load, print one countdown frame and exit")
	flag.StringVar(&cfg.today, "today", "", "Simulate this date (YYYY-MM-DD) in -once mode")
	flag.StringVar(&cfg.preview, "preview", "", "Force a theme key in -once mode")
	flag.StringVar(&cfg.daypart, "daypart", "", "Force morning|midday|evening|night in -once mode")
	flag.BoolVar(&cfg.jsonOut, "json", false, "Print the -once frame as JSON")

	flag.Parse()

	return cfg
}

func feedsFromConfig(in []config.HolidayFeed) []ics.Feed {
	out := make([]ics.Feed, 0, len(in))
	for _, f := range in {
		if f.URL == "" {
			continue
		}
		out = append(out, ics.Feed{ID: f.ID, Name: f.Name, URL: f.URL, Theme: f.Theme})
	}
	return out
}

// runOnce prints a single frame and returns the exit code.
func runOnce(ctx context.Context, svc *pipeline.Service, flags flagConfig) int {
	loadErr := svc.Reload(ctx)

	out := svc.Evaluate(pipeline.Overrides{
		Today:   flags.today,
		Theme:   flags.preview,
		Daypart: flags.daypart,
	})

	if flags.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			appLog.Error("failed to encode output", err)
			return 1
		}
	} else {
		fmt.Println(term.Render(out))
	}

	if loadErr != nil {
		return 1
	}
	return 0
}

// serve runs the HTTP server, the presentation surfaces and the scheduler
// until ctx is cancelled.
func serve(ctx context.Context, conf *config.Config, svc *pipeline.Service) error {
	var br battery.Reader
	if r := battery.New(conf.Battery); r != nil {
		br = battery.Cached(r, 30*time.Second)
	}

	if conf.MQTT.Broker != "" {
		pub, err := publish.Connect(conf.MQTT)
		if err != nil {
			appLog.Error("MQTT disabled", err, "broker", conf.MQTT.Broker)
		} else {
			defer pub.Close()
			svc.AddRenderer(pub)
			svc.AddSink(pub)
		}
	}
	if conf.Capture.Enabled {
		svc.AddRenderer(capture.NewRenderer(conf.Capture))
	}
	if conf.LogFormat == "console" {
		tr := term.New(os.Stdout)
		svc.AddRenderer(tr)
		svc.AddSink(tr)
	}

	server := web.NewServer(conf, svc, br)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Serve(ctx)
	}()

	// The viewer must be reachable before the first capture.
	if err := svc.Reload(ctx); err != nil {
		appLog.Warn("starting without a usable target date", "err", err)
	}

	sched, err := pipeline.NewScheduler(ctx, svc, time.Duration(conf.TickSeconds)*time.Second, conf.RefreshCron)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
		return <-serverErr
	case err := <-serverErr:
		return err
	}
}
