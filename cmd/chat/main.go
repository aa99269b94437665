// Command chat is a terminal client for the streaming chatbot endpoint.
//
// Usage:
//
//	CHAT_TOKEN=... chat [flags]
//	chat list
//
// Configuration is read from ~/.chat/config.yaml (or --config), then .env
// and CHAT_* environment variables, then flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pratikoai/chatstream"
	bt "github.com/pratikoai/chatstream/bubbletea"
	chathttp "github.com/pratikoai/chatstream/http"
	chatjson "github.com/pratikoai/chatstream/json"
	chatprom "github.com/pratikoai/chatstream/prometheus"
)

const shutdownTimeout = 5 * time.Second

var version = "dev" // set via ldflags at build time

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
		os.Exit(1)
	}
}

// flags holds raw flag values; only flags the user set override config.
type flags struct {
	configPath   string
	conversation string
	baseURL      string
	token        string
	timeout      time.Duration
	retries      int
	metricsAddr  string
	logFile      string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "chat",
		Short:         "Chat with the streaming assistant in your terminal",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg, f.conversation)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Path to config file (default ~/.chat/config.yaml)")
	pf.StringVar(&f.baseURL, "base-url", "", "Chatbot API base URL")
	pf.StringVar(&f.token, "token", "", "Bearer token")
	pf.DurationVar(&f.timeout, "timeout", 0, "Inactivity timeout per session")
	pf.IntVar(&f.retries, "retries", 0, "Restarts after a lost connection")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address")
	pf.StringVar(&f.logFile, "log-file", "", "Write logs to this file")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.Flags().StringVar(&f.conversation, "conversation", "", "Conversation id to resume or create")

	root.AddCommand(newListCmd(&f))
	return root
}

func newListCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, *f)
			if err != nil {
				return err
			}
			summaries, err := chatjson.NewStore(cfg.DataDir).List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range summaries {
				fmt.Fprintf(out, "%s\t%d messages\t%s\n", s.ID, s.Messages, s.UpdatedAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

// resolveConfig layers .env, the config file, environment and set flags.
func resolveConfig(cmd *cobra.Command, f flags) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	path, optional := f.configPath, false
	if path == "" {
		path, optional = defaultConfigPath(), true
	}
	cfg, err := LoadConfig(path, optional, os.LookupEnv)
	if err != nil {
		return Config{}, err
	}

	set := cmd.Flags().Changed
	if set("base-url") {
		cfg.BaseURL = f.baseURL
	}
	if set("token") {
		cfg.Token = f.token
	}
	if set("timeout") {
		cfg.Timeout = f.timeout
	}
	if set("retries") {
		cfg.Retries = f.retries
	}
	if set("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if set("log-file") {
		cfg.LogFile = f.logFile
	}
	if set("log-level") {
		cfg.LogLevel = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runChat(ctx context.Context, cfg Config, conversationID string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	store := chatjson.NewStore(cfg.DataDir)
	conv, err := loadOrCreateConversation(ctx, store, conversationID)
	if err != nil {
		return err
	}
	logger.Info("starting chat", "conversation", conv.ID, "messages", len(conv.Messages), "base_url", cfg.BaseURL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sink := bt.NewSink()
	observer := chatprom.New(reg, sink)

	transport := chathttp.New(
		chathttp.WithBaseURL(cfg.BaseURL),
		chathttp.WithPath(cfg.Path),
		chathttp.WithToken(cfg.Token),
		chathttp.WithMaxRecordSize(cfg.MaxRecordSize),
	)
	ctrl := chatstream.NewController(transport, observer,
		chatstream.WithLogger(logger),
		chatstream.WithTimeout(cfg.Timeout),
		chatstream.WithSlowFrameThreshold(cfg.SlowFrame),
	)

	var streamer bt.Streamer = ctrl
	if cfg.Retries > 0 {
		streamer = newRetryStreamer(ctrl, cfg.Retries, logger)
	}

	model := bt.New(streamer, &conv, chatstream.DefaultTheme(), bt.WithStore(store))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           newRouter(reg, ctrl),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		if err := bt.Run(gctx, model, sink); err != nil {
			return fmt.Errorf("TUI: %w", err)
		}
		// Stop the metrics server once the UI exits.
		return errTUIExited
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errTUIExited) {
		return err
	}

	if err := ctrl.Cancel(context.Background()); err != nil {
		logger.Warn("cancel on exit", "error", err)
	}
	if len(conv.Messages) > 0 {
		fmt.Fprintf(os.Stderr, "Conversation %s saved to %s\n", conv.ID, cfg.DataDir)
	}
	return nil
}

var errTUIExited = errors.New("tui exited")

func loadOrCreateConversation(ctx context.Context, store chatstream.HistoryStore, id string) (chatstream.Conversation, error) {
	if id != "" {
		conv, err := store.Load(ctx, id)
		switch {
		case err == nil:
			return conv, nil
		case !errors.Is(err, chatstream.ErrNotFound):
			return chatstream.Conversation{}, fmt.Errorf("load conversation: %w", err)
		}
	} else {
		id = uuid.NewString()
	}
	now := time.Now()
	return chatstream.Conversation{ID: id, CreatedAt: now, UpdatedAt: now}, nil
}
