package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	cmdpkg "github.com/stupiduntilnot/picrelay/internal/commander"
	"github.com/stupiduntilnot/picrelay/internal/config"
	"github.com/stupiduntilnot/picrelay/internal/db"
	"github.com/stupiduntilnot/picrelay/internal/dummy"
	"github.com/stupiduntilnot/picrelay/internal/history"
	"github.com/stupiduntilnot/picrelay/internal/image"
	modelpkg "github.com/stupiduntilnot/picrelay/internal/model"
	"github.com/stupiduntilnot/picrelay/internal/openai"
	"github.com/stupiduntilnot/picrelay/internal/poller"
	"github.com/stupiduntilnot/picrelay/internal/prompt"
	"github.com/stupiduntilnot/picrelay/internal/relay"
	"github.com/stupiduntilnot/picrelay/internal/telegram"
)

type provider interface {
	modelpkg.Provider
	modelpkg.ImageGenerator
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[relay] %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[relay] failed to init logger: %v\n", err)
		os.Exit(1)
	}
	sugar := logger.Sugar()
	defer func() { _ = logger.Sync() }()

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		sugar.Fatalw("Failed to open database", "path", cfg.DBPath, "error", err)
	}
	defer database.Close()

	if err := db.InitSchema(database); err != nil {
		sugar.Fatalw("Failed to init schema", "error", err)
	}

	commander, err := newCommander(&cfg)
	if err != nil {
		sugar.Fatalw("Failed to init commander", "error", err)
	}
	modelProvider, err := newModelProvider(&cfg)
	if err != nil {
		sugar.Fatalw("Failed to init model provider", "error", err)
	}

	store := history.NewStore(database)
	handler := &relay.Handler{
		History:     store,
		Builder:     prompt.NewBuilder(store, cfg.HistoryLimit),
		Model:       modelProvider,
		Images:      image.NewRequester(modelProvider, sugar),
		Sender:      commander,
		Logger:      sugar,
		TurnTimeout: cfg.TurnTimeout,
	}
	p := &poller.Poller{
		Source:             commander,
		Handler:            handler,
		Logger:             sugar,
		PollTimeout:        cfg.PollTimeout,
		Sleep:              time.Duration(cfg.SleepSeconds) * time.Second,
		Breaker:            poller.NewCircuitBreaker(5, 30*time.Second),
		DropPending:        cfg.DropPending,
		PendingWindow:      time.Duration(cfg.PendingWindowSeconds) * time.Second,
		PendingMaxMessages: cfg.PendingMaxMessages,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("Starting bot",
		"model", cfg.OpenAIModel,
		"provider", cfg.ModelProvider,
		"source", cfg.Commander,
		"db", cfg.DBPath,
		"history_limit", cfg.HistoryLimit,
	)
	if err := p.Run(ctx); err != nil {
		sugar.Errorw("Poller stopped with error", "error", err)
	}
	sugar.Infow("Bot stopped")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newCommander(cfg *config.Config) (cmdpkg.Commander, error) {
	switch cfg.Commander {
	case "telegram":
		apiBase := telegram.APIBase(cfg.TelegramAPIURL, cfg.TelegramToken)
		return telegram.NewClient(apiBase, time.Duration(cfg.PollTimeout+20)*time.Second), nil
	case "dummy":
		return dummy.NewCommander(cfg.DummyCommanderScript, cfg.DummySendScript)
	default:
		return nil, fmt.Errorf("unsupported commander: %s", cfg.Commander)
	}
}

func newModelProvider(cfg *config.Config) (provider, error) {
	switch cfg.ModelProvider {
	case "openai":
		return openai.NewClient(openai.Options{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			ImageModel: cfg.OpenAIImageModel,
			ImageSize:  cfg.OpenAIImageSize,
			Timeout:    cfg.OpenAITimeout,
		}), nil
	case "dummy":
		return dummy.NewProvider(cfg.OpenAIModel, cfg.DummyProviderScript, cfg.DummyImageScript)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.ModelProvider)
	}
}
