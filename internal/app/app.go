// Package app wires the playground's collaborators from configuration. API
// clients are built once here and injected; nothing below holds a
// package-level client.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"playground/internal/domain"
	"playground/internal/history"
	"playground/internal/http/handlers"
	"playground/internal/http/httpapi"
	"playground/internal/infra"
	"playground/internal/infra/geoip"
	"playground/internal/interpret"
	"playground/internal/playground"
	"playground/internal/providers/gemini"
	"playground/internal/providers/image"
	"playground/internal/storage"
)

// Container holds the constructed dependencies and their cleanup hooks.
type Container struct {
	Config      *infra.Config
	Logger      zerolog.Logger
	Gemini      *gemini.Client
	Interpreter *interpret.Interpreter
	Operations  image.Operations
	History     history.Log[domain.HistoryItem]
	Recorder    *history.Recorder
	Files       *storage.FileStore
	Playground  *playground.Service
	Geo         *geoip.Resolver

	closers []func()
}

// New builds every collaborator. Missing provider keys are not fatal: the
// affected operations report ErrProviderNotConfigured when called.
func New(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	c := &Container{Config: cfg, Logger: logger}
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}

	if err := c.initGemini(ctx, httpClient); err != nil {
		c.Close()
		return nil, err
	}

	var completer interpret.Completer
	var describer image.Describer
	if c.Gemini != nil {
		completer = c.Gemini
		describer = c.Gemini
	}
	c.Interpreter = interpret.New(completer, &c.Logger)

	c.Operations = image.NewOperations(
		image.NewPollinationsGenerator(cfg.PollinationsBaseURL),
		image.NewGeminiAnalyzer(describer, image.AnalyzerOptions{
			MaxDimension: cfg.AnalyzeMaxDimension,
			JPEGQuality:  cfg.AnalyzeJPEGQuality,
			Logger:       &c.Logger,
		}),
		image.NewPicsartUpscaler(image.ProviderOptions{
			APIKey:     cfg.PicsartAPIKey,
			BaseURL:    cfg.PicsartBaseURL,
			HTTPClient: httpClient,
			Logger:     &c.Logger,
		}),
		image.NewRemoveBGClient(image.ProviderOptions{
			APIKey:     cfg.RemoveBGAPIKey,
			BaseURL:    cfg.RemoveBGBaseURL,
			HTTPClient: httpClient,
			Logger:     &c.Logger,
		}),
	)

	log, err := c.openHistory(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.History = log
	c.Recorder = history.NewRecorder(log, &c.Logger)

	if cfg.StoragePath != "" {
		files, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("app: file store: %w", err)
		}
		c.Files = files
	}

	opts := playground.Options{
		Interpreter: c.Interpreter,
		Runner:      c.Operations,
		Recorder:    c.Recorder,
		Logger:      &c.Logger,
	}
	if c.Files != nil {
		opts.Files = c.Files
	}
	c.Playground = playground.NewService(opts)

	geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		c.Close()
		return nil, err
	}
	if geo != nil {
		c.Geo = geo
		c.closers = append(c.closers, func() { _ = geo.Close() })
	}
	return c, nil
}

func (c *Container) initGemini(ctx context.Context, httpClient *http.Client) error {
	if c.Config.GoogleAPIKey == "" {
		c.Logger.Warn().Msg("GOOGLE_API_KEY not set; interpretation and analysis are disabled")
		return nil
	}
	client, err := gemini.NewClient(ctx, gemini.Options{
		APIKey:     c.Config.GoogleAPIKey,
		BaseURL:    c.Config.GeminiBaseURL,
		Model:      c.Config.GeminiModel,
		HTTPClient: httpClient,
		Logger:     &c.Logger,
	})
	if err != nil {
		return fmt.Errorf("app: gemini client: %w", err)
	}
	c.Gemini = client
	return nil
}

func (c *Container) openHistory(ctx context.Context) (history.Log[domain.HistoryItem], error) {
	capacity := c.Config.HistoryCapacity
	switch c.Config.HistoryBackend {
	case infra.HistoryBackendRedis:
		client, err := history.NewRedisClient(ctx, c.Config.RedisURL)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = client.Close() })
		return history.NewRedis[domain.HistoryItem](client, history.RedisOptions{Capacity: capacity, Logger: &c.Logger}), nil

	case infra.HistoryBackendPostgres:
		pool, err := infra.NewDBPool(ctx, c.Config)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, pool.Close)
		store := history.NewPostgres[domain.HistoryItem](infra.NewSQLRunner(pool, c.Logger), capacity)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case infra.HistoryBackendSQLite:
		db, err := history.OpenSQLite(ctx, c.Config.SQLitePath)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() { _ = db.Close() })
		return history.NewSQLite[domain.HistoryItem](db, capacity), nil

	default:
		return history.NewMemory[domain.HistoryItem](capacity), nil
	}
}

// Handler returns the HTTP router over the container's collaborators.
func (c *Container) Handler() http.Handler {
	app := &handlers.App{
		Config:      c.Config,
		Logger:      c.Logger,
		Interpreter: c.Interpreter,
		Operations:  c.Operations,
		Playground:  c.Playground,
		Recorder:    c.Recorder,
	}
	var opts httpapi.Options
	if c.Files != nil {
		app.Files = c.Files
		opts.Static = c.Files.Handler()
	}
	if c.Geo != nil {
		opts.Geo = c.Geo
	}
	return httpapi.NewRouter(app, opts)
}

// Close releases backend connections in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
