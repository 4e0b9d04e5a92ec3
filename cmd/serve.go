package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/vettavista/internal/api"
	"github.com/spigell/vettavista/internal/application"
	"github.com/spigell/vettavista/internal/ai/gemini"
	"github.com/spigell/vettavista/internal/cache"
	"github.com/spigell/vettavista/internal/config"
	"github.com/spigell/vettavista/internal/datasync"
	"github.com/spigell/vettavista/internal/editor"
	"github.com/spigell/vettavista/internal/embedding"
	"github.com/spigell/vettavista/internal/filtering"
	"github.com/spigell/vettavista/internal/language"
	"github.com/spigell/vettavista/internal/logger"
	"github.com/spigell/vettavista/internal/matching"
	"github.com/spigell/vettavista/internal/rendering"
	"github.com/spigell/vettavista/internal/secrets"
	"github.com/spigell/vettavista/internal/storage"
	"github.com/spigell/vettavista/internal/ws"
)

const (
	embeddingCacheLimit = 10000
	readHeaderTimeout   = 10 * time.Second
	defaultShutdown     = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

// services holds everything serve wires together.
type services struct {
	cfg          *config.Manager
	blacklist    *storage.Blacklist
	history      *storage.History
	titles       *matching.TitleMatcher
	skills       *matching.SkillMatcher
	preliminary  *filtering.Preliminary
	detailed     *filtering.Detailed
	documents    *rendering.Documents
	editor       *editor.Manager
	sync         *datasync.Manager
	applications *application.Service
	closers      []func() error
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg := config.NewManager(viper.GetViper(), logger)
	settings, err := cfg.Load()
	if err != nil {
		logger.Fatal("loading config", zap.Error(err), zap.String("file", viper.ConfigFileUsed()))
	}

	logger.Info("starting vettavista", zap.String("version", resolvedVersion()), zap.String("addr", settings.Server.Addr))

	svc, err := buildServices(ctx, cfg, settings, logger)
	if err != nil {
		logger.Fatal("initializing services", zap.Error(err))
	}
	defer func() {
		for _, c := range svc.closers {
			if err := c(); err != nil {
				logger.Warn("closing resource", zap.Error(err))
			}
		}
	}()

	for _, stage := range []struct {
		name   string
		checks []filtering.Status
	}{
		{"preliminary", svc.preliminary.Checks()},
		{"detailed", svc.detailed.Checks()},
	} {
		for _, c := range stage.checks {
			logger.Info("filter check", zap.String("filter", stage.name), zap.String("check", c.Name),
				zap.Bool("enabled", c.Enabled), zap.String("reason", c.Reason))
		}
	}

	svc.subscribe(logger)

	router := api.NewRouter(api.Dependencies{
		Logger:       logger,
		Preliminary:  svc.preliminary,
		Detailed:     svc.detailed,
		Applications: svc.applications,
		Blacklist:    svc.blacklist,
		History:      svc.history,
		Sync:         svc.sync,
		Editor:       svc.editor,
	})

	g, gCtx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return gCtx },
	}

	svc.blacklist.StartBackups(gCtx, settings.Storage.BackupInterval)
	svc.history.StartBackups(gCtx, settings.Storage.BackupInterval)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		timeout := settings.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdown
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		reload := make(chan os.Signal, 1)
		signal.Notify(reload, syscall.SIGHUP)
		defer signal.Stop(reload)
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-reload:
				if err := cfg.Reload(); err != nil {
					logger.Error("reloading config, keeping previous settings", zap.Error(err))
				}
			}
		}
	})

	return g.Wait()
}

func buildServices(ctx context.Context, cfg *config.Manager, settings *config.Settings, logger *zap.Logger) (*services, error) {
	svc := &services{cfg: cfg}

	if err := os.MkdirAll(settings.Storage.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	blacklist, err := storage.NewBlacklist(filepath.Join(settings.Storage.Dir, settings.Storage.BlacklistFile), logger.Named("blacklist"))
	if err != nil {
		return nil, err
	}
	history, err := storage.NewHistory(filepath.Join(settings.Storage.Dir, settings.Storage.HistoryFile), logger.Named("history"))
	if err != nil {
		return nil, err
	}
	svc.blacklist, svc.history = blacklist, history

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: settings.AI.Gemini.APIKey,
		File:  settings.AI.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}
	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	gc := settings.AI.Gemini
	generator, err := gemini.NewGenerator(client, gc.Model, gc.MaxRetries, settings.AI.Concurrency, gc.MaxLogLength, logger)
	if err != nil {
		return nil, err
	}

	var store embedding.Store
	if settings.Redis.URL != "" {
		rs, err := embedding.NewRedisStore(settings.Redis.URL, settings.Redis.Prefix, 0)
		if err != nil {
			return nil, err
		}
		if err := rs.Ping(ctx); err != nil {
			logger.Warn("redis is unavailable, embeddings are kept in memory only", zap.Error(err))
			_ = rs.Close()
		} else {
			store = rs
			svc.closers = append(svc.closers, rs.Close)
		}
	}
	embedder := embedding.NewCached(gemini.NewEmbedder(client, gc.EmbeddingModel), store, embeddingCacheLimit, logger.Named("embedding"))

	jobCache := cache.New(logger.Named("cache"), cache.WithTTL(settings.Filter.CacheTTL))
	jobCache.Clear()

	svc.titles = matching.NewTitleMatcher(embedder, settings.Search.PreferredTitles, settings.Filter.TitleCacheSize, logger.Named("titles"))
	svc.skills = matching.NewSkillMatcher(embedder, settings.Profile.Resume.Skills, settings.Search.SkipRequiredSkills,
		settings.Filter.SkillMatchRatio, logger.Named("skills"))

	deps := filtering.Deps{
		Cache:     jobCache,
		Blacklist: blacklist,
		History:   history,
		Titles:    svc.titles,
		Languages: language.NewHybrid(language.NewLingua(), language.Whatlang{}, logger.Named("language")),
		Logger:    logger,
	}
	filterCfg := filtering.ConfigFromSettings(settings)
	svc.preliminary = filtering.NewPreliminary(deps, filterCfg)
	svc.detailed = filtering.NewDetailed(deps, filterCfg, gemini.NewExtractor(generator, logger), svc.skills)

	compiler := rendering.NewCompiler(settings.WorkDir, logger.Named("latex"))
	svc.documents = rendering.NewDocuments(compiler, rendering.ProfileFromSettings(settings), logger)

	svc.editor = editor.NewManager(ws.NewHub("editor", logger), svc.documents, settings.Profile.Resume.CoverLetterTemplate, logger.Named("editor"))
	svc.sync = datasync.NewManager(ws.NewHub("sync", logger), blacklist, history, logger.Named("sync"))

	svc.applications = application.NewService(application.Deps{
		Cache:       jobCache,
		Editor:      svc.editor,
		Documents:   svc.documents,
		History:     history,
		Broadcaster: svc.sync,
		Customizer:  gemini.NewResumeCustomizer(generator, logger),
		Writer:      gemini.NewCoverLetterWriter(generator, logger),
		Logger:      logger.Named("application"),
	}, application.ConfigFromSettings(settings))

	return svc, nil
}

// subscribe pushes reloaded settings into every reloadable component.
func (s *services) subscribe(logger *zap.Logger) {
	s.cfg.Subscribe(func(settings *config.Settings) {
		filterCfg := filtering.ConfigFromSettings(settings)
		s.preliminary.SetConfig(filterCfg)
		s.detailed.SetConfig(filterCfg)
		s.titles.SetPreferredTitles(settings.Search.PreferredTitles)
		s.skills.SetCandidateSkills(settings.Profile.Resume.Skills, settings.Search.SkipRequiredSkills)
		s.documents.SetProfile(rendering.ProfileFromSettings(settings))
		s.editor.SetCoverLetterTemplate(settings.Profile.Resume.CoverLetterTemplate)
		s.applications.SetConfig(application.ConfigFromSettings(settings))
		logger.Info("applied reloaded settings")
	})
}
