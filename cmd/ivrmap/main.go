package main

import (
	"net/http"
	"os"

	"github.com/caretide/ivrmap/cmd/ivrmap/api"
	"github.com/caretide/ivrmap/cmd/ivrmap/config"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/audit"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/fallback"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/learning"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/mapping"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/mappingcache"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/score"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
	"github.com/caretide/ivrmap/util"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stdout })).With().Timestamp().Caller().Logger()
	log.Info().Msg("Starting ivrmap")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	registryFile := cfg.RegistryFile
	if registryFile != "" {
		registryFile = util.GetAbsolutePath(registryFile)
	}
	reg, err := registry.NewRegistryFromFile(registryFile, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build canonical field registry")
	}

	templates := template.NewRepository(log, util.GetAbsolutePath(cfg.TemplateDir))
	if err := templates.LoadTemplates(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load manufacturer templates")
	}

	learningCfg := learning.DefaultConfig()
	var learningRepo learning.Repository
	if cfg.DatabaseURL != "" {
		db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to the database")
		}
		defer db.Close()

		learningRepo, err = learning.NewSQLRepository(db, learningCfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize learning store")
		}
	} else {
		log.Warn().Msg("No DATABASE_URL configured, learning store is in-memory only")
		learningRepo = learning.NewMemoryRepository(learningCfg)
	}
	learningSvc := learning.NewService(learningRepo, learningCfg, log)

	var redisTier *mappingcache.RedisTier
	if cfg.RedisAddr != "" {
		redisTier, err = mappingcache.NewRedisTier(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, "ivrmap", log)
		if err != nil {
			// A missing shared tier only costs cache reuse across processes.
			log.Warn().Err(err).Msg("Redis unavailable, running with in-memory cache only")
			redisTier = nil
		}
	}

	cacheCfg := mappingcache.DefaultConfig()
	cacheCfg.DefaultTTL = cfg.CacheTTL
	cache := mappingcache.New(cacheCfg, redisTier, log)
	defer cache.Stop()

	orchestratorCfg := mapping.DefaultConfig()
	orchestratorCfg.Timeout = cfg.MappingTimeout

	orchestrator := mapping.NewService(
		orchestratorCfg,
		mapping.DefaultStrategies(reg, log),
		score.NewAggregator(score.DefaultConfig(), log),
		cache,
		learningSvc,
		fallback.NewService(log),
		audit.NewLogger(os.Stdout, cfg.AuditMaxValueLength),
		log,
	)

	sourceClient := source.NewClient(source.ClientConfig{}, log)
	router := api.NewMappingRouter(templates, orchestrator, learningSvc, sourceClient, log)

	log.Info().Str("port", cfg.Port).Msg("Listening")
	if err := http.ListenAndServe(":"+cfg.Port, router.SetupRoutes()); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
