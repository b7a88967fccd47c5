package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
	enginex "github.com/lucy-fin/lucy-agent/agent/engine"
	extractx "github.com/lucy-fin/lucy-agent/agent/extract"
	llmx "github.com/lucy-fin/lucy-agent/agent/llm"
	promptx "github.com/lucy-fin/lucy-agent/agent/prompt"
	rolesx "github.com/lucy-fin/lucy-agent/agent/roles"
	stagex "github.com/lucy-fin/lucy-agent/agent/stage"
	statex "github.com/lucy-fin/lucy-agent/agent/state"
	telemetryx "github.com/lucy-fin/lucy-agent/agent/telemetry"
	configx "github.com/lucy-fin/lucy-agent/pkg/config"
	_ "github.com/lucy-fin/lucy-agent/pkg/logger/autoload"
	qstashx "github.com/lucy-fin/lucy-agent/pkg/qstash"
	serverx "github.com/lucy-fin/lucy-agent/server"
)

type AppConfig struct {
	// SessionStore selects the persistence backend: memory, upstash or postgres.
	SessionStore string `envconfig:"SESSION_STORE" split_words:"true" default:"memory"`
	// DisbursementPublisher enables the QStash publisher when set to "qstash".
	DisbursementPublisher string `envconfig:"DISBURSEMENT_PUBLISHER" split_words:"true" default:"none"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("LUCY")

	store := newStore(ctx, *appCfg)
	publisher := newPublisher(*appCfg)
	extractor := newExtractor(ctx)

	engine, err := enginex.New(
		store,
		stagex.MustNewRegistry(),
		rolesx.NewRegistry(),
		extractor,
		telemetryx.NewZerologSink(log.Logger),
		publisher,
		*configx.MustNew[enginex.Config]("ENGINE"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("create engine")
	}

	srv, err := serverx.New(*configx.MustNew[serverx.Config]("SERVER"), engine, store)
	if err != nil {
		log.Fatal().Err(err).Msg("create server")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("http server failed")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}
}

func newStore(ctx context.Context, cfg AppConfig) statex.Store {
	switch strings.ToLower(strings.TrimSpace(cfg.SessionStore)) {
	case "", "memory":
		log.Warn().Msg("using in-memory session store, sessions do not survive restarts")
		return statex.NewMemoryStore()
	case "upstash":
		store, err := statex.NewUpstashRedisStore(*configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS"))
		if err != nil {
			log.Fatal().Err(err).Msg("create upstash session store")
		}
		return store
	case "postgres":
		store, err := statex.NewPostgresStore(*configx.MustNew[statex.PostgresConfig]("POSTGRES"))
		if err != nil {
			log.Fatal().Err(err).Msg("create postgres session store")
		}
		if err := store.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("init postgres session store")
		}
		return store
	default:
		log.Fatal().Str("session_store", cfg.SessionStore).Msg("unknown session store")
		return nil
	}
}

func newPublisher(cfg AppConfig) contractx.DisbursementPublisher {
	switch strings.ToLower(strings.TrimSpace(cfg.DisbursementPublisher)) {
	case "", "none":
		log.Warn().Msg("disbursement publisher disabled, accepted offers are not forwarded")
		return nil
	case "qstash":
		return qstashx.MustNew(*configx.MustNew[qstashx.Config]("QSTASH"))
	default:
		log.Fatal().Str("disbursement_publisher", cfg.DisbursementPublisher).Msg("unknown disbursement publisher")
		return nil
	}
}

// newExtractor prefers the structured LLM extractor and falls back to rules
// only when no model is configured.
func newExtractor(ctx context.Context) contractx.Extractor {
	rules := extractx.NewRuleExtractor()

	llmCfg, err := configx.New[llmx.Config]("OPENROUTER")
	if err != nil || !llmCfg.Enabled() {
		log.Warn().Msg("no extractor model configured, using rule extraction only")
		return rules
	}

	openRouterCfg := llmCfg.OpenRouter()
	extractor, err := llmx.NewStructuredExtractor(ctx, &openRouterCfg, promptx.LoadPromptSet().Extractor, rules)
	if err != nil {
		log.Fatal().Err(err).Str("model", llmCfg.Model).Msg("create structured extractor")
	}
	return extractor
}
