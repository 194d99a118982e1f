package bootstrap

import (
	"time"

	"itk_server/adapter/out/persistence"
	"itk_server/adapter/out/provider"
	"itk_server/config"
	"itk_server/core/agent/llm"
	"itk_server/core/port/out"
	"itk_server/core/service/events"
	"itk_server/core/service/hobby"
	"itk_server/core/service/newsletter"
	"itk_server/core/service/pipeline"
	"itk_server/core/service/reply"
	"itk_server/core/service/venues"
	"itk_server/infra/database"
	"itk_server/pkg/crypto"
	"itk_server/pkg/logger"
	"itk_server/pkg/ratelimit"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Dependencies holds every wired collaborator. Built once at startup and
// shared between the HTTP surface and the pipeline.
type Dependencies struct {
	Config *config.Config

	DB    *pgxpool.Pool
	SQLX  *sqlx.DB
	Redis *redis.Client

	Store  *persistence.Store
	Oracle out.CompletionOracle

	HobbyService  *hobby.Service
	EventsService *events.Service
	VenuesService *venues.Service
	Composer      *newsletter.Composer
	Dispatcher    *newsletter.Dispatcher
	ReplyService  *reply.Service
	Pipeline      *pipeline.Service

	WebhookLimiter *ratelimit.SlidingWindowLimiter
}

// NewDependencies builds the full dependency graph. The returned cleanup
// closes connections in reverse order of creation.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Postgres: pgx pool for health probes, sqlx handle for the adapters.
	pool, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = pool
	cleanups = append(cleanups, pool.Close)

	db, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.SQLX = db
	cleanups = append(cleanups, func() { _ = db.Close() })

	// Redis is optional: the rate limiter fails open without it.
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, rate limiting disabled")
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { _ = redisClient.Close() })
		}
	}
	deps.WebhookLimiter = ratelimit.NewSlidingWindowLimiter(deps.Redis, cfg.WebhookRateLimit, time.Minute)

	store := persistence.NewStore(db)
	deps.Store = store

	var tokenCipher *crypto.TokenCipher
	if cfg.TokenEncryptionKey != "" {
		tokenCipher, err = crypto.NewTokenCipher([]byte(cfg.TokenEncryptionKey))
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	users := persistence.NewUserAdapter(store)
	hobbies := persistence.NewHobbyAdapter(store)
	goals := persistence.NewGoalAdapter(store)
	tags := persistence.NewTagAdapter(store)
	pairs := persistence.NewPairAdapter(store)
	newsletters := persistence.NewNewsletterAdapter(store)
	feedback := persistence.NewFeedbackAdapter(store)
	venueRepo := persistence.NewVenueAdapter(store)
	oauthTokens := persistence.NewOAuthAdapter(store, tokenCipher)

	deps.Oracle = provider.NewBreakerOracle(llm.NewClient(llm.ClientConfig{
		APIKey:         cfg.OpenRouterAPIKey,
		BaseURL:        cfg.OpenRouterBaseURL,
		ChatModel:      cfg.ChatModel,
		SearchModel:    cfg.SearchModel,
		WritingModel:   cfg.WritingModel,
		ChatTimeout:    cfg.ChatTimeout,
		SearchTimeout:  cfg.SearchTimeout,
		WritingTimeout: cfg.WritingTimeout,
	}))

	deps.HobbyService = hobby.NewService(users, hobbies, tags, pairs, deps.Oracle)
	deps.EventsService = events.NewService(
		pairs,
		deps.Oracle,
		time.Duration(cfg.PairFreshnessDays)*24*time.Hour,
		cfg.PairSearchLimit,
	)
	deps.VenuesService = venues.NewService(
		venueRepo,
		deps.Oracle,
		time.Duration(cfg.VenueFreshnessDays)*24*time.Hour,
		time.Duration(cfg.VenueEventFreshnessDays)*24*time.Hour,
	)

	renderer := newsletter.NewRenderer(cfg.AppURL, cfg.FromEmail)
	deps.Composer = newsletter.NewComposer(
		users,
		hobbies,
		goals,
		pairs,
		newsletters,
		feedback,
		oauthTokens,
		deps.VenuesService,
		provider.NewSpotifyAdapter(),
		provider.NewGoogleCalendarAdapter(),
		deps.Oracle,
		renderer,
	)

	sender := provider.NewSendGridSender(cfg.SendGridAPIKey, cfg.FromEmail)
	deps.Dispatcher = newsletter.NewDispatcher(newsletters, users, sender, cfg.ReplyToEmail)

	classifier := reply.NewClassifier(deps.Oracle)
	deps.ReplyService = reply.NewService(
		users,
		hobbies,
		goals,
		newsletters,
		feedback,
		classifier,
		deps.HobbyService,
		store,
	)

	deps.Pipeline = pipeline.NewService(
		users,
		deps.HobbyService,
		deps.EventsService,
		deps.VenuesService,
		deps.Composer,
		deps.Dispatcher,
		cfg.DraftWorkers,
	)

	return deps, cleanup, nil
}
