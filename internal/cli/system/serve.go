package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/studylit/internal/auth"
	"github.com/julianstephens/studylit/internal/cli"
	"github.com/julianstephens/studylit/internal/config"
	"github.com/julianstephens/studylit/internal/logger"
	"github.com/julianstephens/studylit/internal/ratelimit"
	"github.com/julianstephens/studylit/internal/server"
)

type ServeCmd struct {
	Addr string `help:"Listen address. Overrides server.addr from the config file."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	cfg := ctx.Config
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: cfg.ConfigDir, Console: true}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authSvc, err := auth.NewService(ctx.Store, cfg.Server.JWTSecret, cfg.Server.TokenTTL)
	if err != nil {
		return fmt.Errorf("%w: run 'studylit init' or set STUDYLIT_JWT_SECRET", err)
	}

	limiter, closeLimiter, err := newLimiter(sigCtx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	coach := ctx.Coach()
	if coach == nil {
		logger.Warn("No LLM API key configured, chat and plan endpoints will answer 503")
	}

	ctx.PerformAutomaticBackup(sigCtx)

	srv := server.New(server.Deps{
		Store:   ctx.Store,
		Auth:    authSvc,
		Coach:   coach,
		Reports: ctx.Reports(),
		Limiter: limiter,
		Config:  cfg,
		Now:     ctx.Clock,
	})
	ctx.Printf("studylit server listening on %s (Ctrl+C to stop)\n", cfg.Server.Addr)
	return srv.Run(sigCtx)
}

func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func(), error) {
	switch cfg.RateLimit.Backend {
	case config.BackendRedis:
		l, err := ratelimit.NewRedisLimiterFromURL(ctx, cfg.RateLimit.RedisURL, "studylit:ratelimit:")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to the rate limit store: %w", err)
		}
		return l, func() {
			if err := l.Close(); err != nil {
				logger.Warn("failed to close rate limit store", "error", err)
			}
		}, nil
	default:
		return ratelimit.NewMemoryLimiter(), func() {}, nil
	}
}
