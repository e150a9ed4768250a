package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"github.com/terraincognita07/boardkeeper/internal/api"
	"github.com/terraincognita07/boardkeeper/internal/config"
	"github.com/terraincognita07/boardkeeper/internal/events"
)

const minSecretKeyLength = 32

func newServeCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := options.load()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	secretKey, err := resolveSecretKey(cfg)
	if err != nil {
		return err
	}
	port, err := resolvePort(cfg)
	if err != nil {
		return err
	}
	location, ok := cfg.Location()
	if !ok {
		log.Printf("invalid TZ %q, falling back to UTC", cfg.Timezone)
	}
	time.Local = location

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	dispatcher := events.NewDispatcher(events.LogSink{}, events.NewStoreNotifier(store), cfg.EventQueueSize)
	lifecycleCtx, cancelLifecycle := context.WithCancel(context.Background())
	defer cancelLifecycle()
	dispatcher.Start(lifecycleCtx)
	defer dispatcher.Stop()

	handler, err := api.NewHandler(store, dispatcher, api.HandlerOptions{
		SecretKey:     secretKey,
		CookieSecure:  cfg.CookieSecure,
		MaxTimerHours: cfg.MaxTimerHours,
		Location:      location,
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               "Boardkeeper",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())
	app.Use(csrf.New(csrfMiddlewareConfig(cfg.CookieSecure)))
	api.RegisterRoutes(app, handler)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("server shutdown failed: %v", err)
		}
	}()

	log.Printf("Boardkeeper listening on http://0.0.0.0:%s (db: %s, tz: %s)", port, cfg.DBPath, location.String())
	if err := app.Listen(":" + port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	stats := dispatcher.Stats()
	log.Printf("events: delivered=%d failed=%d dropped=%d", stats.Delivered, stats.Failed, stats.Dropped)
	return nil
}

// csrfMiddlewareConfig protects cookie sessions with a double-submit token.
// Requests without the session cookie, or with a bearer token, carry no
// ambient credentials and skip the check.
func csrfMiddlewareConfig(cookieSecure bool) csrf.Config {
	return csrf.Config{
		KeyLookup:      "header:" + csrf.HeaderName,
		CookieName:     "boardkeeper_csrf",
		CookieSameSite: "Lax",
		CookieHTTPOnly: false,
		CookieSecure:   cookieSecure,
		ContextKey:     "csrf",
		Next: func(c *fiber.Ctx) bool {
			header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
			if strings.HasPrefix(strings.ToLower(header), "bearer ") {
				return true
			}
			return c.Cookies(api.AuthCookieName) == ""
		},
	}
}

func resolveSecretKey(cfg config.Config) (string, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	switch {
	case secret == "":
		return "", errors.New("SECRET_KEY is required")
	case cfg.UsesDefaultSecret():
		return "", errors.New("SECRET_KEY uses the insecure placeholder, set a random value")
	case len(secret) < minSecretKeyLength:
		return "", fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
	}
	return secret, nil
}

func resolvePort(cfg config.Config) (string, error) {
	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		return config.DefaultPort, nil
	}
	value, err := strconv.Atoi(port)
	if err != nil || value < 1 || value > 65535 {
		return "", fmt.Errorf("invalid PORT %q", cfg.Port)
	}
	return port, nil
}
