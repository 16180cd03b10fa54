// Package httpapi is the HTTP surface the fiber application that
// exposes /v1/messages (Anthropic dialect), /v1/chat/completions
// (OpenAI dialect), /v1/messages/count_tokens, /health, /metrics and a
// root info endpoint, wired to the translator, router, signature cache
// and upstream client.
//
// Auth, body-size limiting and the /metrics endpoint sit alongside the
// core translation endpoints so the proxy can be exposed beyond a
// single trusted local caller.
package httpapi

import (
	"crypto/subtle"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"cloudcode-proxy/internal/cache"
	"cloudcode-proxy/internal/config"
	"cloudcode-proxy/internal/daemon"
	"cloudcode-proxy/internal/metrics"
	"cloudcode-proxy/internal/router"
	"cloudcode-proxy/internal/upstream"
	"cloudcode-proxy/pkg/constants"
)

// ProxyVersion is the current version of cloudcode-proxy.
const ProxyVersion = "1.0.0"

// Deps bundles every collaborator a request handler needs. Built once
// at startup and shared read-only across all requests.
type Deps struct {
	Cfg      *config.Config
	Router   *router.Router
	SigCache *cache.SignatureCache
	Upstream *upstream.Client
	Metrics  *metrics.Metrics
}

// Start builds and runs the fiber application until it is asked to
// shut down.
func Start(cfg *config.Config) error {
	deps := &Deps{
		Cfg:      cfg,
		Router:   router.New(),
		SigCache: cache.New(),
		Upstream: upstream.New(cfg.CloudCodeAPIKey, cfg.CloudCodeBaseURL),
		Metrics:  metrics.New(),
	}
	deps.Router.SetOverrides(cfg.OpusModel, cfg.SonnetModel, cfg.HaikuModel)
	deps.Router.SetWide1MContext(cfg.Gemini1MContext)

	app := BuildApp(deps)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		fmt.Println("\nshutting down...")
		daemon.Cleanup()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
	fmt.Printf("cloudcode-proxy running on http://localhost:%s\n", cfg.Port)
	fmt.Printf("  upstream: %s\n", cfg.CloudCodeBaseURL)
	fmt.Printf("  default model: %s\n", cfg.DefaultModel)

	return app.Listen(addr)
}

// BuildApp assembles the fiber application against an already-built Deps,
// without starting a listener. Split out from Start so tests can drive
// requests through app.Test() against a fully wired app.
func BuildApp(deps *Deps) *fiber.App {
	cfg := deps.Cfg

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ServerHeader:          "cloudcode-proxy",
		AppName:               "cloudcode-proxy v" + ProxyVersion,
		BodyLimit:             constants.MaxRequestBodyBytes,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "*",
	}))

	if cfg.SimpleLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	app.Get(constants.EndpointHealth, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": ProxyVersion})
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "cloudcode-proxy",
			"version": ProxyVersion,
			"status":  "running",
			"config": fiber.Map{
				"upstream_base_url": cfg.CloudCodeBaseURL,
				"default_model":     cfg.DefaultModel,
				"1m_context":        cfg.Gemini1MContext,
			},
			"endpoints": fiber.Map{
				"health":           constants.EndpointHealth,
				"metrics":          constants.EndpointMetrics,
				"messages":         constants.EndpointMessages,
				"chat_completions": constants.EndpointChatCompletions,
				"count_tokens":     constants.EndpointCountTokens,
			},
		})
	})

	app.Get(constants.EndpointMetrics, adaptor.HTTPHandler(deps.Metrics.Handler()))

	app.Use(authMiddleware(cfg))

	app.Post(constants.EndpointMessages, func(c *fiber.Ctx) error { return handleMessages(c, deps) })
	app.Post(constants.EndpointChatCompletions, func(c *fiber.Ctx) error { return handleChatCompletions(c, deps) })
	app.Post(constants.EndpointCountTokens, func(c *fiber.Ctx) error { return handleCountTokens(c, deps) })

	return app
}

// authMiddleware enforces the configured bearer token, comparing in
// constant time to avoid leaking key length/prefix through timing. When
// no ProxyAPIKey is configured, auth is a no-op — matching local-only
// deployments where the proxy binds only to loopback.
func authMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.ProxyAPIKey == "" {
			return c.Next()
		}

		presented := c.Get(constants.HeaderXAPIKey)
		if presented == "" {
			if auth := c.Get(constants.HeaderAuthorization); len(auth) > 7 && auth[:7] == "Bearer " {
				presented = auth[7:]
			}
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(cfg.ProxyAPIKey)) != 1 {
			return c.Status(401).JSON(fiber.Map{
				"type": constants.MessageTypeError,
				"error": fiber.Map{
					"type":    constants.ErrorTypeAuthentication,
					"message": "invalid API key",
				},
			})
		}
		return c.Next()
	}
}
