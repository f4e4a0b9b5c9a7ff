package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"farm-agent/core/loader"
	"farm-agent/core/logger"
	"farm-agent/core/middleware/auth"
	"farm-agent/core/middleware/rayid"
	"farm-agent/feature/audit"
	"farm-agent/feature/inventory"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "farm-agent/docs/swagger"
)

// @title Farm Agent API
// @version 1.0
// @description Status API of the SharePoint farm change agent.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the inventory and audit pollers",
	Long: `Runs every enabled poller until interrupted, plus the optional status server.

Each poller waits and re-checks while its source is unavailable. After a long
outage it reloads its persisted state before resuming.`,
	RunE: runStart,
}

func init() {
	RootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, l, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newAgent(ctx, cfg, l, agentOptions{
		inventory:       cfg.Inventory.Enabled,
		audit:           cfg.Audit.Enabled,
		waitForDatabase: true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer a.close()
	zap.ReplaceGlobals(a.logger)

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range a.runners() {
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	if a.cfg.Server.Enabled {
		app := newServer(a)
		g.Go(func() error {
			a.logger.Info("Starting status server", zap.String("port", a.cfg.Server.Port))
			if err := app.Listen(a.cfg.Server.Address()); err != nil {
				return fmt.Errorf("status server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			a.logger.Info("Shutting down status server...")
			return app.Shutdown()
		})
	}

	err = g.Wait()
	a.logger.Info("Agent stopped")
	return err
}

// newServer builds the status server with every enabled feature loaded.
func newServer(a *agent) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	mgr := loader.NewManager(a.logger)
	if a.inventory != nil {
		mgr.Register(inventory.NewFeature(a.inventory, true))
	}
	if a.audit != nil {
		mgr.Register(audit.NewFeature(a.audit, true))
	}

	// RayID first so every log line below carries it.
	app.Use(rayid.New())

	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(a.logger, c)
		l.Debug("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Use(auth.New(auth.Config{ApiKey: a.cfg.Server.ApiKey, Public: []string{"/health"}}))

	app.Get("/health", handleHealth)

	if err := mgr.LoadAll(app); err != nil {
		a.logger.Fatal("Failed to load features", zap.Error(err))
	}
	return app
}

// handleHealth reports liveness.
// @Summary Health
// @Description Liveness check.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string "OK"
// @Router /health [get]
func handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
