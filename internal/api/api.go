// Package api assembles minigit's HTTP surface from its services: health,
// metrics, on-demand inventory scans, the repository API and the smart HTTP
// git endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/internal/scheduling"
	"github.com/nicholas-fedor/minigit/pkg/access"
	"github.com/nicholas-fedor/minigit/pkg/api"
	"github.com/nicholas-fedor/minigit/pkg/api/health"
	"github.com/nicholas-fedor/minigit/pkg/api/inventory"
	metricsAPI "github.com/nicholas-fedor/minigit/pkg/api/metrics"
	"github.com/nicholas-fedor/minigit/pkg/api/repos"
	"github.com/nicholas-fedor/minigit/pkg/api/smart"
	"github.com/nicholas-fedor/minigit/pkg/browse"
	"github.com/nicholas-fedor/minigit/pkg/config"
	"github.com/nicholas-fedor/minigit/pkg/content"
	"github.com/nicholas-fedor/minigit/pkg/metrics"
	"github.com/nicholas-fedor/minigit/pkg/repository"
	"github.com/nicholas-fedor/minigit/pkg/types"
)

// Services holds the collaborators the HTTP surface serves.
type Services struct {
	Config     config.Config
	Manager    *repository.Manager
	Browser    *browse.Service
	Resolver   *access.Resolver
	Classifier *content.Classifier
	Gatherer   prometheus.Gatherer // Nil serves the default registry.
	PushSinks  []types.AuditSink   // Told about every completed push.
	Version    string

	// Inventory receives on-demand scans. Nil disables the inventory endpoint.
	Inventory scheduling.InventoryRecorder
	ScanLock  chan bool // Shared with the scheduler; nil creates a private lock.
}

// NewAPI registers every endpoint on a new API.
//
// Parameters:
//   - svc: Services to expose.
//   - server: Optional HTTPServer replacing the default http.Server.
//
// Returns:
//   - *api.API: Ready to Start.
func NewAPI(svc Services, server ...api.HTTPServer) *api.API {
	opts := []api.Option{}
	if len(server) > 0 {
		opts = append(opts, api.WithServer(server[0]))
	}

	if svc.Config.AuthEnabled() {
		opts = append(opts, api.WithMiddlewares(api.RequireBasicAuth(svc.Config.AuthUser, svc.Config.AuthPass, "/health")))
	}

	httpAPI := api.New(svc.Config.Addr(), opts...)

	healthHandler := health.New(svc.Manager.Root(), svc.Manager, svc.Version)
	httpAPI.RegisterHandler(healthHandler.Path, healthHandler)

	metricsHandler := metricsAPI.New(svc.Gatherer)
	httpAPI.RegisterHandler(metricsHandler.Path, metricsHandler.Handle)

	if svc.Inventory != nil {
		inventoryHandler := inventory.New(func() (*metrics.Inventory, error) {
			return scheduling.ScanAndRecord(svc.Manager, svc.Inventory)
		}, svc.ScanLock)
		httpAPI.RegisterFunc(inventoryHandler.Path, inventoryHandler.Handle)
	}

	reposHandler := repos.New(svc.Manager, svc.Browser, svc.Classifier)
	httpAPI.Mount(reposHandler.Path, reposHandler.Routes())

	smartOpts := []smart.Option{smart.WithAllowPush(svc.Config.AllowPush)}
	for _, sink := range svc.PushSinks {
		smartOpts = append(smartOpts, smart.WithPushSink(sink))
	}

	smartHandler := smart.New(svc.Resolver, smartOpts...)
	httpAPI.Mount(smartHandler.Path, smartHandler.Routes())

	logrus.WithFields(logrus.Fields{
		"auth":       svc.Config.AuthEnabled(),
		"allow_push": svc.Config.AllowPush,
	}).Debug("Registered HTTP endpoints")

	return httpAPI
}

// SetupAndStartAPI builds the API and serves it until ctx is cancelled.
//
// Returns:
//   - error: An error if the server fails for any reason other than a clean shutdown.
func SetupAndStartAPI(ctx context.Context, svc Services, server ...api.HTTPServer) error {
	httpAPI := NewAPI(svc, server...)

	if err := httpAPI.Start(ctx, true); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("Failed to start API")

		return fmt.Errorf("failed to start HTTP API: %w", err)
	}

	return nil
}
