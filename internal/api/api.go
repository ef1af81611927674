package api

import (
	"errors"
	"net/http"

	"github.com/zeladoria/portal-gateway/internal/api/gateway"
	"github.com/zeladoria/portal-gateway/internal/backend"
	"github.com/zeladoria/portal-gateway/internal/config"
	"github.com/zeladoria/portal-gateway/internal/session"
	"github.com/zeladoria/portal-gateway/internal/storage"
)

// Service represents the gateway API service
type Service struct {
	Config   *config.Config
	Storage  storage.Driver
	Backend  *backend.Client
	Sessions *session.Manager

	gateway *gateway.Service
}

// Startup starts up the gateway API
func (service *Service) Startup(errs chan<- error) {
	gatewayService := &gateway.Service{
		Config:   service.Config,
		Storage:  service.Storage,
		Backend:  service.Backend,
		Sessions: service.Sessions,
	}
	service.gateway = gatewayService
	go func() {
		if err := gatewayService.Startup(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
}

// Shutdown shuts down the gateway API
func (service *Service) Shutdown() {
	if service.gateway != nil {
		service.gateway.Shutdown()
		service.gateway = nil
	}
}
