package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"github.com/zeladoria/portal-gateway/internal/api/schema"
	"github.com/zeladoria/portal-gateway/internal/backend"
	"github.com/zeladoria/portal-gateway/internal/config"
	"github.com/zeladoria/portal-gateway/internal/function"
	"github.com/zeladoria/portal-gateway/internal/hashmap"
	"github.com/zeladoria/portal-gateway/internal/session"
	"github.com/zeladoria/portal-gateway/internal/storage"
	"github.com/zeladoria/portal-gateway/internal/user"
)

// Service represents the browser-facing gateway API service
type Service struct {
	server *http.Server

	Config   *config.Config
	Storage  storage.Driver
	Backend  *backend.Client
	Sessions *session.Manager

	// loginErrors relays transient login failure messages to the front end, keyed by
	// the flow ID the login form generates. A short TTL prevents cross-user leakage.
	loginErrors *hashmap.ExpiringMap[string, string]

	writer *schema.Writer
}

// Startup starts up the gateway API
func (service *Service) Startup() error {
	// Create the HTTP schema writer
	service.writer = &schema.Writer{
		InternalErrorHook: func(err error) {
			log.Error().Err(err).Msg("the gateway API experienced an unexpected error")
		},
	}

	// Create the login error relay cache
	service.loginErrors = hashmap.NewExpiring[string, string](service.Config.LoginErrorTTL)
	service.loginErrors.ScheduleCleanupTask(service.Config.LoginErrorTTL)

	// Create the HTTP router
	router := chi.NewRouter()
	router.Use(middleware.RedirectSlashes)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{service.Config.AllowedOrigin},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	router.NotFound(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusMethodNotAllowed, schema.ErrMethodNotAllowed)
	})

	// Register the authentication endpoints
	router.Post("/api/auth/login", service.EndpointLogin)
	router.Get("/api/auth/login-error", service.EndpointLoginError)
	router.Post("/api/auth/logout", service.EndpointLogout)
	router.Get("/api/auth/session", function.Nest[http.HandlerFunc](
		service.EndpointGetSession,
		service.MiddlewareVerifySession,
	))

	// Register the authenticated proxy & cookie policy endpoints
	router.Post("/api/auth/secure-fetch", service.EndpointSecureFetch)
	router.Post("/api/auth/set-session-cookie", service.EndpointSetSessionCookie)
	router.Post("/api/auth/check-rate-limit", service.EndpointCheckRateLimit)

	// Register the administrative audit endpoints
	router.Get("/api/admin/login-attempts", function.Nest[http.HandlerFunc](
		service.EndpointGetLoginAttempts,
		service.MiddlewareVerifySession,
		service.MiddlewareRequireRole(user.RoleAdministrador),
	))

	// Start up the server
	server := &http.Server{
		Addr:    service.Config.ListenAddress,
		Handler: router,
	}
	service.server = server
	return server.ListenAndServe()
}

// Shutdown shuts down the gateway API
func (service *Service) Shutdown() {
	if service.server != nil {
		service.server.Close()
		service.server = nil
	}
	if service.loginErrors != nil {
		service.loginErrors.StopCleanupTask()
		service.loginErrors = nil
	}
}
