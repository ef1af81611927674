package gateway

import (
	"net/http"
	"time"

	"github.com/zeladoria/portal-gateway/internal/api/schema"
)

var (
	cookieNameSession       = "portal_session"
	cookieNameSessionSecure = "__Secure-portal_session"

	cookieMaxAgeRemember = int((30 * 24 * time.Hour).Seconds())
)

// sessionCookieName returns the session cookie name of the current deployment environment.
// Production deployments use the '__Secure-' prefix which browsers only accept over HTTPS.
func (service *Service) sessionCookieName() string {
	if service.Config.IsEnvProduction() {
		return cookieNameSessionSecure
	}
	return cookieNameSession
}

// sessionCookie extracts the session cookie out of a request
func (service *Service) sessionCookie(request *http.Request) (*http.Cookie, error) {
	return request.Cookie(service.sessionCookieName())
}

// setSessionCookie issues the httpOnly session cookie holding the opaque raw token.
// The cookie is session-scoped unless the user chose to be remembered, in which case
// it persists for 30 days.
func (service *Service) setSessionCookie(writer http.ResponseWriter, rawToken string, remember bool) {
	cookie := &http.Cookie{
		Name:     service.sessionCookieName(),
		Value:    rawToken,
		Path:     "/",
		Secure:   service.Config.IsEnvProduction(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.MaxAge = cookieMaxAgeRemember
	}
	http.SetCookie(writer, cookie)
}

// unsetSessionCookie expires the session cookie
func (service *Service) unsetSessionCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     service.sessionCookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Second),
		Secure:   service.Config.IsEnvProduction(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

type endpointSetSessionCookieRequestPayload struct {
	LembrarDeMim *bool `json:"lembrarDeMim" required:"true"`
}

// EndpointSetSessionCookie handles the 'POST /api/auth/set-session-cookie' endpoint.
// It augments an already established session with a changed 'remember me' choice by
// re-issuing the session cookie with the corresponding persistence attributes.
// It never establishes a session on its own.
func (service *Service) EndpointSetSessionCookie(writer http.ResponseWriter, request *http.Request) {
	cookie, err := service.sessionCookie(request)
	if err != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, schema.ErrNoSessionToken)
		return
	}

	payload, validationErrs, err := schema.UnmarshalBody[endpointSetSessionCookieRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}
	remember := *payload.LembrarDeMim

	// Persist the changed choice on the stored session if it still exists.
	// The cookie gets re-issued either way; re-invocations are idempotent.
	ses, err := service.Storage.Sessions().GetByRawToken(request.Context(), cookie.Value)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if ses != nil {
		if err := service.Sessions.SetRemember(request.Context(), ses, remember); err != nil {
			service.writer.WriteInternalError(writer, err)
			return
		}
	}

	service.setSessionCookie(writer, cookie.Value, remember)
	service.writer.WriteJSON(writer, map[string]interface{}{
		"success": true,
	})
}
