package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/zeladoria/portal-gateway/internal/api/schema"
	"github.com/zeladoria/portal-gateway/internal/session"
	"github.com/zeladoria/portal-gateway/internal/user"
)

var contextValueSession = "session"

// MiddlewareVerifySession makes sure that the requesting client holds a valid session
// cookie, transparently refreshing a stale access token on the way.
// Additionally, it injects the session object itself into the request context.
func (service *Service) MiddlewareVerifySession(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		cookie, err := service.sessionCookie(request)
		if err != nil {
			service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
			return
		}

		ses, err := service.Sessions.Resolve(request.Context(), cookie.Value)
		if err != nil {
			service.writer.WriteInternalError(writer, err)
			return
		}
		if ses == nil {
			service.unsetSessionCookie(writer)
			service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
			return
		}
		if ses.RefreshFailed {
			// Terminal for this session; the front end redirects to the login page
			service.unsetSessionCookie(writer)
			service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrSessionExpired)
			return
		}

		request = request.WithContext(context.WithValue(request.Context(), contextValueSession, ses))
		next(writer, request)
	}
}

// MiddlewareRequireRole makes sure that the session's user holds at least the required role
func (service *Service) MiddlewareRequireRole(required user.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(writer http.ResponseWriter, request *http.Request) {
			ses, ok := request.Context().Value(contextValueSession).(*session.Session)
			if !ok {
				service.writer.WriteInternalError(writer, errors.New("role check without session verification"))
				return
			}

			if !ses.User.Flags.Role().AtLeast(required) {
				service.writer.WriteErrors(writer, http.StatusForbidden, schema.ErrForbidden)
				return
			}
			next(writer, request)
		}
	}
}
