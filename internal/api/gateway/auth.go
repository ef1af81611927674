package gateway

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zeladoria/portal-gateway/internal/api/schema"
	"github.com/zeladoria/portal-gateway/internal/api/validation"
	"github.com/zeladoria/portal-gateway/internal/attempt"
	"github.com/zeladoria/portal-gateway/internal/session"
)

type endpointLoginRequestPayload struct {
	Identificador *string `json:"identificador" required:"true"`
	Senha         *string `json:"senha" required:"true"`
	LembrarDeMim  bool    `json:"lembrarDeMim"`
	FlowID        string  `json:"flowId"`
}

// EndpointLogin handles the 'POST /api/auth/login' endpoint.
// On success it establishes a server-held session and hands the browser an opaque,
// httpOnly session cookie; the bearer tokens themselves never appear in the response.
// Rejections are deliberately uniform: the response never distinguishes an unknown
// identifier from a wrong password.
func (service *Service) EndpointLogin(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := schema.UnmarshalBody[endpointLoginRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}
	identifier := *payload.Identificador

	result, err := service.Backend.Login(request.Context(), identifier, *payload.Senha)
	if err != nil {
		// Fail closed: an unreachable backend never establishes a session
		log.Error().Err(err).Msg("could not reach the backend login endpoint")
		service.recordAttempt(request, identifier, false)
		service.relayLoginError(payload.FlowID, schema.ErrInvalidCredentials.Message)
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrInvalidCredentials)
		return
	}
	if result == nil || result.User == nil {
		service.recordAttempt(request, identifier, false)

		if result != nil && result.StatusCode == http.StatusTooManyRequests {
			rateErr := schema.ErrRateLimited(result.Message)
			service.relayLoginError(payload.FlowID, rateErr.Message)
			service.writer.WriteErrors(writer, http.StatusTooManyRequests, rateErr)
			return
		}

		message := schema.ErrInvalidCredentials.Message
		if result != nil && result.Message != "" {
			message = result.Message
		}
		service.relayLoginError(payload.FlowID, message)
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrInvalidCredentials)
		return
	}

	rawToken, ses, err := service.Sessions.Establish(request.Context(), *result.User, result.Tokens, payload.LembrarDeMim)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	service.recordAttempt(request, identifier, true)
	service.setSessionCookie(writer, rawToken, payload.LembrarDeMim)
	service.writer.WriteJSON(writer, sessionResponse(ses))
}

// EndpointLoginError handles the 'GET /api/auth/login-error?flow={id}' endpoint.
// It returns and clears the transient failure message the login endpoint relayed for
// the given flow ID. Messages expire on their own after a short TTL.
func (service *Service) EndpointLoginError(writer http.ResponseWriter, request *http.Request) {
	flow, validationErr := validation.QueryString(request, "flow", true, "")
	if validationErr != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErr)
		return
	}

	message, _ := service.loginErrors.Lookup(flow)
	service.loginErrors.Unset(flow)
	service.writer.WriteJSON(writer, map[string]interface{}{
		"message": message,
	})
}

// EndpointGetSession handles the 'GET /api/auth/session' endpoint
func (service *Service) EndpointGetSession(writer http.ResponseWriter, request *http.Request) {
	ses := request.Context().Value(contextValueSession).(*session.Session)
	service.writer.WriteJSON(writer, sessionResponse(ses))
}

// EndpointLogout handles the 'POST /api/auth/logout' endpoint
func (service *Service) EndpointLogout(writer http.ResponseWriter, request *http.Request) {
	cookie, err := service.sessionCookie(request)
	if err == nil {
		if err := service.Sessions.Terminate(request.Context(), cookie.Value); err != nil {
			service.writer.WriteInternalError(writer, err)
			return
		}
	}
	service.unsetSessionCookie(writer)
	writer.WriteHeader(http.StatusNoContent)
}

func (service *Service) relayLoginError(flowID, message string) {
	if flowID == "" {
		return
	}
	service.loginErrors.Set(flowID, message)
}

func (service *Service) recordAttempt(request *http.Request, identifier string, success bool) {
	err := service.Storage.LoginAttempts().Create(request.Context(), &attempt.Attempt{
		ID:         uuid.New(),
		Identifier: identifier,
		Success:    success,
		RemoteAddr: request.RemoteAddr,
		CreatedAt:  time.Now().Unix(),
	})
	if err != nil {
		// Auditing must never block authentication itself
		log.Error().Err(err).Msg("could not record the login attempt")
	}
}

func sessionResponse(ses *session.Session) map[string]interface{} {
	return map[string]interface{}{
		"user":    ses.User,
		"role":    ses.User.Flags.Role(),
		"expires": ses.Expires,
	}
}
