package gateway

import (
	"net/http"

	"github.com/zeladoria/portal-gateway/internal/api/schema"
)

type endpointCheckRateLimitRequestPayload struct {
	Identificador string `json:"identificador"`
	Senha         string `json:"senha"`
}

type checkRateLimitResponse struct {
	RateLimited bool   `json:"rateLimited"`
	Message     string `json:"message,omitempty"`
}

// EndpointCheckRateLimit handles the 'POST /api/auth/check-rate-limit' endpoint.
// It replays the login call solely to detect an HTTP 429 of the backend, without ever
// establishing a session. Any other outcome, including errors, reports 'not rate
// limited' (fail-open): the probe must never block a login the backend would accept.
func (service *Service) EndpointCheckRateLimit(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := schema.UnmarshalBody[endpointCheckRateLimitRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	result, err := service.Backend.Login(request.Context(), payload.Identificador, payload.Senha)
	if err == nil && result != nil && result.StatusCode == http.StatusTooManyRequests {
		service.writer.WriteJSONCode(writer, http.StatusTooManyRequests, checkRateLimitResponse{
			RateLimited: true,
			Message:     result.Message,
		})
		return
	}

	service.writer.WriteJSON(writer, checkRateLimitResponse{
		RateLimited: false,
	})
}
