package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zeladoria/portal-gateway/internal/api/schema"
)

type endpointSecureFetchRequestPayload struct {
	Endpoint *string         `json:"endpoint" required:"true"`
	Method   string          `json:"method"`
	Body     json.RawMessage `json:"body"`
}

// EndpointSecureFetch handles the 'POST /api/auth/secure-fetch' endpoint.
// It relays a backend call on behalf of the browser, attaching the session's access
// token as a bearer credential. The browser never sees the token; it only ever holds
// the opaque session cookie this endpoint resolves.
func (service *Service) EndpointSecureFetch(writer http.ResponseWriter, request *http.Request) {
	payload, validationErrs, err := schema.UnmarshalBody[endpointSecureFetchRequestPayload](request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}
	endpoint := *payload.Endpoint
	if endpoint == "" {
		service.writer.WriteErrors(writer, http.StatusBadRequest, schema.ErrMissingParameter("endpoint"))
		return
	}

	method := strings.ToUpper(payload.Method)
	if method == "" {
		method = http.MethodGet
	}

	// Resolve the session, refreshing the access token first if it went stale.
	// Without a currently-valid token no backend call is attempted at all.
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
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
		return
	}
	if ses.RefreshFailed {
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrSessionExpired)
		return
	}

	log.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Bool("has_body", len(payload.Body) > 0).
		Msg("proxying backend call")

	response, err := service.Backend.Forward(request.Context(), ses.AccessToken, method, endpoint, payload.Body)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	// Pass the backend's status and JSON body through verbatim; a non-JSON body gets
	// replaced with a synthesized error envelope carrying the upstream status
	body := bytes.TrimSpace(response.Body)
	if len(body) == 0 {
		writer.WriteHeader(response.StatusCode)
		return
	}
	if !json.Valid(body) {
		service.writer.WriteErrors(writer, response.StatusCode, schema.ErrUpstreamInvalidResponse)
		return
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(response.StatusCode)
	writer.Write(body)
}
