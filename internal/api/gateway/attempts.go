package gateway

import (
	"math"
	"net/http"

	"github.com/zeladoria/portal-gateway/internal/api/schema"
	"github.com/zeladoria/portal-gateway/internal/api/validation"
)

// EndpointGetLoginAttempts handles the 'GET /api/admin/login-attempts?offset={number?:0}&limit={number?:10}' endpoint
func (service *Service) EndpointGetLoginAttempts(writer http.ResponseWriter, request *http.Request) {
	var validationErrs []*schema.Error

	offset, validationErr := validation.QueryNumber(request, "offset", false, 0, 0, math.MaxInt64)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	limit, validationErr := validation.QueryNumber(request, "limit", false, 10, 1, 1000)
	if validationErr != nil {
		validationErrs = append(validationErrs, validationErr)
	}

	if len(validationErrs) > 0 {
		service.writer.WriteErrors(writer, http.StatusBadRequest, validationErrs...)
		return
	}

	attempts, n, err := service.Storage.LoginAttempts().Get(request.Context(), uint64(offset), uint64(limit))
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	service.writer.WriteJSON(writer, schema.BuildPaginatedResponse(uint64(offset), uint64(limit), n, attempts))
}
