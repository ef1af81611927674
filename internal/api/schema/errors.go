package schema

var emptyMap = map[string]interface{}{}

var (
	ErrInternal = &Error{
		Type:    "generic.internal",
		Message: "An internal error occurred.",
		Details: emptyMap,
	}
	ErrNotFound = &Error{
		Type:    "generic.notFound",
		Message: "Resource not found.",
		Details: emptyMap,
	}
	ErrMethodNotAllowed = &Error{
		Type:    "generic.methodNotAllowed",
		Message: "Method not allowed.",
		Details: emptyMap,
	}
	ErrUnauthorized = &Error{
		Type:    "access.unauthorized",
		Message: "Unauthorized",
		Details: emptyMap,
	}
	ErrForbidden = &Error{
		Type:    "access.forbidden",
		Message: "You are not authorized to access this resource.",
		Details: emptyMap,
	}
	ErrSessionExpired = &Error{
		Type:    "access.sessionExpired",
		Message: "Your session has expired. Please sign in again.",
		Details: emptyMap,
	}
	ErrInvalidCredentials = &Error{
		Type:    "auth.invalidCredentials",
		Message: "Invalid credentials.",
		Details: emptyMap,
	}
	ErrNoSessionToken = &Error{
		Type:    "auth.noSessionToken",
		Message: "no session token found",
		Details: emptyMap,
	}
	ErrUpstreamInvalidResponse = &Error{
		Type:    "proxy.upstreamInvalidResponse",
		Message: "The backend returned a non-JSON response.",
		Details: emptyMap,
	}
)

// ErrRateLimited builds the error returned when the backend rejected a login due to too many attempts
func ErrRateLimited(message string) *Error {
	if message == "" {
		message = "Too many attempts. Please try again later."
	}
	return &Error{
		Type:    "auth.rateLimited",
		Message: message,
		Details: emptyMap,
	}
}

// ErrorResponse represents the response structure sent by the gateway API whenever errors occurred
type ErrorResponse struct {
	Status int      `json:"status"`
	Errors []*Error `json:"errors"`
}

// Error represents a single error present in the ErrorResponse
type Error struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

// ErrMissingParameter builds the error returned when a required request body parameter is empty
func ErrMissingParameter(name string) *Error {
	return &Error{
		Type:    "validation.requestBody.parameter.missing",
		Message: "The request body parameter '" + name + "' is required but was not present in the request.",
		Details: map[string]interface{}{
			"parameter": name,
		},
	}
}
