package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zeladoria/portal-gateway/internal/api/schema"
	"github.com/zeladoria/portal-gateway/internal/backend"
	"github.com/zeladoria/portal-gateway/internal/config"
	"github.com/zeladoria/portal-gateway/internal/hashmap"
	"github.com/zeladoria/portal-gateway/internal/session"
	"github.com/zeladoria/portal-gateway/internal/storage/memory"
	"github.com/zeladoria/portal-gateway/internal/user"
)

const municipeUserJSON = `{"data": {"user": {
	"id": 42,
	"nome": "João da Silva",
	"email": "municipe@exemplo.com",
	"cpf": "12345678900",
	"municipe": true,
	"accessToken": "access-1",
	"refreshtoken": "refresh-1"
}}}`

const adminUserJSON = `{"data": {"user": {
	"id": 1,
	"nome": "Maria Admin",
	"email": "admin@exemplo.com",
	"cpf": "98765432100",
	"administrador": true,
	"accessToken": "access-1",
	"refreshtoken": "refresh-1"
}}}`

func newTestService(t *testing.T, backendHandler http.Handler) *Service {
	t.Helper()

	server := httptest.NewServer(backendHandler)
	t.Cleanup(server.Close)

	driver := memory.New()
	if err := driver.Initialize(context.Background()); err != nil {
		t.Fatalf("could not initialize the storage driver: %v", err)
	}

	client := backend.New(server.URL)
	service := &Service{
		Config: &config.Config{
			Environment:        "test",
			AllowedOrigin:      "*",
			BackendBaseURL:     server.URL,
			AccessTokenTTL:     time.Hour,
			SessionTTL:         24 * time.Hour,
			RememberSessionTTL: 720 * time.Hour,
			LoginErrorTTL:      time.Minute,
		},
		Storage:     driver,
		Backend:     client,
		Sessions:    session.NewManager(driver.Sessions(), client, time.Hour, 24*time.Hour, 720*time.Hour),
		loginErrors: hashmap.NewExpiring[string, string](time.Minute),
	}
	service.writer = &schema.Writer{
		InternalErrorHook: func(err error) {
			t.Errorf("unexpected internal error: %v", err)
		},
	}
	return service
}

func loginBackend(userJSON string) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "/login" {
			writer.Write([]byte(userJSON))
			return
		}
		writer.WriteHeader(http.StatusNotFound)
	})
}

func performLogin(t *testing.T, service *Service, body string) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()

	request := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	service.EndpointLogin(recorder, request)

	var sessionCookie *http.Cookie
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == service.sessionCookieName() {
			sessionCookie = cookie
		}
	}
	return recorder, sessionCookie
}

func TestLoginEstablishesSession(t *testing.T) {
	service := newTestService(t, loginBackend(municipeUserJSON))

	recorder, cookie := performLogin(t, service, `{"identificador": "municipe@exemplo.com", "senha": "Senha@123"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body)
	}
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if !cookie.HttpOnly {
		t.Error("the session cookie has to be httpOnly")
	}
	if cookie.MaxAge != 0 {
		t.Errorf("expected a session-scoped cookie, got max-age %d", cookie.MaxAge)
	}

	body := recorder.Body.String()
	if strings.Contains(body, "access-1") || strings.Contains(body, "refresh-1") {
		t.Error("bearer tokens must never reach the browser")
	}

	var response struct {
		User struct {
			Flags struct {
				Municipe bool `json:"municipe"`
			} `json:"flags"`
		} `json:"user"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("could not decode the response: %v", err)
	}
	if !response.User.Flags.Municipe || response.Role != "municipe" {
		t.Errorf("unexpected session payload: %s", body)
	}

	ses, err := service.Storage.Sessions().GetByRawToken(context.Background(), cookie.Value)
	if err != nil || ses == nil {
		t.Fatalf("expected a stored session, got (%+v, %v)", ses, err)
	}
	if ses.AccessToken != "access-1" {
		t.Errorf("unexpected stored access token: %q", ses.AccessToken)
	}
}

func TestLoginRememberCookie(t *testing.T) {
	service := newTestService(t, loginBackend(municipeUserJSON))

	_, cookie := performLogin(t, service, `{"identificador": "municipe@exemplo.com", "senha": "Senha@123", "lembrarDeMim": true}`)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}
	if cookie.MaxAge != 30*24*3600 {
		t.Errorf("expected a max-age of 30 days, got %d", cookie.MaxAge)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	service := newTestService(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
		writer.Write([]byte(`{"message": "Credenciais inválidas"}`))
	}))

	recorder, cookie := performLogin(t, service, `{"identificador": "municipe@exemplo.com", "senha": "wrong", "flowId": "flow-1"}`)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", recorder.Code)
	}
	if cookie != nil {
		t.Error("a rejected login must not set a session cookie")
	}
	if !strings.Contains(recorder.Body.String(), "auth.invalidCredentials") {
		t.Errorf("expected the generic invalid credentials error, got %s", recorder.Body)
	}

	// The backend's message is retrievable exactly once via the relay
	request := httptest.NewRequest(http.MethodGet, "/api/auth/login-error?flow=flow-1", nil)
	recorder = httptest.NewRecorder()
	service.EndpointLoginError(recorder, request)
	if !strings.Contains(recorder.Body.String(), "Credenciais inválidas") {
		t.Errorf("expected the relayed message, got %s", recorder.Body)
	}

	recorder = httptest.NewRecorder()
	service.EndpointLoginError(recorder, httptest.NewRequest(http.MethodGet, "/api/auth/login-error?flow=flow-1", nil))
	if strings.Contains(recorder.Body.String(), "Credenciais inválidas") {
		t.Error("expected the relayed message to be cleared after retrieval")
	}
}

func TestLoginRateLimited(t *testing.T) {
	service := newTestService(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusTooManyRequests)
		writer.Write([]byte(`{"message": "Muitas tentativas. Tente novamente mais tarde."}`))
	}))

	recorder, _ := performLogin(t, service, `{"identificador": "municipe@exemplo.com", "senha": "Senha@123"}`)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "Muitas tentativas") {
		t.Errorf("expected the backend's rate limit message, got %s", recorder.Body)
	}
}

func TestLoginRecordsAttempts(t *testing.T) {
	service := newTestService(t, loginBackend(municipeUserJSON))

	performLogin(t, service, `{"identificador": "municipe@exemplo.com", "senha": "Senha@123"}`)

	attempts, total, err := service.Storage.LoginAttempts().Get(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("could not retrieve the attempts: %v", err)
	}
	if total != 1 || len(attempts) != 1 {
		t.Fatalf("expected exactly one recorded attempt, got %d", total)
	}
	if attempts[0].Identifier != "municipe@exemplo.com" || !attempts[0].Success {
		t.Errorf("unexpected attempt record: %+v", attempts[0])
	}
}

func TestSecureFetchWithoutSession(t *testing.T) {
	service := newTestService(t, loginBackend(municipeUserJSON))

	request := httptest.NewRequest(http.MethodPost, "/api/auth/secure-fetch", strings.NewReader(`{"endpoint": "/demanda/123", "method": "DELETE"}`))
	recorder := httptest.NewRecorder()
	service.EndpointSecureFetch(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "Unauthorized") {
		t.Errorf("expected the body to contain 'Unauthorized', got %s", recorder.Body)
	}
}

func TestSecureFetchMissingEndpoint(t *testing.T) {
	service := newTestService(t, loginBackend(municipeUserJSON))

	request := httptest.NewRequest(http.MethodPost, "/api/auth/secure-fetch", strings.NewReader(`{"method": "GET"}`))
	recorder := httptest.NewRecorder()
	service.EndpointSecureFetch(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}
}

func TestSecureFetchForwardsWithBearerToken(t *testing.T) {
	var forwarded *http.Request
	service := newTestService(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/login":
			writer.Write([]byte(municipeUserJSON))
		case "/demanda/123":
			forwarded = request.Clone(context.Background())
			writer.WriteHeader(http.StatusOK)
			writer.Write([]byte(`{"deleted": true}`))
		default:
			writer.WriteHeader(http.StatusNotFound)
		}
	}))

	_, cookie := performLogin(t, service, `{"identificador": "municipe@exemplo.com", "senha": "Senha@123"}`)

	request := httptest.NewRequest(http.MethodPost, "/api/auth/secure-fetch", strings.NewReader(`{"endpoint": "/demanda/123", "method": "DELETE"}`))
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	service.EndpointSecureFetch(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body)
	}
	if recorder.Body.String() != `{"deleted": true}` {
		t.Errorf("expected the backend body to be passed through, got %s", recorder.Body)
	}
	if forwarded == nil {
		t.Fatal("expected the call to reach the backend")
	}
	if forwarded.Method != http.MethodDelete {
		t.Errorf("unexpected forwarded method: %s", forwarded.Method)
	}
	if forwarded.Header.Get("Authorization") != "Bearer access-1" {
		t.Errorf("unexpected authorization header: %q", forwarded.Header.Get("Authorization"))
	}
}

func TestSecureFetchPassesThroughBackendErrors(t *testing.T) {
	service := newTestService(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "/login" {
			writer.Write([]byte(municipeUserJSON))
			return
		}
		writer.WriteHeader(http.StatusNotFound)
		writer.Write([]byte(`{"message": "demanda não encontrada"}`))
	}))

	_, cookie := performLogin(t, service, `{"identificador": "municipe@exemplo.com", "senha": "Senha@123"}`)

	request := httptest.NewRequest(http.MethodPost, "/api/auth/secure-fetch", strings.NewReader(`{"endpoint": "/demanda/999"}`))
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	service.EndpointSecureFetch(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected the backend status to be passed through, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "demanda não encontrada") {
		t.Errorf("expected the backend body to be passed through, got %s", recorder.Body)
	}
}

func TestSecureFetchAfterRefreshFailure(t *testing.T) {
	refreshCalls := 0
	service := newTestService(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/login":
			writer.Write([]byte(municipeUserJSON))
		case "/refresh":
			refreshCalls++
			writer.WriteHeader(http.StatusUnauthorized)
			writer.Write([]byte(`{"message": "refresh token expired"}`))
		default:
			t.Errorf("unexpected backend call: %s", request.URL.Path)
		}
	}))

	_, cookie := performLogin(t, service, `{"identificador": "municipe@exemplo.com", "senha": "Senha@123"}`)

	// Force the access token into staleness
	ses, err := service.Storage.Sessions().GetByRawToken(context.Background(), cookie.Value)
	if err != nil || ses == nil {
		t.Fatalf("could not load the stored session: %v", err)
	}
	ses.AccessTokenExpiresAt = time.Now().Add(-time.Minute).Unix()
	if err := service.Storage.Sessions().Update(context.Background(), ses); err != nil {
		t.Fatalf("could not update the session: %v", err)
	}

	for i := 0; i < 2; i++ {
		request := httptest.NewRequest(http.MethodPost, "/api/auth/secure-fetch", strings.NewReader(`{"endpoint": "/demanda/123"}`))
		request.AddCookie(cookie)
		recorder := httptest.NewRecorder()
		service.EndpointSecureFetch(recorder, request)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401 after refresh failure, got %d", recorder.Code)
		}
	}
	if refreshCalls != 1 {
		t.Errorf("expected exactly one refresh call, got %d", refreshCalls)
	}
}

func TestSetSessionCookie(t *testing.T) {
	service := newTestService(t, loginBackend(municipeUserJSON))

	_, cookie := performLogin(t, service, `{"identificador": "municipe@exemplo.com", "senha": "Senha@123"}`)

	request := httptest.NewRequest(http.MethodPost, "/api/auth/set-session-cookie", strings.NewReader(`{"lembrarDeMim": true}`))
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	service.EndpointSetSessionCookie(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body)
	}
	var reissued *http.Cookie
	for _, c := range recorder.Result().Cookies() {
		if c.Name == service.sessionCookieName() {
			reissued = c
		}
	}
	if reissued == nil {
		t.Fatal("expected the session cookie to be re-issued")
	}
	if reissued.MaxAge != 30*24*3600 {
		t.Errorf("expected a max-age of 30 days in seconds, got %d", reissued.MaxAge)
	}

	ses, _ := service.Storage.Sessions().GetByRawToken(context.Background(), cookie.Value)
	if ses == nil || !ses.Remember {
		t.Error("expected the remember choice to be persisted on the session")
	}

	// Reverting the choice drops the max-age again
	request = httptest.NewRequest(http.MethodPost, "/api/auth/set-session-cookie", strings.NewReader(`{"lembrarDeMim": false}`))
	request.AddCookie(cookie)
	recorder = httptest.NewRecorder()
	service.EndpointSetSessionCookie(recorder, request)

	for _, c := range recorder.Result().Cookies() {
		if c.Name == service.sessionCookieName() && c.MaxAge != 0 {
			t.Errorf("expected a session-scoped cookie, got max-age %d", c.MaxAge)
		}
	}
}

func TestSetSessionCookieWithoutSession(t *testing.T) {
	service := newTestService(t, loginBackend(municipeUserJSON))

	request := httptest.NewRequest(http.MethodPost, "/api/auth/set-session-cookie", strings.NewReader(`{"lembrarDeMim": true}`))
	recorder := httptest.NewRecorder()
	service.EndpointSetSessionCookie(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "no session token found") {
		t.Errorf("unexpected body: %s", recorder.Body)
	}
}

func TestCheckRateLimit(t *testing.T) {
	service := newTestService(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusTooManyRequests)
		writer.Write([]byte(`{"message": "Muitas tentativas. Tente novamente mais tarde."}`))
	}))

	request := httptest.NewRequest(http.MethodPost, "/api/auth/check-rate-limit", strings.NewReader(`{"identificador": "municipe@exemplo.com", "senha": "Senha@123"}`))
	recorder := httptest.NewRecorder()
	service.EndpointCheckRateLimit(recorder, request)

	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", recorder.Code)
	}
	var response struct {
		RateLimited bool   `json:"rateLimited"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("could not decode the response: %v", err)
	}
	if !response.RateLimited || !strings.Contains(response.Message, "Muitas tentativas") {
		t.Errorf("unexpected response: %+v", response)
	}
}

func TestCheckRateLimitFailOpen(t *testing.T) {
	service := newTestService(t, http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
		writer.Write([]byte(`{"message": "Credenciais inválidas"}`))
	}))

	request := httptest.NewRequest(http.MethodPost, "/api/auth/check-rate-limit", strings.NewReader(`{"identificador": "municipe@exemplo.com", "senha": "Senha@123"}`))
	recorder := httptest.NewRecorder()
	service.EndpointCheckRateLimit(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"rateLimited":false`) {
		t.Errorf("expected a fail-open result, got %s", recorder.Body)
	}
}

func TestLoginAttemptsRequireAdministrador(t *testing.T) {
	service := newTestService(t, loginBackend(municipeUserJSON))

	_, cookie := performLogin(t, service, `{"identificador": "municipe@exemplo.com", "senha": "Senha@123"}`)

	handler := service.MiddlewareVerifySession(service.MiddlewareRequireRole(user.RoleAdministrador)(service.EndpointGetLoginAttempts))
	request := httptest.NewRequest(http.MethodGet, "/api/admin/login-attempts", nil)
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	handler(recorder, request)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for a munícipe, got %d", recorder.Code)
	}
}

func TestLoginAttemptsAsAdministrador(t *testing.T) {
	service := newTestService(t, loginBackend(adminUserJSON))

	_, cookie := performLogin(t, service, `{"identificador": "admin@exemplo.com", "senha": "Senha@123"}`)

	handler := service.MiddlewareVerifySession(service.MiddlewareRequireRole(user.RoleAdministrador)(service.EndpointGetLoginAttempts))
	request := httptest.NewRequest(http.MethodGet, "/api/admin/login-attempts", nil)
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	handler(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body)
	}
	var response struct {
		Pagination struct {
			TotalCount uint64 `json:"total_count"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("could not decode the response: %v", err)
	}
	if response.Pagination.TotalCount != 1 {
		t.Errorf("expected the login attempt to be listed, got %d", response.Pagination.TotalCount)
	}
}

func TestLogoutTerminatesSession(t *testing.T) {
	service := newTestService(t, loginBackend(municipeUserJSON))

	_, cookie := performLogin(t, service, `{"identificador": "municipe@exemplo.com", "senha": "Senha@123"}`)

	request := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	service.EndpointLogout(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", recorder.Code)
	}
	if ses, _ := service.Storage.Sessions().GetByRawToken(context.Background(), cookie.Value); ses != nil {
		t.Error("expected the session to be terminated")
	}
}
