package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/zeladoria/portal-gateway/internal/user"
)

// Client performs authenticated and unauthenticated calls against the municipal backend REST API
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a new backend API client
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Tokens bundles the bearer credentials the backend hands out on login and refresh
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult represents the outcome of a credential login call.
// User is nil whenever the backend rejected the credentials; StatusCode and Message
// carry the rejection details in that case.
type LoginResult struct {
	User       *user.User
	Tokens     Tokens
	StatusCode int
	Message    string
}

// Response represents a raw backend response as passed through by the authenticated proxy
type Response struct {
	StatusCode int
	Body       []byte
}

type loginRequest struct {
	Identificador string `json:"identificador"`
	Senha         string `json:"senha"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userEnvelope struct {
	Data struct {
		User *wireUser `json:"user"`
	} `json:"data"`
}

type wireUser struct {
	ID            json.Number `json:"id"`
	Nome          string      `json:"nome"`
	Email         string      `json:"email"`
	CPF           string      `json:"cpf"`
	CNPJ          *string     `json:"cnpj"`
	Username      *string     `json:"username"`
	Ativo         *bool       `json:"ativo"`
	Municipe      bool        `json:"municipe"`
	Operador      bool        `json:"operador"`
	Secretario    bool        `json:"secretario"`
	Administrador bool        `json:"administrador"`
	AccessToken   string      `json:"accessToken"`
	RefreshToken  string      `json:"refreshtoken"`
}

type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Login validates an identifier & password pair against the backend login endpoint.
// Empty credentials short-circuit to (nil, nil) without any network call.
// A backend rejection yields a LoginResult with a nil user; a transport error fails closed.
func (client *Client) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if identifier == "" || password == "" {
		return nil, nil
	}

	status, body, err := client.postJSON(ctx, "/login", loginRequest{
		Identificador: identifier,
		Senha:         password,
	})
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		return &LoginResult{
			StatusCode: status,
			Message:    extractMessage(body),
		}, nil
	}

	envelope := new(userEnvelope)
	if err := json.Unmarshal(body, envelope); err != nil {
		return nil, err
	}
	if envelope.Data.User == nil {
		return &LoginResult{StatusCode: status}, nil
	}

	raw := envelope.Data.User
	return &LoginResult{
		User: mapUser(raw),
		Tokens: Tokens{
			AccessToken:  raw.AccessToken,
			RefreshToken: raw.RefreshToken,
		},
		StatusCode: status,
	}, nil
}

// Refresh exchanges a refresh token for a new access token.
// The returned refresh token is empty if the backend did not rotate it.
func (client *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	status, body, err := client.postJSON(ctx, "/refresh", refreshRequest{
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &StatusError{StatusCode: status, Message: extractMessage(body)}
	}

	envelope := new(userEnvelope)
	if err := json.Unmarshal(body, envelope); err != nil {
		return nil, err
	}
	if envelope.Data.User == nil || envelope.Data.User.AccessToken == "" {
		return nil, &StatusError{StatusCode: status, Message: "refresh response carried no access token"}
	}

	return &Tokens{
		AccessToken:  envelope.Data.User.AccessToken,
		RefreshToken: envelope.Data.User.RefreshToken,
	}, nil
}

// Forward relays an arbitrary request to the backend using the given bearer credential.
// This is the only place an access token is ever placed in an outbound header.
func (client *Client) Forward(ctx context.Context, accessToken, method, endpoint string, body []byte) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+endpoint, reader)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Authorization", "Bearer "+accessToken)
	if len(body) > 0 {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.http.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: response.StatusCode,
		Body:       responseBody,
	}, nil
}

func (client *Client) postJSON(ctx context.Context, endpoint string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.http.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, err
	}
	return response.StatusCode, responseBody, nil
}

func mapUser(raw *wireUser) *user.User {
	obj := &user.User{
		ID:     raw.ID.String(),
		Name:   raw.Nome,
		Email:  raw.Email,
		CPF:    raw.CPF,
		Active: true,
		Flags: user.AccessFlags{
			Municipe:      raw.Municipe,
			Operador:      raw.Operador,
			Secretario:    raw.Secretario,
			Administrador: raw.Administrador,
		},
	}
	if raw.CNPJ != nil {
		obj.CNPJ = *raw.CNPJ
	}
	if raw.Username != nil {
		obj.Username = *raw.Username
	}
	if raw.Ativo != nil {
		obj.Active = *raw.Ativo
	}
	return obj
}

func extractMessage(body []byte) string {
	envelope := new(errorEnvelope)
	if err := json.Unmarshal(body, envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return envelope.Error
}
