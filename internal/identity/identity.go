package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"minisaas.app/cloud/internal/logger"
	"minisaas.app/cloud/models"
)

// Service is the identity-provider surface the rest of the app depends on.
type Service interface {
	SignUp(ctx context.Context, email, password string) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
	VerifyAccessToken(token string) (string, error)
}

// Error is a provider error with its original message preserved.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity provider error (status %d): %s", e.Status, e.Message)
}

// Client talks to a GoTrue-compatible hosted auth API. It is a stateless
// connection wrapper and safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	jwtSecret  []byte
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, jwtSecret string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		jwtSecret:  []byte(jwtSecret),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type signUpResponse struct {
	userResponse
	User *userResponse `json:"user"`
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

func (u *userResponse) toModel() *models.User {
	return &models.User{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	var resp signUpResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	// Depending on provider settings the user comes back nested in a
	// session or as the top-level object.
	if resp.User != nil {
		return resp.User.toModel(), nil
	}
	return resp.userResponse.toModel(), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", credentials{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		RefreshToken: resp.RefreshToken,
	}
	if resp.User != nil {
		session.User = resp.User.toModel()
	}
	return session, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// VerifyAccessToken checks the HS256 signature locally and returns the token
// subject (the provider user id). It does not hit the provider.
func (c *Client) VerifyAccessToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid access token: %w", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid access token: missing subject")
	}
	return claims.Subject, nil
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read identity response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		providerErr := parseProviderError(resp.StatusCode, payload)
		logger.Debug("Identity provider error", map[string]interface{}{
			"status": resp.StatusCode,
			"path":   path,
		})
		return providerErr
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("failed to parse identity response: %w", err)
		}
	}
	return nil
}

func parseProviderError(status int, payload []byte) *Error {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorCode        string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(payload, &body)

	message := body.Msg
	if message == "" {
		message = body.Message
	}
	if message == "" {
		message = body.ErrorDescription
	}
	if message == "" {
		message = body.ErrorCode
	}
	if message == "" {
		message = fmt.Sprintf("unexpected status %d", status)
	}
	return &Error{Status: status, Message: message}
}
