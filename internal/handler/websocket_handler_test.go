package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/websocket"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVerifier accepts a fixed set of tokens
type stubVerifier map[string]domain.Actor

func (s stubVerifier) Verify(ctx context.Context, token string) (domain.Actor, error) {
	actor, ok := s[token]
	if !ok {
		return domain.Actor{}, errors.New("invalid token")
	}
	return actor, nil
}

var testAllowedOrigins = []string{"http://localhost:3000", "https://backoffice.bingovintage.ug"}

var testVerifier = stubVerifier{"valid-jwt": {ID: "auth0|cashier", Role: domain.RoleStaff}}

func TestWebSocketHandler_HandleWS_MissingToken(t *testing.T) {
	e := echo.New()
	h := NewWebSocketHandler(websocket.NewHub(), testVerifier, testAllowedOrigins)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.HandleWS(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestWebSocketHandler_HandleWS_InvalidToken(t *testing.T) {
	e := echo.New()
	h := NewWebSocketHandler(websocket.NewHub(), testVerifier, testAllowedOrigins)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=forged", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.HandleWS(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestWebSocketHandler_HandleWS_InvalidLoanID(t *testing.T) {
	e := echo.New()
	h := NewWebSocketHandler(websocket.NewHub(), testVerifier, testAllowedOrigins)

	req := httptest.NewRequest(http.MethodGet, "/ws?token=valid-jwt&loanId=LN-2025-000001", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.HandleWS(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestWebSocketHandler_HandleWS_ValidToken_NoUpgrade(t *testing.T) {
	e := echo.New()
	h := NewWebSocketHandler(websocket.NewHub(), testVerifier, testAllowedOrigins)

	// not an upgrade request, so auth passes and the upgrader fails
	req := httptest.NewRequest(http.MethodGet, "/ws?token=valid-jwt", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.HandleWS(c)
	assert.Error(t, err)
	assert.NotContains(t, err.Error(), "invalid token")
}

func TestWebSocketHandler_HandleWS_SubscribesToLoan(t *testing.T) {
	hub := websocket.NewHub()
	h := NewWebSocketHandler(hub, testVerifier, testAllowedOrigins)

	e := echo.New()
	e.GET("/ws", h.HandleWS)
	srv := httptest.NewServer(e)
	defer srv.Close()

	loanID := uuid.New()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=valid-jwt&loanId=" + loanID.String()
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	topic := websocket.LoanTopic(loanID)
	assert.Eventually(t, func() bool { return hub.ClientCount(topic) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.ClientCount(websocket.TopicPortfolio))

	hub.Broadcast(topic, websocket.LoanEvaluated(map[string]string{"loanId": loanID.String()}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), loanID.String())
}

func TestWebSocketHandler_CheckOrigin(t *testing.T) {
	h := NewWebSocketHandler(websocket.NewHub(), testVerifier, testAllowedOrigins)

	tests := []struct {
		name     string
		origin   string
		expected bool
	}{
		{"allowed origin", "http://localhost:3000", true},
		{"allowed origin https", "https://backoffice.bingovintage.ug", true},
		{"disallowed origin", "https://evil.com", false},
		{"empty origin (same-origin)", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.expected, h.checkOrigin(req))
		})
	}
}
