package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/spockenergy/sma2spock/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.POST("/api/spock/command", s.SpockCommandHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

// SpockCommandHandler lets the EMS push a command between cycles instead of
// waiting for the next push response.
func (s *Server) SpockCommandHandler(c echo.Context) error {
	token, ok := bearerToken(c.Request())
	if !ok || token != s.apiToken {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}

	var cmd domain.WebhookCommand
	if err := c.Bind(&cmd); err != nil || cmd.Command == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed command"})
	}
	if cmd.PlantID != s.plantID {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "unknown plant"})
	}

	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ApplyOperationRequest{
		Command: cmd.ToOperationCommand(),
	}, 30*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "command not applied"})
	}
	if response, ok := res.(domain.ApplyOperationResponse); ok && response.HasResponseError() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "command not applied"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "accepted"})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get(echo.HeaderAuthorization)
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}
