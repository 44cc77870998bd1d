package spock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spockenergy/sma2spock/internal/config"
	"github.com/spockenergy/sma2spock/internal/core/domain"

	"go.uber.org/zap"
)

// ErrInvalidToken marks a push the EMS rejected because of credentials, as
// opposed to an endpoint that is down. The two need different operator
// action, so they must not blur into one error.
var ErrInvalidToken = errors.New("spock: invalid api token")

const defaultTimeout = 10 * time.Second

// Client pushes telemetry to the Spock EMS and parses the operation command
// the EMS piggybacks on the response.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiToken   string
	logger     *zap.Logger
}

func NewClient(cfg config.SpockConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		endpoint:   cfg.Endpoint,
		apiToken:   cfg.APIToken,
		logger:     logger.With(zap.String("component", "spock_client")),
	}
}

// pushResponse is the loose EMS reply.
type pushResponse struct {
	Status        string       `json:"status"`
	Action        string       `json:"action"`
	Amount        domain.Watts `json:"amount"`
	OperationMode string       `json:"operation_mode"`
}

// PushTelemetry POSTs one snapshot and returns the command the EMS wants
// applied next. Any returned error means no command was received and the
// caller should fall back to auto.
func (c *Client) PushTelemetry(ctx context.Context, snapshot *domain.TelemetrySnapshot) (domain.OperationCommand, error) {
	body, err := json.Marshal(snapshot.PushFields())
	if err != nil {
		return domain.AutoCommand(), err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.AutoCommand(), err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Token", c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.AutoCommand(), err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return domain.AutoCommand(), ErrInvalidToken
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.AutoCommand(), fmt.Errorf("spock: push rejected with status %d", resp.StatusCode)
	}

	var parsed pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.AutoCommand(), fmt.Errorf("spock: malformed push response: %w", err)
	}
	if parsed.Status != "" {
		c.logger.Debug("push accepted", zap.String("status", parsed.Status))
	}
	return commandFromResponse(parsed), nil
}

// commandFromResponse applies the documented precedence: an explicit action
// wins, otherwise operation_mode decides, otherwise auto.
func commandFromResponse(r pushResponse) domain.OperationCommand {
	if r.Action != "" {
		return domain.OperationCommand{
			Mode:       domain.OperationModeFromString(r.Action),
			MagnitudeW: uint32(r.Amount),
		}
	}
	switch r.OperationMode {
	case "manual":
		// manual without an action carries nothing executable
		return domain.OperationCommand{Mode: domain.OperationModeUnknown}
	case "auto":
		return domain.AutoCommand()
	default:
		return domain.OperationCommand{Mode: domain.OperationModeUnknown}
	}
}
