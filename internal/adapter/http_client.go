package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tallyvault/tallyvault/internal/utils"
	"github.com/tallyvault/tallyvault/models"
)

// HTTPClientConfig configures the HTTP hub adapter.
type HTTPClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

type httpHubAdapter struct {
	client *resty.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPHubAdapter constructs a [HubAdapter] speaking the hub's REST API.
func NewHTTPHubAdapter(cfg HTTPClientConfig) HubAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := utils.NewHTTPClient()
	cli.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &httpHubAdapter{client: cli.Client}
}

func (h *httpHubAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpHubAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

func (h *httpHubAdapter) RegisterDevice(ctx context.Context, deviceID string) (models.Device, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.DeviceRegistrationRequest{DeviceID: deviceID}).
		Post("/api/devices")
	if err != nil {
		return models.Device{}, fmt.Errorf("register device request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Device{}, err
	}

	var registration models.DeviceRegistrationResponse
	if err = json.Unmarshal(resp.Body(), &registration); err != nil {
		return models.Device{}, fmt.Errorf("decode registration response: %w", err)
	}

	h.SetToken(registration.Token)
	return registration.Device, nil
}

func (h *httpHubAdapter) PushBatch(ctx context.Context, batch models.BatchRequest) (models.BatchResult, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(batch).
		Post("/api/sync/batch")
	if err != nil {
		return models.BatchResult{}, fmt.Errorf("push batch request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.BatchResult{}, err
	}

	var result models.BatchResult
	if err = json.Unmarshal(resp.Body(), &result); err != nil {
		return models.BatchResult{}, fmt.Errorf("decode batch result: %w", err)
	}

	return result, nil
}

func (h *httpHubAdapter) FetchConflicts(ctx context.Context, since time.Time) ([]models.ConflictDescriptor, error) {
	req := h.authedRequest(ctx)
	if !since.IsZero() {
		req.SetQueryParam("since", since.Format(time.RFC3339))
	}

	resp, err := req.Get("/api/conflicts")
	if err != nil {
		return nil, fmt.Errorf("fetch conflicts request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var response models.ConflictsResponse
	if err = json.Unmarshal(resp.Body(), &response); err != nil {
		return nil, fmt.Errorf("decode conflicts response: %w", err)
	}
	return response.Conflicts, nil
}

func (h *httpHubAdapter) FetchEpochs(ctx context.Context) ([]models.KeyEpochRecord, error) {
	resp, err := h.authedRequest(ctx).Get("/api/epochs")
	if err != nil {
		return nil, fmt.Errorf("fetch epochs request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var response models.EpochsResponse
	if err = json.Unmarshal(resp.Body(), &response); err != nil {
		return nil, fmt.Errorf("decode epochs response: %w", err)
	}
	return response.Epochs, nil
}

func (h *httpHubAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))

	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrDeviceRevoked
	case http.StatusConflict:
		return ErrConflict
	}

	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}
	return fmt.Errorf("http %d: %s", resp.StatusCode(), body)
}
