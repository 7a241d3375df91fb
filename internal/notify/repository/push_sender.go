package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"gratitude_chat_service/internal/notify/domain"
	"gratitude_chat_service/pkg/logger"
)

// PushSender remote push transport for one device endpoint
type PushSender interface {
	// Send deliver a data-only payload; returns the transport status code
	// and raw response body so callers can classify endpoint errors
	Send(ctx context.Context, token string, data domain.PushData) (int, string, error)
}

type httpPushSender struct {
	url       string
	serverKey string
	client    *http.Client
}

// NewHTTPPushSender create a PushSender posting to an FCM-style endpoint
func NewHTTPPushSender(url, serverKey string, timeout time.Duration) PushSender {
	return &httpPushSender{
		url:       url,
		serverKey: serverKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type pushRequest struct {
	To   string          `json:"to"`
	Data domain.PushData `json:"data"`
}

func (s *httpPushSender) Send(ctx context.Context, token string, data domain.PushData) (int, string, error) {
	body, err := json.Marshal(pushRequest{To: token, Data: data})
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(respBody), nil
}

// MockPushSender logs pushes instead of sending them, for local development
type MockPushSender struct{}

// Send log the push and report success
func (MockPushSender) Send(_ context.Context, token string, data domain.PushData) (int, string, error) {
	logger.Log.Infof("MOCK PUSH to "+token+": ", data.DedupeKey)
	return http.StatusOK, "", nil
}
