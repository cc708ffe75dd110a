// Package mail は通知メールの送信とキューイングを提供する。
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bearfolio/bearfolio/internal/model"
)

// Message は送信するメール1通分。
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender はメールを1通送信するインターフェース。
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// MockSender は実際には送信せずログに記録するSender。
// APIキー未設定時やローカル開発で使用する。
type MockSender struct {
	logger *slog.Logger
}

// NewMockSender はMockSenderを生成する。
func NewMockSender(logger *slog.Logger) *MockSender {
	return &MockSender{logger: logger.With(slog.String("component", "mail_mock"))}
}

// Send はメール内容をログに出力する。常に成功する。
func (s *MockSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("mock mail delivered",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}

const sendAPIURL = "https://api.sendgrid.com/v3/mail/send"

// HTTPSender はSendGrid v3 APIでメールを送信するSender。
type HTTPSender struct {
	apiKey string
	from   string
	apiURL string
	client *http.Client
}

// NewHTTPSender はHTTPSenderを生成する。
func NewHTTPSender(apiKey, from string) *HTTPSender {
	return &HTTPSender{
		apiKey: apiKey,
		from:   from,
		apiURL: sendAPIURL,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// sendRequest はSendGrid v3 APIのリクエストボディ。
type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send はメールを1通送信する。非2xx応答はUPSTREAMエラーとなる。
func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(sendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: msg.To}}}},
		From:             emailAddress{Email: s.from},
		Subject:          msg.Subject,
		Content:          []content{{Type: "text/plain", Value: msg.Body}},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return model.NewUpstreamError("mail", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.NewUpstreamError("mail", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return nil
}

// compile-time interface check
var (
	_ Sender = (*MockSender)(nil)
	_ Sender = (*HTTPSender)(nil)
)
