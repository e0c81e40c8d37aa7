package sendgrid

import (
	"context"
	"net/http"
	"time"

	"github.com/ogurasousui/talent-board/internal/adapters/integrations/httpx"
)

const defaultBaseURL = "https://api.sendgrid.com"

// Config はクライアントの設定です。
type Config struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

// Client はテンプレートメール送信 API のクライアントです。
type Client struct {
	http *httpx.Client
	from string
}

// New は Client を生成します。
func New(cfg Config, opts ...httpx.Option) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	opts = append([]httpx.Option{httpx.WithHeader("Authorization", "Bearer "+cfg.APIKey)}, opts...)
	return &Client{http: httpx.New(base, cfg.Timeout, opts...), from: cfg.From}
}

type address struct {
	Email string `json:"email"`
}

type personalization struct {
	To   []address      `json:"to"`
	Data map[string]any `json:"dynamic_template_data,omitempty"`
}

type message struct {
	From             address           `json:"from"`
	TemplateID       string            `json:"template_id"`
	Personalizations []personalization `json:"personalizations"`
}

// Send は動的テンプレートでメールを 1 通送信します。
func (c *Client) Send(ctx context.Context, templateID, to string, data map[string]any) error {
	return c.http.Do(ctx, http.MethodPost, "/v3/mail/send", nil, message{
		From:             address{Email: c.from},
		TemplateID:       templateID,
		Personalizations: []personalization{{To: []address{{Email: to}}, Data: data}},
	}, nil)
}
