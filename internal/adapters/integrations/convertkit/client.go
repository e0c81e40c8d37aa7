package convertkit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ogurasousui/talent-board/internal/adapters/integrations/httpx"
	"github.com/ogurasousui/talent-board/internal/core/tagsync"
)

const defaultBaseURL = "https://api.convertkit.com/v3"

// Config はクライアントの設定です。
type Config struct {
	BaseURL       string
	APIKey        string
	APISecret     string
	FormID        string
	RatePerSecond float64
	Timeout       time.Duration
}

// Client はメール配信リストの API クライアントです。送信は RatePerSecond で平準化されます。
type Client struct {
	http   *httpx.Client
	key    string
	secret string
	formID string
}

// New は Client を生成します。
func New(cfg Config, opts ...httpx.Option) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	opts = append([]httpx.Option{httpx.WithRateLimit(cfg.RatePerSecond)}, opts...)
	return &Client{
		http:   httpx.New(base, cfg.Timeout, opts...),
		key:    cfg.APIKey,
		secret: cfg.APISecret,
		formID: cfg.FormID,
	}
}

// Subscribe は購読フォーム経由でリストに登録します。
func (c *Client) Subscribe(ctx context.Context, email, firstName string) error {
	return c.http.Do(ctx, http.MethodPost, "/forms/"+url.PathEscape(c.formID)+"/subscribe", nil, map[string]string{
		"api_key":    c.key,
		"email":      email,
		"first_name": firstName,
	}, nil)
}

type tagsResponse struct {
	Tags []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"tags"`
}

// ListTags は管理対象のタグ一覧を返します。
func (c *Client) ListTags(ctx context.Context) ([]tagsync.Tag, error) {
	var resp tagsResponse
	if err := c.http.Do(ctx, http.MethodGet, "/tags", url.Values{"api_key": {c.key}}, nil, &resp); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	out := make([]tagsync.Tag, 0, len(resp.Tags))
	for _, t := range resp.Tags {
		out = append(out, tagsync.Tag{ID: strconv.FormatInt(t.ID, 10), Name: t.Name})
	}
	return out, nil
}

// TagSubscriber は購読者にタグを付与します。
func (c *Client) TagSubscriber(ctx context.Context, tagID, email string) error {
	return c.http.Do(ctx, http.MethodPost, "/tags/"+url.PathEscape(tagID)+"/subscribe", nil, map[string]string{
		"api_key": c.key,
		"email":   email,
	}, nil)
}

// UntagSubscriber は購読者からタグを外します。
func (c *Client) UntagSubscriber(ctx context.Context, tagID, email string) error {
	return c.http.Do(ctx, http.MethodPost, "/tags/"+url.PathEscape(tagID)+"/unsubscribe", nil, map[string]string{
		"api_secret": c.secret,
		"email":      email,
	}, nil)
}
