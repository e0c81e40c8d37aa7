package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ogurasousui/talent-board/internal/adapters/integrations/httpx"
)

const defaultBaseURL = "https://slack.com/api"

// ErrUserNotFound はワークスペースに該当ユーザーがいない場合に返されます。
var ErrUserNotFound = errors.New("slack user not found")

// Config はクライアントの設定です。
type Config struct {
	BaseURL    string
	Token      string
	TeamID     string
	ChannelIDs []string
	Timeout    time.Duration
}

// Client はチャットワークスペースの管理 API クライアントです。
type Client struct {
	http       *httpx.Client
	teamID     string
	channelIDs []string
}

// New は Client を生成します。
func New(cfg Config, opts ...httpx.Option) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	opts = append([]httpx.Option{httpx.WithHeader("Authorization", "Bearer "+cfg.Token)}, opts...)
	return &Client{
		http:       httpx.New(base, cfg.Timeout, opts...),
		teamID:     cfg.TeamID,
		channelIDs: cfg.ChannelIDs,
	}
}

// APIError は ok=false の応答です。
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Code)
}

type envelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, in any, out interface{ result() envelope }) error {
	if err := c.http.Do(ctx, http.MethodPost, "/"+method, nil, in, out); err != nil {
		return err
	}
	if env := out.result(); !env.OK {
		return &APIError{Method: method, Code: env.Error}
	}
	return nil
}

type basicResponse struct {
	envelope
}

func (r *basicResponse) result() envelope { return r.envelope }

// Invite はワークスペースへ招待します。既に参加済みの場合は成功として扱います。
func (c *Client) Invite(ctx context.Context, email string) error {
	err := c.call(ctx, "admin.users.invite", map[string]any{
		"team_id":     c.teamID,
		"email":       email,
		"channel_ids": strings.Join(c.channelIDs, ","),
		"resend":      true,
	}, &basicResponse{})

	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Code == "already_in_team" || apiErr.Code == "already_invited") {
		return nil
	}
	return err
}

// Post はチャンネルにメッセージを投稿します。
func (c *Client) Post(ctx context.Context, channel, text string) error {
	if channel == "" {
		return nil
	}
	return c.call(ctx, "chat.postMessage", map[string]any{
		"channel": channel,
		"text":    text,
	}, &basicResponse{})
}

type lookupResponse struct {
	envelope
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

func (r *lookupResponse) result() envelope { return r.envelope }

// Deactivate は退会した人物をワークスペースから外します。未参加の場合は何もしません。
func (c *Client) Deactivate(ctx context.Context, email string) error {
	var found lookupResponse
	if err := c.http.Do(ctx, http.MethodGet, "/users.lookupByEmail", url.Values{"email": {email}}, nil, &found); err != nil {
		return err
	}
	if !found.OK {
		if found.Error == "users_not_found" {
			return nil
		}
		return &APIError{Method: "users.lookupByEmail", Code: found.Error}
	}
	if found.User.ID == "" {
		return ErrUserNotFound
	}
	return c.call(ctx, "admin.users.remove", map[string]any{
		"team_id": c.teamID,
		"user_id": found.User.ID,
	}, &basicResponse{})
}
