package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Cache        CacheConfig        `yaml:"cache"`
	Storage      StorageConfig      `yaml:"storage"`
	Integrations IntegrationsConfig `yaml:"integrations"`
	Taxonomy     TaxonomyConfig     `yaml:"taxonomy"`
	Worker       WorkerConfig       `yaml:"worker"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig は HTTP / gRPC サーバーに関する設定です。
type ServerConfig struct {
	HTTPListenAddr    string        `yaml:"http_listen_addr"`
	GRPCListenAddr    string        `yaml:"grpc_listen_addr"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	RequestTimeout    time.Duration `yaml:"-"`
	RequestTimeoutRaw string        `yaml:"request_timeout"`
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host                string        `yaml:"host"`
	Port                int           `yaml:"port"`
	User                string        `yaml:"user"`
	Password            string        `yaml:"password"`
	Name                string        `yaml:"name"`
	SSLMode             string        `yaml:"ssl_mode"`
	MaxOpenConns        int           `yaml:"max_open_conns"`
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	ConnMaxLifetime     time.Duration `yaml:"-"`
	ConnMaxIdleTime     time.Duration `yaml:"-"`
	StatementTimeout    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw  string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw  string        `yaml:"conn_max_idle_time"`
	StatementTimeoutRaw string        `yaml:"statement_timeout"`
}

// AuthConfig はトークン発行に関する設定です。
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"-"`
	TokenTTLRaw string        `yaml:"token_ttl"`
	CookieName  string        `yaml:"cookie_name"`
	// SecureCookie は Cookie に Secure 属性を付けるかどうかです。HTTPS で公開する環境では true にします。
	SecureCookie bool `yaml:"secure_cookie"`
}

// CacheConfig はマッチング結果キャッシュの設定です。RedisURL が空の場合キャッシュは無効です。
type CacheConfig struct {
	RedisURL    string        `yaml:"redis_url"`
	MatchTTL    time.Duration `yaml:"-"`
	MatchTTLRaw string        `yaml:"match_ttl"`
}

// StorageConfig はアップロードファイルの保存先設定です。
type StorageConfig struct {
	Dir            string `yaml:"dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// EndpointConfig は外部 HTTP サービス共通の設定です。
type EndpointConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"`
	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// ChatConfig はチャットワークスペース連携の設定です。
type ChatConfig struct {
	EndpointConfig `yaml:",inline"`
	TeamID         string   `yaml:"team_id"`
	ChannelIDs     []string `yaml:"channel_ids"`
	NotifyChannel  string   `yaml:"notify_channel"`
}

// MailingListConfig はメーリングリスト連携の設定です。
type MailingListConfig struct {
	EndpointConfig `yaml:",inline"`
	APISecret      string  `yaml:"api_secret"`
	FormID         string  `yaml:"form_id"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	// ManagedTagPrefix と ManagedTags に一致するタグだけを同期で付け外しします。
	ManagedTagPrefix string   `yaml:"managed_tag_prefix"`
	ManagedTags      []string `yaml:"managed_tags"`
}

// EmailConfig はメール配信連携の設定です。
type EmailConfig struct {
	EndpointConfig    `yaml:",inline"`
	From              string `yaml:"from"`
	WelcomeTemplateID string `yaml:"welcome_template_id"`
}

// IntegrationsConfig は外部連携の設定をまとめます。
type IntegrationsConfig struct {
	Chat        ChatConfig        `yaml:"chat"`
	MailingList MailingListConfig `yaml:"mailing_list"`
	Email       EmailConfig       `yaml:"email"`
}

// TaxonomyConfig は分類ラベルの照合戦略です。
type TaxonomyConfig struct {
	Strategies  map[string]string `yaml:"strategies"`
	FuzzyCutoff float64           `yaml:"fuzzy_cutoff"`
}

// WorkerConfig はバックグラウンドタスク処理の設定です。
type WorkerConfig struct {
	Count            int           `yaml:"count"`
	MaxAttempts      int           `yaml:"max_attempts"`
	PollInterval     time.Duration `yaml:"-"`
	JobExpiryAge     time.Duration `yaml:"-"`
	SweepInterval    time.Duration `yaml:"-"`
	LeaseTimeout     time.Duration `yaml:"-"`
	PollIntervalRaw  string        `yaml:"poll_interval"`
	JobExpiryAgeRaw  string        `yaml:"job_expiry_age"`
	SweepIntervalRaw string        `yaml:"sweep_interval"`
	LeaseTimeoutRaw  string        `yaml:"lease_timeout"`
}

// LogConfig はログ出力の設定です。
type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	defaultCookieName     = "auth_token"
	defaultTokenTTL       = 24 * time.Hour
	defaultMatchTTL       = 5 * time.Minute
	defaultRequestTimeout = 30 * time.Second
	defaultStorageDir     = "media"
	defaultMaxUpload      = 10 << 20
	defaultFuzzyCutoff    = 0.6
	defaultWorkerCount    = 4
	defaultMaxAttempts    = 5
	defaultPollInterval   = time.Second
	defaultJobExpiryAge   = 90 * 24 * time.Hour
	defaultSweepInterval  = time.Hour
	defaultLeaseTimeout   = 10 * time.Minute
	defaultClientTimeout  = 10 * time.Second
	defaultManagedPrefix  = "tb:"
)

// Load は .env と指定されたパスの設定ファイルを読み込み、環境変数で上書きします。
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_LISTEN_ADDR", &c.Server.HTTPListenAddr)
	str("GRPC_LISTEN_ADDR", &c.Server.GRPCListenAddr)
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}

	str("DATABASE_HOST", &c.Database.Host)
	str("DATABASE_USER", &c.Database.User)
	str("DATABASE_PASSWORD", &c.Database.Password)
	str("DATABASE_NAME", &c.Database.Name)
	str("DATABASE_SSL_MODE", &c.Database.SSLMode)
	if v, ok := lookup("DATABASE_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: DATABASE_PORT: %w", err)
		}
		c.Database.Port = port
	}

	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("REDIS_URL", &c.Cache.RedisURL)
	str("STORAGE_DIR", &c.Storage.Dir)

	str("SLACK_BASE_URL", &c.Integrations.Chat.BaseURL)
	str("SLACK_TOKEN", &c.Integrations.Chat.Token)
	str("SLACK_TEAM_ID", &c.Integrations.Chat.TeamID)
	str("MAILING_LIST_BASE_URL", &c.Integrations.MailingList.BaseURL)
	str("MAILING_LIST_API_KEY", &c.Integrations.MailingList.Token)
	str("MAILING_LIST_API_SECRET", &c.Integrations.MailingList.APISecret)
	str("MAILING_LIST_FORM_ID", &c.Integrations.MailingList.FormID)
	str("EMAIL_BASE_URL", &c.Integrations.Email.BaseURL)
	str("EMAIL_API_KEY", &c.Integrations.Email.Token)
	str("EMAIL_FROM", &c.Integrations.Email.From)
	str("LOG_LEVEL", &c.Log.Level)

	return nil
}

func (c *Config) validateAndNormalize() error {
	if c.Server.HTTPListenAddr == "" {
		return fmt.Errorf("config: server.http_listen_addr must be set")
	}
	timeout, err := parseDurationDefault(c.Server.RequestTimeoutRaw, defaultRequestTimeout)
	if err != nil {
		return fmt.Errorf("config: server.request_timeout: %w", err)
	}
	c.Server.RequestTimeout = timeout

	if err := c.Database.validateAndNormalize(); err != nil {
		return err
	}
	if err := c.Auth.validateAndNormalize(); err != nil {
		return err
	}

	matchTTL, err := parseDurationDefault(c.Cache.MatchTTLRaw, defaultMatchTTL)
	if err != nil {
		return fmt.Errorf("config: cache.match_ttl: %w", err)
	}
	c.Cache.MatchTTL = matchTTL

	if c.Storage.Dir == "" {
		c.Storage.Dir = defaultStorageDir
	}
	if c.Storage.MaxUploadBytes <= 0 {
		c.Storage.MaxUploadBytes = defaultMaxUpload
	}

	for name, ep := range map[string]*EndpointConfig{
		"integrations.chat":         &c.Integrations.Chat.EndpointConfig,
		"integrations.mailing_list": &c.Integrations.MailingList.EndpointConfig,
		"integrations.email":        &c.Integrations.Email.EndpointConfig,
	} {
		if err := ep.validateAndNormalize(name); err != nil {
			return err
		}
	}
	if c.Integrations.MailingList.ManagedTagPrefix == "" && len(c.Integrations.MailingList.ManagedTags) == 0 {
		c.Integrations.MailingList.ManagedTagPrefix = defaultManagedPrefix
	}

	if c.Taxonomy.FuzzyCutoff <= 0 {
		c.Taxonomy.FuzzyCutoff = defaultFuzzyCutoff
	}
	if c.Taxonomy.FuzzyCutoff > 1 {
		return fmt.Errorf("config: taxonomy.fuzzy_cutoff must be within (0, 1]")
	}
	for kind, strategy := range c.Taxonomy.Strategies {
		if strategy != "exact" && strategy != "fuzzy" {
			return fmt.Errorf("config: taxonomy.strategies.%s: unsupported strategy %q", kind, strategy)
		}
	}

	return c.Worker.validateAndNormalize()
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("config: database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("config: database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("config: database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("config: database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("config: database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationAllowEmpty(d.ConnMaxLifetimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationAllowEmpty(d.ConnMaxIdleTimeRaw)
	if err != nil {
		return fmt.Errorf("config: database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	stmtTimeout, err := parseDurationAllowEmpty(d.StatementTimeoutRaw)
	if err != nil {
		return fmt.Errorf("config: database.statement_timeout: %w", err)
	}
	d.StatementTimeout = stmtTimeout

	return nil
}

func (a *AuthConfig) validateAndNormalize() error {
	if a.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret must be set")
	}
	if a.CookieName == "" {
		a.CookieName = defaultCookieName
	}
	ttl, err := parseDurationDefault(a.TokenTTLRaw, defaultTokenTTL)
	if err != nil {
		return fmt.Errorf("config: auth.token_ttl: %w", err)
	}
	a.TokenTTL = ttl
	return nil
}

func (e *EndpointConfig) validateAndNormalize(name string) error {
	if e.BaseURL != "" {
		if _, err := url.ParseRequestURI(e.BaseURL); err != nil {
			return fmt.Errorf("config: %s.base_url: %w", name, err)
		}
		e.BaseURL = strings.TrimRight(e.BaseURL, "/")
	}
	timeout, err := parseDurationDefault(e.TimeoutRaw, defaultClientTimeout)
	if err != nil {
		return fmt.Errorf("config: %s.timeout: %w", name, err)
	}
	e.Timeout = timeout
	return nil
}

func (w *WorkerConfig) validateAndNormalize() error {
	if w.Count <= 0 {
		w.Count = defaultWorkerCount
	}
	if w.MaxAttempts <= 0 {
		w.MaxAttempts = defaultMaxAttempts
	}

	var err error
	if w.PollInterval, err = parseDurationDefault(w.PollIntervalRaw, defaultPollInterval); err != nil {
		return fmt.Errorf("config: worker.poll_interval: %w", err)
	}
	if w.JobExpiryAge, err = parseDurationDefault(w.JobExpiryAgeRaw, defaultJobExpiryAge); err != nil {
		return fmt.Errorf("config: worker.job_expiry_age: %w", err)
	}
	if w.SweepInterval, err = parseDurationDefault(w.SweepIntervalRaw, defaultSweepInterval); err != nil {
		return fmt.Errorf("config: worker.sweep_interval: %w", err)
	}
	if w.LeaseTimeout, err = parseDurationDefault(w.LeaseTimeoutRaw, defaultLeaseTimeout); err != nil {
		return fmt.Errorf("config: worker.lease_timeout: %w", err)
	}
	for name, d := range map[string]time.Duration{
		"poll_interval":  w.PollInterval,
		"job_expiry_age": w.JobExpiryAge,
		"sweep_interval": w.SweepInterval,
		"lease_timeout":  w.LeaseTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("config: worker.%s must be positive, got %s", name, d)
		}
	}
	return nil
}

func parseDurationAllowEmpty(raw string) (time.Duration, error) {
	return parseDurationDefault(raw, 0)
}

func parseDurationDefault(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	return d, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DSN は pgx / golang-migrate 用の接続文字列を返します。認証情報はエスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}
