// Package config provides configuration management for Reelsmith Studio.
// Configuration is layered: built-in defaults, an optional YAML presets file,
// a .env file, and finally the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort              = 8790
	DefaultLogLevel          = "info"
	DefaultDataDir           = ".reelsmith"
	DefaultDBPath            = ":memory:"
	DefaultTextModel         = "gemini-2.5-flash"
	DefaultVideoModel        = "veo-2.0-generate-001"
	DefaultVideoPollSeconds  = 10
	DefaultPromptLanguage    = "en"
	DefaultNarrationLanguage = "en-US"
	DefaultDurationSeconds   = 5
	DefaultTextPosition      = "bottom"
	DefaultQueueConcurrency  = 1
	DefaultS3Region          = "us-east-1"

	// Environment variable names
	EnvPort              = "REELSMITH_PORT"
	EnvLogLevel          = "REELSMITH_LOG_LEVEL"
	EnvDataDir           = "REELSMITH_DATA_DIR"
	EnvDBPath            = "REELSMITH_DB_PATH"
	EnvAPIKey            = "REELSMITH_API_KEY"
	EnvGatewayURL        = "REELSMITH_GATEWAY_URL"
	EnvTextModel         = "REELSMITH_TEXT_MODEL"
	EnvVideoModel        = "REELSMITH_VIDEO_MODEL"
	EnvVideoPollSeconds  = "REELSMITH_VIDEO_POLL_SECONDS"
	EnvAuthToken         = "REELSMITH_AUTH_TOKEN"
	EnvHeadless          = "REELSMITH_HEADLESS"
	EnvPromptLanguage    = "REELSMITH_PROMPT_LANGUAGE"
	EnvNarrationLanguage = "REELSMITH_NARRATION_LANGUAGE"
	EnvDefaultDuration   = "REELSMITH_DEFAULT_DURATION"
	EnvQueueConcurrency  = "REELSMITH_QUEUE_CONCURRENCY"
	EnvS3Bucket          = "REELSMITH_S3_BUCKET"
	EnvS3Region          = "REELSMITH_S3_REGION"
	EnvPublicURL         = "REELSMITH_PUBLIC_URL"
	EnvAllowedOrigins    = "REELSMITH_ALLOWED_ORIGINS"
	EnvPresetsFile       = "REELSMITH_PRESETS_FILE"

	// Provider credential fallbacks, checked in order after EnvAPIKey.
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvBareAPIKey   = "API_KEY"

	// DotEnvFile is loaded from the working directory when present.
	DotEnvFile = ".env"

	// MediaDirName holds generated clips and recordings under the data directory.
	MediaDirName = "media"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	MediaDir() string
	APIKey() string
	GatewayURL() string
	TextModel() string
	VideoModel() string
	VideoPollInterval() time.Duration
	AuthToken() string
	Headless() bool
	PromptLanguage() string
	NarrationLanguage() string
	DefaultDuration() int
	DefaultTextPosition() string
	QueueConcurrency() int
	S3Bucket() string
	S3Region() string
	PublicURL() string
	AllowedOrigins() []string
}

// Presets is the YAML presets file. Zero values leave the defaults alone.
type Presets struct {
	TextModel              string `yaml:"text_model"`
	VideoModel             string `yaml:"video_model"`
	VideoPollSeconds       int    `yaml:"video_poll_seconds"`
	DefaultDurationSeconds int    `yaml:"default_duration_seconds"`
	DefaultTextPosition    string `yaml:"default_text_position"`
	PromptLanguage         string `yaml:"prompt_language"`
	NarrationLanguage      string `yaml:"narration_language"`
	QueueConcurrency       int    `yaml:"queue_concurrency"`
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	dbPath   string

	apiKey       string
	gatewayURL   string
	textModel    string
	videoModel   string
	pollInterval time.Duration

	authToken      string
	headless       bool
	allowedOrigins []string

	promptLanguage    string
	narrationLanguage string
	defaultDuration   int
	textPosition      string
	queueConcurrency  int

	s3Bucket  string
	s3Region  string
	publicURL string
}

// New creates a new EnvConfig with defaults, presets and environment overrides
func New() (*EnvConfig, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	cfg := &EnvConfig{
		port:              DefaultPort,
		logLevel:          DefaultLogLevel,
		dataDir:           defaultDataDir(),
		dbPath:            DefaultDBPath,
		textModel:         DefaultTextModel,
		videoModel:        DefaultVideoModel,
		pollInterval:      DefaultVideoPollSeconds * time.Second,
		promptLanguage:    DefaultPromptLanguage,
		narrationLanguage: DefaultNarrationLanguage,
		defaultDuration:   DefaultDurationSeconds,
		textPosition:      DefaultTextPosition,
		queueConcurrency:  DefaultQueueConcurrency,
		s3Region:          DefaultS3Region,
	}

	if path := os.Getenv(EnvPresetsFile); path != "" {
		presets, err := LoadPresets(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.applyPresets(presets); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPresets reads a YAML presets file.
func LoadPresets(path string) (*Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse presets file %s: %w", path, err)
	}
	return &p, nil
}

func (c *EnvConfig) applyPresets(p *Presets) error {
	if p.TextModel != "" {
		c.textModel = p.TextModel
	}
	if p.VideoModel != "" {
		c.videoModel = p.VideoModel
	}
	if p.VideoPollSeconds != 0 {
		if p.VideoPollSeconds < 1 {
			return fmt.Errorf("invalid presets video_poll_seconds: must be positive")
		}
		c.pollInterval = time.Duration(p.VideoPollSeconds) * time.Second
	}
	if p.DefaultDurationSeconds != 0 {
		if p.DefaultDurationSeconds < 1 {
			return fmt.Errorf("invalid presets default_duration_seconds: must be positive")
		}
		c.defaultDuration = p.DefaultDurationSeconds
	}
	if p.DefaultTextPosition != "" {
		c.textPosition = p.DefaultTextPosition
	}
	if p.PromptLanguage != "" {
		c.promptLanguage = p.PromptLanguage
	}
	if p.NarrationLanguage != "" {
		c.narrationLanguage = p.NarrationLanguage
	}
	if p.QueueConcurrency != 0 {
		if p.QueueConcurrency < 1 {
			return fmt.Errorf("invalid presets queue_concurrency: must be positive")
		}
		c.queueConcurrency = p.QueueConcurrency
	}
	return nil
}

func (c *EnvConfig) applyEnv() error {
	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		c.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		c.dataDir = dd
	}
	if db := os.Getenv(EnvDBPath); db != "" {
		c.dbPath = db
	}

	c.apiKey = firstEnv(EnvAPIKey, EnvGeminiAPIKey, EnvBareAPIKey)
	c.gatewayURL = os.Getenv(EnvGatewayURL)
	c.authToken = os.Getenv(EnvAuthToken)
	c.s3Bucket = os.Getenv(EnvS3Bucket)
	c.publicURL = strings.TrimRight(os.Getenv(EnvPublicURL), "/")

	setString(&c.textModel, EnvTextModel)
	setString(&c.videoModel, EnvVideoModel)
	setString(&c.promptLanguage, EnvPromptLanguage)
	setString(&c.narrationLanguage, EnvNarrationLanguage)
	setString(&c.s3Region, EnvS3Region)

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.headless = headless
	}

	poll, err := positiveInt(EnvVideoPollSeconds, int(c.pollInterval/time.Second))
	if err != nil {
		return err
	}
	c.pollInterval = time.Duration(poll) * time.Second

	if c.defaultDuration, err = positiveInt(EnvDefaultDuration, c.defaultDuration); err != nil {
		return err
	}
	if c.queueConcurrency, err = positiveInt(EnvQueueConcurrency, c.queueConcurrency); err != nil {
		return err
	}

	if origins := os.Getenv(EnvAllowedOrigins); origins != "" {
		c.allowedOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.allowedOrigins = append(c.allowedOrigins, strings.TrimRight(o, "/"))
			}
		}
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the SQLite database path. The default keeps session state
// in memory so nothing survives a restart.
func (c *EnvConfig) DBPath() string {
	return c.dbPath
}

// MediaDir returns where generated clips and recordings are written
func (c *EnvConfig) MediaDir() string {
	return filepath.Join(c.dataDir, MediaDirName)
}

// APIKey returns the provider credential. Empty means the studio relays
// through GatewayURL instead.
func (c *EnvConfig) APIKey() string {
	return c.apiKey
}

func (c *EnvConfig) GatewayURL() string {
	return c.gatewayURL
}

func (c *EnvConfig) TextModel() string {
	return c.textModel
}

func (c *EnvConfig) VideoModel() string {
	return c.videoModel
}

func (c *EnvConfig) VideoPollInterval() time.Duration {
	return c.pollInterval
}

// AuthToken returns the bearer token for studio endpoints. Empty disables auth.
func (c *EnvConfig) AuthToken() string {
	return c.authToken
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) PromptLanguage() string {
	return c.promptLanguage
}

func (c *EnvConfig) NarrationLanguage() string {
	return c.narrationLanguage
}

// DefaultDuration returns the target clip duration in seconds for new sessions
func (c *EnvConfig) DefaultDuration() int {
	return c.defaultDuration
}

func (c *EnvConfig) DefaultTextPosition() string {
	return c.textPosition
}

// QueueConcurrency returns how many shots may be generated at once. 1 is serial.
func (c *EnvConfig) QueueConcurrency() int {
	return c.queueConcurrency
}

// S3Bucket returns the bucket recordings are shared through. Empty disables sharing.
func (c *EnvConfig) S3Bucket() string {
	return c.s3Bucket
}

func (c *EnvConfig) S3Region() string {
	return c.s3Region
}

// PublicURL returns the externally reachable base URL used in links, if any
func (c *EnvConfig) PublicURL() string {
	return c.publicURL
}

// AllowedOrigins returns browser origins allowed to call the studio API and
// open preview sockets. Loopback origins are always allowed.
func (c *EnvConfig) AllowedOrigins() []string {
	return c.allowedOrigins
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

func setString(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func positiveInt(name string, current int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return current, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return n, nil
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
