package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download orchestration configuration.
// MaxAttempts, RetryDelay and Timeout are deliberately configuration
// rather than literals; the defaults match observed engine behavior.
type DownloadConfig struct {
	OutputDir       string        `mapstructure:"output_dir"`
	LogsDir         string        `mapstructure:"logs_dir"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ConcurrentLimit int           `mapstructure:"concurrent_limit"`
}

// EngineConfig contains extraction-engine configuration
type EngineConfig struct {
	Binary       string        `mapstructure:"binary"`
	CookieFile   string        `mapstructure:"cookie_file"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	ExtraArgs    string        `mapstructure:"extra_args"`
}

// QueueConfig contains queue-related configuration for serve mode
type QueueConfig struct {
	DatabasePath    string        `mapstructure:"database_path"`
	CheckInterval   time.Duration `mapstructure:"check_interval"`
	AutoExitOnEmpty bool          `mapstructure:"auto_exit_on_empty"`
	EmptyWaitTime   time.Duration `mapstructure:"empty_wait_time"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			OutputDir:       "$HOME/Downloads",
			LogsDir:         "$HOME/.vfetch/logs",
			MaxAttempts:     3,
			RetryDelay:      2 * time.Second,
			Timeout:         5 * time.Minute,
			ConcurrentLimit: 1,
		},
		Engine: EngineConfig{
			Binary:       "yt-dlp",
			CookieFile:   "",
			ProbeTimeout: 30 * time.Second,
			ExtraArgs:    "",
		},
		Queue: QueueConfig{
			DatabasePath:    "$HOME/.vfetch/queue.db",
			CheckInterval:   10 * time.Second,
			AutoExitOnEmpty: false,
			EmptyWaitTime:   5 * time.Minute,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}
