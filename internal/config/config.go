package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Collector CollectorConfig `mapstructure:"collector"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	CloudBase CloudBaseConfig `mapstructure:"cloudbase"`
	WeChat    WeChatConfig    `mapstructure:"wechat"`
}

type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

type CollectorConfig struct {
	// Mode selects the readings source: function, browser, or file.
	Mode string `mapstructure:"mode"`
	// FunctionURL is the vote function endpoint for mode=function.
	FunctionURL string `mapstructure:"function_url"`
	// StatsURL is the stats page for mode=browser.
	StatsURL string `mapstructure:"stats_url"`
	// BrowserURL is an optional remote Chrome websocket for mode=browser.
	BrowserURL string `mapstructure:"browser_url"`
	// ReadingsFile is the input path for mode=file.
	ReadingsFile string        `mapstructure:"readings_file"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  string `mapstructure:"chat_id"`
}

type CloudBaseConfig struct {
	EnvID  string `mapstructure:"env_id"`
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

type WeChatConfig struct {
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
}

const (
	ModeFunction = "function"
	ModeBrowser  = "browser"
	ModeFile     = "file"
)

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("votewatch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.dir", "data/vote-stats")
	v.SetDefault("collector.mode", ModeFunction)
	v.SetDefault("collector.timeout", "30s")
	v.SetDefault("telegram.enabled", true)
}

func (c Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	switch c.Collector.Mode {
	case ModeFunction:
		if c.Collector.FunctionURL == "" {
			return fmt.Errorf("collector.function_url is required for mode=function")
		}
	case ModeBrowser:
		if c.Collector.StatsURL == "" {
			return fmt.Errorf("collector.stats_url is required for mode=browser")
		}
	case ModeFile:
		if c.Collector.ReadingsFile == "" {
			return fmt.Errorf("collector.readings_file is required for mode=file")
		}
	default:
		return fmt.Errorf("unknown collector.mode %q", c.Collector.Mode)
	}
	return nil
}

// ValidateDelivery checks the credentials a real delivery needs. It is
// separate from Validate so dry runs load cleanly on hosts that never hold
// a bot token.
func (c Config) ValidateDelivery() error {
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.token and telegram.chat_id are required while telegram.enabled=true")
	}
	return nil
}

// QuestionsPath is the registry file inside the data dir.
func (c Config) QuestionsPath() string {
	return filepath.Join(c.Data.Dir, "questions.json")
}

// HistoryPath is the history store file inside the data dir.
func (c Config) HistoryPath() string {
	return filepath.Join(c.Data.Dir, "history.json")
}

// DraftQueuePath is the CMS draft queue database inside the data dir.
func (c Config) DraftQueuePath() string {
	return filepath.Join(c.Data.Dir, "drafts.db")
}
