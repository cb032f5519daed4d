package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const appName = "myfirstagent"

type Config struct {
	Agent    AgentConfig               `toml:"agent"`
	LLMs     map[string]*LLMConfig     `toml:"llm"`
	Gateway  GatewayConfig             `toml:"gateway"`
	Channels map[string]*ChannelConfig `toml:"channel"`
	DB       DBConfig                  `toml:"db"`
	Services ServicesConfig            `toml:"services"`
	Trace    TraceConfig               `toml:"trace"`
}

type AgentConfig struct {
	LLM       string `toml:"llm"` // key into [llm.<name>]
	Streaming bool   `toml:"streaming"`
}

type LLMConfig struct {
	Provider string `toml:"provider"` // "gemini" or "openai"
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
}

type GatewayConfig struct {
	Addr  string `toml:"addr"`
	Token string `toml:"token"`
}

type ChannelConfig struct {
	Enabled  bool              `toml:"enabled"`
	Type     string            `toml:"type"`
	Settings map[string]string `toml:"settings"`
}

type DBConfig struct {
	Path string `toml:"path"`
}

type ServicesConfig struct {
	Brave BraveConfig `toml:"brave"`
}

type BraveConfig struct {
	APIKey string `toml:"api_key"`
}

type TraceConfig struct {
	Endpoint string `toml:"endpoint"`
	URLPath  string `toml:"url_path"`
	APIKey   string `toml:"api_key"`
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{LLM: "gemini"},
		LLMs: map[string]*LLMConfig{
			"gemini": {
				Provider: "gemini",
				Model:    "gemini-2.5-flash",
			},
		},
		Gateway: GatewayConfig{
			Addr: ":8484",
		},
		DB: DBConfig{
			Path: defaultDBPath(),
		},
	}
}

// Load reads the .env file named by MYFIRSTAGENT_ENV (or .env), then decodes
// the TOML config file over the defaults. Environment variables fill in
// secrets the file leaves empty.
func Load() (*Config, error) {
	envFile := os.Getenv("MYFIRSTAGENT_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load env file", "path", envFile, "error", err)
	}

	return LoadFile(Path())
}

// LoadFile decodes path over the defaults. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.Services.Brave.APIKey == "" {
		c.Services.Brave.APIKey = os.Getenv("BRAVE_API_KEY")
	}
	if c.Gateway.Token == "" {
		c.Gateway.Token = os.Getenv("MYFIRSTAGENT_GATEWAY_TOKEN")
	}
}

// ActiveLLM returns the LLM entry selected by [agent].llm.
func (c *Config) ActiveLLM() (*LLMConfig, error) {
	llm, ok := c.LLMs[c.Agent.LLM]
	if !ok {
		return nil, fmt.Errorf("llm %q not found in config", c.Agent.LLM)
	}
	return llm, nil
}

// Write encodes c as TOML to path, creating parent directories.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// Path returns the location of config.toml.
func Path() string {
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, appName, "config.toml")
}

func defaultDBPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".local", "share", appName, appName+".db")
}
