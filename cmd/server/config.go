package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/MegaGrindStone/gemini-web-ui/internal/handlers"
	"github.com/MegaGrindStone/gemini-web-ui/internal/router"
	"github.com/MegaGrindStone/gemini-web-ui/internal/services"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort        = 7860
	defaultModel       = "gemini-2.5-flash"
	defaultTitle       = "🤖 Gemini Chat"
	defaultDescription = "Chat with the Gemini 2.5 Flash model."
)

var errMissingAPIKey = errors.New("GOOGLE_API_KEY is not set in the environment")

type config struct {
	APIKey   string
	Username string
	Password string
	Port     int
	LogLevel slog.Level

	settings
}

// settings are the non-secret options that may come from the YAML file named by CONFIG_FILE.
type settings struct {
	Title        string                    `yaml:"title"`
	Description  string                    `yaml:"description"`
	Model        string                    `yaml:"model"`
	SystemPrompt string                    `yaml:"systemPrompt"`
	LogLevel     string                    `yaml:"logLevel"`
	Generation   services.GenerationParams `yaml:"generation"`
}

// loadConfig builds the configuration from getenv. It returns errMissingAPIKey when GOOGLE_API_KEY is
// absent, so the caller can stop before anything is started.
func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{
		APIKey:   getenv("GOOGLE_API_KEY"),
		Username: getenv("GRADIO_USERNAME"),
		Password: getenv("GRADIO_PASSWORD"),
		Port:     defaultPort,
		settings: settings{
			Title:       defaultTitle,
			Description: defaultDescription,
			Model:       defaultModel,
		},
	}
	if cfg.APIKey == "" {
		return config{}, errMissingAPIKey
	}

	if path := getenv("CONFIG_FILE"); path != "" {
		if err := cfg.settings.load(path); err != nil {
			return config{}, err
		}
	}

	if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return config{}, fmt.Errorf("invalid PORT %q: must be an integer between 1 and 65535", port)
		}
		cfg.Port = p
	}

	if model := getenv("GEMINI_MODEL"); model != "" {
		cfg.Model = model
	}

	level := cfg.settings.LogLevel
	if l := getenv("LOG_LEVEL"); l != "" {
		level = l
	}
	if level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return config{}, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	return cfg, nil
}

func (s *settings) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	// Fields absent from the file keep their defaults.
	if err := yaml.NewDecoder(f).Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error decoding config file: %w", err)
	}
	return nil
}

// credentials returns the basic auth pair, or nil when either half is missing.
func (c config) credentials() *router.Credentials {
	if c.Username == "" || c.Password == "" {
		return nil
	}
	return &router.Credentials{Username: c.Username, Password: c.Password}
}

func (c config) page() handlers.Page {
	return handlers.Page{
		Title:       c.Title,
		Description: c.Description,
		Model:       c.Model,
	}
}
