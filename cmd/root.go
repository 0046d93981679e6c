package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/scoring"
	"github.com/spigell/resume-ranker/internal/server"
)

const (
	app = "resume-ranker"

	defaultListen        = ":8008"
	defaultRemoteTimeout = 5 * time.Minute
)

type Config struct {
	AI          AIConfig               `mapstructure:"ai"`
	Scoring     scoring.Thresholds     `mapstructure:"scoring"`
	Profiles    []conversation.Profile `mapstructure:"company-profiles" validate:"dive"`
	Server      server.Config          `mapstructure:"server"`
	Export      ExportConfig           `mapstructure:"export"`
	ExcludeFile string                 `mapstructure:"exclude-file"`
	Limit       int                    `mapstructure:"limit" validate:"gte=0"`
}

type AIConfig struct {
	Provider       string       `mapstructure:"provider" validate:"oneof=gemini openai remote"`
	PrimaryModel   string       `mapstructure:"primary-model"`
	ReasoningModel string       `mapstructure:"reasoning-model"`
	MaxLogLength   int          `mapstructure:"max-log-length" validate:"gte=0"`
	Gemini         GeminiConfig `mapstructure:"gemini"`
	OpenAI         OpenAIConfig `mapstructure:"openai"`
	Remote         RemoteConfig `mapstructure:"remote"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	APIKey     string `mapstructure:"api-key"`
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
}

type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ExportConfig struct {
	Path string `mapstructure:"path"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-ranker extracts job requirements and ranks resumes against them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.openai.api-key-file": "OPENAI_API_KEY_FILE",
		"ai.openai.api-key":      "OPENAI_API_KEY",
		"ai.remote.url":          "RESUME_RANKER_REMOTE_URL",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.remote.timeout", defaultRemoteTimeout)
	viper.SetDefault("scoring.strong", scoring.DefaultThresholds.Strong)
	viper.SetDefault("scoring.moderate", scoring.DefaultThresholds.Moderate)
	viper.SetDefault("server.listen", defaultListen)
	viper.SetDefault("export.path", ".")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The default config file is optional.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.Scoring.Validate()
}

// profiles returns the configured company profiles or nil for the built-in ones.
func (c *Config) profiles() []conversation.Profile {
	if len(c.Profiles) == 0 {
		return nil
	}
	return c.Profiles
}
