package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/analysis/gemini"
	"github.com/spigell/resume-ranker/internal/analysis/llm"
	"github.com/spigell/resume-ranker/internal/analysis/openai"
	"github.com/spigell/resume-ranker/internal/analysis/remote"
	"github.com/spigell/resume-ranker/internal/logger"
	"github.com/spigell/resume-ranker/internal/pipeline"
	"github.com/spigell/resume-ranker/internal/secrets"
)

const providerRemote = "remote"

var providerModels = map[string]pipeline.Models{
	gemini.Provider: {Primary: "gemini-2.5-pro", Reasoning: "gemini-2.5-pro"},
	openai.Provider: {Primary: "gpt-4.1", Reasoning: "o4-mini"},
	providerRemote:  {Primary: "gpt-4.1", Reasoning: "o4-mini"},
}

// models returns the configured model pair, filling gaps with provider defaults.
func (c AIConfig) models() pipeline.Models {
	defaults := providerModels[c.provider()]
	m := pipeline.Models{Primary: c.PrimaryModel, Reasoning: c.ReasoningModel}.Normalize()
	if m.Primary == "" {
		m.Primary = defaults.Primary
	}
	if m.Reasoning == "" {
		m.Reasoning = defaults.Reasoning
	}
	return m
}

func (c AIConfig) provider() string {
	return strings.TrimSpace(strings.ToLower(c.Provider))
}

// newService builds the analysis backend selected by ai.provider.
func newService(ctx context.Context, cfg AIConfig, log *zap.Logger) (analysis.Service, error) {
	provider := cfg.provider()
	log = logger.WithAI(log, provider, cfg.models().Primary)

	switch provider {
	case gemini.Provider:
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
		}

		generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		log.Debug("using gemini", zap.String("api_key", secrets.Mask(apiKey)))

		return llm.NewService(generator, gemini.Factory(cfg.Gemini.Model), log, cfg.MaxLogLength), nil
	case openai.Provider:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			File:  cfg.OpenAI.APIKeyFile,
			Value: cfg.OpenAI.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.openai.api-key-file, OPENAI_API_KEY_FILE or OPENAI_API_KEY)", err)
		}

		generator, err := openai.NewGenerator(apiKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
		if err != nil {
			return nil, err
		}
		log.Debug("using openai", zap.String("api_key", secrets.Mask(apiKey)), zap.String("base_url", cfg.OpenAI.BaseURL))

		return llm.NewService(generator, openai.Factory(cfg.OpenAI.BaseURL, cfg.OpenAI.Model), log, cfg.MaxLogLength), nil
	case providerRemote:
		client, err := remote.New(cfg.Remote.URL, cfg.Remote.Timeout, log)
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.remote.url or RESUME_RANKER_REMOTE_URL)", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

// newVerifier builds a service that can only check credentials. It needs no
// configured key for the llm providers.
func newVerifier(cfg AIConfig, log *zap.Logger) (analysis.Service, error) {
	provider := cfg.provider()
	log = logger.WithAI(log, provider, cfg.models().Primary)

	switch provider {
	case gemini.Provider:
		return llm.NewService(nil, gemini.Factory(cfg.Gemini.Model), log, cfg.MaxLogLength), nil
	case openai.Provider:
		return llm.NewService(nil, openai.Factory(cfg.OpenAI.BaseURL, cfg.OpenAI.Model), log, cfg.MaxLogLength), nil
	case providerRemote:
		client, err := remote.New(cfg.Remote.URL, cfg.Remote.Timeout, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}
