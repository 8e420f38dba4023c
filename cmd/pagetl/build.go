package main

import (
	"fmt"
	"log/slog"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/config"
	"github.com/ZaguanLabs/pagetl/messaging"
	"github.com/ZaguanLabs/pagetl/provider"
	"github.com/ZaguanLabs/pagetl/service"
)

// mockSourceLanguage is what the mock detector reports for every page.
const mockSourceLanguage = "en"

// newService wires the configured detection and translation capabilities.
func newService(cfg *config.Config, logger *slog.Logger) (*service.Service, error) {
	var (
		detector   pagetl.DetectorCapability
		translator pagetl.TranslatorCapability
	)

	switch cfg.Provider.Name {
	case config.ProviderMock:
		detector = provider.NewMockDetector(mockSourceLanguage, 1)
		translator = provider.NewMockTranslator()
	default:
		if cfg.Provider.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required (--api-key, PAGETL_API_KEY or OPENAI_API_KEY env)")
		}
		detector = newDetector(cfg, logger)
		translator = provider.NewOpenAITranslator(provider.OpenAIConfig{
			APIKey:      cfg.Provider.APIKey,
			Model:       cfg.Provider.Model,
			Temperature: cfg.Provider.Temperature,
			BaseURL:     cfg.Provider.BaseURL,
			Logger:      logger,
		})
	}

	if cfg.Provider.RequestsPerMinute > 0 {
		translator = pagetl.NewRateLimitedTranslator(translator, pagetl.RateLimitConfig{
			RequestsPerMinute: cfg.Provider.RequestsPerMinute,
			BurstSize:         cfg.Provider.Burst,
		})
	}

	return service.New(detector, translator, cfg.ServiceOptions(logger)...), nil
}

func newDetector(cfg *config.Config, logger *slog.Logger) *provider.LinguaDetector {
	opts := []provider.LinguaOption{provider.WithDetectorLogger(logger)}
	if len(cfg.Detector.Languages) > 0 {
		opts = append(opts, provider.WithDetectorLanguages(cfg.Detector.Languages...))
	}
	if cfg.Detector.LowAccuracy {
		opts = append(opts, provider.WithLowAccuracyMode())
	}
	if cfg.Detector.Preload {
		opts = append(opts, provider.WithPreloadedModels())
	}
	return provider.NewLinguaDetector(opts...)
}

// newEventPublisher returns a Redis publisher when one is configured.
// The returned close function is always safe to call.
func newEventPublisher(cfg *config.Config, logger *slog.Logger) (pagetl.Observer, func(), error) {
	if cfg.Redis.URL == "" {
		return nil, func() {}, nil
	}
	pub, err := messaging.NewRedisPublisher(messaging.RedisConfig{
		URL:     cfg.Redis.URL,
		Channel: cfg.Redis.Channel,
	})
	if err != nil {
		return nil, func() {}, err
	}
	logger.Info("publishing run events", "channel", pub.Channel())
	return messaging.Observer(pub, logger), func() { pub.Close() }, nil
}
