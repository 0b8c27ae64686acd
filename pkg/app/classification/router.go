package classification

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/aegis-sentinel/aegis/pkg/config"
	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
	"github.com/aegis-sentinel/aegis/pkg/infra/providers"
	"github.com/aegis-sentinel/aegis/pkg/infra/providers/factory"
)

// classificationTemperature keeps verdicts deterministic across retries.
const classificationTemperature = 0.1

// Router dispatches content to the configured completion provider with the
// instruction template for the request's mode. All provider failures surface
// as ErrClassifierUnavailable so callers fall through to the offline heuristic.
type Router struct {
	locator factory.ProviderLocator
	cfg     config.LLMConfig
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

func NewRouter(locator factory.ProviderLocator, cfg config.LLMConfig, logger *logrus.Logger) *Router {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "classifier",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("classifier circuit state changed")
		},
	})
	return &Router{
		locator: locator,
		cfg:     cfg,
		breaker: breaker,
		logger:  logger,
	}
}

// Classify sends the content to the provider and returns its raw textual
// output. The caller is responsible for normalizing it into a verdict.
func (r *Router) Classify(ctx context.Context, mode scanning.Mode, content string) (string, error) {
	template, err := TemplateFor(mode)
	if err != nil {
		return "", err
	}

	client, err := r.locator.Get(r.cfg.Name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainErrors.ErrClassifierUnavailable, err)
	}

	providerCfg := r.providerConfig(template)
	prompt := userPromptFor(mode, content)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	raw, err := r.breaker.Execute(func() (interface{}, error) {
		return client.Ask(ctx, providerCfg, prompt)
	})
	if err != nil {
		r.logger.WithError(err).WithField("mode", mode).Warn("classifier call failed")
		return "", fmt.Errorf("%w: %v", domainErrors.ErrClassifierUnavailable, err)
	}

	completion, ok := raw.(*providers.CompletionResponse)
	if !ok || completion == nil || completion.Response == "" {
		return "", fmt.Errorf("%w: empty completion", domainErrors.ErrClassifierUnavailable)
	}
	return completion.Response, nil
}

func (r *Router) providerConfig(systemPrompt string) *providers.Config {
	cfg := &providers.Config{
		Credentials: providers.Credentials{
			ApiKey: r.cfg.APIKey,
		},
		Model:        r.cfg.Deployment,
		Temperature:  classificationTemperature,
		SystemPrompt: systemPrompt,
	}
	if r.cfg.Name == factory.ProviderAzure {
		cfg.Credentials.Azure = &providers.AzureCredentials{
			Endpoint:   r.cfg.Endpoint,
			ApiVersion: r.cfg.APIVersion,
		}
	}
	return cfg
}
