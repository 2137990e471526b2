package speech

import (
	"context"
	"log"

	"github.com/go-monolith/mono"
)

// Module wraps the OpenAI client and analyzer behind the module lifecycle.
type Module struct {
	apiKey   string
	client   *Client
	analyzer *Analyzer
}

// NewModule creates the speech module. An empty API key leaves the
// module degraded: transcription and analysis calls will fail upstream
// and voice combat falls back to minimal damage.
func NewModule(apiKey string) *Module {
	return &Module{apiKey: apiKey}
}

func (m *Module) Name() string {
	return "speech"
}

func (m *Module) Start(ctx context.Context) error {
	m.client = NewClient(m.apiKey)
	m.analyzer = NewAnalyzer(m.client)

	if m.apiKey == "" {
		log.Printf("[speech] warning: no API key configured, analysis calls will fail")
	}
	log.Printf("[speech] module started")
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	log.Printf("[speech] module stopped")
	return nil
}

// Health reports whether the module has credentials to reach the provider.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.apiKey == "" {
		return mono.HealthStatus{
			Healthy: false,
			Message: "no API key configured",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "speech module operational",
	}
}

// GetClient returns the raw API client.
func (m *Module) GetClient() *Client {
	return m.client
}

// GetAnalyzer returns the transcript and combat analyzer.
func (m *Module) GetAnalyzer() *Analyzer {
	return m.analyzer
}
