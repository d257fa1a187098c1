// Package agent runs the provider's autonomous research agent. Not every
// provider deployment has it; callers get nil when it is missing.
package agent

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/DingDong039/sentinel-search/internal/logger"
	"github.com/DingDong039/sentinel-search/internal/platform/firecrawl"
)

type Provider interface {
	Agent(ctx context.Context, req firecrawl.AgentRequest) (*firecrawl.AgentResponse, error)
}

type Options struct {
	URLs   []string       `json:"urls,omitempty"`
	Schema map[string]any `json:"schema,omitempty"`
}

type Result struct {
	Success     bool            `json:"success"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreditsUsed *int            `json:"creditsUsed,omitempty"`
}

type Service struct {
	provider Provider
	log      *logger.Logger
}

func NewService(provider Provider) *Service {
	return &Service{provider: provider, log: logger.New("AgentService")}
}

func (s *Service) RunAgent(ctx context.Context, prompt string, opts Options) *Result {
	res, err := s.provider.Agent(ctx, firecrawl.AgentRequest{Prompt: prompt, URLs: opts.URLs, Schema: opts.Schema})
	switch {
	case errors.Is(err, firecrawl.ErrAgentUnsupported):
		s.log.LogWarn("Agent is not available on this provider")
		return nil
	case err != nil:
		s.log.LogErrorf("Agent run failed: %v", err)
		return nil
	case res == nil || !res.Success:
		msg := ""
		if res != nil {
			msg = res.Error
		}
		s.log.LogWarnf("Agent run unsuccessful: %s", msg)
		return nil
	}
	return &Result{Success: true, Data: res.Data, CreditsUsed: res.CreditsUsed}
}
