// Package gateway translates typed generation requests into remote calls and
// unwraps the responses into fixed result types. Every failure leaving the
// package is an *apierr.Error.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"studio/internal/apierr"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/metrics"
	"studio/internal/providers/gemini"
)

// CredentialSource yields the credential captured at the start of each call.
type CredentialSource interface {
	Credential(ctx context.Context) (credentials.Credential, error)
}

// Connector binds a credential to a remote backend.
type Connector interface {
	Connect(ctx context.Context, key string) (gemini.Backend, error)
}

// Options configures a Gateway.
type Options struct {
	Credentials       CredentialSource
	Connector         Connector
	RequestsPerMinute int
	Metrics           *metrics.Collector
	Logger            *infra.Logger
}

// Gateway dispatches generation requests to the remote service.
type Gateway struct {
	creds    CredentialSource
	conn     Connector
	limiter  *rate.Limiter
	validate *validator.Validate
	metrics  *metrics.Collector
	log      *infra.Logger
	now      func() time.Time
}

func New(opts Options) (*Gateway, error) {
	if opts.Credentials == nil {
		return nil, errors.New("gateway: credential source is required")
	}
	if opts.Connector == nil {
		return nil, errors.New("gateway: connector is required")
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}

	return &Gateway{
		creds:    opts.Credentials,
		conn:     opts.Connector,
		limiter:  limiter,
		validate: validator.New(),
		metrics:  opts.Metrics,
		log:      logger,
		now:      time.Now,
	}, nil
}

// backend resolves the credential once and binds a backend to it. Nothing is
// sent to the remote service when no credential is configured.
func (g *Gateway) backend(ctx context.Context) (gemini.Backend, error) {
	cred, err := g.creds.Credential(ctx)
	if err != nil {
		return nil, err
	}
	if !credentials.Usable(cred.Value()) {
		return nil, apierr.ErrNoCredential
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("gateway: throttle: %w", err)
		}
	}
	return g.conn.Connect(ctx, cred.Value())
}

// call runs fn against a freshly bound backend and normalizes its outcome.
func (g *Gateway) call(ctx context.Context, capability, model string, fn func(context.Context, gemini.Backend) error) error {
	return g.observe(ctx, capability, model, func(ctx context.Context) error {
		b, err := g.backend(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, b)
	})
}

// observe normalizes, logs and records one remote interaction.
func (g *Gateway) observe(ctx context.Context, capability, model string, fn func(context.Context) error) error {
	start := g.now()
	err := fn(ctx)
	elapsed := g.now().Sub(start)
	if err == nil {
		g.metrics.ObserveGatewayCall(capability, model, elapsed, "", 0)
		g.log.Debug().
			Str("capability", capability).
			Str("model", model).
			Dur("elapsed", elapsed).
			Msg("gateway: call succeeded")
		return nil
	}

	normalized := apierr.Normalize(err)
	g.metrics.ObserveGatewayCall(capability, model, elapsed, string(normalized.Kind), normalized.StatusCode)
	g.log.Warn().
		Str("capability", capability).
		Str("model", model).
		Int("status", normalized.StatusCode).
		Str("kind", string(normalized.Kind)).
		Dur("elapsed", elapsed).
		Msg("gateway: call failed")
	return normalized
}

func (g *Gateway) check(req any) error {
	if err := g.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apierr.Invalid(fmt.Errorf("invalid %s: failed %q", strings.ToLower(fe.Namespace()), fe.Tag()))
		}
		return apierr.Invalid(err)
	}
	return nil
}

func thinking(skip bool) *genai.ThinkingConfig {
	if skip {
		return nil
	}
	budget := ThinkingBudget
	return &genai.ThinkingConfig{ThinkingBudget: &budget}
}

func userContent(parts ...*genai.Part) []*genai.Content {
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func firstCandidate(resp *genai.GenerateContentResponse) *genai.Candidate {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0]
}

// firstInline returns the first inline payload of the first candidate.
func firstInline(resp *genai.GenerateContentResponse) *genai.Blob {
	cand := firstCandidate(resp)
	if cand == nil || cand.Content == nil {
		return nil
	}
	for _, part := range cand.Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData
		}
	}
	return nil
}

// textOf joins the answer text of the first candidate, skipping thoughts.
func textOf(resp *genai.GenerateContentResponse) string {
	cand := firstCandidate(resp)
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}
