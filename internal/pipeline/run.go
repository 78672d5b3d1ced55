// Package pipeline composes gateway and video job calls into multi-step
// creative runs with per-step outcomes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/apierr"
	"studio/internal/gateway"
	"studio/internal/infra"
	"studio/internal/metrics"
	"studio/internal/videojob"
)

type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
	StepAborted   StepStatus = "aborted"
)

// StepOutcome is how one step of a run ended.
type StepOutcome struct {
	Name   string        `json:"name"`
	Status StepStatus    `json:"status"`
	Err    *apierr.Error `json:"error,omitempty"`
}

// Run describes one pipeline execution.
type Run struct {
	ID         string        `json:"id"`
	Pipeline   string        `json:"pipeline"`
	Steps      []StepOutcome `json:"steps"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Step looks up the outcome of the named step.
func (r *Run) Step(name string) (StepOutcome, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepOutcome{}, false
}

// Failed reports whether any step failed.
func (r *Run) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			return true
		}
	}
	return false
}

// Gateway is the part of the generation gateway the pipelines use.
type Gateway interface {
	Chat(ctx context.Context, req gateway.ChatRequest) (*gateway.ChatReply, error)
	GenerateImage(ctx context.Context, req gateway.ImageRequest) (*gateway.Image, error)
	EditImage(ctx context.Context, req gateway.EditRequest) (*gateway.Image, error)
	Speak(ctx context.Context, req gateway.SpeechRequest) (*gateway.Audio, error)
	AnalyzeMedia(ctx context.Context, req gateway.AnalyzeRequest) (string, error)
	VisionToCode(ctx context.Context, req gateway.VisionRequest) (string, error)
	TextToScript(ctx context.Context, req gateway.ScriptRequest) ([]gateway.ScriptSegment, error)
	StoryboardPrompts(ctx context.Context, req gateway.StoryboardPromptRequest) ([]string, error)
}

// Videos runs a video synthesis to a stored result.
type Videos interface {
	Generate(ctx context.Context, req gateway.VideoRequest) (*videojob.Job, error)
}

type Options struct {
	Gateway Gateway
	Videos  Videos
	Metrics *metrics.Collector
	Logger  *infra.Logger
}

// Composer runs the creative pipelines.
type Composer struct {
	gw       Gateway
	videos   Videos
	validate *validator.Validate
	metrics  *metrics.Collector
	log      *infra.Logger
	now      func() time.Time
}

func New(opts Options) (*Composer, error) {
	if opts.Gateway == nil {
		return nil, errors.New("pipeline: gateway is required")
	}
	if opts.Videos == nil {
		return nil, errors.New("pipeline: video manager is required")
	}
	logger := opts.Logger
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Composer{
		gw:       opts.Gateway,
		videos:   opts.Videos,
		validate: validator.New(),
		metrics:  opts.Metrics,
		log:      logger,
		now:      time.Now,
	}, nil
}

// step is one unit of a sequential pipeline.
type step struct {
	name    string
	enabled bool
	do      func(ctx context.Context) error
}

func (c *Composer) begin(pipeline string) *Run {
	return &Run{ID: uuid.NewString(), Pipeline: pipeline, StartedAt: c.now()}
}

// record appends one outcome. Callers running steps concurrently collect
// their outcomes first and record them in order afterwards.
func (c *Composer) record(run *Run, name string, err error) *apierr.Error {
	outcome := StepOutcome{Name: name, Status: StepSucceeded}
	if err != nil {
		outcome.Status = StepFailed
		outcome.Err = apierr.Normalize(err)
		c.log.Warn().
			Str("run_id", run.ID).
			Str("pipeline", run.Pipeline).
			Str("step", name).
			Int("status", outcome.Err.StatusCode).
			Msg("pipeline: step failed")
	}
	run.Steps = append(run.Steps, outcome)
	c.metrics.ObservePipelineStep(run.Pipeline, stepLabel(name), string(outcome.Status))
	return outcome.Err
}

func (c *Composer) mark(run *Run, name string, status StepStatus) {
	run.Steps = append(run.Steps, StepOutcome{Name: name, Status: status})
	c.metrics.ObservePipelineStep(run.Pipeline, stepLabel(name), string(status))
}

// sequence runs steps in order. The first failure aborts every later enabled
// step and is returned.
func (c *Composer) sequence(ctx context.Context, run *Run, steps []step) error {
	var failed *apierr.Error
	for _, s := range steps {
		switch {
		case !s.enabled:
			c.mark(run, s.name, StepSkipped)
		case failed != nil:
			c.mark(run, s.name, StepAborted)
		default:
			failed = c.record(run, s.name, s.do(ctx))
		}
	}
	if failed != nil {
		return failed
	}
	return nil
}

// end stamps the run and reports it. err is returned normalized.
func (c *Composer) end(run *Run, err error) error {
	run.FinishedAt = c.now()
	c.metrics.ObservePipelineRun(run.Pipeline, err != nil)
	event := c.log.Info()
	if err != nil {
		event = c.log.Warn()
	}
	event.
		Str("run_id", run.ID).
		Str("pipeline", run.Pipeline).
		Int("steps", len(run.Steps)).
		Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).
		Bool("failed", err != nil).
		Msg("pipeline: run finished")
	if err != nil {
		return apierr.Normalize(err)
	}
	return nil
}

func (c *Composer) check(req any) error {
	if err := c.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apierr.Invalid(fmt.Errorf("invalid %s: failed %q", strings.ToLower(fe.Namespace()), fe.Tag()))
		}
		return apierr.Invalid(err)
	}
	return nil
}

// stepLabel folds indexed step names ("frame_3") into one metric label.
func stepLabel(name string) string {
	if i := strings.LastIndexByte(name, '_'); i > 0 {
		if _, err := strconv.Atoi(name[i+1:]); err == nil {
			return name[:i]
		}
	}
	return name
}

func videoResult(job *videojob.Job) *videojob.Result {
	if job == nil {
		return nil
	}
	return job.Result
}
