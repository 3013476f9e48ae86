// internal/skills/dispatch.go
package skills

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

var tracer = otel.Tracer("github.com/linnemanlabs/tandem/internal/skills")

// Status is the outcome classification of a dispatch.
type Status string

const (
	StatusOK       Status = "success"
	StatusError    Status = "error"
	StatusNotFound Status = "not_found"
)

// Outcome is the uniform wrapper around a collaborator invocation. A
// dispatch never returns a Go error and never lets a collaborator panic
// escape: failures are absorbed here so a failing branch can never abort
// its siblings or the run.
type Outcome struct {
	Status   Status
	Skill    Name
	Data     json.RawMessage
	Err      string
	Duration time.Duration
}

// OK reports whether the invocation succeeded.
func (o *Outcome) OK() bool { return o.Status == StatusOK }

// Dispatcher invokes skills from a registry and wraps their results.
type Dispatcher struct {
	registry *Registry
	logger   log.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Nop()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Invoke looks up and executes a skill. Argument keys (not values) are
// logged for observability; values may contain free-text research tasks.
func (d *Dispatcher) Invoke(ctx context.Context, name Name, args map[string]any) (out *Outcome) {
	start := time.Now()
	out = &Outcome{Skill: name}

	ctx, span := tracer.Start(ctx, "skill.execute", trace.WithAttributes(
		attribute.String("tandem.skill.name", string(name)),
	))
	defer span.End()
	defer func() {
		span.SetAttributes(attribute.String("tandem.skill.status", string(out.Status)))
		if out.Err != "" {
			span.RecordError(errors.New(out.Err))
			span.SetStatus(codes.Error, out.Err)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusError
			out.Err = fmt.Sprintf("skill %s panicked: %v", name, r)
			out.Duration = time.Since(start)
			d.logger.Error(ctx, fmt.Errorf("%v", r), "skill panicked", "skill", name)
		}
	}()

	skill, ok := d.registry.Get(name)
	if !ok {
		out.Status = StatusNotFound
		out.Err = fmt.Sprintf("skill %s not found", name)
		out.Duration = time.Since(start)
		d.logger.Warn(ctx, "unknown skill requested", "skill", name)
		return out
	}

	raw, err := json.Marshal(args)
	if err != nil {
		out.Status = StatusError
		out.Err = fmt.Sprintf("marshal args: %v", err)
		out.Duration = time.Since(start)
		return out
	}

	d.logger.Info(ctx, "invoking skill", "skill", name, "arg_keys", argKeys(args))

	data, err := skill.Execute(ctx, raw)
	out.Duration = time.Since(start)
	if err != nil {
		out.Status = StatusError
		out.Err = err.Error()
		d.logger.Error(ctx, err, "skill failed", "skill", name, "duration", out.Duration.Seconds())
		return out
	}

	out.Status = StatusOK
	out.Data = data
	d.logger.Info(ctx, "skill complete", "skill", name, "duration", out.Duration.Seconds(), "bytes", len(data))
	return out
}

func argKeys(args map[string]any) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
