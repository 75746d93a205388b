// Package metrics defines the bridge's OpenTelemetry instruments. Without a
// configured MeterProvider the global no-op provider makes them free.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/user/webconsole/internal/session"
)

const meterName = "webconsole"

type Metrics struct {
	LinesAppended    metric.Int64Counter
	InputsRequested  metric.Int64Counter
	InputsAnswered   metric.Int64Counter
	ProgramsFinished metric.Int64Counter
}

func New() (*Metrics, error) {
	return NewWithMeter(otel.Meter(meterName))
}

func NewWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.LinesAppended, err = meter.Int64Counter("webconsole.lines.appended",
		metric.WithDescription("Number of output lines appended"))
	if err != nil {
		return nil, err
	}

	m.InputsRequested, err = meter.Int64Counter("webconsole.inputs.requested",
		metric.WithDescription("Number of input requests created"))
	if err != nil {
		return nil, err
	}

	m.InputsAnswered, err = meter.Int64Counter("webconsole.inputs.answered",
		metric.WithDescription("Number of input requests answered"))
	if err != nil {
		return nil, err
	}

	m.ProgramsFinished, err = meter.Int64Counter("webconsole.programs.finished",
		metric.WithDescription("Number of programs that returned"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Observe records session events. It is meant for session.State.OnEvent.
func (m *Metrics) Observe(ev session.Event) {
	ctx := context.Background()
	switch ev.Kind {
	case session.EventLineAppended:
		m.LinesAppended.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", ev.Line.Kind.String())))
	case session.EventRequestCreated:
		m.InputsRequested.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(ev.Tag.Base()))))
	case session.EventRequestAnswered:
		m.InputsAnswered.Add(ctx, 1)
	case session.EventFinished:
		m.ProgramsFinished.Add(ctx, 1)
	}
}
