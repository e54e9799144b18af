package telemetry

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/waabox/opsdeck/internal/domain"
)

// Recorder is the per-adapter hook that logs and meters every remote call.
// The zero value logs nothing and records nothing.
type Recorder struct {
	system  string
	log     zerolog.Logger
	metrics *Metrics
}

// NewRecorder returns a Recorder for one external system.
func NewRecorder(system string, log zerolog.Logger, metrics *Metrics) Recorder {
	return Recorder{
		system:  system,
		log:     Component(log, system),
		metrics: metrics,
	}
}

// NopRecorder discards everything.
func NopRecorder(system string) Recorder {
	return Recorder{system: system, log: zerolog.Nop()}
}

// Logger returns the component logger.
func (r Recorder) Logger() *zerolog.Logger {
	return &r.log
}

// Done records the end of op. Failures are logged at warn with their kind and
// the raw remote detail, since absorbed and booleanized callers never see them.
func (r Recorder) Done(op string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := "success"
	if err != nil {
		outcome = string(domain.KindOf(err))
		r.log.Warn().
			Str("op", op).
			Str("kind", outcome).
			Str("detail", domain.Detail(err)).
			Dur("elapsed", elapsed).
			Msg("remote operation failed")
	} else {
		r.log.Debug().Str("op", op).Dur("elapsed", elapsed).Msg("remote operation succeeded")
	}
	r.metrics.ObserveOperation(r.system, op, outcome, elapsed)
}
