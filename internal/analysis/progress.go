package analysis

import "log/slog"

type Stage string

const (
	StageStarting     Stage = "starting"
	StageExtracting   Stage = "extracting"
	StageValidating   Stage = "validating"
	StageRecommending Stage = "recommending"
	StageComplete     Stage = "complete"
)

type ProgressEvent struct {
	Stage              Stage  `json:"stage"`
	Progress           int    `json:"progress"`
	Message            string `json:"message"`
	CurrentDocument    string `json:"currentDocument,omitempty"`
	ProcessedDocuments int    `json:"processedDocuments"`
	TotalDocuments     int    `json:"totalDocuments"`
}

// ProgressSink receives progress notifications. Report must not block.
type ProgressSink interface {
	Report(event ProgressEvent)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(ProgressEvent)

func (f SinkFunc) Report(event ProgressEvent) { f(event) }

// tracker keeps progress within [0,100] and non-decreasing, and shields the
// run from a misbehaving sink.
type tracker struct {
	sink   ProgressSink
	total  int
	last   int
	logger *slog.Logger
}

func newTracker(sink ProgressSink, total int, logger *slog.Logger) *tracker {
	return &tracker{sink: sink, total: total, logger: logger}
}

func (t *tracker) report(ev ProgressEvent) {
	if ev.Progress < t.last {
		ev.Progress = t.last
	}
	if ev.Progress > 100 {
		ev.Progress = 100
	}
	if ev.Progress < 0 {
		ev.Progress = 0
	}
	t.last = ev.Progress
	ev.TotalDocuments = t.total

	if t.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("progress sink panicked", "panic", r)
		}
	}()
	t.sink.Report(ev)
}
