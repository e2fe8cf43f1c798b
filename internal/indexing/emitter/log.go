package emitter

import (
	"context"
	"log/slog"

	"github.com/vietddude/lottowatch/internal/core/domain"
)

// LogEmitter writes payloads to the log instead of posting them.
type LogEmitter struct {
	log *slog.Logger
}

// NewLogEmitter creates a dry-run emitter.
func NewLogEmitter() *LogEmitter {
	return &LogEmitter{log: slog.Default().With("component", "emitter", "mode", "dry-run")}
}

func (e *LogEmitter) Deliver(ctx context.Context, payload domain.Payload) Result {
	body, err := payload.Body()
	if err != nil {
		e.log.Error("Failed to render payload", "title", payload.Title, "error", err)
		return ResultDropped
	}
	e.log.Info("[NOTIFY]", "channel", payload.Channel, "title", payload.Title, "body", string(body))
	return ResultSent
}

func (e *LogEmitter) Close() error { return nil }
