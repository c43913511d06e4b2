package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smilejp/cc-anywhere-windows/internal/shared/id"
)

// StreamOptions configures one output stream.
type StreamOptions struct {
	// Interval is the poll cadence.
	Interval time.Duration
	// IdleTimeout ends the stream after this long without new output.
	// Idle exhaustion is the stream's natural completion, not an error.
	IdleTimeout time.Duration
	// StripANSI emits escape-stripped deltas for text-only consumers.
	StripANSI bool
	// Lines is the capture depth per poll.
	Lines int
	// OnTick, when set, is invoked once per poll tick. The composition root
	// hooks a metrics counter here.
	OnTick func()
}

func (o StreamOptions) withDefaults() StreamOptions {
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 5 * time.Minute
	}
	if o.Lines <= 0 {
		o.Lines = 200
	}
	return o
}

// Stream polls a session and delivers output deltas on the returned channel.
// The channel closes when ctx is cancelled, the idle timeout elapses, or the
// session is destroyed. The change-detection cache is cleared on start so the
// first poll delivers the current screen.
func (m *Manager) Stream(ctx context.Context, sessionID id.SessionID, opts StreamOptions) <-chan string {
	opts = opts.withDefaults()
	out := make(chan string)

	go func() {
		defer close(out)

		m.ClearOutputCache(sessionID)

		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()

		lastOutput := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			if opts.OnTick != nil {
				opts.OnTick()
			}

			delta, err := m.GetNewOutput(ctx, sessionID, opts.Lines, opts.StripANSI)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return
				}
				// Transient host failures count as silence; the idle
				// timeout bounds how long we keep retrying.
				m.logger.Warn("stream poll failed",
					zap.String("session_id", sessionID.String()), zap.Error(err))
			}

			if strings.TrimSpace(delta) != "" {
				select {
				case out <- delta:
					lastOutput = time.Now()
				case <-ctx.Done():
					return
				}
				continue
			}

			if time.Since(lastOutput) > opts.IdleTimeout {
				m.logger.Debug("stream idle timeout",
					zap.String("session_id", sessionID.String()))
				return
			}
		}
	}()

	return out
}
