package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/docfind/docfind/errors"
)

const idlePollInterval = 300 * time.Millisecond

// StreamSession returns a channel delivering an async session's events in
// order. The channel closes after the terminal event, at which point the
// session is removed from the store. While the run is quiet a heartbeat
// debug event is injected so stalled consumers can tell "slow" from "dead".
// Cancelling ctx detaches the reader without ending the session.
func (o *Orchestrator) StreamSession(ctx context.Context, id string) (<-chan Event, error) {
	sess, ok := o.sessions.Get(id)
	if !ok {
		return nil, errors.Newf("unknown session %s", id)
	}

	heartbeat := time.Duration(o.cfg.HeartbeatSeconds) * time.Second
	if heartbeat <= 0 {
		heartbeat = 2 * time.Second
	}

	out := make(chan Event, 32)
	go func() {
		defer close(out)
		lastActivity := time.Now()

		for {
			for _, ev := range sess.DrainQueue() {
				lastActivity = time.Now()
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				if ev.Terminal() {
					o.sessions.End(id)
					return
				}
			}

			// Queue empty and producer finished: the terminal event was
			// already delivered to an earlier reader, or the producer died
			// before emitting one. Either way there is nothing left.
			if sess.Done() && sess.QueueLen() == 0 {
				o.sessions.End(id)
				return
			}

			if time.Since(lastActivity) >= heartbeat {
				lastActivity = time.Now()
				snap := sess.Snapshot()
				select {
				case out <- Event{
					Level:     LevelInfo,
					Message:   fmt.Sprintf("Session alive; %d events queued.", snap.EventQueueLen),
					Stage:     StageDebug,
					SessionID: id,
				}:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-time.After(idlePollInterval):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
