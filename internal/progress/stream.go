package progress

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"statsync/internal/model"
)

const (
	eventName = "progress"

	maxEventSize = 1 << 20
)

// Streamer opens the raw progress event stream of one job.
type Streamer interface {
	OpenStream(ctx context.Context, id int64) (io.ReadCloser, error)
}

// Handlers receive the events of one subscription. All callbacks run on the
// subscription's goroutine, in arrival order. Nil callbacks are skipped.
type Handlers struct {
	OnUpdate func(model.JobUpdate)
	OnError  func(error)
	OnClose  func()
}

// Subscribe opens the progress stream of jobID and delivers every progress
// event to h until the server ends the stream, the transport fails, ctx is
// done or the returned unsubscribe is called. OnClose fires exactly once,
// whichever of those comes first. A closed stream is never reopened.
//
// unsubscribe does not wait for the reader to finish, so it is safe to call
// from inside a handler.
func Subscribe(ctx context.Context, s Streamer, jobID int64, h Handlers) (unsubscribe func()) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer cancel()
		defer h.finish()

		body, err := s.OpenStream(ctx, jobID)
		if err != nil {
			if ctx.Err() == nil {
				h.fail(fmt.Errorf("failed to open stream for job %d: %w", jobID, err))
			}
			return
		}
		defer body.Close()

		err = readEvents(body, func(name, data string) {
			if name != eventName {
				return
			}
			var u model.JobUpdate
			if err := json.Unmarshal([]byte(data), &u); err != nil {
				h.fail(fmt.Errorf("failed to decode progress event for job %d: %w", jobID, err))
				return
			}
			h.update(u)
		})
		if err != nil && ctx.Err() == nil {
			h.fail(fmt.Errorf("failed to read stream for job %d: %w", jobID, err))
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }
}

func (h Handlers) update(u model.JobUpdate) {
	if h.OnUpdate != nil {
		h.OnUpdate(u)
	}
}

func (h Handlers) fail(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

func (h Handlers) finish() {
	if h.OnClose != nil {
		h.OnClose()
	}
}

// readEvents parses a text/event-stream body and calls dispatch for each
// complete event. It returns nil when the body ends cleanly.
func readEvents(r io.Reader, dispatch func(name, data string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var (
		name string
		data []string
	)

	for sc.Scan() {
		line := sc.Text()

		if line == "" {
			if len(data) > 0 {
				if name == "" {
					name = "message"
				}
				dispatch(name, strings.Join(data, "\n"))
			}
			name, data = "", nil
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}

	return sc.Err()
}
