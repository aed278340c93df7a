// Package stream adapts a NATS subject carrying raw PPG samples into a
// frame source the pulse monitor can poll.
package stream

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vitalsense/cardio-sensor/internal/frame"
)

// sampleBuffer bounds how many decoded samples are held between polls.
const sampleBuffer = 1024

// Connect opens a NATS connection with reconnect enabled.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("cardio-sensor"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// Source subscribes to a subject of little-endian float32 sample frames
// and exposes them one sample at a time. It implements frame.Source.
type Source struct {
	sub     *nats.Subscription
	samples chan float64

	done      chan struct{}
	closeOnce sync.Once
}

func newSource(buffer int) *Source {
	return &Source{
		samples: make(chan float64, buffer),
		done:    make(chan struct{}),
	}
}

// NewSource subscribes to the given subject on an established connection.
func NewSource(nc *nats.Conn, subject string) (*Source, error) {
	s := newSource(sampleBuffer)
	sub, err := nc.Subscribe(subject, s.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.sub = sub
	return s, nil
}

// handle decodes one message of packed float32 samples. Samples that
// arrive faster than the poll loop drains them are dropped.
func (s *Source) handle(msg *nats.Msg) {
	for i := 0; i+4 <= len(msg.Data); i += 4 {
		bits := binary.LittleEndian.Uint32(msg.Data[i:])
		v := float64(math.Float32frombits(bits))
		select {
		case s.samples <- v:
		default:
		}
	}
}

// Read returns the next buffered sample. It never blocks: it returns
// frame.ErrNoSample when the buffer is empty and frame.ErrSourceClosed
// after Close.
func (s *Source) Read() (float64, error) {
	select {
	case <-s.done:
		return 0, frame.ErrSourceClosed
	default:
	}

	select {
	case v := <-s.samples:
		return v, nil
	default:
		return 0, frame.ErrNoSample
	}
}

// Close unsubscribes and marks the source closed. Safe to call twice.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.sub != nil {
			err = s.sub.Unsubscribe()
		}
		close(s.done)
	})
	return err
}
