package motion

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

// SerialSource reads NMEA sentences from a serial head tracker. It accepts
// $--HMX rotation matrices and standard $--HDT headings; other sentences are
// ignored.
type SerialSource struct {
	open func() (io.ReadCloser, error)
	now  func() time.Time
	name string
}

// NewSerialSource opens portName at baudRate when Stream starts.
func NewSerialSource(portName string, baudRate int) *SerialSource {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	return &SerialSource{
		open: func() (io.ReadCloser, error) { return serial.Open(opts) },
		now:  time.Now,
		name: portName,
	}
}

// NewReaderSource reads sentences from r instead of a serial port.
func NewReaderSource(r io.Reader) *SerialSource {
	return &SerialSource{
		open: func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
		now:  time.Now,
		name: "reader",
	}
}

// Stream reads until ctx is cancelled or the port fails. A read failure is
// reported as a disconnect; the caller decides whether to reopen.
func (s *SerialSource) Stream(ctx context.Context, q *pipeline.Queue) error {
	port, err := s.open()
	if err != nil {
		q.Push(pipeline.Event{Kind: pipeline.UnsupportedEvent, Err: err})
		return fmt.Errorf("serial %s: %w: %v", s.name, ErrUnsupported, err)
	}
	Logf("motion: serial port %s opened", s.name)

	// closing the port is what unblocks a pending read on cancel
	var closeOnce sync.Once
	closePort := func() { closeOnce.Do(func() { port.Close() }) }
	defer closePort()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			closePort()
		case <-stop:
		}
	}()

	q.Push(pipeline.Event{Kind: pipeline.ConnectedEvent})
	reader := bufio.NewReader(port)
	for {
		line, err := reader.ReadString('\n')
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if line = strings.TrimSpace(line); line != "" {
			s.handleLine(q, line)
		}
		if err != nil {
			q.Push(pipeline.Event{Kind: pipeline.DisconnectedEvent, Err: err})
			return fmt.Errorf("serial %s: %w: %v", s.name, ErrDisconnected, err)
		}
	}
}

func (s *SerialSource) handleLine(q *pipeline.Queue, line string) {
	if !strings.HasPrefix(line, "$") {
		return
	}
	sentence, err := nmea.Parse(line)
	if err != nil {
		// partial sentences are normal right after the port opens
		return
	}

	sample, ok, err := sampleFromSentence(sentence)
	switch {
	case !ok:
	case err != nil:
		q.PushNoData()
	default:
		sample.Timestamp = s.now()
		q.PushSample(sample)
	}
}
