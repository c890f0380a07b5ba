package logger

import (
	"bufio"
	"io"
	"sync"
)

// asyncWriter moves log output off the calling goroutine. A single goroutine owns
// the sinks and flushes them whenever the queue runs dry. The first write error
// sticks and is returned by every later call.
type asyncWriter struct {
	lines     chan []byte
	flushes   chan chan error
	stopped   chan struct{}
	closeOnce sync.Once
	sinks     []*bufio.Writer

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(outputs []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 << 10
	}
	w := &asyncWriter{
		lines:   make(chan []byte, 256),
		flushes: make(chan chan error),
		stopped: make(chan struct{}),
	}
	for _, out := range outputs {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.stopped)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.fail(w.flush())
				return
			}
			w.fail(w.write(line))
			if len(w.lines) == 0 {
				w.fail(w.flush())
			}
		case ack := <-w.flushes:
			ack <- w.flush()
		}
	}
}

// Write queues a copy of p. It blocks only while the queue is full, so lines are never dropped.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.failure(); err != nil || len(p) == 0 {
		return err
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush waits until everything queued before the call reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.failure(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return <-ack
	case <-w.stopped:
		return w.failure()
	}
}

// Close drains the queue and stops the writer goroutine.
func (w *asyncWriter) Close() error {
	w.closeOnce.Do(func() { close(w.lines) })
	<-w.stopped
	return w.failure()
}

func (w *asyncWriter) write(line []byte) error {
	for _, sink := range w.sinks {
		if _, err := sink.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flush() error {
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) failure() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}
