// Package stream turns the two live output channels of a remote command
// into one ordered sequence of typed events, delivered as lines arrive
// rather than buffered until completion.
package stream

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"bifrost/api/model"
)

// maxLine bounds how much of a single line is buffered before it is
// delivered; longer lines arrive as multiple events of up to maxLine
// each, and the pipe keeps draining regardless.
const maxLine = 1 << 20

// Source is what the streamer consumes: the command's output pipes, a
// wait for its exit status, and an early-close hook.
type Source struct {
	Stdout io.Reader
	Stderr io.Reader

	// Wait blocks until the remote command finishes. It returns the exit
	// status, or a negative status when the session ended without
	// reporting one. Transport faults come back as the error.
	Wait func() (int, error)

	// Close tears the remote stream down before the process exits. Called
	// when the sentinel line is seen, to bound resource usage.
	Close func()
}

// Run consumes the source and emits events on the returned channel.
// Lines from each pipe appear in the order that pipe produced them; no
// ordering holds between the two pipes. Exactly one terminal event is
// emitted, always last, and then the channel is closed.
//
// Sentinel detection is a workaround for scripts that keep the session
// open after logically finishing: once the phrase appears on stdout the
// remote stream is closed proactively, so lines the process emitted after
// the sentinel may or may not arrive.
func Run(src Source, sentinel string) <-chan model.Event {
	out := make(chan model.Event, 16)

	var mu sync.Mutex
	seq := 0
	// The send stays inside the critical section so events leave the
	// channel in Seq order even with both pipes producing at once.
	emit := func(t model.EventType, msg string) {
		mu.Lock()
		seq++
		out <- model.Event{Type: t, Message: msg, Seq: seq}
		mu.Unlock()
	}

	var sentinelSeen bool
	var closeOnce sync.Once
	closeEarly := func() {
		closeOnce.Do(func() {
			sentinelSeen = true
			if src.Close != nil {
				src.Close()
			}
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(src.Stdout, func(line string) {
			emit(model.EventStdout, line)
			if sentinel != "" && strings.Contains(line, sentinel) {
				closeEarly()
			}
		})
	}()
	go func() {
		defer wg.Done()
		scanLines(src.Stderr, func(line string) {
			emit(model.EventStderr, line)
		})
	}()

	go func() {
		wg.Wait()
		code, err := src.Wait()

		switch {
		case err != nil:
			emit(model.EventError, err.Error())
		case code == 0, code < 0 && sentinelSeen:
			emit(model.EventSuccess, "setup script finished")
		case code < 0:
			emit(model.EventError, "remote session closed without an exit status")
		default:
			emit(model.EventError, fmt.Sprintf("setup script failed with exit status %d", code))
		}
		close(out)
	}()

	return out
}

// scanLines feeds every non-empty line to fn. Lines longer than maxLine
// are handed over in pieces so the reader never stops consuming, and a
// trailing line without a terminator is still delivered at stream end.
func scanLines(r io.Reader, fn func(string)) {
	if r == nil {
		return
	}
	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		line = append(line, chunk...)
		if err == bufio.ErrBufferFull {
			if len(line) >= maxLine {
				deliver(fn, line)
				line = line[:0]
			}
			continue
		}
		deliver(fn, line)
		if err != nil {
			return
		}
		line = line[:0]
	}
}

func deliver(fn func(string), line []byte) {
	if s := strings.TrimRight(string(line), "\r\n"); s != "" {
		fn(s)
	}
}
