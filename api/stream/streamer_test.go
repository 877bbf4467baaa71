package stream

import (
	"io"
	"strings"
	"testing"
	"time"

	"bifrost/api/model"
)

func collect(t *testing.T, ch <-chan model.Event) []model.Event {
	t.Helper()
	var events []model.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("stream did not close; got %d events so far", len(events))
		}
	}
}

func checkTerminal(t *testing.T, events []model.Event, want model.EventType) {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events")
	}
	terminals := 0
	for _, ev := range events {
		if ev.Terminal() {
			terminals++
		}
	}
	if terminals != 1 {
		t.Fatalf("got %d terminal events, want exactly 1", terminals)
	}
	last := events[len(events)-1]
	if !last.Terminal() || last.Type != want {
		t.Fatalf("last event = %+v, want terminal %s", last, want)
	}
}

func TestSuccessfulRun(t *testing.T) {
	src := Source{
		Stdout: strings.NewReader("line one\nline two\n"),
		Stderr: strings.NewReader("warning: something\n"),
		Wait:   func() (int, error) { return 0, nil },
	}
	events := collect(t, Run(src, "DONE"))
	checkTerminal(t, events, model.EventSuccess)

	var stdout, stderr []string
	for _, ev := range events {
		switch ev.Type {
		case model.EventStdout:
			stdout = append(stdout, ev.Message)
		case model.EventStderr:
			stderr = append(stderr, ev.Message)
		}
	}
	if len(stdout) != 2 || stdout[0] != "line one" || stdout[1] != "line two" {
		t.Fatalf("stdout events = %v", stdout)
	}
	if len(stderr) != 1 || stderr[0] != "warning: something" {
		t.Fatalf("stderr events = %v", stderr)
	}
}

func TestPerChannelOrderAndSequence(t *testing.T) {
	src := Source{
		Stdout: strings.NewReader("a\nb\nc\n"),
		Stderr: strings.NewReader("x\ny\n"),
		Wait:   func() (int, error) { return 0, nil },
	}
	events := collect(t, Run(src, ""))

	lastSeq := 0
	var outOrder []string
	for _, ev := range events {
		if ev.Seq <= lastSeq {
			t.Fatalf("sequence not increasing: %d after %d", ev.Seq, lastSeq)
		}
		lastSeq = ev.Seq
		if ev.Type == model.EventStdout {
			outOrder = append(outOrder, ev.Message)
		}
	}
	if strings.Join(outOrder, "") != "abc" {
		t.Fatalf("stdout order = %v", outOrder)
	}
}

func TestCommandFailureKeepsOutput(t *testing.T) {
	src := Source{
		Stdout: strings.NewReader("partial progress\n"),
		Stderr: strings.NewReader("boom\n"),
		Wait:   func() (int, error) { return 3, nil },
	}
	events := collect(t, Run(src, ""))
	checkTerminal(t, events, model.EventError)

	last := events[len(events)-1]
	if !strings.Contains(last.Message, "exit status 3") {
		t.Fatalf("terminal message %q", last.Message)
	}
	if events[0].Type != model.EventStdout && events[0].Type != model.EventStderr {
		t.Fatalf("collected output lost: first event %+v", events[0])
	}
}

func TestTrailingPartialLineFlushed(t *testing.T) {
	src := Source{
		Stdout: strings.NewReader("complete\nno newline at end"),
		Stderr: strings.NewReader(""),
		Wait:   func() (int, error) { return 0, nil },
	}
	events := collect(t, Run(src, ""))

	found := false
	for _, ev := range events {
		if ev.Type == model.EventStdout && ev.Message == "no newline at end" {
			found = true
		}
	}
	if !found {
		t.Fatal("trailing partial line was dropped")
	}
}

func TestEmptyLinesSkipped(t *testing.T) {
	src := Source{
		Stdout: strings.NewReader("\n\nreal\n\n"),
		Stderr: strings.NewReader("\n"),
		Wait:   func() (int, error) { return 0, nil },
	}
	events := collect(t, Run(src, ""))
	for _, ev := range events {
		if (ev.Type == model.EventStdout || ev.Type == model.EventStderr) && ev.Message == "" {
			t.Fatal("empty line emitted")
		}
	}
}

func TestSentinelClosesStream(t *testing.T) {
	// The remote process keeps the pipe open after the sentinel; only the
	// streamer's proactive close ends the run.
	pr, pw := io.Pipe()
	waitCh := make(chan struct{})
	closed := make(chan struct{})

	src := Source{
		Stdout: pr,
		Stderr: strings.NewReader(""),
		Wait: func() (int, error) {
			<-waitCh
			return -1, nil
		},
		Close: func() {
			pr.Close()
			close(closed)
			close(waitCh)
		},
	}

	ch := Run(src, "setup finished")
	go func() {
		pw.Write([]byte("starting\n"))
		pw.Write([]byte("all good, setup finished, bye\n"))
		// Never closes pw: the process is still alive.
	}()

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("sentinel did not trigger a close")
	}

	got := collect(t, ch)
	checkTerminal(t, got, model.EventSuccess)
}

func TestStreamIsIncremental(t *testing.T) {
	pr, pw := io.Pipe()
	done := make(chan struct{})
	src := Source{
		Stdout: pr,
		Stderr: strings.NewReader(""),
		Wait: func() (int, error) {
			<-done
			return 0, nil
		},
	}
	ch := Run(src, "")

	pw.Write([]byte("first\n"))
	select {
	case ev := <-ch:
		if ev.Type != model.EventStdout || ev.Message != "first" {
			t.Fatalf("got %+v before stream end", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("line not delivered until completion")
	}

	pw.Close()
	close(done)
	collect(t, ch)
}

func TestOverlongLineDeliveredInPieces(t *testing.T) {
	big := strings.Repeat("x", maxLine+10)
	src := Source{
		Stdout: strings.NewReader(big + "\nafter the big line\n"),
		Stderr: strings.NewReader(""),
		Wait:   func() (int, error) { return 0, nil },
	}
	events := collect(t, Run(src, ""))
	checkTerminal(t, events, model.EventSuccess)

	total := 0
	sawTail := false
	for _, ev := range events {
		if ev.Type != model.EventStdout {
			continue
		}
		if ev.Message == "after the big line" {
			sawTail = true
			continue
		}
		total += len(ev.Message)
	}
	if total != len(big) {
		t.Fatalf("delivered %d bytes of the long line, want %d", total, len(big))
	}
	if !sawTail {
		t.Fatal("output after the long line was dropped")
	}
}

func TestOverlongLineDoesNotStallProducer(t *testing.T) {
	pr, pw := io.Pipe()
	done := make(chan struct{})
	src := Source{
		Stdout: pr,
		Stderr: strings.NewReader(""),
		Wait: func() (int, error) {
			<-done
			return 0, nil
		},
	}

	ch := Run(src, "")
	drained := make(chan []model.Event, 1)
	go func() {
		var events []model.Event
		for ev := range ch {
			events = append(events, ev)
		}
		drained <- events
	}()

	wrote := make(chan struct{})
	go func() {
		pw.Write([]byte(strings.Repeat("y", maxLine+10)))
		pw.Write([]byte("\ntail\n"))
		pw.Close()
		close(wrote)
	}()
	select {
	case <-wrote:
	case <-time.After(3 * time.Second):
		t.Fatal("writer blocked behind an over-long line")
	}
	close(done)

	select {
	case events := <-drained:
		checkTerminal(t, events, model.EventSuccess)
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not close")
	}
}

func TestSequenceMatchesDeliveryOrder(t *testing.T) {
	// Both pipes race; whatever interleaving wins, Seq must match the
	// order events come off the channel.
	for i := 0; i < 200; i++ {
		src := Source{
			Stdout: strings.NewReader(strings.Repeat("o\n", 50)),
			Stderr: strings.NewReader(strings.Repeat("e\n", 50)),
			Wait:   func() (int, error) { return 0, nil },
		}
		last := 0
		for ev := range Run(src, "") {
			if ev.Seq <= last {
				t.Fatalf("iteration %d: delivered Seq %d after Seq %d", i, ev.Seq, last)
			}
			last = ev.Seq
		}
	}
}

func TestTransportFaultIsTerminalError(t *testing.T) {
	src := Source{
		Stdout: strings.NewReader("some output\n"),
		Stderr: strings.NewReader(""),
		Wait:   func() (int, error) { return -1, io.ErrUnexpectedEOF },
	}
	events := collect(t, Run(src, ""))
	checkTerminal(t, events, model.EventError)
}
