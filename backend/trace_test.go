package backend

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"git.sr.ht/~whereswaldon/watt-wealth/flow"
)

type nopWriteCloser struct {
	io.Writer
	closed bool
}

func (n *nopWriteCloser) Close() error {
	n.closed = true
	return nil
}

func TestTraceRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	out := &nopWriteCloser{Writer: buf}
	w := NewTraceWriter(out)
	start := time.Unix(1700000000, 123)
	readings := []flow.Reading{
		{Solar: 0.63, Battery: 86, Grid: 0.02, Home: 2.83},
		{Solar: 4.2, Battery: 87, Grid: 0, Home: 1.1},
	}
	for i, r := range readings {
		if err := w.Write(start.Add(time.Duration(i)*time.Second), r); err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !out.closed {
		t.Errorf("expected the underlying writer to be closed")
	}
	if !strings.HasPrefix(buf.String(), "timestamp (ns),solar (kW),battery (%),grid (kW),home (kW)\n") {
		t.Errorf("unexpected header in %q", buf.String())
	}

	rd, err := NewTraceReader(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range readings {
		got, err := rd.Next()
		if err != nil {
			t.Fatalf("row %d: unexpected error: %v", i, err)
		}
		if got.Reading != want {
			t.Errorf("row %d: expected %+v, got %+v", i, want, got.Reading)
		}
		if ts := start.Add(time.Duration(i) * time.Second); !got.Timestamp.Equal(ts) {
			t.Errorf("row %d: expected timestamp %v, got %v", i, ts, got.Timestamp)
		}
	}
	if _, err := rd.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestTraceReaderColumnOrder(t *testing.T) {
	doc := "home (kW), grid (kW), battery (%), solar (kW), timestamp (ns)\n2, 0.5, 50, 1, 10\n"
	rd, err := NewTraceReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := rd.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := flow.Reading{Solar: 1, Battery: 50, Grid: 0.5, Home: 2}
	if got.Reading != want || got.Timestamp.UnixNano() != 10 {
		t.Errorf("expected %+v at 10ns, got %+v", want, got)
	}
}

func TestTraceReaderMissingColumn(t *testing.T) {
	_, err := NewTraceReader(strings.NewReader("timestamp (ns), solar (kW)\n"))
	if err == nil {
		t.Errorf("expected an error for a trace without battery, grid and home")
	}
}

func TestTraceReaderFollowsPartialRows(t *testing.T) {
	buf := bytes.NewBufferString("timestamp (ns),solar (kW),battery (%),grid (kW),home (kW)\n1,1,")
	rd, err := NewTraceReader(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := rd.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF for a partial row, got %v", err)
	}
	buf.WriteString("50,0,2\n")
	got, err := rd.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := (flow.Reading{Solar: 1, Battery: 50, Home: 2}); got.Reading != want {
		t.Errorf("expected %+v, got %+v", want, got.Reading)
	}
}
