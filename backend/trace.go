package backend

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	"git.sr.ht/~whereswaldon/watt-wealth/units"
)

const timestampHeading = "timestamp (ns)"

var traceHeadings = []string{
	timestampHeading,
	units.Kilowatts.Heading("solar"),
	units.Percent.Heading("battery"),
	units.Kilowatts.Heading("grid"),
	units.Kilowatts.Heading("home"),
}

// TraceSample is one recorded reading.
type TraceSample struct {
	Timestamp time.Time
	flow.Reading
}

// TraceWriter records readings as CSV, one row per reading.
type TraceWriter struct {
	file        io.WriteCloser
	buf         *bufio.Writer
	csv         *csv.Writer
	wroteHeader bool
}

func NewTraceWriter(w io.WriteCloser) *TraceWriter {
	buf := bufio.NewWriter(w)
	return &TraceWriter{
		file: w,
		buf:  buf,
		csv:  csv.NewWriter(buf),
	}
}

// Write appends a row and flushes it, so that a reader following the file
// sees whole rows only.
func (t *TraceWriter) Write(ts time.Time, r flow.Reading) error {
	if !t.wroteHeader {
		if err := t.csv.Write(traceHeadings); err != nil {
			return fmt.Errorf("failed writing trace headings: %w", err)
		}
		t.wroteHeader = true
	}
	record := []string{
		strconv.FormatInt(ts.UnixNano(), 10),
		strconv.FormatFloat(r.Solar, 'f', -1, 64),
		strconv.FormatFloat(r.Battery, 'f', -1, 64),
		strconv.FormatFloat(r.Grid, 'f', -1, 64),
		strconv.FormatFloat(r.Home, 'f', -1, 64),
	}
	if err := t.csv.Write(record); err != nil {
		return fmt.Errorf("failed writing trace row: %w", err)
	}
	t.csv.Flush()
	if err := t.csv.Error(); err != nil {
		return err
	}
	return t.buf.Flush()
}

func (t *TraceWriter) Close() error {
	t.csv.Flush()
	err := errors.Join(t.csv.Error(), t.buf.Flush())
	return errors.Join(err, t.file.Close())
}

// TraceReader parses a trace written by TraceWriter. Columns are matched by
// heading, so their order does not matter.
type TraceReader struct {
	csv     *csv.Reader
	columns [5]int
}

func NewTraceReader(r io.Reader) (*TraceReader, error) {
	cr := csv.NewReader(newLineReader(r))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	headings, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed reading trace headings: %w", err)
	}
	t := &TraceReader{csv: cr}
	for i, want := range traceHeadings {
		idx := -1
		for col, heading := range headings {
			if strings.TrimSpace(heading) == want {
				idx = col
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("trace is missing column %q", want)
		}
		t.columns[i] = idx
	}
	return t, nil
}

// Next returns the next complete row. It returns io.EOF when no complete row
// is available yet; reading may be retried after the source grows.
func (t *TraceReader) Next() (TraceSample, error) {
	rec, err := t.csv.Read()
	if err != nil {
		return TraceSample{}, err
	}
	var (
		ns     int64
		fields [5]float64
	)
	for i, col := range t.columns {
		if col >= len(rec) {
			return TraceSample{}, fmt.Errorf("trace row has %d fields, need column %d", len(rec), col)
		}
		cell := strings.TrimSpace(rec[col])
		if i == 0 {
			ns, err = strconv.ParseInt(cell, 10, 64)
			if err != nil {
				return TraceSample{}, fmt.Errorf("failed parsing timestamp %q: %w", cell, err)
			}
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return TraceSample{}, fmt.Errorf("failed parsing %s=%q: %w", traceHeadings[i], cell, err)
		}
		fields[i] = v
	}
	return TraceSample{
		Timestamp: time.Unix(0, ns),
		Reading: flow.Reading{
			Solar:   fields[1],
			Battery: fields[2],
			Grid:    fields[3],
			Home:    fields[4],
		},
	}, nil
}

// lineReader hands out only whole newline-terminated lines, holding back a
// trailing partial line until the rest of it arrives. This keeps the CSV
// parser from seeing half-written rows of a file that is still being
// recorded.
type lineReader struct {
	r       *bufio.Reader
	partial []byte
	ready   []byte
}

var _ io.Reader = (*lineReader)(nil)

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{
		r: bufio.NewReader(r),
	}
}

func (l *lineReader) Read(b []byte) (int, error) {
	if len(l.ready) == 0 {
		data, err := l.r.ReadBytes('\n')
		l.partial = append(l.partial, data...)
		if err != nil {
			return 0, err
		}
		l.ready, l.partial = l.partial, nil
	}
	n := copy(b, l.ready)
	l.ready = l.ready[n:]
	return n, nil
}
