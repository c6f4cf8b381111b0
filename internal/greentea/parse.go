package greentea

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Record is one parsed {{key;values}} record.
type Record struct {
	Key    string
	Values []string
}

// Value returns the i-th value or "" when absent.
func (r Record) Value(i int) string {
	if i < 0 || i >= len(r.Values) {
		return ""
	}
	return r.Values[i]
}

// Int returns the i-th value as an integer.
func (r Record) Int(i int) (int, error) {
	n, err := strconv.Atoi(r.Value(i))
	if err != nil {
		return 0, fmt.Errorf("greentea: %s value %d: %w", r.Key, i, err)
	}
	return n, nil
}

func (r Record) String() string {
	values := make([]any, len(r.Values))
	for i, v := range r.Values {
		values[i] = v
	}
	return Format(r.Key, values...)
}

// ParseLine extracts the first record on line. Text around the record is
// ignored, since devices interleave records with ordinary output.
func ParseLine(line string) (Record, bool) {
	start := strings.Index(line, "{{")
	if start < 0 {
		return Record{}, false
	}
	rest := line[start+2:]
	end := strings.Index(rest, "}}")
	if end < 0 {
		return Record{}, false
	}
	body := rest[:end]

	key, values, found := strings.Cut(body, ";")
	if key == "" || !found {
		return Record{}, false
	}
	r := Record{Key: key}
	if values != "" {
		r.Values = strings.Split(values, ";")
	}
	return r, true
}

// Parse reads every record from r.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if rec, ok := ParseLine(sc.Text()); ok {
			records = append(records, rec)
		}
	}
	if err := sc.Err(); err != nil {
		return records, fmt.Errorf("greentea: read records: %w", err)
	}
	return records, nil
}

// Summary is the host-side view of a completed suite.
type Summary struct {
	Count   int          `json:"count"`
	Names   []string     `json:"names,omitempty"`
	Passed  int          `json:"passed"`
	Failed  int          `json:"failed"`
	Success bool         `json:"success"`
	Ended   bool         `json:"ended"`
	Cases   []CaseResult `json:"cases,omitempty"`
}

// CaseResult is one __testcase_finish record.
type CaseResult struct {
	Name   string `json:"name"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`
}

// Summarize folds records into a Summary.
func Summarize(records []Record) (Summary, error) {
	var s Summary
	for _, rec := range records {
		var err error
		switch rec.Key {
		case KeyTestcaseCount:
			s.Count, err = rec.Int(0)
		case KeyTestcaseName:
			s.Names = append(s.Names, rec.Value(0))
		case KeyTestcaseFinish:
			c := CaseResult{Name: rec.Value(0)}
			if c.Passed, err = rec.Int(1); err == nil {
				c.Failed, err = rec.Int(2)
			}
			s.Cases = append(s.Cases, c)
		case KeyTestcaseSummary:
			if s.Passed, err = rec.Int(0); err == nil {
				s.Failed, err = rec.Int(1)
			}
		case KeyEnd:
			s.Ended = true
			s.Success = rec.Value(0) == ResultSuccess
		}
		if err != nil {
			return s, err
		}
	}
	return s, nil
}
