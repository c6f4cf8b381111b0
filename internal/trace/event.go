package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Kind names what an event records.
type Kind string

const (
	KindTestSetup    Kind = "test_setup"
	KindTestTeardown Kind = "test_teardown"
	KindTestFailure  Kind = "test_failure"
	KindCaseSetup    Kind = "case_setup"
	KindCaseTeardown Kind = "case_teardown"
	KindCaseFailure  Kind = "case_failure"
	KindValidate     Kind = "validate"
	KindExit         Kind = "exit"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{
	KindTestSetup, KindTestTeardown, KindTestFailure,
	KindCaseSetup, KindCaseTeardown, KindCaseFailure,
	KindValidate, KindExit,
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// Event is one recorded call. Which fields are meaningful depends on Kind;
// ToMap only emits those.
type Event struct {
	Seq  int64 `json:"seq"`
	Kind Kind  `json:"kind"`

	Case  string `json:"case,omitempty"`
	Index int    `json:"index,omitempty"` // case index, or case count for test_setup

	Passed int `json:"passed,omitempty"`
	Failed int `json:"failed,omitempty"`

	Reason   string `json:"reason,omitempty"`
	Location string `json:"location,omitempty"`
	Status   string `json:"status,omitempty"`
	Control  string `json:"control,omitempty"`
	Code     int    `json:"code,omitempty"`
}

// ToMap converts the event to the value MarshalCanonical accepts.
func (e Event) ToMap() map[string]any {
	m := map[string]any{
		"seq":  e.Seq,
		"kind": string(e.Kind),
	}
	switch e.Kind {
	case KindTestSetup:
		m["cases"] = e.Index
		m["status"] = e.Status
	case KindTestTeardown:
		m["passed"] = e.Passed
		m["failed"] = e.Failed
		m["reason"] = e.Reason
	case KindTestFailure:
		m["reason"] = e.Reason
		m["location"] = e.Location
	case KindCaseSetup:
		m["case"] = e.Case
		m["index"] = e.Index
		m["status"] = e.Status
	case KindCaseTeardown:
		m["case"] = e.Case
		m["passed"] = e.Passed
		m["failed"] = e.Failed
		m["reason"] = e.Reason
		m["status"] = e.Status
	case KindCaseFailure:
		m["case"] = e.Case
		m["reason"] = e.Reason
		m["location"] = e.Location
		m["status"] = e.Status
	case KindValidate:
		m["case"] = e.Case
		m["control"] = e.Control
	case KindExit:
		m["code"] = e.Code
	}
	return m
}

// Canonical renders the event as canonical JSON.
func (e Event) Canonical() ([]byte, error) {
	return MarshalCanonical(e.ToMap())
}

// Hash domains. Each use of the same bytes hashes differently.
const (
	DomainEvent = "utest/event/v1"
	DomainTrace = "utest/trace/v1"
)

// hashWithDomain computes hex(SHA256(domain + 0x00 + data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes a content-addressed ID for e.
func EventID(e Event) (string, error) {
	canonical, err := e.Canonical()
	if err != nil {
		return "", fmt.Errorf("EventID: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// TraceHash identifies a whole trace by the hash of its Snapshot.
func TraceHash(events []Event) (string, error) {
	data, err := Snapshot(events)
	if err != nil {
		return "", fmt.Errorf("TraceHash: %w", err)
	}
	return hashWithDomain(DomainTrace, data), nil
}
