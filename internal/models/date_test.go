package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, time.January, 1)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-01-01"` {
		t.Fatalf("got %s", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("round trip mismatch: %v != %v", back, d)
	}
}

func TestDateUnmarshalRejectsBadInput(t *testing.T) {
	for _, raw := range []string{`"2024-13-01"`, `"not a date"`, `"01/02/2024"`, `42`} {
		var d Date
		if err := json.Unmarshal([]byte(raw), &d); err == nil {
			t.Errorf("%s: expected error", raw)
		}
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan(time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("scan time: %v", err)
	}
	if d.String() != "2024-06-15" {
		t.Errorf("got %s", d)
	}

	if err := d.Scan("2024-06-16"); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if d.String() != "2024-06-16" {
		t.Errorf("got %s", d)
	}

	if err := d.Scan(123); err == nil {
		t.Error("scan int: expected error")
	}
}

func TestDateBefore(t *testing.T) {
	a := NewDate(2024, time.January, 1)
	b := NewDate(2024, time.January, 2)
	if !a.Before(b) {
		t.Error("a should be before b")
	}
	if b.Before(a) {
		t.Error("b should not be before a")
	}
	if a.Before(a) {
		t.Error("a should not be before itself")
	}
}
