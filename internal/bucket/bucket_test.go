package bucket

import "testing"

func TestIndexAndStart(t *testing.T) {
	tests := []struct {
		name      string
		ts        int64
		size      int64
		wantIndex int64
		wantStart int64
	}{
		{"zero", 0, Day, 0, 0},
		{"first hour", 100, Hour, 0, 0},
		{"hour boundary", 3600, Hour, 1, 3600},
		{"last second of hour", 7199, Hour, 1, 3600},
		{"day boundary", 86400, Day, 1, 86400},
		{"mid day", 1700000000, Day, 19675, 1699920000},
		{"mid hour", 1700000000, Hour, 472222, 1699999200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := Index(tt.ts, tt.size)
			if idx != tt.wantIndex {
				t.Errorf("Index(%d, %d) = %d, want %d", tt.ts, tt.size, idx, tt.wantIndex)
			}
			if start := Start(idx, tt.size); start != tt.wantStart {
				t.Errorf("Start(%d, %d) = %d, want %d", idx, tt.size, start, tt.wantStart)
			}
		})
	}
}

func TestStartNeverAfterTimestamp(t *testing.T) {
	for ts := int64(0); ts < 3*Day; ts += 997 {
		for _, size := range []int64{Hour, Day} {
			b := Derive(ts, size)
			if b.Start > ts || ts >= b.Start+size {
				t.Fatalf("ts %d not inside bucket [%d, %d)", ts, b.Start, b.Start+size)
			}
		}
	}
}

func TestKey(t *testing.T) {
	if got := Key(19675); got != "19675" {
		t.Errorf("Key without parts = %q", got)
	}
	if got := Key(19675, "0xpair"); got != "0xpair-19675" {
		t.Errorf("Key with pair = %q", got)
	}
	if got := Key(19675, "0xuser", "0xpair"); got != "0xuser-0xpair-19675" {
		t.Errorf("Key with user and pair = %q", got)
	}
}

func TestDeriveIdempotent(t *testing.T) {
	a := DayOf(1700000123, "0xtoken")
	b := DayOf(1700000123, "0xtoken")
	if a != b {
		t.Errorf("Derive not deterministic: %+v vs %+v", a, b)
	}

	// Same bucket for any timestamp inside the window.
	c := DayOf(1699920000, "0xtoken")
	if c.Key != a.Key {
		t.Errorf("Keys differ within one day: %q vs %q", a.Key, c.Key)
	}
}

func TestHourOf(t *testing.T) {
	b := HourOf(200, "0xpair")
	if b.Index != 0 || b.Start != 0 || b.Key != "0xpair-0" {
		t.Errorf("HourOf(200) = %+v", b)
	}
}
