package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2025-03-01T12:00:00Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestAlignRange(t *testing.T) {
	from := time.Date(2025, 3, 1, 12, 37, 15, 0, time.UTC)
	to := time.Date(2025, 3, 1, 18, 2, 3, 0, time.UTC)

	gotFrom, gotTo := AlignRange(from, to, time.Hour)
	if gotFrom.Minute() != 0 || gotFrom.Hour() != 12 {
		t.Fatalf("unexpected from %v", gotFrom)
	}
	if gotTo.Minute() != 0 || gotTo.Hour() != 18 {
		t.Fatalf("unexpected to %v", gotTo)
	}
}
