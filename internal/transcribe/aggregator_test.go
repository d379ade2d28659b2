package transcribe

import (
	"math"
	"testing"
)

func TestAggregateOrdersByIndex(t *testing.T) {
	// 完了順 [2, 0, 1] で渡しても Index 順に連結される
	segments := []Segment{
		{Index: 2, Duration: 10, Status: SegmentDone, Text: "third"},
		{Index: 0, Duration: 10, Status: SegmentDone, Text: "first"},
		{Index: 1, Duration: 10, Status: SegmentDone, Text: "second"},
	}

	outcome := Aggregate(segments, 0)
	if outcome.Transcript != "first\nsecond\nthird" {
		t.Errorf("transcript = %q", outcome.Transcript)
	}
	if outcome.Partial {
		t.Error("Partial = true, want false")
	}
	if len(outcome.FailedSegments) != 0 {
		t.Errorf("FailedSegments = %v, want empty", outcome.FailedSegments)
	}
	if outcome.FailedSegments == nil {
		t.Error("FailedSegments must always be populated")
	}
}

func TestAggregateSkipsFailedSegments(t *testing.T) {
	segments := []Segment{
		{Index: 0, Duration: 100, Status: SegmentDone, Text: "intro"},
		{Index: 1, Duration: 100, Status: SegmentFailed, ErrorCode: CodeTimeout},
		{Index: 2, Duration: 100, Status: SegmentDone, Text: "outro"},
	}

	outcome := Aggregate(segments, 0.01)
	if outcome.Transcript != "intro\noutro" {
		t.Errorf("transcript = %q", outcome.Transcript)
	}
	if !outcome.Partial {
		t.Error("Partial = false, want true")
	}
	if len(outcome.FailedSegments) != 1 || outcome.FailedSegments[0] != 1 {
		t.Errorf("FailedSegments = %v, want [1]", outcome.FailedSegments)
	}
	// 失敗セグメントは課金対象外
	if math.Abs(outcome.BilledSeconds-200) > 1e-9 {
		t.Errorf("BilledSeconds = %f, want 200", outcome.BilledSeconds)
	}
	if math.Abs(outcome.Cost-2.0) > 1e-9 {
		t.Errorf("Cost = %f, want 2.0", outcome.Cost)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	segments := []Segment{
		{Index: 1, Duration: 5, Status: SegmentDone, Text: "b"},
		{Index: 0, Duration: 5, Status: SegmentDone, Text: "a"},
	}

	first := Aggregate(segments, 0.002542)
	second := Aggregate(segments, 0.002542)
	if first.Transcript != second.Transcript || first.Cost != second.Cost {
		t.Error("Aggregate is not deterministic")
	}
}

func TestAggregateAllFailed(t *testing.T) {
	segments := []Segment{
		{Index: 0, Duration: 10, Status: SegmentFailed, ErrorCode: CodeTranscodeError},
		{Index: 1, Duration: 10, Status: SegmentFailed, ErrorCode: CodeTimeout},
	}

	outcome := Aggregate(segments, 0.01)
	if outcome.Transcript != "" {
		t.Errorf("transcript = %q, want empty", outcome.Transcript)
	}
	if !outcome.Partial {
		t.Error("Partial = false, want true")
	}
	if len(outcome.FailedSegments) != 2 {
		t.Errorf("FailedSegments = %v", outcome.FailedSegments)
	}
	if outcome.BilledSeconds != 0 || outcome.Cost != 0 {
		t.Errorf("billed = %f cost = %f, want 0", outcome.BilledSeconds, outcome.Cost)
	}
}
