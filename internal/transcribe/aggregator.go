package transcribe

import (
	"sort"
	"strings"
)

// transcriptSeparator はセグメント間の結合に使う固定区切りです。
const transcriptSeparator = "\n"

// AggregateOutcome はセグメント結果の集約です。
type AggregateOutcome struct {
	Transcript     string
	BilledSeconds  float64
	Cost           float64
	Partial        bool
	FailedSegments []int
}

// Aggregate は完了セグメントのテキストを Index 昇順で連結します。
//
// 完了順には依存せず、同じセグメント集合からは常に同じ結果が得られます。
// 失敗セグメントはスキップされ、FailedSegments に常に記録されます
// （失敗なしの場合は空スライス）。課金対象は成功セグメントの計画長の合計です。
func Aggregate(segments []Segment, costPerSecond float64) AggregateOutcome {
	ordered := make([]Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	texts := make([]string, 0, len(ordered))
	failed := make([]int, 0)
	billed := 0.0
	for _, seg := range ordered {
		if seg.Status != SegmentDone {
			failed = append(failed, seg.Index)
			continue
		}
		texts = append(texts, seg.Text)
		billed += seg.Duration
	}

	return AggregateOutcome{
		Transcript:     strings.Join(texts, transcriptSeparator),
		BilledSeconds:  billed,
		Cost:           billed * costPerSecond,
		Partial:        len(failed) > 0,
		FailedSegments: failed,
	}
}
