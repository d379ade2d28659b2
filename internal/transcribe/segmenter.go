package transcribe

import "math"

// Policy はセグメント分割の上限ポリシーです。
type Policy struct {
	MaxDurationSeconds float64 // 1セグメントの最大長（秒）
	MaxSizeBytes       int64   // 1セグメントの最大サイズ（バイト）
}

// Plan は入力全体を上限内に収めるセグメント列を決定的に計算します。
//
// 両方の上限内であれば全体を1セグメントとして返します。超える場合は
// count = ceil(max(duration/maxDuration, size/maxSize)) 個の等長スライスに
// 分割し、端数は最終スライスが吸収します。サイズはビットレートが概ね一定
// であるという近似に基づくため、バイト単位の保証ではありません。
//
// 返り値は常に1個以上で、[0, duration) を隙間も重なりもなく覆います。
func Plan(durationSeconds float64, sizeBytes int64, policy Policy) []Segment {
	if durationSeconds <= policy.MaxDurationSeconds && sizeBytes <= policy.MaxSizeBytes {
		return []Segment{{
			Index:       0,
			StartOffset: 0,
			Duration:    durationSeconds,
			Status:      SegmentPending,
		}}
	}

	ratio := durationSeconds / policy.MaxDurationSeconds
	if sizeRatio := float64(sizeBytes) / float64(policy.MaxSizeBytes); sizeRatio > ratio {
		ratio = sizeRatio
	}
	count := int(math.Ceil(ratio))
	if count < 1 {
		count = 1
	}

	sliceDuration := durationSeconds / float64(count)
	segments := make([]Segment, count)
	for i := 0; i < count; i++ {
		start := float64(i) * sliceDuration
		length := sliceDuration
		if i == count-1 {
			// 最終スライスが丸め誤差を吸収する
			length = durationSeconds - start
		}
		segments[i] = Segment{
			Index:       i,
			StartOffset: start,
			Duration:    length,
			Status:      SegmentPending,
		}
	}
	return segments
}
