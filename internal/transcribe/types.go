// Package transcribe は文字起こしジョブの中核パイプラインを提供します。
package transcribe

import "time"

// SegmentStatus はセグメント単位の処理状態を表します。
type SegmentStatus string

const (
	SegmentPending   SegmentStatus = "pending"
	SegmentSubmitted SegmentStatus = "submitted"
	SegmentPolling   SegmentStatus = "polling"
	SegmentDone      SegmentStatus = "done"
	SegmentFailed    SegmentStatus = "failed"
)

// Segment は入力メディアの1区間です。Index が最終的な並び順を定めます。
type Segment struct {
	Index       int           `json:"index"`
	StartOffset float64       `json:"startOffset"` // 秒
	Duration    float64       `json:"duration"`    // 秒
	Status      SegmentStatus `json:"status"`
	OperationID string        `json:"operationId,omitempty"`
	Text        string        `json:"-"`
	ErrorCode   string        `json:"errorCode,omitempty"`
}

// End はセグメント終端のオフセット（秒）を返します。
func (s Segment) End() float64 {
	return s.StartOffset + s.Duration
}

// JobManifest はジョブの入力情報です。ワークスペースに保存され、
// ワーカー側で読み戻されます。
type JobManifest struct {
	JobID      string    `json:"jobId"`
	Owner      string    `json:"owner"`
	SourceName string    `json:"sourceName"` // アップロード時の元ファイル名
	SourceFile string    `json:"sourceFile"` // ワークスペース内の保存名
	SourceSize int64     `json:"sourceSize"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Result は文字起こしジョブの成果です。
// Partial と FailedSegments は常に設定され、部分的な成功が
// 完全な成功と取り違えられないようにします。
type Result struct {
	JobID           string  `json:"jobId"`
	Transcript      string  `json:"-"`
	OutputPath      string  `json:"outputPath"`
	OutputSize      int64   `json:"outputSize"`
	DurationSeconds float64 `json:"durationSeconds"`
	BilledSeconds   float64 `json:"billedSeconds"`
	Cost            float64 `json:"cost"`
	Partial         bool    `json:"partial"`
	FailedSegments  []int   `json:"failedSegments"`
	Segments        []Segment `json:"segments"`
}

// ProgressReporter は進捗更新用コールバックです。
type ProgressReporter func(stage string, percent int)

// SegmentReporter はセグメント状態の変化を通知するコールバックです。
type SegmentReporter func(segments []Segment)

func reportProgress(cb ProgressReporter, stage string, percent int) {
	if cb == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	cb(stage, percent)
}

func reportSegments(cb SegmentReporter, segments []Segment) {
	if cb == nil {
		return
	}
	snapshot := make([]Segment, len(segments))
	copy(snapshot, segments)
	cb(snapshot)
}
