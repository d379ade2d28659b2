// Package jobs は文字起こしジョブの非同期実行と状態管理を提供します。
package jobs

import "time"

// Status はジョブの実行状態を表します。
type Status string

const (
	StatusQueued      Status = "queued"
	StatusProbing     Status = "probing"
	StatusSegmenting  Status = "segmenting"
	StatusTranscoding Status = "transcoding"
	StatusRecognizing Status = "recognizing"
	StatusAggregating Status = "aggregating"
	StatusSucceeded   Status = "done"
	StatusFailed      Status = "error"
	StatusCanceled    Status = "canceled"
)

// Terminal は終端状態かどうかを返します。終端に達したジョブの
// 記録はそれ以上変化しません。
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// ProgressInfo は進捗の補足情報を表します。
type ProgressInfo struct {
	Percent int    `json:"percent"`
	Stage   string `json:"stage,omitempty"`
	Message string `json:"message,omitempty"`
}

// SegmentInfo はセグメント単位の処理状態のスナップショットです。
type SegmentInfo struct {
	Index       int    `json:"index"`
	Status      string `json:"status"`
	OperationID string `json:"operationId,omitempty"`
	ErrorCode   string `json:"errorCode,omitempty"`
}

// ErrorInfo はジョブ失敗時のエラー情報を保持します。
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResultInfo はジョブ完了時の成果情報です。
type ResultInfo struct {
	DownloadURL     string  `json:"downloadUrl"`
	OutputSize      int64   `json:"outputSize"`
	DurationSeconds float64 `json:"durationSeconds"`
	BilledSeconds   float64 `json:"billedSeconds"`
	Cost            float64 `json:"cost"`
	Partial         bool    `json:"partial"`
	FailedSegments  []int   `json:"failedSegments"`
}

// Record はジョブの現在状態を表します。
type Record struct {
	JobID      string        `json:"jobId"`
	Owner      string        `json:"owner,omitempty"`
	SourceName string        `json:"sourceName,omitempty"`
	Status     Status        `json:"status"`
	Progress   ProgressInfo  `json:"progress"`
	Segments   []SegmentInfo `json:"segments,omitempty"`
	Result     *ResultInfo   `json:"result,omitempty"`
	Error      *ErrorInfo    `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	ExpiresAt  time.Time     `json:"expiresAt"`
}
