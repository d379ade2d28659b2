package transcribe

import "fmt"

// 障害の分類コード。ジョブ記録と送信境界へはこのコードだけを渡し、
// プロバイダの生エラーは境界を越えません。
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnsupportedMedia  = "UNSUPPORTED_MEDIA"
	CodeUnreadableMedia   = "UNREADABLE_MEDIA"
	CodeTranscodeError    = "TRANSCODE_ERROR"
	CodeSubmissionError   = "SUBMISSION_ERROR"
	CodeRecognitionFailed = "RECOGNITION_FAILED"
	CodeTimeout           = "TIMEOUT"
	CodeAllSegmentsFailed = "ALL_SEGMENTS_FAILED"
	CodeCanceled          = "CANCELED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Error は分類コード付きの処理エラーです。
type Error struct {
	Code    string
	Message string
	cause   error
}

// Error は error インターフェースを実装します。
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返します。
func (e *Error) Unwrap() error {
	return e.cause
}

// newError は分類コード付きエラーを作成します。
func newError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}
