package transcribe

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/voice-forge/internal/speechkit"
)

// Recognizer は認識バックエンドへの投入とポーリングを提供します。
type Recognizer interface {
	Submit(ctx context.Context, audioURI string) (string, error)
	Poll(ctx context.Context, operationID string) (*speechkit.PollResult, error)
}

// PollPolicy はセグメントごとのポーリング方針です。
type PollPolicy struct {
	Interval            time.Duration // ポーリング間隔
	Timeout             time.Duration // セグメントあたりの実時間上限
	MaxTransientRetries int           // 一時的な失敗の連続許容回数
}

// pollUntilDone はオペレーションの完了を待ち、認識テキストを返します。
//
// 固定間隔でポーリングし、実時間上限を超えたら TIMEOUT で打ち切ります。
// ネットワーク起因の一時的な失敗は連続 MaxTransientRetries 回まで許容し、
// 超えた場合も TIMEOUT として扱います。オペレーション自体の失敗は
// RECOGNITION_FAILED になります。キャンセルは各ティックで検出されます。
func pollUntilDone(ctx context.Context, rec Recognizer, operationID string, policy PollPolicy) (string, error) {
	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()
	deadline := time.NewTimer(policy.Timeout)
	defer deadline.Stop()

	transientFailures := 0
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", newError(CodeTimeout, "認識処理が制限時間内に完了しませんでした。", nil)
		case <-ticker.C:
			result, err := rec.Poll(ctx, operationID)
			if err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				if errors.Is(err, speechkit.ErrOperationFailed) {
					return "", newError(CodeRecognitionFailed, "音声認識に失敗しました。", err)
				}
				transientFailures++
				if transientFailures > policy.MaxTransientRetries {
					return "", newError(CodeTimeout, "認識状態の確認に連続で失敗しました。", err)
				}
				continue
			}
			transientFailures = 0
			if result.Done {
				return result.Text, nil
			}
		}
	}
}
