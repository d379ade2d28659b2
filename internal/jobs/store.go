package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix = "job:"
)

// Store はジョブ記録の保存先です。Get は存在しないジョブに対して
// (nil, nil) を返します。終端状態に達した記録はそれ以降の
// 更新系呼び出しで変化しません。
type Store interface {
	Get(ctx context.Context, jobID string) (*Record, error)
	Upsert(ctx context.Context, record *Record) error
	UpdateProgress(ctx context.Context, jobID string, status Status, progress ProgressInfo) error
	SetSegments(ctx context.Context, jobID string, segments []SegmentInfo) error
	MarkDone(ctx context.Context, jobID string, result *ResultInfo) error
	MarkFailed(ctx context.Context, jobID string, errInfo *ErrorInfo) error
	MarkCanceled(ctx context.Context, jobID string) error
}

// RedisStore はジョブ記録を Redis に保存します。
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore は RedisStore を作成します。
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get はジョブ情報を取得します。
func (s *RedisStore) Get(ctx context.Context, jobID string) (*Record, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	data, err := s.rdb.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert はジョブ情報を保存します（存在しない場合は作成）。
func (s *RedisStore) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.ExpiresAt.IsZero() && s.ttl > 0 {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, jobKey(record.JobID), payload, s.ttl).Err()
}

// UpdateProgress は状態と進捗を更新します。status が空の場合は
// 現在の状態を維持します。
func (s *RedisStore) UpdateProgress(ctx context.Context, jobID string, status Status, progress ProgressInfo) error {
	return s.updatePartial(ctx, jobID, func(record *Record) bool {
		if record.Status.Terminal() {
			return false
		}
		if status != "" {
			record.Status = status
		}
		record.Progress = progress
		return true
	})
}

// SetSegments はセグメント状態のスナップショットを保存します。
func (s *RedisStore) SetSegments(ctx context.Context, jobID string, segments []SegmentInfo) error {
	return s.updatePartial(ctx, jobID, func(record *Record) bool {
		if record.Status.Terminal() {
			return false
		}
		record.Segments = segments
		return true
	})
}

// MarkDone はジョブ完了時の情報を保存します。
func (s *RedisStore) MarkDone(ctx context.Context, jobID string, result *ResultInfo) error {
	return s.updatePartial(ctx, jobID, func(record *Record) bool {
		if record.Status.Terminal() {
			return false
		}
		record.Status = StatusSucceeded
		record.Progress = ProgressInfo{
			Percent: 100,
			Stage:   "completed",
		}
		record.Result = result
		record.Error = nil
		return true
	})
}

// MarkFailed はジョブ失敗時の情報を保存します。
func (s *RedisStore) MarkFailed(ctx context.Context, jobID string, errInfo *ErrorInfo) error {
	return s.updatePartial(ctx, jobID, func(record *Record) bool {
		if record.Status.Terminal() {
			return false
		}
		record.Status = StatusFailed
		if errInfo != nil {
			record.Error = errInfo
		}
		return true
	})
}

// MarkCanceled はジョブをキャンセル済みにします。
// 終端状態のジョブには何もしません。
func (s *RedisStore) MarkCanceled(ctx context.Context, jobID string) error {
	return s.updatePartial(ctx, jobID, func(record *Record) bool {
		if record.Status.Terminal() {
			return false
		}
		record.Status = StatusCanceled
		record.Progress.Stage = "canceled"
		return true
	})
}

func (s *RedisStore) updatePartial(ctx context.Context, jobID string, mutate func(*Record) bool) error {
	key := jobKey(jobID)
	for {
		tx := s.rdb.TxPipeline()
		data, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return fmt.Errorf("job not found: %s", jobID)
			}
			return err
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		if !mutate(&record) {
			return nil
		}
		record.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		tx.Set(ctx, key, payload, s.ttl)
		_, err = tx.Exec(ctx)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}
