package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore は Store のインメモリ実装です。
// Redis を用意できないテストで使います。
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Get はジョブ情報を取得します。存在しない場合は (nil, nil) を返します。
func (s *MemoryStore) Get(ctx context.Context, jobID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[jobID]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

// Upsert はジョブ情報を保存します。
func (s *MemoryStore) Upsert(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	clone := *record
	s.records[record.JobID] = &clone
	return nil
}

// UpdateProgress は状態と進捗を更新します。
func (s *MemoryStore) UpdateProgress(ctx context.Context, jobID string, status Status, progress ProgressInfo) error {
	return s.updatePartial(jobID, func(record *Record) bool {
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
func (s *MemoryStore) SetSegments(ctx context.Context, jobID string, segments []SegmentInfo) error {
	return s.updatePartial(jobID, func(record *Record) bool {
		if record.Status.Terminal() {
			return false
		}
		record.Segments = segments
		return true
	})
}

// MarkDone はジョブ完了時の情報を保存します。
func (s *MemoryStore) MarkDone(ctx context.Context, jobID string, result *ResultInfo) error {
	return s.updatePartial(jobID, func(record *Record) bool {
		if record.Status.Terminal() {
			return false
		}
		record.Status = StatusSucceeded
		record.Progress = ProgressInfo{Percent: 100, Stage: "completed"}
		record.Result = result
		record.Error = nil
		return true
	})
}

// MarkFailed はジョブ失敗時の情報を保存します。
func (s *MemoryStore) MarkFailed(ctx context.Context, jobID string, errInfo *ErrorInfo) error {
	return s.updatePartial(jobID, func(record *Record) bool {
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
func (s *MemoryStore) MarkCanceled(ctx context.Context, jobID string) error {
	return s.updatePartial(jobID, func(record *Record) bool {
		if record.Status.Terminal() {
			return false
		}
		record.Status = StatusCanceled
		record.Progress.Stage = "canceled"
		return true
	})
}

func (s *MemoryStore) updatePartial(jobID string, mutate func(*Record) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if !mutate(record) {
		return nil
	}
	record.UpdatedAt = time.Now().UTC()
	return nil
}
