package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/yourusername/voice-forge/internal/config"
	"github.com/yourusername/voice-forge/internal/transcribe"
)

const (
	taskTypeTranscribe = "transcription:process"
	queueName          = "transcribe"
)

// Pipeline はワーカーが実行する文字起こし処理です。
type Pipeline interface {
	RunJob(ctx context.Context, jobID string, progress transcribe.ProgressReporter, segments transcribe.SegmentReporter) (*transcribe.Result, error)
	DiscardJob(jobID string) error
}

// TaskPayload は文字起こしジョブのペイロードです。
type TaskPayload struct {
	JobID string `json:"jobId"`
}

// Manager はジョブの投入・実行・キャンセルと状態管理を担います。
type Manager struct {
	cfg      *config.Config
	client   *asynq.Client
	server   *asynq.Server
	mux      *asynq.ServeMux
	store    Store
	pipeline Pipeline
	slots    *SlotPool
	logger   *log.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewManager は Manager を初期化します。
func NewManager(cfg *config.Config, pipeline Pipeline, store Store, logger *log.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if pipeline == nil {
		return nil, errors.New("pipeline is nil")
	}
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	opt, err := asynq.ParseRedisURI(cfg.QueueRedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(
		opt,
		asynq.Config{
			// ハンドラ数とスロット数を一致させ、取得待ちでキューが
			// 詰まらないようにする
			Concurrency: cfg.WorkerPoolSize,
			Queues: map[string]int{
				queueName: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	manager := &Manager{
		cfg:      cfg,
		client:   client,
		server:   server,
		mux:      mux,
		store:    store,
		pipeline: pipeline,
		slots:    NewSlotPool(cfg.WorkerPoolSize),
		logger:   logger,
		cancels:  make(map[string]context.CancelFunc),
	}
	mux.HandleFunc(taskTypeTranscribe, manager.handleTranscribeTask)
	return manager, nil
}

// StartWorkers は Asynq サーバーをバックグラウンドで起動します。
func (m *Manager) StartWorkers() {
	go func() {
		if err := m.server.Run(m.mux); err != nil && err != asynq.ErrServerClosed {
			m.logger.Printf("asynq server stopped with error: %v", err)
		}
	}()
}

// Shutdown はサーバーとクライアントを閉じます。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.server.Shutdown()
	m.client.Close()
	return nil
}

// Schedule は受理済みジョブをキューに投入します。
// 投入順がそのまま実行開始の順になります（先入れ先出し）。
func (m *Manager) Schedule(ctx context.Context, manifest *transcribe.JobManifest) error {
	if manifest == nil {
		return fmt.Errorf("manifest is nil")
	}
	if manifest.JobID == "" {
		return fmt.Errorf("manifest.JobID is required")
	}

	record := &Record{
		JobID:      manifest.JobID,
		Owner:      manifest.Owner,
		SourceName: manifest.SourceName,
		Status:     StatusQueued,
		Progress: ProgressInfo{
			Percent: 0,
			Stage:   "queued",
		},
	}
	if err := m.store.Upsert(ctx, record); err != nil {
		return err
	}

	body, err := json.Marshal(&TaskPayload{JobID: manifest.JobID})
	if err != nil {
		return err
	}

	// 失敗したジョブの自動再実行はしない
	task := asynq.NewTask(taskTypeTranscribe, body, asynq.Queue(queueName))
	if _, err := m.client.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return err
	}
	return nil
}

// Cancel はジョブのキャンセルを要求します。実行中のジョブは処理を
// 打ち切り、キュー待ちのジョブは取り出し時に破棄されます。
// キャンセルが受理された場合に true を返し、終端状態のジョブには
// 何もしません。
func (m *Manager) Cancel(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	cancel, running := m.cancels[jobID]
	m.mu.Unlock()
	if running {
		cancel()
		return true, nil
	}

	record, err := m.store.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, fmt.Errorf("job not found: %s", jobID)
	}
	if record.Status.Terminal() {
		return false, nil
	}
	if err := m.store.MarkCanceled(ctx, jobID); err != nil {
		return false, err
	}
	return true, nil
}

// GetRecord はジョブ情報を取得します。存在しない場合は (nil, nil) を返します。
func (m *Manager) GetRecord(ctx context.Context, jobID string) (*Record, error) {
	return m.store.Get(ctx, jobID)
}

func (m *Manager) handleTranscribeTask(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	if payload.JobID == "" {
		return fmt.Errorf("missing jobId in payload")
	}
	jobID := payload.JobID

	record, err := m.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("job record not found: %s", jobID)
	}
	if record.Status == StatusCanceled {
		// キュー待ちの間にキャンセルされたジョブは実行せず破棄する
		if err := m.pipeline.DiscardJob(jobID); err != nil {
			m.logger.Printf("failed to discard canceled job %s: %v", jobID, err)
		}
		return nil
	}

	if err := m.slots.Acquire(ctx); err != nil {
		return err
	}
	defer m.slots.Release()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.registerCancel(jobID, cancel)
	defer m.unregisterCancel(jobID)

	result, err := m.pipeline.RunJob(runCtx, jobID,
		func(stage string, percent int) {
			if err := m.store.UpdateProgress(ctx, jobID, statusForStage(stage), ProgressInfo{
				Percent: percent,
				Stage:   stage,
			}); err != nil {
				m.logger.Printf("failed to update progress job=%s: %v", jobID, err)
			}
		},
		func(segments []transcribe.Segment) {
			if err := m.store.SetSegments(ctx, jobID, segmentInfos(segments)); err != nil {
				m.logger.Printf("failed to update segments job=%s: %v", jobID, err)
			}
		},
	)
	if err != nil {
		if runCtx.Err() != nil || isCode(err, transcribe.CodeCanceled) {
			return m.store.MarkCanceled(ctx, jobID)
		}
		return m.failJobWithError(ctx, jobID, err)
	}
	return m.finishJob(ctx, jobID, result)
}

func (m *Manager) registerCancel(jobID string, cancel context.CancelFunc) {
	m.mu.Lock()
	m.cancels[jobID] = cancel
	m.mu.Unlock()
}

func (m *Manager) unregisterCancel(jobID string) {
	m.mu.Lock()
	delete(m.cancels, jobID)
	m.mu.Unlock()
}

func (m *Manager) finishJob(ctx context.Context, jobID string, result *transcribe.Result) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	return m.store.MarkDone(ctx, jobID, &ResultInfo{
		DownloadURL:     fmt.Sprintf("/api/transcriptions/%s/result", jobID),
		OutputSize:      result.OutputSize,
		DurationSeconds: result.DurationSeconds,
		BilledSeconds:   result.BilledSeconds,
		Cost:            result.Cost,
		Partial:         result.Partial,
		FailedSegments:  result.FailedSegments,
	})
}

func (m *Manager) failJobWithError(ctx context.Context, jobID string, err error) error {
	var terr *transcribe.Error
	if errors.As(err, &terr) {
		return m.store.MarkFailed(ctx, jobID, &ErrorInfo{
			Code:    terr.Code,
			Message: terr.Message,
		})
	}
	return m.store.MarkFailed(ctx, jobID, &ErrorInfo{
		Code:    transcribe.CodeInternal,
		Message: err.Error(),
	})
}

// statusForStage はパイプラインのステージ名をジョブ状態へ対応付けます。
// 未知のステージでは状態を変更しません。
func statusForStage(stage string) Status {
	switch stage {
	case transcribe.StageProbe:
		return StatusProbing
	case transcribe.StageSegment:
		return StatusSegmenting
	case transcribe.StageTranscode:
		return StatusTranscoding
	case transcribe.StageRecognize:
		return StatusRecognizing
	case transcribe.StageAggregate:
		return StatusAggregating
	}
	return ""
}

func segmentInfos(segments []transcribe.Segment) []SegmentInfo {
	infos := make([]SegmentInfo, len(segments))
	for i, seg := range segments {
		infos[i] = SegmentInfo{
			Index:       seg.Index,
			Status:      string(seg.Status),
			OperationID: seg.OperationID,
			ErrorCode:   seg.ErrorCode,
		}
	}
	return infos
}

func isCode(err error, code string) bool {
	var terr *transcribe.Error
	return errors.As(err, &terr) && terr.Code == code
}
