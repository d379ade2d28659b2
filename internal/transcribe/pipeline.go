package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/yourusername/voice-forge/internal/config"
	"github.com/yourusername/voice-forge/internal/media"
	"github.com/yourusername/voice-forge/internal/storage"
)

// 進捗通知に使うステージ名。ジョブ記録側でジョブ状態へ対応付けられます。
const (
	StageProbe     = "probe"
	StageSegment   = "segment"
	StageTranscode = "transcode"
	StageRecognize = "recognize"
	StageAggregate = "aggregate"
)

// blobCleanupTimeout はジョブキャンセル後もリモート音声の削除を
// 完遂させるための猶予時間です。
const blobCleanupTimeout = 30 * time.Second

// MediaProber は入力ファイルの検査を提供します。
type MediaProber interface {
	Probe(ctx context.Context, path string) (*media.ProbeResult, error)
}

// MediaTranscoder は音声の抽出と正規化フォーマットへの変換を提供します。
type MediaTranscoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, startOffset, duration float64) error
}

// Service は文字起こしパイプライン全体を実行するサービスです。
type Service struct {
	baseDir       string
	prober        MediaProber
	transcoder    MediaTranscoder
	recognizer    Recognizer
	blobs         storage.BlobStore
	policy        Policy
	pollPolicy    PollPolicy
	costPerSecond float64
	logger        *log.Logger
}

// NewService は Service を作成します。
func NewService(
	cfg *config.Config,
	prober MediaProber,
	transcoder MediaTranscoder,
	recognizer Recognizer,
	blobs storage.BlobStore,
	logger *log.Logger,
) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if prober == nil || transcoder == nil || recognizer == nil || blobs == nil {
		return nil, fmt.Errorf("all pipeline dependencies must be provided")
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		baseDir:    cfg.TmpDir,
		prober:     prober,
		transcoder: transcoder,
		recognizer: recognizer,
		blobs:      blobs,
		policy: Policy{
			MaxDurationSeconds: float64(cfg.MaxSegmentDurationSeconds),
			MaxSizeBytes:       cfg.MaxSegmentSizeBytes,
		},
		pollPolicy: PollPolicy{
			Interval:            time.Duration(cfg.PollIntervalSeconds) * time.Second,
			Timeout:             time.Duration(cfg.PollTimeoutSeconds) * time.Second,
			MaxTransientRetries: cfg.PollMaxTransientRetries,
		},
		costPerSecond: cfg.CostPerSecond,
		logger:        logger,
	}, nil
}

// RunJob は受理済みジョブを最後まで実行し、成果を返します。
//
// 流れ: 検査 → 分割計画 → セグメントごとに変換・投入・ポーリング →
// 集約 → 成果物の書き出し。セグメント単位の失敗はジョブを止めず、
// 全セグメントが失敗した場合のみ ALL_SEGMENTS_FAILED を返します。
// エラー終了時はワークスペースごと削除されます。
func (s *Service) RunJob(ctx context.Context, jobID string, progress ProgressReporter, segmentsCb SegmentReporter) (result *Result, err error) {
	ws := s.workspaceFor(jobID)
	defer func() {
		if err == nil {
			return
		}
		if rmErr := removeDir(ws.dir); rmErr != nil {
			s.logger.Printf("job %s: workspace cleanup failed: %v", jobID, rmErr)
		}
	}()

	manifest, err := loadManifest(ws)
	if err != nil {
		return nil, newError(CodeInternal, "ジョブ情報の読み込みに失敗しました。", err)
	}
	sourcePath := filepath.Join(ws.inDir, manifest.SourceFile)

	reportProgress(progress, StageProbe, 5)
	probe, err := s.prober.Probe(ctx, sourcePath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newError(CodeCanceled, "処理がキャンセルされました。", ctx.Err())
		}
		return nil, newError(CodeUnreadableMedia, "入力ファイルを解析できませんでした。", err)
	}

	reportProgress(progress, StageSegment, 10)
	segments := Plan(probe.DurationSeconds, probe.SizeBytes, s.policy)
	reportSegments(segmentsCb, segments)
	s.logger.Printf("job %s: %s (%.1fs, %d bytes) split into %d segment(s)",
		jobID, manifest.SourceName, probe.DurationSeconds, probe.SizeBytes, len(segments))

	// セグメント状態の更新と進捗通知は mu で直列化する
	var mu sync.Mutex
	completed := 0
	update := func(mutate func()) {
		mu.Lock()
		mutate()
		reportSegments(segmentsCb, segments)
		mu.Unlock()
	}
	advance := func() {
		mu.Lock()
		completed++
		reportProgress(progress, StageRecognize, 15+completed*75/len(segments))
		mu.Unlock()
	}

	reportProgress(progress, StageTranscode, 15)
	var wg sync.WaitGroup
	for i := range segments {
		wg.Add(1)
		go func(seg *Segment) {
			defer wg.Done()
			defer advance()
			s.runSegment(ctx, ws, sourcePath, seg, update)
		}(&segments[i])
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, newError(CodeCanceled, "処理がキャンセルされました。", ctx.Err())
	}

	reportProgress(progress, StageAggregate, 92)
	outcome := Aggregate(segments, s.costPerSecond)
	if len(outcome.FailedSegments) == len(segments) {
		return nil, newError(CodeAllSegmentsFailed, "すべてのセグメントで認識に失敗しました。", nil)
	}

	outputPath := filepath.Join(ws.outDir, transcriptFilename)
	if err := os.WriteFile(outputPath, []byte(outcome.Transcript), 0o644); err != nil {
		return nil, newError(CodeInternal, "結果の書き出しに失敗しました。", err)
	}

	// 入力と中間ファイルは成果物確定後に不要
	if rmErr := removeDir(ws.inDir); rmErr != nil {
		s.logger.Printf("job %s: input cleanup failed: %v", jobID, rmErr)
	}
	if rmErr := removeDir(ws.partsDir); rmErr != nil {
		s.logger.Printf("job %s: parts cleanup failed: %v", jobID, rmErr)
	}

	reportProgress(progress, StageAggregate, 100)
	return &Result{
		JobID:           jobID,
		Transcript:      outcome.Transcript,
		OutputPath:      outputPath,
		OutputSize:      int64(len(outcome.Transcript)),
		DurationSeconds: probe.DurationSeconds,
		BilledSeconds:   outcome.BilledSeconds,
		Cost:            outcome.Cost,
		Partial:         outcome.Partial,
		FailedSegments:  outcome.FailedSegments,
		Segments:        segments,
	}, nil
}

// runSegment は1セグメント分の変換・投入・ポーリングを実行します。
// 失敗はセグメント状態へ記録するだけで、エラーは返しません。
func (s *Service) runSegment(ctx context.Context, ws workspace, sourcePath string, seg *Segment, update func(func())) {
	fail := func(code string) {
		update(func() {
			seg.Status = SegmentFailed
			seg.ErrorCode = code
		})
	}

	partName := fmt.Sprintf("part_%03d.ogg", seg.Index)
	partPath := filepath.Join(ws.partsDir, partName)
	if err := s.transcoder.Transcode(ctx, sourcePath, partPath, seg.StartOffset, seg.Duration); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Printf("job %s: segment %d transcode failed: %v", ws.jobID, seg.Index, err)
		fail(CodeTranscodeError)
		return
	}

	key := path.Join("jobs", ws.jobID, partName)
	audioURI, err := s.blobs.Upload(ctx, partPath, key)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Printf("job %s: segment %d upload failed: %v", ws.jobID, seg.Index, err)
		fail(CodeSubmissionError)
		return
	}
	defer func() {
		// キャンセル後でも削除を完遂させるため親コンテキストは使わない
		cleanupCtx, cancel := context.WithTimeout(context.Background(), blobCleanupTimeout)
		defer cancel()
		if delErr := s.blobs.Delete(cleanupCtx, key); delErr != nil {
			s.logger.Printf("job %s: segment %d blob cleanup failed: %v", ws.jobID, seg.Index, delErr)
		}
	}()
	// 変換済みファイルはアップロード後にローカルでは不要
	_ = os.Remove(partPath)

	operationID, err := s.recognizer.Submit(ctx, audioURI)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Printf("job %s: segment %d submit failed: %v", ws.jobID, seg.Index, err)
		fail(CodeSubmissionError)
		return
	}
	update(func() {
		seg.OperationID = operationID
		seg.Status = SegmentSubmitted
	})

	update(func() {
		seg.Status = SegmentPolling
	})
	text, err := pollUntilDone(ctx, s.recognizer, operationID, s.pollPolicy)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		code := CodeInternal
		var terr *Error
		if errors.As(err, &terr) {
			code = terr.Code
		}
		s.logger.Printf("job %s: segment %d recognition failed: %v", ws.jobID, seg.Index, err)
		fail(code)
		return
	}

	update(func() {
		seg.Text = text
		seg.Status = SegmentDone
	})
}

// DiscardJob はジョブのワークスペースを破棄します。
// 投入に失敗したジョブの後始末に使われます。
func (s *Service) DiscardJob(jobID string) error {
	return removeDir(s.workspaceFor(jobID).dir)
}
