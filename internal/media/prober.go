package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// ProbeResult は入力ファイルの検査結果です。
type ProbeResult struct {
	DurationSeconds float64 // 再生時間（秒）
	SizeBytes       int64   // ファイルサイズ（バイト）
	HasVideoTrack   bool    // 動画トラックを含むかどうか
}

// Prober はFFprobeで入力ファイルを検査します。
type Prober struct {
	ffprobePath string
}

// NewProber は Prober を作成します。
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// Probe は再生時間・サイズ・動画トラックの有無を取得します。
// コンテナを解析できない場合は ErrUnreadable を返します。
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	output, err := runCommand(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	duration, hasVideo, err := parseProbeOutput(output)
	if err != nil {
		return nil, err
	}

	return &ProbeResult{
		DurationSeconds: duration,
		SizeBytes:       info.Size(),
		HasVideoTrack:   hasVideo,
	}, nil
}

// probePayload はffprobeのJSON出力のうち必要な部分だけを表します。
type probePayload struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

// parseProbeOutput はffprobeのJSON出力から再生時間と動画トラックの有無を取り出します。
func parseProbeOutput(output []byte) (float64, bool, error) {
	var payload probePayload
	if err := json.Unmarshal(output, &payload); err != nil {
		return 0, false, fmt.Errorf("%w: invalid ffprobe output: %v", ErrUnreadable, err)
	}

	duration, err := strconv.ParseFloat(payload.Format.Duration, 64)
	if err != nil || duration <= 0 {
		return 0, false, fmt.Errorf("%w: could not determine duration", ErrUnreadable)
	}

	hasVideo := false
	for _, stream := range payload.Streams {
		if stream.CodecType == "video" {
			hasVideo = true
			break
		}
	}
	return duration, hasVideo, nil
}
