package transcribe

import (
	"os"
	"path/filepath"
	"strings"
)

const transcriptFilename = "transcript.txt"

// TranscriptFile は完了ジョブの成果物のメタ情報です。
type TranscriptFile struct {
	JobID    string
	Filename string // ダウンロード時に提示するファイル名
	Size     int64
}

// OpenTranscript は完了ジョブの文字起こし結果を開きます。
// 呼び出し側がファイルを閉じる責任を持ちます。
func (s *Service) OpenTranscript(jobID string) (*TranscriptFile, *os.File, error) {
	ws := s.workspaceFor(jobID)

	manifest, err := loadManifest(ws)
	if err != nil {
		return nil, nil, err
	}

	outputPath := filepath.Join(ws.outDir, transcriptFilename)
	file, err := os.Open(outputPath)
	if err != nil {
		return nil, nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	return &TranscriptFile{
		JobID:    jobID,
		Filename: downloadName(manifest.SourceName),
		Size:     info.Size(),
	}, file, nil
}

// downloadName は元ファイル名の拡張子を .txt に置き換えます。
func downloadName(sourceName string) string {
	base := strings.TrimSuffix(sourceName, filepath.Ext(sourceName))
	if base == "" {
		base = "transcript"
	}
	return base + ".txt"
}
