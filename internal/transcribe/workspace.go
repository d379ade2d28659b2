package transcribe

import (
	"fmt"
	"os"
	"path/filepath"
)

// workspace はジョブごとの作業ディレクトリ構成です。
// in/ に入力ファイル、parts/ に変換済みセグメント、out/ に成果物を置きます。
type workspace struct {
	jobID    string
	dir      string
	inDir    string
	partsDir string
	outDir   string
}

func (s *Service) workspaceFor(jobID string) workspace {
	dir := filepath.Join(s.baseDir, jobID)
	return workspace{
		jobID:    jobID,
		dir:      dir,
		inDir:    filepath.Join(dir, "in"),
		partsDir: filepath.Join(dir, "parts"),
		outDir:   filepath.Join(dir, "out"),
	}
}

func (s *Service) createWorkspace(jobID string) (workspace, error) {
	ws := s.workspaceFor(jobID)
	for _, dir := range []string{ws.inDir, ws.partsDir, ws.outDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return workspace{}, fmt.Errorf("failed to create workspace: %w", err)
		}
	}
	return ws, nil
}

func (w workspace) manifestPath() string {
	return filepath.Join(w.dir, manifestFilename)
}

func removeDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
