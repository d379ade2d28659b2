package transcribe

import (
	"encoding/json"
	"fmt"
	"os"
)

const manifestFilename = "job.json"

// writeManifest はマニフェストをワークスペース直下に保存します。
func writeManifest(ws workspace, m *JobManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(ws.manifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// loadManifest はワークスペースからマニフェストを読み戻します。
func loadManifest(ws workspace) (*JobManifest, error) {
	data, err := os.ReadFile(ws.manifestPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m JobManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}
