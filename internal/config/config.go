// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// アップロード設定
	MaxUploadSizeBytes int64  // 受け付ける入力ファイルの最大サイズ（バイト）
	TmpDir             string // ジョブ作業ディレクトリのルート

	// ジョブ/キュー設定
	QueueRedisURL    string // Asynq・ジョブ記録用Redis接続URL
	WorkerPoolSize   int    // 同時に処理するジョブ数（WorkerSlot数）
	JobExpireMinutes int    // ジョブ記録の有効期限（分）

	// 分割ポリシー
	MaxSegmentDurationSeconds int   // 1セグメントの最大長（秒）
	MaxSegmentSizeBytes       int64 // 1セグメントの最大サイズ（バイト）

	// ポーリング設定
	PollIntervalSeconds     int // 認識オペレーションのポーリング間隔（秒）
	PollTimeoutSeconds      int // 1セグメントあたりのポーリング打ち切り時間（秒）
	PollMaxTransientRetries int // 一時的なポーリング失敗の連続許容回数

	// 音声ストレージ設定
	AudioStoreDir     string // ローカルストレージの保存先ディレクトリ
	AudioStoreBaseURL string // 認識バックエンドがアクセスするための公開ベースURL

	// SpeechKit設定
	SpeechKitAPIEndpoint    string  // longRunningRecognize のエンドポイント
	OperationAPIEndpoint    string  // オペレーション照会のエンドポイント
	YCFolderID              string  // Yandex CloudのフォルダID
	YCServiceAccountKeyFile string  // サービスアカウントキーのJSONファイルパス
	RecognitionLanguage     string  // 認識言語コード
	RecognitionModel        string  // 認識モデル名
	CostPerSecond           float64 // 認識コストの秒単価

	// 外部コマンド設定
	FFmpegPath  string // ffmpeg実行ファイルのパス
	FFprobePath string // ffprobe実行ファイルのパス
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// アップロード設定
		MaxUploadSizeBytes: getEnvAsInt64("MAX_UPLOAD_SIZE_BYTES", 2147483648), // 2GB
		TmpDir:             getEnv("TMP_DIR", "/tmp/voice-forge"),

		// ジョブ/キュー設定
		QueueRedisURL:    getEnv("QUEUE_REDIS_URL", "redis://127.0.0.1:6379/0"),
		WorkerPoolSize:   getEnvAsInt("WORKER_POOL_SIZE", 3),
		JobExpireMinutes: getEnvAsInt("JOB_EXPIRE_MINUTES", 1440), // 24時間

		// 分割ポリシー
		MaxSegmentDurationSeconds: getEnvAsInt("MAX_SEGMENT_DURATION_SECONDS", 14400),    // 4時間
		MaxSegmentSizeBytes:       getEnvAsInt64("MAX_SEGMENT_SIZE_BYTES", 1073741824), // 1GB

		// ポーリング設定
		PollIntervalSeconds:     getEnvAsInt("POLL_INTERVAL_SECONDS", 5),
		PollTimeoutSeconds:      getEnvAsInt("POLL_TIMEOUT_SECONDS", 1800), // 30分
		PollMaxTransientRetries: getEnvAsInt("POLL_MAX_TRANSIENT_RETRIES", 3),

		// 音声ストレージ設定
		AudioStoreDir:     getEnv("AUDIO_STORE_DIR", "/tmp/voice-forge-store"),
		AudioStoreBaseURL: getEnv("AUDIO_STORE_BASE_URL", "http://localhost:8080/audio"),

		// SpeechKit設定
		SpeechKitAPIEndpoint:    getEnv("SPEECHKIT_API_ENDPOINT", "https://transcribe.api.cloud.yandex.net"),
		OperationAPIEndpoint:    getEnv("OPERATION_API_ENDPOINT", "https://operation.api.cloud.yandex.net"),
		YCFolderID:              getEnv("YC_FOLDER_ID", ""),
		YCServiceAccountKeyFile: getEnv("YC_SERVICE_ACCOUNT_KEY_FILE", ""),
		RecognitionLanguage:     getEnv("RECOGNITION_LANGUAGE", "ru-RU"),
		RecognitionModel:        getEnv("RECOGNITION_MODEL", "general"),
		CostPerSecond:           getEnvAsFloat64("COST_PER_SECOND", 0.002542),

		// 外部コマンド設定
		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),
	}

	// 設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	// 数値系の設定はモードに関わらず起動時に検証する
	if c.MaxSegmentDurationSeconds <= 0 {
		return fmt.Errorf("MAX_SEGMENT_DURATION_SECONDS must be positive")
	}
	if c.MaxSegmentSizeBytes <= 0 {
		return fmt.Errorf("MAX_SEGMENT_SIZE_BYTES must be positive")
	}
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if c.PollTimeoutSeconds <= 0 {
		return fmt.Errorf("POLL_TIMEOUT_SECONDS must be positive")
	}
	if c.PollMaxTransientRetries < 0 {
		return fmt.Errorf("POLL_MAX_TRANSIENT_RETRIES must not be negative")
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be at least 1")
	}
	if c.MaxUploadSizeBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE_BYTES must be positive")
	}
	if c.CostPerSecond < 0 {
		return fmt.Errorf("COST_PER_SECOND must not be negative")
	}

	// 本番環境では外部サービスの設定を厳格にチェックする
	if c.GinMode == "release" {
		if c.QueueRedisURL == "" {
			return fmt.Errorf("QUEUE_REDIS_URL is required in release mode")
		}
		if c.YCFolderID == "" {
			return fmt.Errorf("YC_FOLDER_ID is required in release mode")
		}
		if c.YCServiceAccountKeyFile == "" {
			return fmt.Errorf("YC_SERVICE_ACCOUNT_KEY_FILE is required in release mode")
		}
		if _, err := os.Stat(c.YCServiceAccountKeyFile); err != nil {
			return fmt.Errorf("service account key file not found: %s", c.YCServiceAccountKeyFile)
		}
		if c.AudioStoreBaseURL == "" {
			return fmt.Errorf("AUDIO_STORE_BASE_URL is required in release mode")
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsInt64 は環境変数を64ビット整数として取得します。
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat64 は環境変数を浮動小数点数として取得します。
func getEnvAsFloat64(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
