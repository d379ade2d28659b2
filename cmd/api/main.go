// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/voice-forge/internal/config"
	"github.com/yourusername/voice-forge/internal/jobs"
	"github.com/yourusername/voice-forge/internal/media"
	"github.com/yourusername/voice-forge/internal/speechkit"
	"github.com/yourusername/voice-forge/internal/storage"
	"github.com/yourusername/voice-forge/internal/transcribe"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowOrigins = origins
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"Authorization",
	}
	router.Use(cors.New(corsConfig))

	// 音声ストアを静的配信し、認識バックエンドがセグメント音声を
	// 取得できるようにする
	if err := os.MkdirAll(cfg.AudioStoreDir, 0o755); err != nil {
		log.Fatalf("Failed to create audio store dir: %v", err)
	}
	router.Static("/audio", cfg.AudioStoreDir)

	service, err := buildTranscribeService(cfg)
	if err != nil {
		log.Fatalf("Failed to build transcribe service: %v", err)
	}

	manager, err := setupJobs(cfg, service)
	if err != nil {
		log.Fatalf("Failed to setup jobs: %v", err)
	}
	manager.StartWorkers()

	// ルーティングの設定
	setupRoutes(router, cfg, service, manager)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildTranscribeService はパイプラインの依存をまとめて構築します。
func buildTranscribeService(cfg *config.Config) (*transcribe.Service, error) {
	var tokens speechkit.TokenSource
	if cfg.YCServiceAccountKeyFile != "" {
		source, err := speechkit.NewIAMTokenSource(cfg.YCServiceAccountKeyFile, "")
		if err != nil {
			return nil, err
		}
		tokens = source
	} else {
		// キー未設定の開発環境では環境変数のIAMトークンをそのまま使う
		tokens = &speechkit.StaticTokenSource{Value: os.Getenv("YC_IAM_TOKEN")}
	}

	client := speechkit.NewClient(tokens, speechkit.ClientOptions{
		RecognizeEndpoint: cfg.SpeechKitAPIEndpoint,
		OperationEndpoint: cfg.OperationAPIEndpoint,
		FolderID:          cfg.YCFolderID,
		Language:          cfg.RecognitionLanguage,
		Model:             cfg.RecognitionModel,
	})

	blobs := storage.NewLocal(cfg.AudioStoreDir, cfg.AudioStoreBaseURL)

	return transcribe.NewService(
		cfg,
		media.NewProber(cfg.FFprobePath),
		media.NewTranscoder(cfg.FFmpegPath),
		client,
		blobs,
		log.Default(),
	)
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "voice-forge-api",
		"version": "0.1.0",
	})
}

// setupRoutes は API グループの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, service *transcribe.Service, manager *jobs.Manager) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	api := router.Group("/api")
	{
		transcriptions := api.Group("/transcriptions")
		{
			transcriptions.POST("", transcribe.SubmitHandler(service, manager, cfg.MaxUploadSizeBytes))
			transcriptions.GET("/:id", jobStatusHandler(manager))
			transcriptions.POST("/:id/cancel", jobCancelHandler(manager))
			transcriptions.GET("/:id/result", jobResultHandler(manager, service))
		}
	}
}
