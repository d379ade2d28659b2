package speechkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrSubmission は認識リクエストの投入に失敗した場合のエラーです。
// クォータ超過・認証エラー・不正なリクエストなど、再試行しても無駄な失敗を表します。
var ErrSubmission = errors.New("recognition submit failed")

// ErrOperationFailed は認識オペレーション自体が失敗した場合のエラーです。
var ErrOperationFailed = errors.New("recognition operation failed")

// PollResult は1回のポーリング結果です。
type PollResult struct {
	Done bool   // オペレーションが完了したかどうか
	Text string // 完了時の認識テキスト
}

// ClientOptions は Client の接続設定です。
type ClientOptions struct {
	RecognizeEndpoint string // 例: https://transcribe.api.cloud.yandex.net
	OperationEndpoint string // 例: https://operation.api.cloud.yandex.net
	FolderID          string // Yandex CloudのフォルダID
	Language          string
	Model             string
	HTTPClient        *http.Client
}

// Client はYandex SpeechKitの非同期（deferred）認識クライアントです。
// 音声を投入してオペレーションIDを受け取り、完了をポーリングで確認します。
type Client struct {
	tokens       TokenSource
	recognizeURL string
	operationURL string
	folderID     string
	language     string
	model        string
	httpClient   *http.Client
}

// NewClient は Client を作成します。
func NewClient(tokens TokenSource, opts ClientOptions) *Client {
	if opts.RecognizeEndpoint == "" {
		opts.RecognizeEndpoint = "https://transcribe.api.cloud.yandex.net"
	}
	if opts.OperationEndpoint == "" {
		opts.OperationEndpoint = "https://operation.api.cloud.yandex.net"
	}
	if opts.Language == "" {
		opts.Language = "ru-RU"
	}
	if opts.Model == "" {
		opts.Model = "general"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &Client{
		tokens:       tokens,
		recognizeURL: strings.TrimRight(opts.RecognizeEndpoint, "/") + "/speech/stt/v2/longRunningRecognize",
		operationURL: strings.TrimRight(opts.OperationEndpoint, "/") + "/operations",
		folderID:     opts.FolderID,
		language:     opts.Language,
		model:        opts.Model,
		httpClient:   opts.HTTPClient,
	}
}

// Submit は音声URIを認識に投入し、オペレーションIDを返します。
func (c *Client) Submit(ctx context.Context, audioURI string) (string, error) {
	cfg := map[string]any{
		"specification": map[string]any{
			"languageCode":      c.language,
			"model":             c.model,
			"audioEncoding":     "OGG_OPUS",
			"sampleRateHertz":   48000,
			"audioChannelCount": 1,
		},
	}
	if c.folderID != "" {
		cfg["folderId"] = c.folderID
	}
	body := map[string]any{
		"config": cfg,
		"audio": map[string]any{
			"uri": audioURI,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.recognizeURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: status %d: %s", ErrSubmission, resp.StatusCode, detail)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: invalid response: %v", ErrSubmission, err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: no operation ID in response", ErrSubmission)
	}
	return result.ID, nil
}

// operationPayload はオペレーション照会レスポンスの必要部分です。
type operationPayload struct {
	Done  bool `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Response struct {
		Chunks []struct {
			Alternatives []struct {
				Text string `json:"text"`
			} `json:"alternatives"`
		} `json:"chunks"`
	} `json:"response"`
}

// Poll はオペレーションの状態を1回だけ照会します。
// 未完了なら Done=false、完了なら認識テキストを返します。
// ネットワーク起因の失敗は通常のエラー、オペレーション自体の失敗は
// ErrOperationFailed として区別されます。
func (c *Client) Poll(ctx context.Context, operationID string) (*PollResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.operationURL+"/"+operationID, nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("operation poll failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("operation poll failed: status %d: %s", resp.StatusCode, detail)
	}

	var payload operationPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("operation poll failed: invalid response: %w", err)
	}

	if payload.Error != nil {
		return nil, fmt.Errorf("%w: [%d] %s", ErrOperationFailed, payload.Error.Code, payload.Error.Message)
	}
	if !payload.Done {
		return &PollResult{Done: false}, nil
	}

	return &PollResult{Done: true, Text: extractText(&payload)}, nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// extractText は各チャンクの先頭候補を空白区切りで連結します。
func extractText(payload *operationPayload) string {
	texts := make([]string, 0, len(payload.Response.Chunks))
	for _, chunk := range payload.Response.Chunks {
		if len(chunk.Alternatives) > 0 && chunk.Alternatives[0].Text != "" {
			texts = append(texts, chunk.Alternatives[0].Text)
		}
	}
	return strings.Join(texts, " ")
}
