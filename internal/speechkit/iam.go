// Package speechkit はYandex SpeechKitの非同期認識APIクライアントを提供します。
package speechkit

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultIAMTokenURL = "https://iam.api.cloud.yandex.net/iam/v1/tokens"

	// IAMトークンは1時間有効で要求し、失効5分前に更新する
	tokenLifetime      = time.Hour
	tokenRefreshMargin = 5 * time.Minute
)

// TokenSource はAPI呼び出しに使う認証トークンを提供します。
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource は固定トークンを返す TokenSource です（開発・テスト用）。
type StaticTokenSource struct {
	Value string
}

// Token は固定トークンをそのまま返します。
func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	return s.Value, nil
}

// serviceAccountKey はサービスアカウントキーJSONの必要フィールドです。
type serviceAccountKey struct {
	ID               string `json:"id"`
	ServiceAccountID string `json:"service_account_id"`
	PrivateKey       string `json:"private_key"`
}

// IAMTokenSource はサービスアカウントキーからIAMトークンを取得・キャッシュします。
type IAMTokenSource struct {
	keyID            string
	serviceAccountID string
	privateKey       *rsa.PrivateKey
	tokenURL         string
	httpClient       *http.Client
	now              func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewIAMTokenSource はキーファイルを読み込んで IAMTokenSource を作成します。
// tokenURL が空の場合は既定のIAMエンドポイントを使用します。
func NewIAMTokenSource(keyFilePath, tokenURL string) (*IAMTokenSource, error) {
	data, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key file: %w", err)
	}
	return newIAMTokenSource(data, tokenURL)
}

func newIAMTokenSource(keyData []byte, tokenURL string) (*IAMTokenSource, error) {
	var key serviceAccountKey
	if err := json.Unmarshal(keyData, &key); err != nil {
		return nil, fmt.Errorf("invalid service account key: %w", err)
	}
	if key.ID == "" || key.ServiceAccountID == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("service account key is missing required fields")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("invalid private key in service account key: %w", err)
	}

	if tokenURL == "" {
		tokenURL = defaultIAMTokenURL
	}

	return &IAMTokenSource{
		keyID:            key.ID,
		serviceAccountID: key.ServiceAccountID,
		privateKey:       privateKey,
		tokenURL:         tokenURL,
		httpClient:       &http.Client{Timeout: 30 * time.Second},
		now:              time.Now,
	}, nil
}

// Token は有効なIAMトークンを返します。必要に応じて再取得します。
func (s *IAMTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expiresAt) {
		return s.token, nil
	}

	signed, err := s.signJWT()
	if err != nil {
		return "", err
	}

	token, err := s.exchange(ctx, signed)
	if err != nil {
		return "", err
	}

	s.token = token
	s.expiresAt = s.now().Add(tokenLifetime - tokenRefreshMargin)
	return s.token, nil
}

// Invalidate は次回の Token 呼び出しで強制的に再取得させます。
func (s *IAMTokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}

// signJWT はIAMトークン交換用のJWTを作成します。
func (s *IAMTokenSource) signJWT() (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"aud": s.tokenURL,
		"iss": s.serviceAccountID,
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodPS256, claims)
	token.Header["kid"] = s.keyID

	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

// exchange はJWTをIAMトークンへ交換します。
func (s *IAMTokenSource) exchange(ctx context.Context, signedJWT string) (string, error) {
	body, err := json.Marshal(map[string]string{"jwt": signedJWT})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("IAM token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("IAM token request failed: %d: %s", resp.StatusCode, payload)
	}

	var result struct {
		IAMToken string `json:"iamToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("invalid IAM token response: %w", err)
	}
	if result.IAMToken == "" {
		return "", fmt.Errorf("no iamToken in response")
	}
	return result.IAMToken, nil
}
