// Package storage は認識バックエンドが参照する音声ファイルの置き場を抽象化します。
package storage

import "context"

// BlobStore は音声ファイルの保存・削除を提供するインターフェースです。
// 認識バックエンドは Upload が返すURIを通じてファイルへアクセスします。
type BlobStore interface {
	// Upload はローカルファイルを key の位置に保存し、公開URIを返します。
	Upload(ctx context.Context, localPath string, key string) (string, error)
	// Delete は key の位置のファイルを削除します。存在しない場合もエラーにしません。
	Delete(ctx context.Context, key string) error
}
