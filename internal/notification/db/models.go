// Package db は通知ストアのデータアクセス層を提供する。
// sqlc生成コードと同じ形式（Queries構造体とParams構造体）で記述している。
package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX はトランザクションと素の接続の両方を受け付けるインタフェース。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries はクエリ実行オブジェクト。
type Queries struct {
	db DBTX
}

// New は新しいクエリ実行オブジェクトを生成する。
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Notification はnotificationsテーブルの1行。
// 作成後に変更されるのはIsReadとDeliveredAtのみ。
type Notification struct {
	// ID は通知の一意識別子（UUID）。
	ID string
	// Type は通知の種類（イベント種類と同じ語彙）。
	Type string
	// Title は通知のタイトル。
	Title string
	// Message は通知メッセージ。
	Message string
	// RecipientID は宛先。user種別ではユーザーID、role種別では役割名、
	// broadcast種別では空文字列。
	RecipientID string
	// RecipientKind は宛先種別（user / role / broadcast）。
	RecipientKind string
	// RelatedEntityID は関連エンティティへの参照（所有ではなく参照のみ）。
	RelatedEntityID sql.NullString
	// Metadata は通知種類ごとの付加情報（JSON文字列）。
	Metadata sql.NullString
	// IsRead は既読状態（0 / 1）。
	IsRead int64
	// CreatedAt は通知の作成日時。
	CreatedAt time.Time
	// DeliveredAt は作成時にライブ配信が成功した場合のみ設定される。
	DeliveredAt sql.NullTime
}
