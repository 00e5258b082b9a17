package notification

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。
const schema = `
CREATE TABLE IF NOT EXISTS notifications (
    -- 通知の一意識別子（UUID）
    id TEXT PRIMARY KEY,
    -- 通知種別（イベント種別と同じ文字列）
    type TEXT NOT NULL,
    -- 通知のタイトル
    title TEXT NOT NULL,
    -- 通知メッセージ
    message TEXT NOT NULL,
    -- 通知先の識別子。recipient_kindにより意味が変わる:
    -- user: ユーザーID / role: 役割名 / broadcast: 空文字列
    recipient_id TEXT NOT NULL,
    -- 通知先の種別（user / role / broadcast）
    recipient_kind TEXT NOT NULL DEFAULT 'user',
    -- 通知の対象となったエンティティのID（ペット・予約など）
    related_entity_id TEXT,
    -- イベント固有の付加情報（JSON文字列）
    metadata TEXT,
    -- 通知の既読状態
    is_read INTEGER NOT NULL DEFAULT 0,
    -- 通知の作成日時
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    -- 作成時のライブ配信が成功した日時。未配信の場合はNULL
    delivered_at DATETIME
);

-- 通知先での検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_notifications_recipient
    ON notifications(recipient_kind, recipient_id);

-- 未読通知の検索を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_notifications_unread
    ON notifications(recipient_id, is_read) WHERE is_read = 0;

-- 作成日時順の一覧取得を高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_notifications_created_at
    ON notifications(created_at);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
