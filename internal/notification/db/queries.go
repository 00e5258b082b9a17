package db

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const createNotification = `
INSERT INTO notifications (
    id, type, title, message, recipient_id, recipient_kind,
    related_entity_id, metadata, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// CreateNotificationParams はCreateNotificationのパラメータ。
type CreateNotificationParams struct {
	ID              string
	Type            string
	Title           string
	Message         string
	RecipientID     string
	RecipientKind   string
	RelatedEntityID sql.NullString
	Metadata        sql.NullString
	CreatedAt       time.Time
}

// CreateNotification は通知レコードを作成する。
func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) error {
	_, err := q.db.ExecContext(ctx, createNotification,
		arg.ID, arg.Type, arg.Title, arg.Message, arg.RecipientID,
		arg.RecipientKind, arg.RelatedEntityID, arg.Metadata, arg.CreatedAt,
	)
	return err
}

const getNotificationByID = `
SELECT id, type, title, message, recipient_id, recipient_kind,
       related_entity_id, metadata, is_read, created_at, delivered_at
FROM notifications WHERE id = ?
`

// GetNotificationByID は指定されたIDの通知を取得する。
func (q *Queries) GetNotificationByID(ctx context.Context, id string) (Notification, error) {
	row := q.db.QueryRowContext(ctx, getNotificationByID, id)
	return scanNotification(row)
}

// ListNotificationsForUserParams はListNotificationsForUserのパラメータ。
type ListNotificationsForUserParams struct {
	// RecipientID は一覧を取得するユーザーのID。
	RecipientID string
	// Roles はユーザーが保持する役割の一覧。役割宛とブロードキャストの
	// 通知も一覧に含めるために使用する。
	Roles []string
	// UnreadOnly は未読のみに絞り込むかどうか。
	UnreadOnly bool
	// Limit は取得件数の上限。0以下の場合は既定値を使用する。
	Limit int64
	// Offset は取得開始位置。
	Offset int64
}

// ListNotificationsForUser はユーザー宛・役割宛・ブロードキャストの通知を
// 作成日時の新しい順に取得する。
func (q *Queries) ListNotificationsForUser(ctx context.Context, arg ListNotificationsForUserParams) ([]Notification, error) {
	limit := arg.Limit
	if limit <= 0 {
		limit = 50
	}

	var sb strings.Builder
	args := []any{arg.RecipientID}
	sb.WriteString(`
SELECT id, type, title, message, recipient_id, recipient_kind,
       related_entity_id, metadata, is_read, created_at, delivered_at
FROM notifications
WHERE ((recipient_kind = 'user' AND recipient_id = ?)
       OR recipient_kind = 'broadcast'`)
	if len(arg.Roles) > 0 {
		sb.WriteString(" OR (recipient_kind = 'role' AND recipient_id IN (?" + strings.Repeat(", ?", len(arg.Roles)-1) + "))")
		for _, r := range arg.Roles {
			args = append(args, r)
		}
	}
	sb.WriteString(")")
	if arg.UnreadOnly {
		sb.WriteString(" AND is_read = 0")
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")
	args = append(args, limit, arg.Offset)

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var notifications []Notification
	for rows.Next() {
		n, err := scanNotificationRows(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

const markAsRead = `UPDATE notifications SET is_read = 1 WHERE id = ?`

// MarkAsRead は通知を既読にする。既読の通知への再実行は何も変更しない。
func (q *Queries) MarkAsRead(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, markAsRead, id)
	return err
}

const markAllAsRead = `
UPDATE notifications SET is_read = 1
WHERE recipient_kind = 'user' AND recipient_id = ? AND is_read = 0
`

// MarkAllAsRead は指定ユーザー宛の全通知を既読にする。
func (q *Queries) MarkAllAsRead(ctx context.Context, recipientID string) error {
	_, err := q.db.ExecContext(ctx, markAllAsRead, recipientID)
	return err
}

const markDelivered = `
UPDATE notifications SET delivered_at = ? WHERE id = ? AND delivered_at IS NULL
`

// MarkDelivered は作成時のライブ配信が成功した通知に配信日時を設定する。
// 既に設定されている場合は上書きしない。
func (q *Queries) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	_, err := q.db.ExecContext(ctx, markDelivered, deliveredAt, id)
	return err
}

const deleteNotification = `DELETE FROM notifications WHERE id = ?`

// DeleteNotification は通知を削除し、削除された行数を返す。
func (q *Queries) DeleteNotification(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteNotification, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteNotificationsByRecipient = `
DELETE FROM notifications WHERE recipient_kind = 'user' AND recipient_id = ?
`

// DeleteNotificationsByRecipient はユーザー削除時のカスケードとして
// そのユーザー宛の全通知を削除する。
func (q *Queries) DeleteNotificationsByRecipient(ctx context.Context, recipientID string) error {
	_, err := q.db.ExecContext(ctx, deleteNotificationsByRecipient, recipientID)
	return err
}

// scanNotification は1行のクエリ結果をNotificationに変換する。
func scanNotification(row *sql.Row) (Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID, &n.Type, &n.Title, &n.Message, &n.RecipientID, &n.RecipientKind,
		&n.RelatedEntityID, &n.Metadata, &n.IsRead, &n.CreatedAt, &n.DeliveredAt,
	)
	return n, err
}

// scanNotificationRows は複数行のクエリ結果の現在行をNotificationに変換する。
func scanNotificationRows(rows *sql.Rows) (Notification, error) {
	var n Notification
	err := rows.Scan(
		&n.ID, &n.Type, &n.Title, &n.Message, &n.RecipientID, &n.RecipientKind,
		&n.RelatedEntityID, &n.Metadata, &n.IsRead, &n.CreatedAt, &n.DeliveredAt,
	)
	return n, err
}
