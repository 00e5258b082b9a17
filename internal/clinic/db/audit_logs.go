package db

import "context"

const createAuditLog = `
INSERT INTO audit_logs (id, actor_id, method, path, status) VALUES (?, ?, ?, ?, ?)
`

// CreateAuditLogParams はCreateAuditLogのパラメータ。
type CreateAuditLogParams struct {
	ID      string
	ActorID string
	Method  string
	Path    string
	Status  int64
}

// CreateAuditLog は監査ログを記録する。
func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) error {
	_, err := q.db.ExecContext(ctx, createAuditLog,
		arg.ID, arg.ActorID, arg.Method, arg.Path, arg.Status,
	)
	return err
}

const listAuditLogs = `
SELECT id, actor_id, method, path, status, created_at
FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?
`

// ListAuditLogs は監査ログを新しい順に取得する。
func (q *Queries) ListAuditLogs(ctx context.Context, limit, offset int64) ([]AuditLog, error) {
	rows, err := q.db.QueryContext(ctx, listAuditLogs, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var logs []AuditLog
	for rows.Next() {
		var l AuditLog
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Method, &l.Path, &l.Status, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
