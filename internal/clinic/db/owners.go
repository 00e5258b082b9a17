package db

import (
	"context"
	"database/sql"
)

const createOwner = `
INSERT INTO owners (id, name, email, phone, address) VALUES (?, ?, ?, ?, ?)
`

// CreateOwnerParams はCreateOwnerのパラメータ。
type CreateOwnerParams struct {
	ID      string
	Name    string
	Email   string
	Phone   sql.NullString
	Address sql.NullString
}

// CreateOwner は飼い主を登録する。
func (q *Queries) CreateOwner(ctx context.Context, arg CreateOwnerParams) error {
	_, err := q.db.ExecContext(ctx, createOwner, arg.ID, arg.Name, arg.Email, arg.Phone, arg.Address)
	return err
}

const getOwnerByID = `
SELECT id, name, email, phone, address, created_at FROM owners WHERE id = ?
`

// GetOwnerByID は指定されたIDの飼い主を取得する。
func (q *Queries) GetOwnerByID(ctx context.Context, id string) (Owner, error) {
	var o Owner
	err := q.db.QueryRowContext(ctx, getOwnerByID, id).Scan(
		&o.ID, &o.Name, &o.Email, &o.Phone, &o.Address, &o.CreatedAt,
	)
	return o, err
}

const listOwners = `
SELECT id, name, email, phone, address, created_at FROM owners
ORDER BY created_at DESC LIMIT ? OFFSET ?
`

// ListOwners は飼い主の一覧を作成日時の新しい順に取得する。
func (q *Queries) ListOwners(ctx context.Context, limit, offset int64) ([]Owner, error) {
	rows, err := q.db.QueryContext(ctx, listOwners, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var owners []Owner
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.ID, &o.Name, &o.Email, &o.Phone, &o.Address, &o.CreatedAt); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

const updateOwner = `
UPDATE owners SET name = ?, email = ?, phone = ?, address = ? WHERE id = ?
`

// UpdateOwnerParams はUpdateOwnerのパラメータ。
type UpdateOwnerParams struct {
	ID      string
	Name    string
	Email   string
	Phone   sql.NullString
	Address sql.NullString
}

// UpdateOwner は飼い主の情報を更新し、更新された行数を返す。
func (q *Queries) UpdateOwner(ctx context.Context, arg UpdateOwnerParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateOwner, arg.Name, arg.Email, arg.Phone, arg.Address, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteOwner = `DELETE FROM owners WHERE id = ?`

// DeleteOwner は飼い主を削除し、削除された行数を返す。
func (q *Queries) DeleteOwner(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteOwner, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
