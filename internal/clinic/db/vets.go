package db

import (
	"context"
	"database/sql"
)

const createVet = `
INSERT INTO vets (id, name, email, specialization, phone, latitude, longitude)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

// CreateVetParams はCreateVetのパラメータ。
type CreateVetParams struct {
	ID             string
	Name           string
	Email          string
	Specialization sql.NullString
	Phone          sql.NullString
	Latitude       sql.NullFloat64
	Longitude      sql.NullFloat64
}

// CreateVet は獣医師を登録する。
func (q *Queries) CreateVet(ctx context.Context, arg CreateVetParams) error {
	_, err := q.db.ExecContext(ctx, createVet,
		arg.ID, arg.Name, arg.Email, arg.Specialization, arg.Phone, arg.Latitude, arg.Longitude,
	)
	return err
}

const getVetByID = `
SELECT id, name, email, specialization, phone, latitude, longitude, created_at
FROM vets WHERE id = ?
`

// GetVetByID は指定されたIDの獣医師を取得する。
func (q *Queries) GetVetByID(ctx context.Context, id string) (Vet, error) {
	var v Vet
	err := q.db.QueryRowContext(ctx, getVetByID, id).Scan(
		&v.ID, &v.Name, &v.Email, &v.Specialization, &v.Phone,
		&v.Latitude, &v.Longitude, &v.CreatedAt,
	)
	return v, err
}

const listVets = `
SELECT id, name, email, specialization, phone, latitude, longitude, created_at
FROM vets ORDER BY created_at DESC LIMIT ? OFFSET ?
`

// ListVets は獣医師の一覧を作成日時の新しい順に取得する。
func (q *Queries) ListVets(ctx context.Context, limit, offset int64) ([]Vet, error) {
	rows, err := q.db.QueryContext(ctx, listVets, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var vets []Vet
	for rows.Next() {
		var v Vet
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.Specialization, &v.Phone,
			&v.Latitude, &v.Longitude, &v.CreatedAt); err != nil {
			return nil, err
		}
		vets = append(vets, v)
	}
	return vets, rows.Err()
}

const listVetsWithLocation = `
SELECT id, name, email, specialization, phone, latitude, longitude, created_at
FROM vets WHERE latitude IS NOT NULL AND longitude IS NOT NULL
`

// ListVetsWithLocation は位置情報が登録済みの全獣医師を取得する。
// 近隣検索の距離計算に使用する。
func (q *Queries) ListVetsWithLocation(ctx context.Context) ([]Vet, error) {
	rows, err := q.db.QueryContext(ctx, listVetsWithLocation)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var vets []Vet
	for rows.Next() {
		var v Vet
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.Specialization, &v.Phone,
			&v.Latitude, &v.Longitude, &v.CreatedAt); err != nil {
			return nil, err
		}
		vets = append(vets, v)
	}
	return vets, rows.Err()
}

const updateVet = `
UPDATE vets SET name = ?, email = ?, specialization = ?, phone = ?,
    latitude = ?, longitude = ?
WHERE id = ?
`

// UpdateVetParams はUpdateVetのパラメータ。
type UpdateVetParams struct {
	ID             string
	Name           string
	Email          string
	Specialization sql.NullString
	Phone          sql.NullString
	Latitude       sql.NullFloat64
	Longitude      sql.NullFloat64
}

// UpdateVet は獣医師の情報を更新し、更新された行数を返す。
func (q *Queries) UpdateVet(ctx context.Context, arg UpdateVetParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateVet,
		arg.Name, arg.Email, arg.Specialization, arg.Phone, arg.Latitude, arg.Longitude, arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteVet = `DELETE FROM vets WHERE id = ?`

// DeleteVet は獣医師を削除し、削除された行数を返す。
func (q *Queries) DeleteVet(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteVet, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
