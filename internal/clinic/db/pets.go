package db

import (
	"context"
	"database/sql"
)

const createPet = `
INSERT INTO pets (id, name, species, breed, birth_date, owner_id)
VALUES (?, ?, ?, ?, ?, ?)
`

// CreatePetParams はCreatePetのパラメータ。
type CreatePetParams struct {
	ID        string
	Name      string
	Species   string
	Breed     sql.NullString
	BirthDate sql.NullTime
	OwnerID   string
}

// CreatePet はペットを登録する。
func (q *Queries) CreatePet(ctx context.Context, arg CreatePetParams) error {
	_, err := q.db.ExecContext(ctx, createPet,
		arg.ID, arg.Name, arg.Species, arg.Breed, arg.BirthDate, arg.OwnerID,
	)
	return err
}

const getPetByID = `
SELECT id, name, species, breed, birth_date, owner_id, created_at
FROM pets WHERE id = ?
`

// GetPetByID は指定されたIDのペットを取得する。
func (q *Queries) GetPetByID(ctx context.Context, id string) (Pet, error) {
	var p Pet
	err := q.db.QueryRowContext(ctx, getPetByID, id).Scan(
		&p.ID, &p.Name, &p.Species, &p.Breed, &p.BirthDate, &p.OwnerID, &p.CreatedAt,
	)
	return p, err
}

const listPetsByOwnerID = `
SELECT id, name, species, breed, birth_date, owner_id, created_at
FROM pets WHERE owner_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?
`

// ListPetsByOwnerID は指定された飼い主のペット一覧を取得する。
func (q *Queries) ListPetsByOwnerID(ctx context.Context, ownerID string, limit, offset int64) ([]Pet, error) {
	rows, err := q.db.QueryContext(ctx, listPetsByOwnerID, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanPets(rows)
}

const listPets = `
SELECT id, name, species, breed, birth_date, owner_id, created_at
FROM pets ORDER BY created_at DESC LIMIT ? OFFSET ?
`

// ListPets は全ペットの一覧を作成日時の新しい順に取得する。
func (q *Queries) ListPets(ctx context.Context, limit, offset int64) ([]Pet, error) {
	rows, err := q.db.QueryContext(ctx, listPets, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanPets(rows)
}

const updatePet = `
UPDATE pets SET name = ?, species = ?, breed = ?, birth_date = ? WHERE id = ?
`

// UpdatePetParams はUpdatePetのパラメータ。
type UpdatePetParams struct {
	ID        string
	Name      string
	Species   string
	Breed     sql.NullString
	BirthDate sql.NullTime
}

// UpdatePet はペットの情報を更新し、更新された行数を返す。
func (q *Queries) UpdatePet(ctx context.Context, arg UpdatePetParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePet,
		arg.Name, arg.Species, arg.Breed, arg.BirthDate, arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deletePet = `DELETE FROM pets WHERE id = ?`

// DeletePet はペットを削除し、削除された行数を返す。
func (q *Queries) DeletePet(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePet, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// scanPets はクエリ結果の全行をPetのスライスに変換する。
func scanPets(rows *sql.Rows) ([]Pet, error) {
	var pets []Pet
	for rows.Next() {
		var p Pet
		if err := rows.Scan(&p.ID, &p.Name, &p.Species, &p.Breed, &p.BirthDate, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, err
		}
		pets = append(pets, p)
	}
	return pets, rows.Err()
}
