package db

import "context"

const createTag = `INSERT INTO tags (id, name) VALUES (?, ?)`

// CreateTag はタグを作成する。
func (q *Queries) CreateTag(ctx context.Context, id, name string) error {
	_, err := q.db.ExecContext(ctx, createTag, id, name)
	return err
}

const listTags = `SELECT id, name, created_at FROM tags ORDER BY name`

// ListTags は全タグを名前順に取得する。
func (q *Queries) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := q.db.QueryContext(ctx, listTags)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

const deleteTag = `DELETE FROM tags WHERE id = ?`

// DeleteTag はタグを削除し、削除された行数を返す。
func (q *Queries) DeleteTag(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTag, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const attachTagToPet = `
INSERT OR IGNORE INTO pet_tags (pet_id, tag_id) VALUES (?, ?)
`

// AttachTagToPet はペットにタグを付与する。付与済みの場合は何もしない。
func (q *Queries) AttachTagToPet(ctx context.Context, petID, tagID string) error {
	_, err := q.db.ExecContext(ctx, attachTagToPet, petID, tagID)
	return err
}

const detachTagFromPet = `
DELETE FROM pet_tags WHERE pet_id = ? AND tag_id = ?
`

// DetachTagFromPet はペットからタグを外し、削除された行数を返す。
func (q *Queries) DetachTagFromPet(ctx context.Context, petID, tagID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, detachTagFromPet, petID, tagID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listTagsByPetID = `
SELECT t.id, t.name, t.created_at
FROM tags t JOIN pet_tags pt ON pt.tag_id = t.id
WHERE pt.pet_id = ? ORDER BY t.name
`

// ListTagsByPetID は指定されたペットに付与されたタグを取得する。
func (q *Queries) ListTagsByPetID(ctx context.Context, petID string) ([]Tag, error) {
	rows, err := q.db.QueryContext(ctx, listTagsByPetID, petID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}
