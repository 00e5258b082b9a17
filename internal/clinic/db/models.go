// Package db はクリニック領域のデータベースアクセスを提供する。
// sqlcの生成コードと同じ構造（DBTX・Queries・Params構造体）で実装する。
package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX はデータベース接続とトランザクションの共通インターフェース。
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries はSQLクエリの実行オブジェクト。
type Queries struct {
	db DBTX
}

// New はQueriesを生成する。
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx はトランザクション上で動作するQueriesを返す。
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Owner は飼い主のデータベース行。
type Owner struct {
	// ID は飼い主の一意識別子（UUID）。
	ID string
	// Name は飼い主の氏名。
	Name string
	// Email はメールアドレス。
	Email string
	// Phone は電話番号。
	Phone sql.NullString
	// Address は住所。
	Address sql.NullString
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Vet は獣医師のデータベース行。
type Vet struct {
	// ID は獣医師の一意識別子（UUID）。
	ID string
	// Name は獣医師の氏名。
	Name string
	// Email はメールアドレス。
	Email string
	// Specialization は専門分野。
	Specialization sql.NullString
	// Phone は電話番号。
	Phone sql.NullString
	// Latitude は勤務先クリニックの緯度。
	Latitude sql.NullFloat64
	// Longitude は勤務先クリニックの経度。
	Longitude sql.NullFloat64
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Pet はペットのデータベース行。
type Pet struct {
	// ID はペットの一意識別子（UUID）。
	ID string
	// Name はペットの名前。
	Name string
	// Species は動物種。
	Species string
	// Breed は品種。
	Breed sql.NullString
	// BirthDate は生年月日。
	BirthDate sql.NullTime
	// OwnerID は飼い主のID。
	OwnerID string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Appointment は予約のデータベース行。
type Appointment struct {
	// ID は予約の一意識別子（UUID）。
	ID string
	// PetID は対象ペットのID。
	PetID string
	// OwnerID は飼い主のID。
	OwnerID string
	// VetID は担当獣医師のID。
	VetID string
	// DateTime は予約日時。
	DateTime time.Time
	// Reason は来院理由。
	Reason sql.NullString
	// Status は予約の状態（scheduled / rescheduled / cancelled / completed）。
	Status string
	// ReminderSent はリマインダー送信済みフラグ。
	ReminderSent int64
	// CreatedAt は作成日時。
	CreatedAt time.Time
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
}

// Vaccination はワクチン接種記録のデータベース行。
type Vaccination struct {
	// ID は接種記録の一意識別子（UUID）。
	ID string
	// PetID は対象ペットのID。
	PetID string
	// VaccinationType はワクチンの種類。
	VaccinationType string
	// AdministeredDate は接種日。未接種の場合はNULL。
	AdministeredDate sql.NullTime
	// DueDate は次回接種期限日。
	DueDate time.Time
	// ReminderSent はリマインダー送信済みフラグ。
	ReminderSent int64
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Treatment は治療記録のデータベース行。
type Treatment struct {
	// ID は治療記録の一意識別子（UUID）。
	ID string
	// PetID は対象ペットのID。
	PetID string
	// VetID は担当獣医師のID。
	VetID string
	// Name は治療の名称。
	Name string
	// Description は治療内容の詳細。
	Description sql.NullString
	// Date は治療日。
	Date time.Time
	// FollowUpDate は経過確認の予定日。不要な場合はNULL。
	FollowUpDate sql.NullTime
	// FollowupSent は経過確認通知の送信済みフラグ。
	FollowupSent int64
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Tag はタグのデータベース行。
type Tag struct {
	// ID はタグの一意識別子（UUID）。
	ID string
	// Name はタグ名。
	Name string
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// AuditLog は監査ログのデータベース行。
type AuditLog struct {
	// ID は監査ログの一意識別子（UUID）。
	ID string
	// ActorID は操作を行ったユーザーのID。
	ActorID string
	// Method はHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Status はHTTPステータスコード。
	Status int64
	// CreatedAt は操作日時。
	CreatedAt time.Time
}
