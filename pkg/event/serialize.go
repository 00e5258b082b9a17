package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// New は新しいドメインイベントを生成する。
// dataにはイベント種類に対応するデータ構造体を渡す。JSON形式にシリアライズされる。
func New(kind Kind, data any) (Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}

	return Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		Data:       jsonData,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// DecodeData はイベントのDataフィールドを指定された型にデシリアライズする。
func DecodeData[T any](e Event) (*T, error) {
	var data T
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("イベントデータのデシリアライズに失敗: %w", err)
	}
	return &data, nil
}
