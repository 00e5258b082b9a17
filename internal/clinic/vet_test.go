package clinic

import (
	"context"
	"database/sql"
	"math"
	"net/http"
	"testing"

	clinicdb "github.com/DogStark/petchain-api/internal/clinic/db"
)

// createTestVetAt はテスト用に位置情報付きの獣医師をDBに直接挿入するヘルパー関数。
func createTestVetAt(t *testing.T, s *Server, id, name string, lat, lng float64) {
	t.Helper()
	err := s.queries.CreateVet(context.Background(), clinicdb.CreateVetParams{
		ID:        id,
		Name:      name,
		Email:     id + "@example.com",
		Latitude:  sql.NullFloat64{Float64: lat, Valid: true},
		Longitude: sql.NullFloat64{Float64: lng, Valid: true},
	})
	if err != nil {
		t.Fatalf("テスト用獣医師の作成に失敗: %v", err)
	}
}

// TestNearbyVets は近隣の獣医師検索のテスト。
func TestNearbyVets(t *testing.T) {
	t.Parallel()

	t.Run("既定の半径10km以内の獣医師が距離順で返る", func(t *testing.T) {
		t.Parallel()
		s, router, _ := setupTestServer(t)
		// 東京駅を基準に、近い順: 秋葉原(約2km)、品川(約6.8km)、横浜(約27km)
		createTestVetAt(t, s, "vet-yokohama", "横浜クリニック", 35.4660, 139.6220)
		createTestVetAt(t, s, "vet-akihabara", "秋葉原クリニック", 35.6984, 139.7731)
		createTestVetAt(t, s, "vet-shinagawa", "品川クリニック", 35.6285, 139.7387)
		// 位置情報の無い獣医師は検索対象外
		createTestVet(t, s, "vet-nowhere", "所在不明クリニック")

		w := doRequest(router, http.MethodGet, "/api/v1/vets/nearby?lat=35.6812&lng=139.7671", "owner-1", "owner", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード: got %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
		}
		result := parseJSONArray(t, w)
		if len(result) != 2 {
			t.Fatalf("獣医師数: got %d, want 2", len(result))
		}
		if result[0]["id"] != "vet-akihabara" || result[1]["id"] != "vet-shinagawa" {
			t.Errorf("並び順: got %v/%v, want vet-akihabara/vet-shinagawa", result[0]["id"], result[1]["id"])
		}
		if result[0]["distance_km"].(float64) >= result[1]["distance_km"].(float64) {
			t.Errorf("距離が昇順になっていません: %v, %v", result[0]["distance_km"], result[1]["distance_km"])
		}
	})

	t.Run("半径を指定すると検索範囲が広がる", func(t *testing.T) {
		t.Parallel()
		s, router, _ := setupTestServer(t)
		createTestVetAt(t, s, "vet-yokohama", "横浜クリニック", 35.4660, 139.6220)

		w := doRequest(router, http.MethodGet, "/api/v1/vets/nearby?lat=35.6812&lng=139.7671&radius=50", "owner-1", "owner", nil)

		result := parseJSONArray(t, w)
		if len(result) != 1 {
			t.Fatalf("獣医師数: got %d, want 1", len(result))
		}
	})

	t.Run("緯度経度が無い場合は400", func(t *testing.T) {
		t.Parallel()
		_, router, _ := setupTestServer(t)

		w := doRequest(router, http.MethodGet, "/api/v1/vets/nearby", "owner-1", "owner", nil)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード: got %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestHaversineKm は2点間の距離計算のテスト。
func TestHaversineKm(t *testing.T) {
	t.Parallel()

	t.Run("同一地点の距離は0", func(t *testing.T) {
		t.Parallel()
		if got := haversineKm(35.6812, 139.7671, 35.6812, 139.7671); got != 0 {
			t.Errorf("距離: got %f, want 0", got)
		}
	})

	t.Run("東京駅と新大阪駅の距離が既知の値に近い", func(t *testing.T) {
		t.Parallel()
		// 直線距離は約390km
		got := haversineKm(35.6812, 139.7671, 34.7338, 135.5003)
		if math.Abs(got-390) > 10 {
			t.Errorf("距離: got %f, want 390前後", got)
		}
	})
}
