package clinic

import (
	"context"
	"database/sql"
	"testing"
	"time"

	clinicdb "github.com/DogStark/petchain-api/internal/clinic/db"
)

// createTestAppointmentAt はテスト用に予約をDBに直接挿入するヘルパー関数。
func createTestAppointmentAt(t *testing.T, s *Server, id string, dateTime time.Time) {
	t.Helper()
	err := s.queries.CreateAppointment(context.Background(), clinicdb.CreateAppointmentParams{
		ID:       id,
		PetID:    "pet-1",
		OwnerID:  "owner-1",
		VetID:    "vet-1",
		DateTime: dateTime,
	})
	if err != nil {
		t.Fatalf("テスト用予約の作成に失敗: %v", err)
	}
}

// TestClaimDueAppointmentReminders は予約リマインダー対象の取得のテスト。
func TestClaimDueAppointmentReminders(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)

	t.Run("24時間以内の予約のみが取得される", func(t *testing.T) {
		t.Parallel()
		s, _, _ := setupTestServer(t)
		createTestOwner(t, s, "owner-1", "山田太郎")
		createTestVet(t, s, "vet-1", "田中先生")
		createTestPet(t, s, "pet-1", "ポチ", "owner-1")
		createTestAppointmentAt(t, s, "appt-soon", now.Add(10*time.Hour))
		createTestAppointmentAt(t, s, "appt-later", now.Add(48*time.Hour))
		createTestAppointmentAt(t, s, "appt-passed", now.Add(-time.Hour))

		due, err := s.ReminderSource().ClaimDueAppointmentReminders(context.Background(), now)
		if err != nil {
			t.Fatalf("取得に失敗しました: %v", err)
		}

		if len(due) != 1 {
			t.Fatalf("対象数: got %d, want 1", len(due))
		}
		a := due[0]
		if a.AppointmentID != "appt-soon" || a.PetName != "ポチ" || a.VetName != "田中先生" || a.OwnerID != "owner-1" {
			t.Errorf("対象: got %+v", a)
		}
	})

	t.Run("一度取得した予約は二度返らない", func(t *testing.T) {
		t.Parallel()
		s, _, _ := setupTestServer(t)
		createTestOwner(t, s, "owner-1", "山田太郎")
		createTestVet(t, s, "vet-1", "田中先生")
		createTestPet(t, s, "pet-1", "ポチ", "owner-1")
		createTestAppointmentAt(t, s, "appt-1", now.Add(10*time.Hour))

		source := s.ReminderSource()
		first, err := source.ClaimDueAppointmentReminders(context.Background(), now)
		if err != nil {
			t.Fatalf("1回目の取得に失敗しました: %v", err)
		}
		second, err := source.ClaimDueAppointmentReminders(context.Background(), now)
		if err != nil {
			t.Fatalf("2回目の取得に失敗しました: %v", err)
		}

		if len(first) != 1 || len(second) != 0 {
			t.Errorf("取得数: got %d/%d, want 1/0", len(first), len(second))
		}
	})

	t.Run("キャンセル済みの予約は対象外", func(t *testing.T) {
		t.Parallel()
		s, _, _ := setupTestServer(t)
		createTestOwner(t, s, "owner-1", "山田太郎")
		createTestVet(t, s, "vet-1", "田中先生")
		createTestPet(t, s, "pet-1", "ポチ", "owner-1")
		createTestAppointmentAt(t, s, "appt-1", now.Add(10*time.Hour))
		if _, err := s.queries.CancelAppointment(context.Background(), "appt-1"); err != nil {
			t.Fatalf("予約のキャンセルに失敗しました: %v", err)
		}

		due, err := s.ReminderSource().ClaimDueAppointmentReminders(context.Background(), now)
		if err != nil {
			t.Fatalf("取得に失敗しました: %v", err)
		}

		if len(due) != 0 {
			t.Errorf("対象数: got %d, want 0", len(due))
		}
	})

	t.Run("予約の変更でリマインダーは再送対象になる", func(t *testing.T) {
		t.Parallel()
		s, _, _ := setupTestServer(t)
		createTestOwner(t, s, "owner-1", "山田太郎")
		createTestVet(t, s, "vet-1", "田中先生")
		createTestPet(t, s, "pet-1", "ポチ", "owner-1")
		createTestAppointmentAt(t, s, "appt-1", now.Add(10*time.Hour))

		source := s.ReminderSource()
		if _, err := source.ClaimDueAppointmentReminders(context.Background(), now); err != nil {
			t.Fatalf("1回目の取得に失敗しました: %v", err)
		}
		if _, err := s.queries.RescheduleAppointment(context.Background(), "appt-1", now.Add(12*time.Hour)); err != nil {
			t.Fatalf("予約の変更に失敗しました: %v", err)
		}

		due, err := source.ClaimDueAppointmentReminders(context.Background(), now)
		if err != nil {
			t.Fatalf("2回目の取得に失敗しました: %v", err)
		}

		if len(due) != 1 {
			t.Errorf("対象数: got %d, want 1", len(due))
		}
	})
}

// TestClaimDueVaccinations はワクチンリマインダー対象の取得のテスト。
func TestClaimDueVaccinations(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	s, _, _ := setupTestServer(t)
	createTestOwner(t, s, "owner-1", "山田太郎")
	createTestPet(t, s, "pet-1", "ポチ", "owner-1")

	// 期限が5日後（対象）と30日後（対象外）
	for id, due := range map[string]time.Time{
		"vac-due":  now.AddDate(0, 0, 5),
		"vac-late": now.AddDate(0, 0, 30),
	} {
		err := s.queries.CreateVaccination(context.Background(), clinicdb.CreateVaccinationParams{
			ID:              id,
			PetID:           "pet-1",
			VaccinationType: "狂犬病",
			DueDate:         due,
		})
		if err != nil {
			t.Fatalf("テスト用接種記録の作成に失敗: %v", err)
		}
	}

	source := s.ReminderSource()
	due, err := source.ClaimDueVaccinations(context.Background(), now)
	if err != nil {
		t.Fatalf("取得に失敗しました: %v", err)
	}

	if len(due) != 1 {
		t.Fatalf("対象数: got %d, want 1", len(due))
	}
	if due[0].PetID != "pet-1" || due[0].VaccinationType != "狂犬病" || due[0].OwnerID != "owner-1" {
		t.Errorf("対象: got %+v", due[0])
	}

	second, err := source.ClaimDueVaccinations(context.Background(), now)
	if err != nil {
		t.Fatalf("2回目の取得に失敗しました: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("2回目の対象数: got %d, want 0", len(second))
	}
}

// TestClaimDueTreatmentFollowUps は治療フォローアップ対象の取得のテスト。
func TestClaimDueTreatmentFollowUps(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	s, _, _ := setupTestServer(t)
	createTestOwner(t, s, "owner-1", "山田太郎")
	createTestVet(t, s, "vet-1", "田中先生")
	createTestPet(t, s, "pet-1", "ポチ", "owner-1")

	// 予定日到来（対象）、未来（対象外）、予定なし（対象外）
	treatments := []clinicdb.CreateTreatmentParams{
		{ID: "tr-due", PetID: "pet-1", VetID: "vet-1", Name: "抜歯", Date: now.AddDate(0, 0, -14), FollowUpDate: sql.NullTime{Time: now.AddDate(0, 0, -1), Valid: true}},
		{ID: "tr-future", PetID: "pet-1", VetID: "vet-1", Name: "避妊手術", Date: now.AddDate(0, 0, -7), FollowUpDate: sql.NullTime{Time: now.AddDate(0, 0, 14), Valid: true}},
		{ID: "tr-none", PetID: "pet-1", VetID: "vet-1", Name: "爪切り", Date: now},
	}
	for _, p := range treatments {
		if err := s.queries.CreateTreatment(context.Background(), p); err != nil {
			t.Fatalf("テスト用治療記録の作成に失敗: %v", err)
		}
	}

	source := s.ReminderSource()
	due, err := source.ClaimDueTreatmentFollowUps(context.Background(), now)
	if err != nil {
		t.Fatalf("取得に失敗しました: %v", err)
	}

	if len(due) != 1 {
		t.Fatalf("対象数: got %d, want 1", len(due))
	}
	if due[0].TreatmentID != "tr-due" || due[0].TreatmentName != "抜歯" {
		t.Errorf("対象: got %+v", due[0])
	}

	second, err := source.ClaimDueTreatmentFollowUps(context.Background(), now)
	if err != nil {
		t.Fatalf("2回目の取得に失敗しました: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("2回目の対象数: got %d, want 0", len(second))
	}
}
