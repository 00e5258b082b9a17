package clinic

import (
	"database/sql"
	"strconv"

	"github.com/gin-gonic/gin"

	clinicdb "github.com/DogStark/petchain-api/internal/clinic/db"
	"github.com/DogStark/petchain-api/pkg/event"
	"github.com/DogStark/petchain-api/pkg/middleware"
)

// Server はクリニック領域のREST APIを提供する。
// 予約・治療などの更新操作はドメインイベントをイベントバスに発行し、
// 通知の生成は通知領域に委ねる。
type Server struct {
	// queries はクエリ実行オブジェクト。
	queries *clinicdb.Queries
	// db はSQLiteデータベース接続。トランザクションの開始に使用する。
	db *sql.DB
	// bus はドメインイベントの発行先。
	bus *event.Bus
}

// NewServer は新しいクリニックサーバーを生成し、スキーマを適用する。
func NewServer(sqlDB *sql.DB, bus *event.Bus) (*Server, error) {
	if err := initSchema(sqlDB); err != nil {
		return nil, err
	}

	return &Server{
		queries: clinicdb.New(sqlDB),
		db:      sqlDB,
		bus:     bus,
	}, nil
}

// MountRoutes はクリニックAPIのルーティングを登録する。
// apiはJWT認証ミドルウェアが適用済みのルートグループであること。
func (s *Server) MountRoutes(api *gin.RouterGroup) {
	owners := api.Group("/owners")
	{
		owners.POST("", s.handleCreateOwner())
		owners.GET("", s.handleListOwners())
		owners.GET("/:id", s.handleGetOwner())
		owners.PUT("/:id", s.handleUpdateOwner())
		owners.DELETE("/:id", s.handleDeleteOwner())
		owners.GET("/:id/pets", s.handleListOwnerPets())
		owners.GET("/:id/appointments", s.handleListOwnerAppointments())
	}

	vets := api.Group("/vets")
	{
		vets.POST("", s.handleCreateVet())
		vets.GET("", s.handleListVets())
		// 近隣検索（/:idより先に登録）
		vets.GET("/nearby", s.handleNearbyVets())
		vets.GET("/:id", s.handleGetVet())
		vets.PUT("/:id", s.handleUpdateVet())
		vets.DELETE("/:id", s.handleDeleteVet())
		vets.GET("/:id/appointments", s.handleListVetAppointments())
	}

	pets := api.Group("/pets")
	{
		pets.POST("", s.handleCreatePet())
		pets.GET("", s.handleListPets())
		pets.GET("/:id", s.handleGetPet())
		pets.PUT("/:id", s.handleUpdatePet())
		pets.DELETE("/:id", s.handleDeletePet())
		pets.GET("/:id/vaccinations", s.handleListPetVaccinations())
		pets.GET("/:id/treatments", s.handleListPetTreatments())
		pets.GET("/:id/tags", s.handleListPetTags())
		pets.POST("/:id/tags/:tagId", s.handleAttachTag())
		pets.DELETE("/:id/tags/:tagId", s.handleDetachTag())
	}

	appointments := api.Group("/appointments")
	{
		appointments.POST("", s.handleScheduleAppointment())
		appointments.GET("/:id", s.handleGetAppointment())
		appointments.PUT("/:id/reschedule", s.handleRescheduleAppointment())
		appointments.PUT("/:id/cancel", s.handleCancelAppointment())
	}

	vaccinations := api.Group("/vaccinations")
	{
		vaccinations.POST("", s.handleCreateVaccination())
		vaccinations.GET("/:id", s.handleGetVaccination())
		vaccinations.DELETE("/:id", s.handleDeleteVaccination())
	}

	treatments := api.Group("/treatments")
	{
		treatments.POST("", s.handleCreateTreatment())
		treatments.GET("/:id", s.handleGetTreatment())
		treatments.DELETE("/:id", s.handleDeleteTreatment())
	}

	tags := api.Group("/tags")
	{
		tags.POST("", s.handleCreateTag())
		tags.GET("", s.handleListTags())
		tags.DELETE("/:id", s.handleDeleteTag())
	}

	// 監査ログの参照は管理者のみ
	api.GET("/audit-logs", middleware.RequireRole("admin"), s.handleListAuditLogs())

	// イベント発行エンドポイント
	api.POST("/alerts/emergency", middleware.RequireRole("admin"), s.handleEmergencyAlert())
	api.POST("/inventory/low", middleware.RequireRole("vet"), s.handleInventoryLow())
	api.POST("/test-results", middleware.RequireRole("vet"), s.handleTestResultsReady())
	api.POST("/medications/reminders", middleware.RequireRole("vet"), s.handleMedicationReminder())
}

// paginationParams はクエリ文字列からlimitとoffsetを取得する。
func paginationParams(c *gin.Context) (limit, offset int64) {
	limit, _ = strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	offset, _ = strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はNULL許容文字列の値を取り出す。NULLの場合は空文字列。
func nullStringValue(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.String
}
