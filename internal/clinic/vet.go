package clinic

import (
	"database/sql"
	"errors"
	"log"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	clinicdb "github.com/DogStark/petchain-api/internal/clinic/db"
)

// createVetRequest は獣医師登録リクエストのJSON構造。
type createVetRequest struct {
	// Name は獣医師の氏名。
	Name string `json:"name" binding:"required"`
	// Email はメールアドレス。
	Email string `json:"email" binding:"required,email"`
	// Specialization は専門分野。
	Specialization string `json:"specialization"`
	// Phone は電話番号。
	Phone string `json:"phone"`
	// Latitude は勤務先クリニックの緯度。
	Latitude *float64 `json:"latitude"`
	// Longitude は勤務先クリニックの経度。
	Longitude *float64 `json:"longitude"`
}

// vetResponse は獣医師のJSONレスポンス構造。
type vetResponse struct {
	// ID は獣医師の一意識別子。
	ID string `json:"id"`
	// Name は獣医師の氏名。
	Name string `json:"name"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// Specialization は専門分野。
	Specialization string `json:"specialization,omitempty"`
	// Phone は電話番号。
	Phone string `json:"phone,omitempty"`
	// Latitude は勤務先クリニックの緯度。
	Latitude *float64 `json:"latitude,omitempty"`
	// Longitude は勤務先クリニックの経度。
	Longitude *float64 `json:"longitude,omitempty"`
	// CreatedAt は作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// nearbyVetResponse は近隣検索結果のJSONレスポンス構造。
type nearbyVetResponse struct {
	vetResponse
	// DistanceKm は検索地点からの距離（キロメートル）。
	DistanceKm float64 `json:"distance_km"`
}

// toVetResponse はDB行をJSONレスポンスに変換する。
func toVetResponse(v clinicdb.Vet) vetResponse {
	resp := vetResponse{
		ID:             v.ID,
		Name:           v.Name,
		Email:          v.Email,
		Specialization: nullStringValue(v.Specialization),
		Phone:          nullStringValue(v.Phone),
		CreatedAt:      v.CreatedAt.Format(time.RFC3339),
	}
	if v.Latitude.Valid {
		lat := v.Latitude.Float64
		resp.Latitude = &lat
	}
	if v.Longitude.Valid {
		lng := v.Longitude.Float64
		resp.Longitude = &lng
	}
	return resp
}

// handleCreateVet は獣医師を登録するハンドラ。
func (s *Server) handleCreateVet() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createVetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		vetID := uuid.New().String()
		if err := s.queries.CreateVet(c.Request.Context(), clinicdb.CreateVetParams{
			ID:             vetID,
			Name:           req.Name,
			Email:          req.Email,
			Specialization: nullString(req.Specialization),
			Phone:          nullString(req.Phone),
			Latitude:       nullFloat(req.Latitude),
			Longitude:      nullFloat(req.Longitude),
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "獣医師の登録に失敗しました"})
			log.Printf("獣医師登録エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": vetID, "message": "獣医師を登録しました"})
	}
}

// handleListVets は獣医師の一覧を返すハンドラ。
func (s *Server) handleListVets() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paginationParams(c)
		vets, err := s.queries.ListVets(c.Request.Context(), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "獣医師一覧の取得に失敗しました"})
			log.Printf("獣医師一覧取得エラー: %v", err)
			return
		}

		responses := make([]vetResponse, 0, len(vets))
		for _, v := range vets {
			responses = append(responses, toVetResponse(v))
		}
		c.JSON(http.StatusOK, responses)
	}
}

// handleGetVet は指定された獣医師を返すハンドラ。
func (s *Server) handleGetVet() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := s.queries.GetVetByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "獣医師が見つかりません"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "獣医師の取得に失敗しました"})
			log.Printf("獣医師取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toVetResponse(v))
	}
}

// handleUpdateVet は獣医師の情報を更新するハンドラ。
func (s *Server) handleUpdateVet() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createVetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}

		affected, err := s.queries.UpdateVet(c.Request.Context(), clinicdb.UpdateVetParams{
			ID:             c.Param("id"),
			Name:           req.Name,
			Email:          req.Email,
			Specialization: nullString(req.Specialization),
			Phone:          nullString(req.Phone),
			Latitude:       nullFloat(req.Latitude),
			Longitude:      nullFloat(req.Longitude),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "獣医師の更新に失敗しました"})
			log.Printf("獣医師更新エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "獣医師が見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "獣医師を更新しました"})
	}
}

// handleDeleteVet は獣医師を削除するハンドラ。
func (s *Server) handleDeleteVet() gin.HandlerFunc {
	return func(c *gin.Context) {
		affected, err := s.queries.DeleteVet(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "獣医師の削除に失敗しました"})
			log.Printf("獣医師削除エラー: %v", err)
			return
		}
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "獣医師が見つかりません"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "獣医師を削除しました"})
	}
}

// handleListVetAppointments は指定された獣医師の予約一覧を返すハンドラ。
func (s *Server) handleListVetAppointments() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := paginationParams(c)
		appointments, err := s.queries.ListAppointmentsByVetID(c.Request.Context(), c.Param("id"), limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "予約一覧の取得に失敗しました"})
			log.Printf("予約一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, toAppointmentResponses(appointments))
	}
}

// defaultNearbyRadiusKm は近隣検索の既定の半径（キロメートル）。
const defaultNearbyRadiusKm = 10.0

// handleNearbyVets は指定座標の近隣にいる獣医師を距離の近い順に返すハンドラ。
func (s *Server) handleNearbyVets() gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "latパラメータが不正です"})
			return
		}
		lng, err := strconv.ParseFloat(c.Query("lng"), 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lngパラメータが不正です"})
			return
		}
		radius := defaultNearbyRadiusKm
		if r := c.Query("radius"); r != "" {
			radius, err = strconv.ParseFloat(r, 64)
			if err != nil || radius <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "radiusパラメータが不正です"})
				return
			}
		}

		vets, err := s.queries.ListVetsWithLocation(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "獣医師一覧の取得に失敗しました"})
			log.Printf("獣医師一覧取得エラー: %v", err)
			return
		}

		results := make([]nearbyVetResponse, 0, len(vets))
		for _, v := range vets {
			d := haversineKm(lat, lng, v.Latitude.Float64, v.Longitude.Float64)
			if d > radius {
				continue
			}
			results = append(results, nearbyVetResponse{
				vetResponse: toVetResponse(v),
				DistanceKm:  math.Round(d*100) / 100,
			})
		}
		sort.Slice(results, func(i, j int) bool {
			return results[i].DistanceKm < results[j].DistanceKm
		})

		c.JSON(http.StatusOK, results)
	}
}

// earthRadiusKm は地球の半径（キロメートル）。
const earthRadiusKm = 6371.0

// haversineKm は2地点間の大圏距離をキロメートルで返す。
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// nullFloat はnilをNULLに変換する。
func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
