package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/model/requestresponse"
	"flight-fare-tracker/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type WatchHandler struct {
	watchService ports.WatchService
}

func NewWatchHandler(watchService ports.WatchService) *WatchHandler {
	return &WatchHandler{watchService: watchService}
}

// CreateWatch godoc
// @Summary Создание watch
// @Description Создаёт отслеживание цены по направлению и дате
// @Tags Watches
// @Accept json
// @Produce json
// @Param body body requestresponse.CreateWatchRequest true "Тело запроса"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 201 {object} requestresponse.CreateWatchResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/watches [post]
func (h *WatchHandler) CreateWatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req requestresponse.CreateWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, 400, "некорректный JSON")
		return
	}

	if req.Origin == "" || req.Destination == "" {
		sendErrorResponse(w, 400, "origin и destination обязательны")
		return
	}

	departDate, err := time.Parse("2006-01-02", req.DepartDate)
	if err != nil {
		sendErrorResponse(w, 400, "неверный формат depart_date, ожидается YYYY-MM-DD")
		return
	}

	watch := &model.FlightWatch{
		UUID:           uuid.New().String(),
		Origin:         strings.ToUpper(req.Origin),
		Destination:    strings.ToUpper(req.Destination),
		DepartDate:     departDate,
		ThresholdCents: req.ThresholdCents,
		Currency:       req.Currency,
	}

	putURL, err := h.watchService.CreateWatch(r.Context(), watch)
	if err != nil {
		log.Println(err)
		if strings.Contains(err.Error(), "не авторизован") {
			sendErrorResponse(w, 401, "не авторизован")
		} else {
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.CreateWatchResponse{}
	resp.Response.WatchUUID = watch.UUID
	resp.Response.PutURL = putURL

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// ListWatches godoc
// @Summary Список watch пользователя
// @Tags Watches
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.WatchListResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/watches [get]
func (h *WatchHandler) ListWatches(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	watches, err := h.watchService.ListWatches(r.Context())
	if err != nil {
		log.Println(err)
		if strings.Contains(err.Error(), "не авторизован") {
			sendErrorResponse(w, 401, "не авторизован")
		} else {
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.WatchListResponse{Response: make([]requestresponse.WatchItem, 0, len(watches))}
	for _, watch := range watches {
		resp.Response = append(resp.Response, requestresponse.WatchItem{
			WatchUUID:      watch.UUID,
			Origin:         watch.Origin,
			Destination:    watch.Destination,
			DepartDate:     watch.DepartDate.Format("2006-01-02"),
			ThresholdCents: watch.ThresholdCents,
			Currency:       watch.Currency,
		})
	}

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// GetWatch godoc
// @Summary Watch с последним снимком цены
// @Tags Watches
// @Produce json
// @Param watch_id path string true "UUID watch"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} model.GetWatchResult
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Router /api/watches/{watch_id} [get]
func (h *WatchHandler) GetWatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	watchUUID := chi.URLParam(r, "watch_id")

	result, err := h.watchService.GetWatchByUUID(r.Context(), watchUUID)
	if err != nil {
		log.Println(err)
		switch {
		case strings.Contains(err.Error(), "не авторизован"):
			sendErrorResponse(w, 401, "не авторизован")
		case strings.Contains(err.Error(), "доступ запрещён"):
			sendErrorResponse(w, 403, "доступ запрещён")
		case strings.Contains(err.Error(), "не найден"):
			sendErrorResponse(w, 404, "watch не найден")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(result)
}

// DeleteWatch godoc
// @Summary Удаление watch
// @Tags Watches
// @Produce json
// @Param watch_id path string true "UUID watch"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.DeleteWatchResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Router /api/watches/{watch_id} [delete]
func (h *WatchHandler) DeleteWatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	watchUUID := chi.URLParam(r, "watch_id")

	if err := h.watchService.DeleteWatch(r.Context(), watchUUID); err != nil {
		log.Println(err)
		switch {
		case strings.Contains(err.Error(), "не авторизован"):
			sendErrorResponse(w, 401, "не авторизован")
		case strings.Contains(err.Error(), "не найден"):
			sendErrorResponse(w, 404, "watch не найден")
		default:
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	resp := requestresponse.DeleteWatchResponse{}
	resp.Response.WatchUUID = watchUUID
	resp.Response.Deleted = true

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// RecordSnapshot godoc
// @Summary Фиксация снимка цены
// @Description Принимает снимок цены от сборщика и обновляет кэш
// @Tags Watches
// @Accept json
// @Produce json
// @Param watch_id path string true "UUID watch"
// @Param body body model.PriceSnapshot true "Снимок цены"
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 201 {object} model.PriceSnapshot
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 404 {object} requestresponse.ErrorResponse
// @Router /api/watches/{watch_id}/snapshots [post]
func (h *WatchHandler) RecordSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var snapshot model.PriceSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		sendErrorResponse(w, 400, "некорректный JSON")
		return
	}

	snapshot.UUID = uuid.New().String()
	snapshot.WatchUUID = chi.URLParam(r, "watch_id")
	if snapshot.CollectedAt.IsZero() {
		snapshot.CollectedAt = time.Now().UTC()
	}

	if err := h.watchService.RecordSnapshot(r.Context(), &snapshot); err != nil {
		log.Println(err)
		if strings.Contains(err.Error(), "не найден") {
			sendErrorResponse(w, 404, "watch не найден")
		} else {
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(snapshot)
}
