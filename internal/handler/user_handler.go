package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"flight-fare-tracker/internal/model/requestresponse"
	"flight-fare-tracker/internal/ports"
	"flight-fare-tracker/internal/util"
)

type UserHandler struct {
	userService ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterUser godoc
// @Summary Регистрация пользователя
// @Description Создаёт нового пользователя с ролью user
// @Tags Users
// @Accept json
// @Produce json
// @Param body body requestresponse.RegisterRequest true "Тело запроса"
// @Success 201 {object} requestresponse.RegisterResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/register [post]
func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req requestresponse.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, 400, "некорректный JSON")
		return
	}

	user, err := h.userService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "email"),
			strings.Contains(err.Error(), "пароль"):
			util.HandleError(w, err.Error(), http.StatusBadRequest)
		default:
			util.HandleError(w, "внутренняя ошибка сервера", http.StatusInternalServerError)
		}
		return
	}

	resp := requestresponse.RegisterResponse{}
	resp.Response.UserUUID = user.UUID
	resp.Response.Email = user.Email

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}
