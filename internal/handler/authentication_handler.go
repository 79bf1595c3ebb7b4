package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"flight-fare-tracker/config"
	"flight-fare-tracker/internal/model/requestresponse"
	"flight-fare-tracker/internal/ports"
	"flight-fare-tracker/internal/security"
)

type AuthenticationHandler struct {
	tokenService ports.TokenService
	jwtConfig    *config.JWTConfig
}

func NewAuthenticationHandler(tokenService ports.TokenService, jwtConfig *config.JWTConfig) *AuthenticationHandler {
	return &AuthenticationHandler{
		tokenService: tokenService,
		jwtConfig:    jwtConfig,
	}
}

func sendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(requestresponse.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// Login godoc
// @Summary Аутентификация пользователя
// @Description Получение access токена по email и паролю. Refresh-токен уходит в HttpOnly cookie.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LoginRequest true "Тело запроса"
// @Success 200 {object} requestresponse.LoginResponse "Успешная аутентификация"
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON или пустые поля"
// @Failure 401 {object} requestresponse.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth [post]
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	var req requestresponse.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, 400, "некорректный JSON")
		return
	}

	if req.Email == "" || req.Password == "" {
		sendErrorResponse(w, 400, "email и password обязательны")
		return
	}

	tokens, err := h.tokenService.Login(ctx, req.Email, req.Password)
	if err != nil {
		log.Println(err)
		if security.IsAuthError(err) || strings.Contains(err.Error(), "не найден") {
			sendErrorResponse(w, 401, "неверный email или пароль")
		} else {
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	security.SetRefreshCookie(w, h.jwtConfig, tokens.RefreshToken)

	resp := requestresponse.LoginResponse{}
	resp.Response.AccessToken = tokens.AccessToken

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// GetCurrentUser godoc
// @Summary Получение текущего пользователя
// @Description Возвращает UUID и роли пользователя, который авторизован в системе
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.CurrentUserResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthenticationHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		sendErrorResponse(w, 401, "не авторизован")
		return
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	resp := requestresponse.CurrentUserResponse{}
	resp.Response.UserUUID = claims.Subject
	resp.Response.Roles = claims.Roles

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// RefreshToken godoc
// @Summary Явная ротация токенов
// @Description Обменивает refresh-токен из cookie на новую пару. Новый refresh уходит в Set-Cookie.
// @Tags Authentication
// @Produce json
// @Success 200 {object} requestresponse.RefreshTokenResponse "Новый access токен"
// @Failure 401 {object} requestresponse.ErrorResponse "Не авторизован или невалидный токен"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/refresh [post]
func (h *AuthenticationHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	cookie, err := r.Cookie(h.jwtConfig.CookieName)
	if err != nil || cookie.Value == "" {
		sendErrorResponse(w, 401, "не удалось обновить токены")
		return
	}

	tokensPair, err := h.tokenService.Rotate(ctx, cookie.Value)
	if err != nil {
		log.Println(err)
		if security.IsAuthError(err) {
			// детали (просрочен, подделан, повторно использован) наружу не уходят
			sendErrorResponse(w, 401, "не удалось обновить токены")
		} else {
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	security.SetRefreshCookie(w, h.jwtConfig, tokensPair.RefreshToken)

	resp := requestresponse.RefreshTokenResponse{}
	resp.Response.AccessToken = tokensPair.AccessToken

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// Logout godoc
// @Summary Завершение авторизованной сессии
// @Description Отзывает всё семейство refresh-токенов текущей сессии и затирает cookie.
// @Tags Authentication
// @Produce json
// @Success 200 {object} requestresponse.LogoutResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/auth/logout [post]
func (h *AuthenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	cookie, err := r.Cookie(h.jwtConfig.CookieName)
	if err != nil || cookie.Value == "" {
		sendErrorResponse(w, 401, "не авторизован")
		return
	}

	if err := h.tokenService.Revoke(ctx, cookie.Value); err != nil {
		log.Println(err)
		if errors.Is(err, security.ErrInvalidToken) || security.IsAuthError(err) {
			sendErrorResponse(w, 401, "не авторизован")
		} else {
			sendErrorResponse(w, 500, "внутренняя ошибка сервера")
		}
		return
	}

	security.ClearRefreshCookie(w, h.jwtConfig)

	resp := requestresponse.LogoutResponse{}
	resp.Response.Revoked = true

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Println("ошибка кодирования ответа:", err)
	}
}
