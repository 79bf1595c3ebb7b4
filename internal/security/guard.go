package security

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"flight-fare-tracker/config"
	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/util"
)

// TokenRotator : одна попытка обменять refresh-токен на новую пару.
type TokenRotator interface {
	Rotate(ctx context.Context, refreshToken string) (*model.TokensPair, error)
}

// authDecision : явный результат проверки access-токена.
// Повторная попытка через ротацию выражается отдельным состоянием,
// а не исключением посреди цепочки middleware.
type authDecision int

const (
	decisionAllow authDecision = iota
	decisionDeny
	decisionRetry
	// decisionFailed : операционная ошибка, ответ 500 уже отправлен
	decisionFailed
)

// Guard проверяет access-токен каждого запроса и при его истечении
// выполняет не более одной прозрачной ротации по refresh-cookie.
// Наружу любая ошибка безопасности превращается в 401 без деталей.
type Guard struct {
	verifier Verifier
	rotator  TokenRotator
	cfg      *config.JWTConfig
}

func NewGuard(verifier Verifier, rotator TokenRotator, cfg *config.JWTConfig) *Guard {
	return &Guard{
		verifier: verifier,
		rotator:  rotator,
		cfg:      cfg,
	}
}

func (g *Guard) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(g.handleAuthentication(next))
	}
}

func (g *Guard) handleAuthentication(next http.Handler) func(writer http.ResponseWriter, request *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		authorizationHeader := request.Header.Get("Authorization")
		if !strings.HasPrefix(authorizationHeader, "Bearer ") {
			util.HandleError(writer, "не авторизован", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(authorizationHeader, "Bearer ")

		claims, decision := g.evaluate(token)

		if decision == decisionRetry {
			claims, decision = g.retryWithRotation(writer, request)
		}

		if decision == decisionFailed {
			return
		}
		if decision != decisionAllow || claims == nil {
			util.HandleError(writer, "не авторизован", http.StatusUnauthorized)
			return
		}

		req := request.WithContext(context.WithValue(request.Context(), UserContextKey, claims))
		next.ServeHTTP(writer, req)
	}
}

// evaluate классифицирует access-токен: пропустить, отклонить или
// попробовать ротацию. Повтор возможен только при ErrExpired —
// неверная подпись и мусор фатальны сразу.
func (g *Guard) evaluate(tokenStr string) (*Claims, authDecision) {
	claims, err := g.verifier.Verify(tokenStr)
	switch {
	case err == nil:
		return claims, decisionAllow
	case errors.Is(err, ErrExpired):
		return nil, decisionRetry
	default:
		return nil, decisionDeny
	}
}

// retryWithRotation выполняет ровно одну ротацию по refresh-cookie и
// перепроверяет новый access-токен. Новая пара уходит клиенту через
// Set-Cookie и заголовок X-Access-Token. Ошибки хранилища, не входящие
// в таксономию безопасности, отдаются как 500, а не маскируются под 401.
func (g *Guard) retryWithRotation(writer http.ResponseWriter, request *http.Request) (*Claims, authDecision) {
	cookie, err := request.Cookie(g.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, decisionDeny
	}

	pair, err := g.rotator.Rotate(request.Context(), cookie.Value)
	if err != nil {
		if !IsAuthError(err) {
			log.Printf("[Guard] операционная ошибка ротации: %v", err)
			util.HandleError(writer, "внутренняя ошибка сервера", http.StatusInternalServerError)
			return nil, decisionFailed
		}
		return nil, decisionDeny
	}

	claims, decision := g.evaluate(pair.AccessToken)
	if decision != decisionAllow {
		// свежевыпущенный токен обязан проходить проверку,
		// второй попытки ротации не бывает
		return nil, decisionDeny
	}

	SetRefreshCookie(writer, g.cfg, pair.RefreshToken)
	writer.Header().Set("X-Access-Token", pair.AccessToken)

	return claims, decisionAllow
}

// SetRefreshCookie выставляет refresh-токен в HttpOnly cookie.
// Токен никогда не попадает в тело ответа: скриптам он недоступен.
func SetRefreshCookie(w http.ResponseWriter, cfg *config.JWTConfig, refreshToken string) {
	ttl, err := time.ParseDuration(cfg.RefreshTokenTTL)
	if err != nil {
		ttl = 720 * time.Hour
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    refreshToken,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearRefreshCookie затирает refresh-cookie при выходе.
func ClearRefreshCookie(w http.ResponseWriter, cfg *config.JWTConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
