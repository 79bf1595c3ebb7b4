package security_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"flight-fare-tracker/internal/model"
	"flight-fare-tracker/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRotator отдаёт заранее подготовленный результат и считает вызовы
type fakeRotator struct {
	pair  *model.TokensPair
	err   error
	calls int
}

func (f *fakeRotator) Rotate(_ context.Context, _ string) (*model.TokensPair, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pair, nil
}

func issueTestTokens(t *testing.T, accessTTL string) *model.TokensPair {
	t.Helper()
	cfg := testJWTConfig()
	cfg.AccessTokenTTL = accessTTL
	jwtService := security.NewJWTService(cfg)
	pair, _, err := jwtService.IssueTokens(testUser(), "family-1", 0)
	require.NoError(t, err)
	return pair
}

func guardedRequest(t *testing.T, guard *security.Guard, accessToken, refreshCookie string) (*httptest.ResponseRecorder, *security.Claims) {
	t.Helper()

	var gotClaims *security.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := security.GetClaimsFromContext(r.Context())
		require.NoError(t, err)
		gotClaims = claims
		w.WriteHeader(http.StatusOK)
	})

	request := httptest.NewRequest(http.MethodGet, "/api/watches", nil)
	if accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if refreshCookie != "" {
		request.AddCookie(&http.Cookie{Name: testJWTConfig().CookieName, Value: refreshCookie})
	}

	recorder := httptest.NewRecorder()
	guard.Middleware()(next).ServeHTTP(recorder, request)
	return recorder, gotClaims
}

func TestGuard_ValidAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	jwtService := security.NewJWTService(cfg)
	rotator := &fakeRotator{}
	guard := security.NewGuard(jwtService.AccessVerifier(), rotator, cfg)

	pair := issueTestTokens(t, "15m")
	recorder, claims := guardedRequest(t, guard, pair.AccessToken, "")

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user-uuid-1", claims.Subject)
	assert.Equal(t, 0, rotator.calls, "при валидном access токене ротации быть не должно")
}

func TestGuard_MissingHeader(t *testing.T) {
	cfg := testJWTConfig()
	jwtService := security.NewJWTService(cfg)
	guard := security.NewGuard(jwtService.AccessVerifier(), &fakeRotator{}, cfg)

	recorder, _ := guardedRequest(t, guard, "", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestGuard_ExpiredWithCookie_TransparentRefresh(t *testing.T) {
	cfg := testJWTConfig()
	jwtService := security.NewJWTService(cfg)

	freshPair := issueTestTokens(t, "15m")
	rotator := &fakeRotator{pair: freshPair}
	guard := security.NewGuard(jwtService.AccessVerifier(), rotator, cfg)

	expiredPair := issueTestTokens(t, "-1m")
	recorder, claims := guardedRequest(t, guard, expiredPair.AccessToken, expiredPair.RefreshToken)

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user-uuid-1", claims.Subject)
	assert.Equal(t, 1, rotator.calls, "ровно одна ротация на запрос")

	// новая пара уходит клиенту
	assert.Equal(t, freshPair.AccessToken, recorder.Header().Get("X-Access-Token"))
	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cfg.CookieName, cookies[0].Name)
	assert.Equal(t, freshPair.RefreshToken, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, "/", cookies[0].Path)
}

func TestGuard_ExpiredWithoutCookie(t *testing.T) {
	cfg := testJWTConfig()
	jwtService := security.NewJWTService(cfg)
	rotator := &fakeRotator{pair: issueTestTokens(t, "15m")}
	guard := security.NewGuard(jwtService.AccessVerifier(), rotator, cfg)

	expiredPair := issueTestTokens(t, "-1m")
	recorder, _ := guardedRequest(t, guard, expiredPair.AccessToken, "")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, 0, rotator.calls, "без refresh cookie ротация не запускается")
}

func TestGuard_TamperedToken_NoRotation(t *testing.T) {
	cfg := testJWTConfig()
	jwtService := security.NewJWTService(cfg)
	rotator := &fakeRotator{pair: issueTestTokens(t, "15m")}
	guard := security.NewGuard(jwtService.AccessVerifier(), rotator, cfg)

	pair := issueTestTokens(t, "15m")
	tampered := pair.AccessToken + "x"
	recorder, _ := guardedRequest(t, guard, tampered, pair.RefreshToken)

	// неверная подпись фатальна сразу, refresh не трогаем
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, 0, rotator.calls)
}

func TestGuard_RotationDenied(t *testing.T) {
	cfg := testJWTConfig()
	jwtService := security.NewJWTService(cfg)

	tests := []struct {
		name string
		err  error
	}{
		{name: "replay detected", err: security.ErrReplayDetected},
		{name: "invalid refresh", err: security.ErrInvalidToken},
		{name: "expired refresh", err: security.ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rotator := &fakeRotator{err: tt.err}
			guard := security.NewGuard(jwtService.AccessVerifier(), rotator, cfg)

			expiredPair := issueTestTokens(t, "-1m")
			recorder, _ := guardedRequest(t, guard, expiredPair.AccessToken, expiredPair.RefreshToken)

			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.Equal(t, 1, rotator.calls)
			assert.Empty(t, recorder.Header().Get("X-Access-Token"))
		})
	}
}

func TestGuard_StoreFailureIsNot401(t *testing.T) {
	cfg := testJWTConfig()
	jwtService := security.NewJWTService(cfg)
	rotator := &fakeRotator{err: errors.New("connection refused")}
	guard := security.NewGuard(jwtService.AccessVerifier(), rotator, cfg)

	expiredPair := issueTestTokens(t, "-1m")
	recorder, _ := guardedRequest(t, guard, expiredPair.AccessToken, expiredPair.RefreshToken)

	// отказ хранилища не маскируется под ошибку авторизации
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
