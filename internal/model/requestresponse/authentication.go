package requestresponse

// LoginRequest : тело запроса на аутентификацию
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"P@ssw0rd123"`
}

// LoginResponse : ответ на успешную аутентификацию.
// Refresh-токен в тело ответа не попадает, он уходит только в HttpOnly cookie.
type LoginResponse struct {
	Response struct {
		AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
	} `json:"response"`
}

// CurrentUserResponse : информация о текущем пользователе
type CurrentUserResponse struct {
	Response struct {
		UserUUID string   `json:"user_uuid" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
		Roles    []string `json:"roles" example:"user"`
	} `json:"response"`
}

// RefreshTokenResponse : ответ на успешную ротацию.
// Новый refresh-токен, как и при логине, передаётся только через Set-Cookie.
type RefreshTokenResponse struct {
	Response struct {
		AccessToken string `json:"access_token" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
	} `json:"response"`
}

// LogoutResponse : ответ на завершение сессии
type LogoutResponse struct {
	Response struct {
		Revoked bool `json:"revoked" example:"true"`
	} `json:"response"`
}
