package model

import "time"

// RefreshToken : долговременная запись о выпущенном refresh-токене.
// Записи одного семейства (family_uuid) образуют цепочку поколений,
// начиная с нулевого при логине. Поля revoked и replaced_by
// выставляются ровно один раз при ротации, остальные поля неизменяемы.
type RefreshToken struct {
	UUID       string     `db:"uuid"`
	UserUUID   string     `db:"user_uuid"`
	FamilyUUID string     `db:"family_uuid"`
	Generation int        `db:"generation"`
	TokenHash  string     `db:"token_hash"`
	ExpireAt   time.Time  `db:"expire_at"`
	Revoked    bool       `db:"revoked"`
	ReplacedBy *string    `db:"replaced_by"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
}

// TokensPair содержит пару access и refresh токенов
// swagger:model
type TokensPair struct {
	// Access токен (JWT)
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"accessToken"`

	// Refresh токен (передаётся только в HttpOnly cookie)
	// example: eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"-"`
}
