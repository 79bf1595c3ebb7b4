package config

import "github.com/aws/aws-sdk-go-v2/service/s3"

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Client   *s3.Client
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Local    bool   `yaml:"local"`
}

// JWTConfig хранит параметры выпуска токенов.
// Секреты access и refresh токенов различаются: утечка одного
// не позволяет подделывать токены другого типа.
type JWTConfig struct {
	AccessSecretKey  string `yaml:"access_secret_key"`
	RefreshSecretKey string `yaml:"refresh_secret_key"`
	AccessTokenTTL   string `yaml:"access_token_ttl"`
	RefreshTokenTTL  string `yaml:"refresh_token_ttl"`
	CookieName       string `yaml:"cookie_name"`
	CookieDomain     string `yaml:"cookie_domain"`
	CookieSecure     bool   `yaml:"cookie_secure"`
}

type TTL struct {
	S3AndRedis int `yaml:"s3_and_redis"`
}
