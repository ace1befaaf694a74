package di

import (
	"folio_backend/internal/platform/config"
	jwtmw "folio_backend/internal/platform/jwt"
)

func NewJWTGenerator(cfg config.Config) *jwtmw.TokenGenerator {
	return jwtmw.NewGenerator(cfg.JWT.Secret, cfg.JWT.Expiration)
}
