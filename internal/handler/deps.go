package handler

import (
	"plaza/internal/app/relay"
	"plaza/internal/configs"
	"plaza/internal/pkg/auth/jwt"
)

// AppDeps carries what the HTTP layer needs from the running application.
type AppDeps struct {
	Hub     *relay.Hub
	Config  *configs.AppConfig
	Decoder *jwt.Decoder
}
