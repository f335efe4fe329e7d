package handler

import (
	"net/http"

	"plaza/internal/app/relay"
	"plaza/internal/pkg/auth/jwt"
	"plaza/internal/pkg/errs"
	"plaza/internal/pkg/resp"
)

// HandleOnlineResidents returns the residents currently connected to the relay.
// The caller must present a valid bearer token.
func HandleOnlineResidents(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := jwt.ResidentIDFromContext(r.Context()); !ok {
			resp.RespondError(w, errs.NewError(errs.ErrUnauthorized))
			return
		}

		residents := deps.Hub.Registry().Snapshot()

		resp.RespondSuccess(w, relay.OnlineResidentsPayload{
			Residents: residents,
			Count:     len(residents),
		})
	}
}
