package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"collabhub/internal/pkg/errs"
	"collabhub/internal/pkg/randx"
	"collabhub/internal/pkg/resp"
)

// HandleStats reports connection, identity and per-room counts.
func HandleStats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Manager.Stats())
	}
}

// HandleRoomSnapshot returns one room's members, cursors and shared state.
func HandleRoomSnapshot(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomId")
		if !randx.IsValidRoomID(roomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		snapshot, err := deps.Manager.RoomSnapshot(roomID)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, snapshot)
	}
}
