package httpapi

import (
	"net/http"

	"examseat/internal/domain"
	"examseat/internal/service"

	"go.uber.org/zap"
)

// RoomHandler 考场目录 Handler
type RoomHandler struct {
	rooms  *service.RoomService
	logger *zap.Logger
}

func NewRoomHandler(rooms *service.RoomService, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, logger: logger}
}

// ListRooms 按目录顺序返回
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items":          rooms,
		"total":          len(rooms),
		"total_capacity": domain.TotalCapacity(rooms),
	}))
}

// UpsertRoom {"room_id": "A", "capacity": 30, "position": 1}
func (h *RoomHandler) UpsertRoom(w http.ResponseWriter, r *http.Request) {
	var room domain.Room
	if err := readBodyJSON(r, 1<<20, &room); err != nil {
		writeError(w, h.logger, domain.NewError(domain.ErrValidation, "invalid body").Wrap(err))
		return
	}
	saved, err := h.rooms.UpsertRoom(r.Context(), room)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(saved))
}

// DeleteRoom 删除考场
func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	if err := h.rooms.DeleteRoom(r.Context(), roomID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"room_id": roomID, "deleted": true}))
}
