package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Room 考场（对应 rooms 表）
// Position 决定分配顺序（RoomCatalog 的顺序）
type Room struct {
	RoomID   string `db:"room_id" json:"room_id"`
	Capacity int    `db:"capacity" json:"capacity"`
	Position int    `db:"sort_order" json:"position"`
}

// TotalCapacity sums the capacity of rooms, ignoring negative values.
func TotalCapacity(rooms []Room) int {
	total := 0
	for _, r := range rooms {
		if r.Capacity > 0 {
			total += r.Capacity
		}
	}
	return total
}

// ParseRoomList parses "A:30,B:25" into rooms in list order (Position 1..n).
func ParseRoomList(s string) ([]Room, error) {
	var rooms []Room
	seen := map[string]struct{}{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, capText, ok := strings.Cut(part, ":")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, NewError(ErrValidation, fmt.Sprintf("room entry %q must look like ID:CAPACITY", part))
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(capText))
		if err != nil || capacity < 0 {
			return nil, NewError(ErrValidation, "capacity must be a non-negative integer").WithRoom(id)
		}
		if _, dup := seen[id]; dup {
			return nil, NewError(ErrValidation, "duplicate room").WithRoom(id)
		}
		seen[id] = struct{}{}
		rooms = append(rooms, Room{RoomID: id, Capacity: capacity, Position: len(rooms) + 1})
	}
	return rooms, nil
}
