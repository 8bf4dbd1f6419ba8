// Package allocator partitions an ordered student list into contiguous,
// capacity-bounded groups mapped one-to-one onto rooms.
package allocator

import (
	"examseat/internal/domain"
)

// Allocate seats students room by room in catalog order.
//
// A cursor into students starts at 0. Each room takes the next Capacity students
// (fewer when the list runs out) and the cursor then advances by the room's full
// capacity, so once students are exhausted every later room gets an empty record.
// Students beyond the total capacity are left unseated; that is not an error.
//
// Returns domain.ErrNoRoomsAvailable when rooms is empty. The result depends only on
// the order of students and rooms; nothing is sorted.
func Allocate(students []domain.StudentRecord, rooms []domain.Room, subject string) ([]domain.AssignmentRecord, error) {
	if len(rooms) == 0 {
		return nil, domain.NewError(domain.ErrNoRoomsAvailable, "room catalog is empty")
	}

	out := make([]domain.AssignmentRecord, 0, len(rooms))
	cursor := 0
	for _, room := range rooms {
		capacity := room.Capacity
		if capacity < 0 {
			capacity = 0
		}

		start := min(cursor, len(students))
		end := min(cursor+capacity, len(students))

		occupants := make([]string, 0, end-start)
		for _, s := range students[start:end] {
			occupants = append(occupants, s.Identifier)
		}

		rec := domain.AssignmentRecord{
			RoomID:    room.RoomID,
			Occupants: occupants,
			Subject:   subject,
			Capacity:  capacity,
			Position:  len(out),
		}
		rec.Recount()
		out = append(out, rec)

		cursor += capacity
	}
	return out, nil
}

// Summary describes how an allocation run used the catalog.
type Summary struct {
	Students int `json:"students"`
	Seated   int `json:"seated"`
	Unseated int `json:"unseated"`
	Capacity int `json:"capacity"`
	Rooms    int `json:"rooms"`
	// EmptyRooms counts rooms that received nobody.
	EmptyRooms int `json:"empty_rooms"`
}

// Summarize reports seated / unseated totals for records produced from students.
func Summarize(students int, records []domain.AssignmentRecord) Summary {
	s := Summary{Students: students, Rooms: len(records)}
	for _, r := range records {
		s.Seated += r.OccupantCount
		s.Capacity += r.Capacity
		if r.OccupantCount == 0 {
			s.EmptyRooms++
		}
	}
	s.Unseated = students - s.Seated
	return s
}
