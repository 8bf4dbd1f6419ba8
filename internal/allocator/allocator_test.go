package allocator

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"examseat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func students(ids ...string) []domain.StudentRecord {
	out := make([]domain.StudentRecord, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.StudentRecord{Identifier: id, Row: i + 2})
	}
	return out
}

func mathRooms() []domain.Room {
	return []domain.Room{
		{RoomID: "A", Capacity: 2, Position: 1},
		{RoomID: "B", Capacity: 3, Position: 2},
	}
}

func TestAllocate_FitsWithinCapacity(t *testing.T) {
	got, err := Allocate(students("s1", "s2", "s3", "s4"), mathRooms(), "Math")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "A", got[0].RoomID)
	assert.Equal(t, []string{"s1", "s2"}, got[0].Occupants)
	assert.Equal(t, 2, got[0].OccupantCount)
	assert.Equal(t, "Math", got[0].Subject)

	assert.Equal(t, "B", got[1].RoomID)
	assert.Equal(t, []string{"s3", "s4"}, got[1].Occupants)
	assert.Equal(t, 2, got[1].OccupantCount)
	assert.Equal(t, "Math", got[1].Subject)
}

func TestAllocate_TruncatesOverflow(t *testing.T) {
	got, err := Allocate(students("s1", "s2", "s3", "s4", "s5", "s6"), mathRooms(), "Math")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"s1", "s2"}, got[0].Occupants)
	assert.Equal(t, []string{"s3", "s4", "s5"}, got[1].Occupants)
	assert.Equal(t, 3, got[1].OccupantCount)

	sum := Summarize(6, got)
	assert.Equal(t, 5, sum.Seated)
	assert.Equal(t, 1, sum.Unseated)
}

func TestAllocate_EmptyStudents(t *testing.T) {
	got, err := Allocate(nil, mathRooms(), "Math")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, 0, r.OccupantCount)
		assert.Empty(t, r.Occupants)
		assert.NotNil(t, r.Occupants)
	}
}

func TestAllocate_NoRooms(t *testing.T) {
	_, err := Allocate(students("s1"), nil, "Math")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoRoomsAvailable)
}

func TestAllocate_ZeroCapacityAndExhaustedRooms(t *testing.T) {
	rooms := []domain.Room{
		{RoomID: "Z", Capacity: 0},
		{RoomID: "A", Capacity: 2},
		{RoomID: "N", Capacity: -4},
		{RoomID: "B", Capacity: 2},
		{RoomID: "C", Capacity: 2},
	}
	got, err := Allocate(students("s1", "s2", "s3"), rooms, "Physics")
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Empty(t, got[0].Occupants)
	assert.Equal(t, []string{"s1", "s2"}, got[1].Occupants)
	assert.Empty(t, got[2].Occupants)
	assert.Equal(t, 0, got[2].Capacity)
	assert.Equal(t, []string{"s3"}, got[3].Occupants)
	// students exhausted: later rooms still get a record
	assert.Equal(t, "C", got[4].RoomID)
	assert.Equal(t, 0, got[4].OccupantCount)
}

func TestAllocate_PreservesDuplicatesPositionally(t *testing.T) {
	got, err := Allocate(students("s1", "s1", "s2"), []domain.Room{{RoomID: "A", Capacity: 3}}, "Math")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s1", "s2"}, got[0].Occupants)
	assert.Equal(t, 3, got[0].OccupantCount)
}

func randomInput(r *rand.Rand) ([]domain.StudentRecord, []domain.Room) {
	n := r.Intn(60)
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("r%03d", r.Intn(80))
	}
	rooms := make([]domain.Room, 1+r.Intn(8))
	for i := range rooms {
		rooms[i] = domain.Room{RoomID: fmt.Sprintf("room-%d", i), Capacity: r.Intn(12), Position: i}
	}
	return students(ids...), rooms
}

func TestAllocate_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := 0; iter < 300; iter++ {
		ss, rooms := randomInput(r)

		got, err := Allocate(ss, rooms, "Prop")
		require.NoError(t, err)
		require.Len(t, got, len(rooms))

		total := 0
		for i, rec := range got {
			assert.Equal(t, rooms[i].RoomID, rec.RoomID)
			assert.Equal(t, len(rec.Occupants), rec.OccupantCount)
			assert.LessOrEqual(t, rec.OccupantCount, rooms[i].Capacity)
			total += rec.OccupantCount
		}
		assert.Equal(t, min(len(ss), domain.TotalCapacity(rooms)), total)

		again, err := Allocate(ss, rooms, "Prop")
		require.NoError(t, err)
		assert.True(t, reflect.DeepEqual(got, again), "allocation must be deterministic")
	}
}

func TestAllocate_ContiguousInInputOrder(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 100; iter++ {
		ss, rooms := randomInput(r)
		got, err := Allocate(ss, rooms, "Order")
		require.NoError(t, err)

		var flat []string
		for _, rec := range got {
			flat = append(flat, rec.Occupants...)
		}
		for i, id := range flat {
			assert.Equal(t, ss[i].Identifier, id)
		}
	}
}
