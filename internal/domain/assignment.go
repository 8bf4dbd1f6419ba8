package domain

import (
	"strings"
	"time"
)

// AssignmentRecord 一个考场在某科目下的座位分配
// 不变量：OccupantCount == len(Occupants)，每次写入前由 Recount 维护
type AssignmentRecord struct {
	RoomID        string   `json:"room_id"`
	Occupants     []string `json:"occupants"`
	OccupantCount int      `json:"occupant_count"`
	Subject       string   `json:"subject"`
	Capacity      int      `json:"capacity"` // 分配时考场容量快照
	Position      int      `json:"position"` // 数据集内顺序（0 起）
}

// Recount sets OccupantCount from the occupant list and normalizes a nil list to empty.
func (a *AssignmentRecord) Recount() {
	if a.Occupants == nil {
		a.Occupants = []string{}
	}
	a.OccupantCount = len(a.Occupants)
}

// Clone returns a deep copy so callers can mutate occupants without aliasing stored data.
func (a AssignmentRecord) Clone() AssignmentRecord {
	out := a
	out.Occupants = append([]string{}, a.Occupants...)
	return out
}

// SubjectDataset 某科目的完整分配结果（一次分配运行产生）
type SubjectDataset struct {
	Name      string             `json:"name"` // canonical name
	Subject   string             `json:"subject"`
	RunID     string             `json:"run_id"`
	CreatedAt time.Time          `json:"created_at"`
	Records   []AssignmentRecord `json:"records"`
}

// TotalOccupants sums occupant counts over the dataset.
func (d SubjectDataset) TotalOccupants() int {
	n := 0
	for _, r := range d.Records {
		n += r.OccupantCount
	}
	return n
}

// NormalizeOccupants trims identifiers, drops empty entries and removes duplicates,
// keeping the first occurrence of each identifier.
func NormalizeOccupants(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RemoveOccupant returns occupants without identifier and whether it was present.
func RemoveOccupant(occupants []string, identifier string) ([]string, bool) {
	out := make([]string, 0, len(occupants))
	found := false
	for _, id := range occupants {
		if id == identifier {
			found = true
			continue
		}
		out = append(out, id)
	}
	return out, found
}
