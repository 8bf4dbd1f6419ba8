// Package notify publishes roster change events to downstream consumers.
package notify

import (
	"context"
	"errors"
	"time"
)

// EventType 名单变更类型
type EventType string

const (
	EventAllocated         EventType = "allocated"
	EventOccupantRemoved   EventType = "occupant_removed"
	EventOccupantsReplaced EventType = "occupants_replaced"
	EventDropped           EventType = "dropped"
)

// Event 一次名单变更
type Event struct {
	Type          EventType `json:"type"`
	Dataset       string    `json:"dataset"`
	Subject       string    `json:"subject,omitempty"`
	RunID         string    `json:"run_id,omitempty"`
	RoomID        string    `json:"room_id,omitempty"`
	Identifier    string    `json:"identifier,omitempty"`
	OccupantCount int       `json:"occupant_count,omitempty"`
	Seated        int       `json:"seated,omitempty"`
	Unseated      int       `json:"unseated,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher 事件发布；失败不影响已提交的名单变更，由调用方记录日志
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop 丢弃所有事件
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi 依次发布到每个 Publisher，汇总错误
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
