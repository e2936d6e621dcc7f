package store

import (
	"encoding/json"
	"fmt"
	"time"

	"livetask/internal/service"
)

// record is the wire shape of tasks/<id>.
type record struct {
	Text      string `json:"text"`
	DueDate   string `json:"dueDate"`
	Priority  string `json:"priority"`
	Completed bool   `json:"completed"`
	IsDeleted bool   `json:"isDeleted"`
	CreatedAt *int64 `json:"createdAt"`
	DeletedAt *int64 `json:"deletedAt"`
}

func decodeTask(child service.Child) (service.Task, error) {
	var rec record
	if err := json.Unmarshal(child.Value, &rec); err != nil {
		return service.Task{}, fmt.Errorf("decode task %s: %w", child.Key, err)
	}
	return service.Task{
		ID:        child.Key,
		Text:      rec.Text,
		DueDate:   rec.DueDate,
		Priority:  service.Priority(rec.Priority),
		Completed: rec.Completed,
		IsDeleted: rec.IsDeleted,
		CreatedAt: millis(rec.CreatedAt),
		DeletedAt: millis(rec.DeletedAt),
	}, nil
}

func millis(ms *int64) time.Time {
	if ms == nil {
		return time.Time{}
	}
	return time.UnixMilli(*ms).UTC()
}
