package tracker

import "time"

// Ref is a shallow reference to another tracker entity (shot, task).
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Version is one rendered take of a shot/task, as returned by the tracker.
type Version struct {
	ID        int       `json:"id"`
	Code      string    `json:"code"`
	Status    string    `json:"status"`
	Entity    *Ref      `json:"entity"`
	Task      *Ref      `json:"task"`
	Step      string    `json:"step"`
	FramePath string    `json:"frame_path"`
	CreatedAt time.Time `json:"created_at"`
}
