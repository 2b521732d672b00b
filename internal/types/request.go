package types

import "time"

// RouterRequest is the input to the router. Override, when present, must name a
// valid Intent; it is kept as a pointer so "absent" and "invalid" stay distinct.
type RouterRequest struct {
	Prompt   string          `json:"prompt"`
	Override *Intent         `json:"override,omitempty"`
	Context  *TeacherContext `json:"context,omitempty"`
}

// TeacherContext is optional caller-supplied context about the teacher.
type TeacherContext struct {
	Subjects []string `json:"subjects,omitempty"`
	Grades   []string `json:"grades,omitempty"`
}

// Caller identifies who issued a request (set by auth middleware).
type Caller struct {
	RequestID     string
	KeyID         string
	SchoolID      string
	TeacherID     string
	AllowAssisted bool
	ReceivedAt    time.Time
}
