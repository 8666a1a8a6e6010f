package model

import "time"

type Role string

const (
	RoleStaff      Role = "staff"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type Session struct {
	ID           string    `json:"id"`
	Location     string    `json:"location"`
	Floor        string    `json:"floor"`
	Rack         string    `json:"rack"`
	StartTime    time.Time `json:"startTime"`
	SnapshotHash string    `json:"snapshotHash"`
}

// State is the full reconciliation state, the unit of persistence and the
// read snapshot handed to observers.
type State struct {
	User          *User          `json:"user"`
	ActiveSession *Session       `json:"activeSession"`
	Items         []Item         `json:"items"`
	Variances     []Variance     `json:"variances"`
	Conflicts     []Conflict     `json:"conflicts"`
	Notifications []Notification `json:"notifications"`
	Queue         []Mutation     `json:"queue"`
	Online        bool           `json:"-"`
	Alert         *Alert         `json:"-"`
}

type AlertKind string

const (
	AlertConflict AlertKind = "conflict"
	AlertRetry    AlertKind = "retry"
)

// Alert is the latest user-visible replay failure.
type Alert struct {
	Kind    AlertKind `json:"kind"`
	SKU     string    `json:"sku,omitempty"`
	Message string    `json:"message"`
}
