package model

import "time"

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Variance is a point-in-time record of an observed/system mismatch. It does
// not follow live item state after creation.
type Variance struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	SKU             string   `json:"sku"`
	Image           string   `json:"image"`
	Severity        Severity `json:"severity"`
	SystemCount     float64  `json:"systemCount"`
	PhysicalCount   float64  `json:"physicalCount"`
	Variance        float64  `json:"variance"`
	SessionLocation string   `json:"sessionLocation"`
}

type VersionMismatch struct {
	Local  int64 `json:"local"`
	Remote int64 `json:"remote"`
}

// Conflict is a write the server rejected because the expected version was stale.
type Conflict struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	MutationID      string          `json:"mutationId"`
	LocalCount      float64         `json:"localCount"`
	ServerCount     float64         `json:"serverCount"`
	LocalUser       string          `json:"localUser"`
	LocalTime       time.Time       `json:"localTime"`
	ServerSource    string          `json:"serverSource"`
	ServerTime      time.Time       `json:"serverTime"`
	VersionMismatch VersionMismatch `json:"versionMismatch"`
}

type NotificationType string

const NotificationRecountRequest NotificationType = "recount_request"

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	SKU       string           `json:"sku"`
	Location  string           `json:"location"`
	Timestamp time.Time        `json:"timestamp"`
	IsRead    bool             `json:"isRead"`
}
