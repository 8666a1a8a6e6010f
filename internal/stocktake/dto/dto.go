package dto

type Metrics struct {
	Scanned    int `json:"scanned"`
	Verified   int `json:"verified"`
	Pending    int `json:"pending"`
	Efficiency int `json:"efficiency"` // percent verified, rounded
}
