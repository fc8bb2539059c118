package domain

import "time"

// UsageDaily stores aggregated generation counters for one panel mode and day.
type UsageDaily struct {
	Day       time.Time `json:"day"`
	Mode      string    `json:"mode"`
	Requests  int       `json:"requests"`
	Success   int       `json:"success"`
	Fail      int       `json:"fail"`
	Artifacts int       `json:"artifacts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsageCounters is one increment applied to a day's row.
type UsageCounters struct {
	Requests  int
	Success   int
	Fail      int
	Artifacts int
}
