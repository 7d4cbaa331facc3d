package dtos

import "time"

type TimeEntryRequest struct {
	WorkDate     time.Time  `json:"work_date" validate:"required"`
	ClockInAt    time.Time  `json:"clock_in_at" validate:"required"`
	ClockOutAt   *time.Time `json:"clock_out_at" validate:"omitempty"`
	BreakMinutes int        `json:"break_minutes" validate:"gte=0,lte=480"`
	Notes        string     `json:"notes" validate:"max=2000"`
}

type RejectEntryRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
