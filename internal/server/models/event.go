package models

import "time"

// Event is a calendar entry owned by exactly one user. Date carries the
// calendar date and time of the appointment; Time is an optional free-text
// label ("14:30", "after lunch") kept for display and secondary ordering.
type Event struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Time        string    `json:"time,omitempty"`
	Date        time.Time `json:"date"`
	Description string    `json:"description,omitempty"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
