package publishers

import "time"

// Event represents the fetch outcome published downstream.
type Event struct {
	JobID     string    `json:"job_id"`
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	Bytes     int64     `json:"bytes"`
	SHA256    string    `json:"sha256"`
	Title     string    `json:"title,omitempty"`
	Heading   string    `json:"heading,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewEvent constructs an Event for the given job and URL.
func NewEvent(jobID, url string) Event {
	return Event{
		JobID:     jobID,
		URL:       url,
		FetchedAt: time.Now().UTC(),
	}
}
