package dto

import "github.com/google/uuid"

// TimestampLayout formats access timestamps in responses.
const TimestampLayout = "2006-01-02 15:04:05"

// RecognitionResult is the outcome for one face.
type RecognitionResult struct {
	Name       string     `json:"name"`
	Recognized bool       `json:"recognized"`
	Distance   *float64   `json:"distance,omitempty"`
	PersonID   *uuid.UUID `json:"person_id,omitempty"`
	LogID      *uuid.UUID `json:"log_id,omitempty"`
	LogError   string     `json:"log_error,omitempty"`
	Timestamp  string     `json:"timestamp"`
}

type RecognizeResponse struct {
	Timestamp     string              `json:"timestamp"`
	FacesDetected int                 `json:"faces_detected"`
	Results       []RecognitionResult `json:"results"`
}

type AccessLogEntryResponse struct {
	ID         uuid.UUID  `json:"id"`
	PersonID   *uuid.UUID `json:"person_id,omitempty"`
	Name       string     `json:"name"`
	Recognized bool       `json:"recognized"`
	Distance   *float64   `json:"distance,omitempty"`
	Timestamp  string     `json:"timestamp"`
}

type AccessLogListResponse struct {
	Entries []AccessLogEntryResponse `json:"entries"`
	Total   int                      `json:"total"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
}

// WSEvent is pushed to websocket clients for every stored access-log entry.
type WSEvent struct {
	Type  string                 `json:"type"`
	Entry AccessLogEntryResponse `json:"entry"`
}
