package entity

import "time"

type EventType string

const (
	EventTypeVideoReady EventType = "video_ready"
	EventTypeJobVacancy EventType = "job_vacancy"
)

// Envelope is a decoded channel message. The concrete type is one of
// VideoReady, JobVacancy or UnknownEvent.
type Envelope interface {
	EventType() EventType
	envelope()
}

type VideoReady struct {
	Source    string
	Timestamp time.Time
	VideoPath string
	Format    string
}

func (VideoReady) EventType() EventType { return EventTypeVideoReady }
func (VideoReady) envelope()            {}

type JobVacancy struct {
	Source    string
	Timestamp time.Time
	Caption   *string
	Image     []byte
	Extracted ExtractedJobData
}

func (JobVacancy) EventType() EventType { return EventTypeJobVacancy }
func (JobVacancy) envelope()            {}

// Eligible reports whether the vacancy may be published at all.
func (j JobVacancy) Eligible() bool {
	return j.Extracted.IsJobVacancy && len(j.Image) > 0
}

// UnknownEvent carries a tag this worker does not handle. It is a no-op.
type UnknownEvent struct {
	Type string
}

func (u UnknownEvent) EventType() EventType { return EventType(u.Type) }
func (UnknownEvent) envelope()              {}

type ExtractedJobData struct {
	IsJobVacancy         bool
	Position             string
	Emails               []string
	GenderRequired       string
	SubjectEmailTemplate string
}
