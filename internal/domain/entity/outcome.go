package entity

type Destination string

const (
	DestinationFacebookPhoto  Destination = "facebook_photo"
	DestinationInstagramFeed  Destination = "instagram_feed"
	DestinationFacebookVideo  Destination = "facebook_video"
	DestinationInstagramReels Destination = "instagram_reels"
)

type PublishStatus string

const (
	PublishSucceeded PublishStatus = "succeeded"
	PublishSkipped   PublishStatus = "skipped"
	PublishFailed    PublishStatus = "failed"
)

// PublishOutcome is the result of one destination for one event.
type PublishOutcome struct {
	Destination Destination   `json:"destination"`
	Status      PublishStatus `json:"status"`
	ExternalID  string        `json:"external_id,omitempty"`
	ErrorDetail string        `json:"error_detail,omitempty"`
}

type PipelineState string

const (
	StateDone    PipelineState = "done"
	StateDropped PipelineState = "dropped"
)

// PublishReport summarizes one event run through the pipeline.
type PublishReport struct {
	EventType  EventType        `json:"event_type"`
	State      PipelineState    `json:"state"`
	DropReason string           `json:"drop_reason,omitempty"`
	Adapted    bool             `json:"adapted,omitempty"`
	ImageURL   string           `json:"image_url,omitempty"`
	Outcomes   []PublishOutcome `json:"outcomes,omitempty"`
	CleanupErr string           `json:"cleanup_error,omitempty"`
}

func NewPublishReport(t EventType) *PublishReport {
	return &PublishReport{EventType: t, State: StateDone}
}

func (r *PublishReport) Drop(reason string) {
	r.State = StateDropped
	r.DropReason = reason
}

func (r *PublishReport) Succeeded(d Destination, externalID string) {
	r.Outcomes = append(r.Outcomes, PublishOutcome{Destination: d, Status: PublishSucceeded, ExternalID: externalID})
}

func (r *PublishReport) Skipped(d Destination, detail string) {
	r.Outcomes = append(r.Outcomes, PublishOutcome{Destination: d, Status: PublishSkipped, ErrorDetail: detail})
}

func (r *PublishReport) Failed(d Destination, err error) {
	r.Outcomes = append(r.Outcomes, PublishOutcome{Destination: d, Status: PublishFailed, ErrorDetail: err.Error()})
}

// Annotate attaches detail to the outcome already recorded for d.
func (r *PublishReport) Annotate(d Destination, detail string) {
	for i := range r.Outcomes {
		if r.Outcomes[i].Destination == d {
			r.Outcomes[i].ErrorDetail = detail
			return
		}
	}
}

// Outcome returns the recorded outcome for d, if any.
func (r *PublishReport) Outcome(d Destination) (PublishOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Destination == d {
			return o, true
		}
	}
	return PublishOutcome{}, false
}

// CountByStatus returns how many destinations ended with status s.
func (r *PublishReport) CountByStatus(s PublishStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}
