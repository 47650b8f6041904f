package entity

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// InboundMessage is the raw JSON shape published on the uploader channel.
// Only the fields relevant to Type are populated.
type InboundMessage struct {
	Type          string                `json:"type"`
	Source        string                `json:"source"`
	Timestamp     *float64              `json:"timestamp"`
	Video         *VideoPayload         `json:"video,omitempty"`
	Caption       *string               `json:"caption,omitempty"`
	Image         string                `json:"image,omitempty"`
	ExtractedData *ExtractedDataPayload `json:"extracted_data,omitempty"`
}

type VideoPayload struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

// ExtractedDataPayload mirrors the extractor output; nullable fields stay pointers.
type ExtractedDataPayload struct {
	IsJobVacancy   bool     `json:"is_job_vacancy"`
	Email          []string `json:"email"`
	Position       *string  `json:"position"`
	SubjectEmail   *string  `json:"subject_email"`
	GenderRequired *string  `json:"gender_required"`
}

// DecodeEnvelope parses a channel message into one of the known envelope variants.
// Unrecognized tags yield UnknownEvent; only malformed input is an error.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal envelope: %v", ErrValidation, err)
	}

	ts := unixSeconds(msg.Timestamp)

	switch EventType(msg.Type) {
	case EventTypeVideoReady:
		ev := VideoReady{Source: msg.Source, Timestamp: ts}
		if msg.Video != nil {
			ev.VideoPath = strings.TrimSpace(msg.Video.Path)
			ev.Format = msg.Video.Format
		}
		return ev, nil

	case EventTypeJobVacancy:
		ev := JobVacancy{
			Source:    msg.Source,
			Timestamp: ts,
			Caption:   msg.Caption,
		}
		if msg.Image != "" {
			img, err := decodeBase64(msg.Image)
			if err != nil {
				return nil, fmt.Errorf("%w: image is not valid base64: %v", ErrValidation, err)
			}
			ev.Image = img
		}
		if msg.ExtractedData != nil {
			ev.Extracted = msg.ExtractedData.toDomain()
		}
		return ev, nil

	default:
		return UnknownEvent{Type: msg.Type}, nil
	}
}

func (p *ExtractedDataPayload) toDomain() ExtractedJobData {
	emails := make([]string, 0, len(p.Email))
	for _, e := range p.Email {
		if e = strings.TrimSpace(e); e != "" {
			emails = append(emails, e)
		}
	}
	return ExtractedJobData{
		IsJobVacancy:         p.IsJobVacancy,
		Position:             deref(p.Position),
		Emails:               emails,
		GenderRequired:       deref(p.GenderRequired),
		SubjectEmailTemplate: deref(p.SubjectEmail),
	}
}

// decodeBase64 accepts both padded and unpadded input, and tolerates a data URI prefix.
func decodeBase64(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	s = strings.TrimSpace(s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func unixSeconds(v *float64) time.Time {
	if v == nil || *v <= 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return time.Time{}
	}
	sec, frac := math.Modf(*v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
