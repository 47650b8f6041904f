package usecase

import (
	"strings"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
)

const (
	captionHeader   = "📢 JOB VACANCY INFO"
	captionHashtags = "#lowongankerja #loker #jobvacancy"

	VideoCaption = "🎬 Today's job vacancy roundup\n\n" + captionHashtags
	VideoTitle   = "JOB VACANCY INFO TODAY"
)

type captionStyle struct {
	emailBullet    string
	alwaysTrailing bool
	hashtags       bool
}

var (
	facebookStyle  = captionStyle{emailBullet: "   • "}
	instagramStyle = captionStyle{emailBullet: "• ", alwaysTrailing: true, hashtags: true}
)

// BuildCaption renders the job vacancy caption in the format expected by d.
func BuildCaption(d entity.Destination, data entity.ExtractedJobData) string {
	style := facebookStyle
	if d == entity.DestinationInstagramFeed || d == entity.DestinationInstagramReels {
		style = instagramStyle
	}
	return style.build(data)
}

func (s captionStyle) build(data entity.ExtractedJobData) string {
	lines := []string{captionHeader, ""}
	hasDetails := false

	if data.Position != "" {
		lines = append(lines, "🔹 Position: "+data.Position)
		hasDetails = true
	}

	if data.GenderRequired != "" {
		lines = append(lines, "🔹 Gender: "+strings.ToUpper(data.GenderRequired))
		hasDetails = true
	}

	if len(data.Emails) > 0 {
		lines = append(lines, "", "📧 Send application to:")
		for _, email := range data.Emails {
			lines = append(lines, s.emailBullet+email)
		}
		hasDetails = true
	}

	if hasDetails || s.alwaysTrailing {
		lines = append(lines, "")
	}
	if s.hashtags {
		lines = append(lines, captionHashtags)
	}

	return strings.Join(lines, "\n")
}
