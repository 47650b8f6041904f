package port

import (
	"context"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
)

// ImageRef points at the image to publish: raw content, a public URL, or both.
// Ext is the file extension of Content, e.g. "jpg" or "png".
type ImageRef struct {
	Content []byte
	URL     string
	Ext     string
}

type ImagePublisher interface {
	Destination() entity.Destination
	// RequiresPublicURL reports whether PublishImage needs ImageRef.URL.
	RequiresPublicURL() bool
	PublishImage(ctx context.Context, ref ImageRef, caption string) (postID string, err error)
}

type VideoPublisher interface {
	Destination() entity.Destination
	PublishVideo(ctx context.Context, videoURL string, caption string, title string) (postID string, err error)
}
