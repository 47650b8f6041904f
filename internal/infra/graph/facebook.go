package graph

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/Nazmiassofa/SosmedUploader/internal/domain/port"
	"github.com/Nazmiassofa/SosmedUploader/internal/infra/objectkey"
	"go.uber.org/zap"
)

const (
	minPhotoBytes = 1 << 10
	maxPhotoBytes = 10 << 20

	defaultVideoTimeout = 10 * time.Minute
)

var (
	ErrPhotoSize = errors.New("photo size outside accepted range")
	ErrVideoURL  = errors.New("video url must be http or https")
	// ErrEmptyPostID is a 2xx Graph response that names no created object.
	ErrEmptyPostID = errors.New("graph response carried no post id")
)

// FacebookPage publishes to a Facebook Page. Photos are uploaded as raw
// bytes; videos are fetched by Facebook from a public URL.
type FacebookPage struct {
	client       *Client
	pageID       string
	videoTimeout time.Duration
	logger       *zap.Logger
}

func NewFacebookPage(client *Client, pageID string, videoTimeout time.Duration, logger *zap.Logger) *FacebookPage {
	if videoTimeout <= 0 {
		videoTimeout = defaultVideoTimeout
	}
	return &FacebookPage{
		client:       client,
		pageID:       pageID,
		videoTimeout: videoTimeout,
		logger:       logger.With(zap.String("platform", "facebook")),
	}
}

// Ping checks that the page is reachable with the configured token.
func (p *FacebookPage) Ping(ctx context.Context) error {
	var out profileResponse
	err := p.client.get(ctx, "facebook_ping", p.pageID, url.Values{"fields": {"id,name"}}, &out)
	if err != nil {
		return err
	}
	p.logger.Info("facebook connection ok", zap.String("page_id", out.ID), zap.String("name", out.Name))
	return nil
}

func (p *FacebookPage) Photos() *FacebookPhotos { return &FacebookPhotos{page: p} }
func (p *FacebookPage) Videos() *FacebookVideos { return &FacebookVideos{page: p} }

type FacebookPhotos struct {
	page *FacebookPage
}

func (f *FacebookPhotos) Destination() entity.Destination { return entity.DestinationFacebookPhoto }
func (f *FacebookPhotos) RequiresPublicURL() bool         { return false }
func (f *FacebookPhotos) Ping(ctx context.Context) error  { return f.page.Ping(ctx) }

func (f *FacebookPhotos) PublishImage(ctx context.Context, ref port.ImageRef, caption string) (string, error) {
	size := len(ref.Content)
	if size < minPhotoBytes || size > maxPhotoBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrPhotoSize, size)
	}

	ext := ref.Ext
	if ext == "" {
		ext = "jpg"
	}

	var out idResponse
	err := f.page.client.postMultipart(ctx, "facebook_photo", f.page.pageID+"/photos",
		map[string]string{"message": caption},
		filePart{field: "source", filename: "photo." + ext, contentType: objectkey.ContentType(ext), content: ref.Content},
		&out,
	)
	if err != nil {
		return "", err
	}

	id := out.PostID
	if id == "" {
		id = out.ID
	}
	if id == "" {
		return "", fmt.Errorf("%w: facebook photo", ErrEmptyPostID)
	}
	f.page.logger.Debug("photo uploaded", zap.String("post_id", id), zap.Int("bytes", size))
	return id, nil
}

type FacebookVideos struct {
	page *FacebookPage
}

func (f *FacebookVideos) Destination() entity.Destination { return entity.DestinationFacebookVideo }
func (f *FacebookVideos) Ping(ctx context.Context) error  { return f.page.Ping(ctx) }

func (f *FacebookVideos) PublishVideo(ctx context.Context, videoURL, caption, title string) (string, error) {
	if !strings.HasPrefix(videoURL, "http://") && !strings.HasPrefix(videoURL, "https://") {
		return "", fmt.Errorf("%w: %q", ErrVideoURL, videoURL)
	}

	form := url.Values{"file_url": {videoURL}}
	if caption != "" {
		form.Set("description", caption)
	}
	if title != "" {
		form.Set("title", title)
	}

	var out idResponse
	if err := f.page.client.postForm(ctx, "facebook_video", f.page.pageID+"/videos", form, f.page.videoTimeout, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: facebook video", ErrEmptyPostID)
	}
	f.page.logger.Debug("video uploaded", zap.String("video_id", out.ID))
	return out.ID, nil
}
