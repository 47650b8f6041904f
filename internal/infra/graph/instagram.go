package graph

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/Nazmiassofa/SosmedUploader/internal/domain/port"
	"go.uber.org/zap"
)

var (
	ErrContainerFailed  = errors.New("media container failed")
	ErrContainerTimeout = errors.New("media container not ready in time")
	ErrNoPublicURL      = errors.New("instagram requires a public media url")
)

type InstagramConfig struct {
	UserID       string
	PollInterval time.Duration
	// ImageWait and ReelsWait bound how long a container may stay IN_PROGRESS.
	ImageWait    time.Duration
	ReelsWait    time.Duration
	VideoTimeout time.Duration
}

// InstagramAccount publishes through the two-step container flow:
// create a media container, wait for it to finish, then publish it.
type InstagramAccount struct {
	client *Client
	cfg    InstagramConfig
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewInstagramAccount(client *Client, cfg InstagramConfig, logger *zap.Logger) *InstagramAccount {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.ImageWait <= 0 {
		cfg.ImageWait = time.Minute
	}
	if cfg.ReelsWait <= 0 {
		cfg.ReelsWait = 5 * time.Minute
	}
	if cfg.VideoTimeout <= 0 {
		cfg.VideoTimeout = defaultVideoTimeout
	}
	return &InstagramAccount{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("platform", "instagram")),
		sleep:  sleepContext,
	}
}

func (a *InstagramAccount) Ping(ctx context.Context) error {
	var out profileResponse
	err := a.client.get(ctx, "instagram_ping", a.cfg.UserID, url.Values{"fields": {"id,username"}}, &out)
	if err != nil {
		return err
	}
	a.logger.Info("instagram connection ok", zap.String("username", out.Username))
	return nil
}

func (a *InstagramAccount) Feed() *InstagramFeed   { return &InstagramFeed{account: a} }
func (a *InstagramAccount) Reels() *InstagramReels { return &InstagramReels{account: a} }

func (a *InstagramAccount) createContainer(ctx context.Context, op string, form url.Values, timeout time.Duration) (string, error) {
	var out idResponse
	if err := a.client.postForm(ctx, op, a.cfg.UserID+"/media", form, timeout, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: empty container id", ErrContainerFailed)
	}
	return out.ID, nil
}

type containerStatus struct {
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

// waitForContainer polls the container until it is FINISHED.
func (a *InstagramAccount) waitForContainer(ctx context.Context, containerID string, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	for {
		var st containerStatus
		err := a.client.get(ctx, "instagram_container_status", containerID, url.Values{"fields": {"status_code,status"}}, &st)
		if err != nil {
			return err
		}

		switch st.StatusCode {
		case "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("%w: %s %s", ErrContainerFailed, st.StatusCode, st.Status)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrContainerTimeout, containerID, maxWait)
		}
		a.logger.Debug("container in progress", zap.String("container_id", containerID), zap.String("status", st.StatusCode))
		if err := a.sleep(ctx, a.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (a *InstagramAccount) publish(ctx context.Context, creationID string) (string, error) {
	var out idResponse
	form := url.Values{"creation_id": {creationID}}
	if err := a.client.postForm(ctx, "instagram_publish", a.cfg.UserID+"/media_publish", form, 0, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: instagram container %s", ErrEmptyPostID, creationID)
	}
	return out.ID, nil
}

type InstagramFeed struct {
	account *InstagramAccount
}

func (f *InstagramFeed) Destination() entity.Destination { return entity.DestinationInstagramFeed }
func (f *InstagramFeed) RequiresPublicURL() bool         { return true }
func (f *InstagramFeed) Ping(ctx context.Context) error  { return f.account.Ping(ctx) }

func (f *InstagramFeed) PublishImage(ctx context.Context, ref port.ImageRef, caption string) (string, error) {
	if ref.URL == "" {
		return "", ErrNoPublicURL
	}
	a := f.account

	containerID, err := a.createContainer(ctx, "instagram_image_container",
		url.Values{"image_url": {ref.URL}, "caption": {caption}}, 0)
	if err != nil {
		return "", err
	}
	a.logger.Debug("image container created", zap.String("container_id", containerID))

	if err := a.waitForContainer(ctx, containerID, a.cfg.ImageWait); err != nil {
		return "", err
	}
	return a.publish(ctx, containerID)
}

type InstagramReels struct {
	account *InstagramAccount
}

func (r *InstagramReels) Destination() entity.Destination { return entity.DestinationInstagramReels }
func (r *InstagramReels) Ping(ctx context.Context) error  { return r.account.Ping(ctx) }

func (r *InstagramReels) PublishVideo(ctx context.Context, videoURL, caption, _ string) (string, error) {
	if videoURL == "" {
		return "", ErrNoPublicURL
	}
	a := r.account

	containerID, err := a.createContainer(ctx, "instagram_reels_container",
		url.Values{"media_type": {"REELS"}, "video_url": {videoURL}, "caption": {caption}}, a.cfg.VideoTimeout)
	if err != nil {
		return "", err
	}
	a.logger.Debug("reels container created", zap.String("container_id", containerID))

	if err := a.waitForContainer(ctx, containerID, a.cfg.ReelsWait); err != nil {
		return "", err
	}
	return a.publish(ctx, containerID)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
