package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/Nazmiassofa/SosmedUploader/internal/domain/port"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type flakyImage struct {
	err   error
	calls int
}

func (f *flakyImage) Destination() entity.Destination { return entity.DestinationInstagramFeed }
func (f *flakyImage) RequiresPublicURL() bool         { return true }
func (f *flakyImage) PublishImage(context.Context, port.ImageRef, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "ok", nil
}

type flakyVideo struct {
	err   error
	calls int
}

func (f *flakyVideo) Destination() entity.Destination { return entity.DestinationFacebookVideo }
func (f *flakyVideo) PublishVideo(context.Context, string, string, string) (string, error) {
	f.calls++
	return "vid", f.err
}

func TestImagePublisher_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &flakyImage{err: errors.New("graph api 500")}
	p := WrapImage(next, Settings{ConsecutiveFailures: 2, Timeout: time.Hour}, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, entity.DestinationInstagramFeed, p.Destination())
	assert.True(t, p.RequiresPublicURL())

	for i := 0; i < 2; i++ {
		_, err := p.PublishImage(ctx, port.ImageRef{URL: "u"}, "")
		require.Error(t, err)
		assert.False(t, errors.Is(err, entity.ErrDestinationUnavailable))
	}
	assert.Equal(t, gobreaker.StateOpen, p.cb.State())

	_, err := p.PublishImage(ctx, port.ImageRef{URL: "u"}, "")
	assert.ErrorIs(t, err, entity.ErrDestinationUnavailable)
	assert.Equal(t, 2, next.calls, "open circuit does not call the destination")
}

func TestImagePublisher_PassesThroughSuccess(t *testing.T) {
	p := WrapImage(&flakyImage{}, Settings{}, zap.NewNop())

	id, err := p.PublishImage(context.Background(), port.ImageRef{URL: "u"}, "")
	require.NoError(t, err)
	assert.Equal(t, "ok", id)
}

func TestVideoPublisher_HalfOpenRecovers(t *testing.T) {
	next := &flakyVideo{err: errors.New("timeout")}
	p := WrapVideo(next, Settings{ConsecutiveFailures: 1, Timeout: 20 * time.Millisecond}, zap.NewNop())
	ctx := context.Background()

	_, err := p.PublishVideo(ctx, "https://v", "", "")
	require.Error(t, err)
	_, err = p.PublishVideo(ctx, "https://v", "", "")
	assert.ErrorIs(t, err, entity.ErrDestinationUnavailable)

	next.err = nil
	require.Eventually(t, func() bool { return p.cb.State() == gobreaker.StateHalfOpen }, time.Second, 5*time.Millisecond)

	id, err := p.PublishVideo(ctx, "https://v", "", "")
	require.NoError(t, err)
	assert.Equal(t, "vid", id)
	assert.Equal(t, gobreaker.StateClosed, p.cb.State())
}

func TestCanceledCallsDoNotTrip(t *testing.T) {
	next := &flakyVideo{err: context.Canceled}
	p := WrapVideo(next, Settings{ConsecutiveFailures: 1}, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := p.PublishVideo(context.Background(), "https://v", "", "")
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, p.cb.State())
}
