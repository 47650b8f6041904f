package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	vacancies []entity.JobVacancy
	videos    []entity.VideoReady
}

func (p *recordingPublisher) PublishJobVacancy(_ context.Context, ev entity.JobVacancy) *entity.PublishReport {
	p.vacancies = append(p.vacancies, ev)
	r := entity.NewPublishReport(entity.EventTypeJobVacancy)
	r.Succeeded(entity.DestinationInstagramFeed, "1")
	return r
}

func (p *recordingPublisher) PublishVideo(_ context.Context, ev entity.VideoReady) *entity.PublishReport {
	p.videos = append(p.videos, ev)
	r := entity.NewPublishReport(entity.EventTypeVideoReady)
	r.Failed(entity.DestinationFacebookVideo, errors.New("boom"))
	return r
}

type recordingDLQ struct {
	messages [][]byte
	reasons  []string
	err      error
}

func (d *recordingDLQ) PublishToDLQ(_ context.Context, msg []byte, reason string) error {
	d.messages = append(d.messages, msg)
	d.reasons = append(d.reasons, reason)
	return d.err
}

func TestDispatcher_RoutesJobVacancy(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewEventDispatcher(pub, nil, zap.NewNop())
	img := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF})

	raw := []byte(`{"type":"job_vacancy","source":"wa","timestamp":1760700000.5,"image":"` + img + `",
		"extracted_data":{"is_job_vacancy":true,"email":["a@b.id"],"position":"Driver","gender_required":null}}`)

	require.NoError(t, d.Handle(context.Background(), raw))
	require.Len(t, pub.vacancies, 1)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, pub.vacancies[0].Image)
	assert.Equal(t, "Driver", pub.vacancies[0].Extracted.Position)
	assert.Empty(t, pub.videos)
}

func TestDispatcher_RoutesVideoReady(t *testing.T) {
	pub := &recordingPublisher{}
	d := NewEventDispatcher(pub, nil, zap.NewNop())

	raw := []byte(`{"type":"video_ready","source":"render","video":{"path":"https://cdn.test/v.mp4","format":"mp4"}}`)

	require.NoError(t, d.Handle(context.Background(), raw), "failed outcomes are not returned")
	require.Len(t, pub.videos, 1)
	assert.Equal(t, "https://cdn.test/v.mp4", pub.videos[0].VideoPath)
}

func TestDispatcher_IgnoresUnknownType(t *testing.T) {
	pub := &recordingPublisher{}
	dlq := &recordingDLQ{}
	d := NewEventDispatcher(pub, dlq, zap.NewNop())

	require.NoError(t, d.Handle(context.Background(), []byte(`{"type":"story_ready"}`)))
	assert.Empty(t, pub.vacancies)
	assert.Empty(t, pub.videos)
	assert.Empty(t, dlq.messages)
}

func TestDispatcher_DeadLettersMalformedInput(t *testing.T) {
	pub := &recordingPublisher{}
	dlq := &recordingDLQ{}
	d := NewEventDispatcher(pub, dlq, zap.NewNop())

	for _, raw := range []string{
		`not json`,
		`{"type":"job_vacancy","image":"%%%not-base64%%%"}`,
	} {
		require.NoError(t, d.Handle(context.Background(), []byte(raw)))
	}

	assert.Empty(t, pub.vacancies)
	require.Len(t, dlq.messages, 2)
	assert.Equal(t, []byte("not json"), dlq.messages[0])
	assert.Contains(t, dlq.reasons[1], "base64")
}

func TestDispatcher_DeadLetterFailureIsSwallowed(t *testing.T) {
	dlq := &recordingDLQ{err: errors.New("broker down")}
	d := NewEventDispatcher(&recordingPublisher{}, dlq, zap.NewNop())

	assert.NoError(t, d.Handle(context.Background(), []byte(`{`)))
	assert.Len(t, dlq.messages, 1)
}

func TestDispatcher_EndToEndDropsIneligibleVacancy(t *testing.T) {
	h := newHarness()
	d := NewEventDispatcher(h.orchestrator(), nil, zap.NewNop())

	raw := []byte(`{"type":"job_vacancy","image":"` + base64.StdEncoding.EncodeToString(pngBytes(t, 4, 4)) + `",
		"extracted_data":{"is_job_vacancy":false}}`)

	require.NoError(t, d.Handle(context.Background(), raw))
	assert.Empty(t, h.fb.calls)
	assert.Empty(t, h.ig.calls)
	assert.Empty(t, h.store.puts)
	assert.Zero(t, h.quota.calls)
}
