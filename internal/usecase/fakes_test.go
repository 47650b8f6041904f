package usecase

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Nazmiassofa/SosmedUploader/internal/domain/entity"
	"github.com/Nazmiassofa/SosmedUploader/internal/domain/port"
	"github.com/stretchr/testify/require"
)

type fakeQuotaStore struct {
	mu        sync.Mutex
	counts    map[string]int64
	expiries  map[string]time.Duration
	getErr    error
	incrErr   error
	expireErr error
	calls     int
}

func newFakeQuotaStore() *fakeQuotaStore {
	return &fakeQuotaStore{counts: map[string]int64{}, expiries: map[string]time.Duration{}}
}

func (s *fakeQuotaStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.incrErr != nil {
		return 0, s.incrErr
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeQuotaStore) Get(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.getErr != nil {
		return 0, false, s.getErr
	}
	v, ok := s.counts[key]
	return v, ok, nil
}

func (s *fakeQuotaStore) SetExpiry(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.expireErr != nil {
		return s.expireErr
	}
	s.expiries[key] = ttl
	return nil
}

func (s *fakeQuotaStore) total(prefix string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, v := range s.counts {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			n += v
		}
	}
	return n
}

type putCall struct {
	content []byte
	folder  string
	ext     string
}

type fakeTransientStore struct {
	puts      []putCall
	deletes   []string
	putErr    error
	deleteErr error
}

func (s *fakeTransientStore) Put(_ context.Context, content []byte, folder, ext string) (string, error) {
	s.puts = append(s.puts, putCall{content: content, folder: folder, ext: ext})
	if s.putErr != nil {
		return "", s.putErr
	}
	return "https://media.example.test/" + folder + "/2026/10/obj" + strconv.Itoa(len(s.puts)) + "." + ext, nil
}

func (s *fakeTransientStore) Delete(_ context.Context, url string) error {
	s.deletes = append(s.deletes, url)
	return s.deleteErr
}

type fakeImagePublisher struct {
	dest       entity.Destination
	requireURL bool
	err        error
	noID       bool
	calls      []port.ImageRef
	captions   []string
}

func (p *fakeImagePublisher) Destination() entity.Destination { return p.dest }
func (p *fakeImagePublisher) RequiresPublicURL() bool         { return p.requireURL }

func (p *fakeImagePublisher) PublishImage(_ context.Context, ref port.ImageRef, caption string) (string, error) {
	p.calls = append(p.calls, ref)
	p.captions = append(p.captions, caption)
	if p.err != nil || p.noID {
		return "", p.err
	}
	return string(p.dest) + "-post-" + strconv.Itoa(len(p.calls)), nil
}

type fakeVideoPublisher struct {
	dest  entity.Destination
	err   error
	noID  bool
	calls []string
}

func (p *fakeVideoPublisher) Destination() entity.Destination { return p.dest }

func (p *fakeVideoPublisher) PublishVideo(_ context.Context, url, _, _ string) (string, error) {
	p.calls = append(p.calls, url)
	if p.err != nil || p.noID {
		return "", p.err
	}
	return string(p.dest) + "-video", nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}
