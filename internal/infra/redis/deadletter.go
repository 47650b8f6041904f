package redis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	goredis "github.com/redis/go-redis/v9"
)

// DeadLetter is one rejected message as stored in the dead-letter list.
type DeadLetter struct {
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
	Body     []byte    `json:"body"`
}

// DeadLetterList appends gzip-compressed dead letters to a capped Redis list.
type DeadLetterList struct {
	client *goredis.Client
	key    string
	max    int64
}

func NewDeadLetterList(client *goredis.Client, key string, max int64) *DeadLetterList {
	if max <= 0 {
		max = 1000
	}
	return &DeadLetterList{client: client, key: key, max: max}
}

func (l *DeadLetterList) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	payload, err := EncodeDeadLetter(DeadLetter{Reason: reason, FailedAt: time.Now().UTC(), Body: msg})
	if err != nil {
		return err
	}

	_, err = l.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.RPush(ctx, l.key, payload)
		p.LTrim(ctx, l.key, -l.max, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push dead letter: %w", err)
	}
	return nil
}

// Entries returns up to n of the newest dead letters, oldest first.
func (l *DeadLetterList) Entries(ctx context.Context, n int64) ([]DeadLetter, error) {
	raw, err := l.client.LRange(ctx, l.key, -n, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read dead letters: %w", err)
	}
	out := make([]DeadLetter, 0, len(raw))
	for _, r := range raw {
		dl, err := DecodeDeadLetter([]byte(r))
		if err != nil {
			return nil, err
		}
		out = append(out, dl)
	}
	return out, nil
}

func EncodeDeadLetter(dl DeadLetter) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if err := json.NewEncoder(zw).Encode(dl); err != nil {
		return nil, fmt.Errorf("encode dead letter: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress dead letter: %w", err)
	}
	return buf.Bytes(), nil
}

func DecodeDeadLetter(data []byte) (DeadLetter, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return DeadLetter{}, fmt.Errorf("open dead letter: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return DeadLetter{}, fmt.Errorf("decompress dead letter: %w", err)
	}
	var dl DeadLetter
	if err := json.Unmarshal(raw, &dl); err != nil {
		return DeadLetter{}, fmt.Errorf("decode dead letter: %w", err)
	}
	return dl, nil
}
