package port

import "context"

// TransientStore hosts media behind a public URL while destinations fetch it.
type TransientStore interface {
	Put(ctx context.Context, content []byte, folder string, ext string) (publicURL string, err error)
	Delete(ctx context.Context, publicURL string) error
}
