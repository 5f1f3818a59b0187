package llm

import "context"

// Request is one single-turn generation.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int32
}

type Provider interface {
	// Stream returns a stream of text chunks (incremental).
	Stream(ctx context.Context, req Request) (chunks <-chan string, errs <-chan error)
	Close() error
}

// Collect drains a stream into one string.
func Collect(ctx context.Context, p Provider, req Request) (string, error) {
	chunks, errs := p.Stream(ctx, req)

	var out []byte
	for chunks != nil || errs != nil {
		select {
		case c, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			out = append(out, c...)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return "", err
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return string(out), nil
}
