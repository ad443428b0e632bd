package generation

import (
	"context"
	"strings"
	"time"
)

// StreamWords emits text as word chunks, each keeping its trailing space, so
// the concatenated chunks equal text. Consecutive chunks are spaced by delay.
// The channel is closed when the text is exhausted or ctx is done.
func StreamWords(ctx context.Context, text string, delay time.Duration) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		first := true
		for _, chunk := range strings.SplitAfter(text, " ") {
			if chunk == "" {
				continue
			}

			if !first && delay > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			first = false

			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
