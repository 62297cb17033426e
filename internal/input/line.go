package input

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/clive/kiosk-go/internal/logging"
)

// LineSource reads newline-delimited trigger words from an external device,
// such as a FIFO fed by a push button.
//
// Accepted words are "advance", "reanalyze", "reset", a single digit, or any
// single key bound to advance or reanalyze.
type LineSource struct {
	r      io.Reader
	keys   KeyMap
	logger *slog.Logger
}

func NewLineSource(r io.Reader, keys KeyMap, logger *slog.Logger) *LineSource {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LineSource{r: r, keys: keys, logger: logger}
}

// Run emits events until the reader is exhausted or ctx is done, then closes
// the returned channel. Unknown words are logged and skipped.
func (s *LineSource) Run(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word == "" {
				continue
			}
			ev, ok := s.Parse(word)
			if !ok {
				s.logger.Warn("unknown trigger", "word", word)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			s.logger.Error("trigger source failed", "error", err)
		}
	}()
	return out
}

// Parse maps one trigger word to an event
func (s *LineSource) Parse(word string) (Event, bool) {
	switch strings.ToLower(word) {
	case "advance":
		return Event{Kind: KindAdvance}, true
	case "reanalyze":
		return Event{Kind: KindReanalyze}, true
	case "reset":
		return Event{Kind: KindReset}, true
	case "backspace":
		return Event{Kind: KindBackspace}, true
	}

	if len([]rune(word)) != 1 {
		return Event{}, false
	}
	r := []rune(word)[0]
	if r >= '0' && r <= '9' {
		return Event{Kind: KindDigit, Digit: r}, true
	}
	for _, k := range s.keys.Advance.Keys() {
		if k == word {
			return Event{Kind: KindAdvance}, true
		}
	}
	for _, k := range s.keys.Reanalyze.Keys() {
		if k == word {
			return Event{Kind: KindReanalyze}, true
		}
	}
	return Event{}, false
}
