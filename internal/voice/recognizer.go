package voice

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"synoptic/internal/logging"
)

// Recognizer delivers recognized utterances.
type Recognizer interface {
	// Start begins delivering utterances. It does not block.
	Start(ctx context.Context) error
	// Utterances is closed when the recognizer stops.
	Utterances() <-chan string
	// Stop releases the source and waits for delivery to end.
	Stop()
}

// LineRecognizer reads one utterance per line. A regular file is replayed
// once and the recognizer ends at EOF; a FIFO stays open for its writer.
type LineRecognizer struct {
	mu         sync.Mutex
	src        io.ReadCloser
	utterances chan string
	stopCh     chan struct{}
	doneCh     chan struct{}
	running    bool
	stopped    bool
}

// NewLineRecognizer wraps src. Stop closes it.
func NewLineRecognizer(src io.ReadCloser) *LineRecognizer {
	return &LineRecognizer{
		src:        src,
		utterances: make(chan string),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Utterances returns the delivery channel.
func (r *LineRecognizer) Utterances() <-chan string { return r.utterances }

// Start launches the reader goroutine.
func (r *LineRecognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || r.stopped {
		return nil
	}
	r.running = true
	go r.run(ctx)
	return nil
}

// Stop closes the source and waits for the reader to exit.
func (r *LineRecognizer) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	running := r.running
	r.mu.Unlock()

	close(r.stopCh)
	if err := r.src.Close(); err != nil {
		logging.VoiceDebug("close voice source: %v", err)
	}
	if running {
		<-r.doneCh
	} else {
		close(r.utterances)
	}
}

func (r *LineRecognizer) run(ctx context.Context) {
	defer close(r.doneCh)
	defer close(r.utterances)

	// Closing the source unblocks the scanner on cancellation.
	go func() {
		select {
		case <-ctx.Done():
			r.src.Close()
		case <-r.stopCh:
		case <-r.doneCh:
		}
	}()

	scanner := bufio.NewScanner(r.src)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		logging.VoiceDebug("heard %q", line)
		select {
		case r.utterances <- line:
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case <-r.stopCh:
		default:
			logging.Get(logging.CategoryVoice).Warn("voice source read: %v", err)
		}
	}
}
