// Package voice turns an external speech-to-text feed into utterances for
// the command router.
//
// Recognition itself happens outside synoptic: a separate process writes one
// recognized utterance per line to a file or FIFO named by voice.source.
package voice

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"synoptic/internal/config"
	"synoptic/internal/logging"
)

// UnsupportedMessage is the blocking warning shown when Detect fails.
const UnsupportedMessage = "Voice input is not available. Configure voice.source to enable voice commands."

// ErrUnsupported is returned by Detect when no voice source can be used.
var ErrUnsupported = errors.New("voice input not supported")

// Capture is the listening toggle. Utterances arriving while not listening
// are discarded. It is owned by the UI loop.
type Capture struct {
	supported bool
	listening bool
}

// NewCapture creates a stopped capture.
func NewCapture(supported bool) *Capture {
	return &Capture{supported: supported}
}

// Supported reports whether a recognizer is attached.
func (c *Capture) Supported() bool { return c.supported }

// Listening reports the current state.
func (c *Capture) Listening() bool { return c.listening }

// Start begins listening. It returns false when voice is unsupported.
func (c *Capture) Start() bool {
	if !c.supported {
		return false
	}
	if !c.listening {
		logging.Voice("listening started")
	}
	c.listening = true
	return true
}

// Stop stops listening.
func (c *Capture) Stop() {
	if c.listening {
		logging.Voice("listening stopped")
	}
	c.listening = false
}

// Toggle flips the state and returns the new one.
func (c *Capture) Toggle() bool {
	if c.listening {
		c.Stop()
		return false
	}
	return c.Start()
}

// Accept reports whether utterance should be routed, returning it trimmed.
func (c *Capture) Accept(utterance string) (string, bool) {
	u := strings.TrimSpace(utterance)
	if u == "" {
		return "", false
	}
	if !c.listening {
		logging.VoiceDebug("discarding %q: not listening", u)
		return "", false
	}
	return u, true
}

// Detect opens the configured voice source once. An empty or unopenable
// source yields ErrUnsupported.
func Detect(cfg config.VoiceConfig) (*LineRecognizer, error) {
	if cfg.Source == "" {
		return nil, ErrUnsupported
	}
	info, err := os.Stat(cfg.Source)
	if err != nil {
		logging.Get(logging.CategoryVoice).Warn("voice source %s: %v", cfg.Source, err)
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	flag := os.O_RDONLY
	if info.Mode()&os.ModeNamedPipe != 0 {
		// Opening a FIFO read-write does not wait for a writer.
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(cfg.Source, flag, 0)
	if err != nil {
		logging.Get(logging.CategoryVoice).Warn("open voice source %s: %v", cfg.Source, err)
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	logging.Voice("voice source %s opened", cfg.Source)
	return NewLineRecognizer(f), nil
}
