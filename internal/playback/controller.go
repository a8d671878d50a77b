package playback

import (
	"fmt"
	"sync"
)

// State of the controller. Loading only lasts for the decode step inside
// Play; observers see Idle or Playing.
type State int

const (
	StateIdle State = iota
	StateLoading
	StatePlaying
)

// Device is the audio output. The process holds a single device; it is
// acquired lazily on first play and reused, never released.
type Device interface {
	// Start acquires the device for the given sample rate. Called once.
	Start(sampleRate int) error
	// Play queues mono samples and calls done when they have been fully
	// consumed. A new Play supersedes anything still queued after Stop.
	Play(samples []float64, done func())
	// Stop discards whatever is queued, silencing the device.
	Stop()
}

type session struct {
	done   chan struct{}
	closed bool
}

// Controller enforces "at most one sound plays at a time": starting a new
// session forcibly terminates the previous one, and Stop is idempotent.
type Controller struct {
	mu      sync.Mutex
	device  Device
	started bool
	state   State
	current *session
}

// NewController builds a controller over the given device; nil selects the
// default speaker output.
func NewController(device Device) *Controller {
	if device == nil {
		device = speakerDevice{}
	}
	return &Controller{device: device}
}

// Play decodes the fixed-encoding payload and starts playback, stopping any
// session already active. The returned channel is closed when playback
// reaches the natural end of the data, or when the session is superseded or
// stopped.
func (c *Controller) Play(pcm []byte) (<-chan struct{}, error) {
	c.mu.Lock()

	c.stopLocked()
	c.state = StateLoading

	samples, err := DecodePCM(pcm)
	if err != nil {
		c.state = StateIdle
		c.mu.Unlock()
		return nil, err
	}

	if !c.started {
		if err := c.device.Start(SampleRate); err != nil {
			c.state = StateIdle
			c.mu.Unlock()
			return nil, fmt.Errorf("failed to acquire audio device: %w", err)
		}
		c.started = true
	}

	sess := &session{done: make(chan struct{})}
	c.current = sess
	c.state = StatePlaying
	c.mu.Unlock()

	// Queue outside the lock: a device may report end-of-data at any point,
	// including synchronously, and finish needs the lock.
	c.device.Play(samples, func() { c.finish(sess) })
	return sess.done, nil
}

// Stop terminates the active session, if any. Safe to call when idle or
// after the session already finished on its own.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) stopLocked() {
	if c.current == nil {
		return
	}
	sess := c.current
	c.current = nil
	c.state = StateIdle
	c.device.Stop()
	if !sess.closed {
		sess.closed = true
		close(sess.done)
	}
}

// finish is the end-of-data callback; it may fire for a session that was
// already superseded, in which case it must not touch the new one.
func (c *Controller) finish(sess *session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == sess {
		c.current = nil
		c.state = StateIdle
	}
	if !sess.closed {
		sess.closed = true
		close(sess.done)
	}
}
