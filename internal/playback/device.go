package playback

import (
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// speakerDevice plays through the host's default audio output via the beep
// speaker, which owns the single OS-level audio handle for the process.
type speakerDevice struct{}

func (speakerDevice) Start(sampleRate int) error {
	sr := beep.SampleRate(sampleRate)
	// 100 ms of buffer keeps the output glitch-free without adding
	// noticeable stop latency.
	return speaker.Init(sr, sr.N(time.Second/10))
}

func (speakerDevice) Play(samples []float64, done func()) {
	speaker.Play(beep.Seq(&monoStreamer{samples: samples}, beep.Callback(done)))
}

func (speakerDevice) Stop() {
	speaker.Clear()
}

// monoStreamer streams decoded mono samples to both output channels.
type monoStreamer struct {
	samples []float64
	pos     int
}

func (m *monoStreamer) Stream(out [][2]float64) (int, bool) {
	if m.pos >= len(m.samples) {
		return 0, false
	}
	n := 0
	for i := range out {
		if m.pos >= len(m.samples) {
			break
		}
		v := m.samples[m.pos]
		out[i][0] = v
		out[i][1] = v
		m.pos++
		n++
	}
	return n, true
}

func (m *monoStreamer) Err() error { return nil }
