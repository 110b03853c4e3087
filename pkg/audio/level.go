package audio

import "math"

// Default analysis parameters for the level meter. A 256-sample window with
// 128 frequency bins gives a responsive meter at typical capture rates while
// keeping the per-update DFT cost negligible.
const (
	defaultWindowSize = 256
	levelCeiling      = 128.0

	// Decibel range mapped onto the 0–255 bin scale, matching the analyser
	// behaviour the mobile clients were tuned against.
	minDecibels = -100.0
	maxDecibels = -30.0
)

// LevelMeter computes a normalised loudness signal from frequency-domain
// analysis of incoming PCM frames. It keeps a sliding window of the most
// recent samples; each call to [LevelMeter.Process] updates the window and
// returns the current level in [0, 1].
//
// The level is the mean magnitude across all frequency bins, scaled to a
// byte range and normalised against a fixed ceiling. Silence yields 0;
// louder input yields monotonically larger values.
//
// Not safe for concurrent use; create one per recording session.
type LevelMeter struct {
	window []int16
	filled int
}

// NewLevelMeter returns a LevelMeter with the default 256-sample window.
func NewLevelMeter() *LevelMeter {
	return &LevelMeter{window: make([]int16, defaultWindowSize)}
}

// Process appends the mono PCM samples in data (little-endian int16) to the
// sliding window and returns the current normalised level in [0, 1].
// Passing an empty slice recomputes the level over the existing window.
func (m *LevelMeter) Process(data []byte) float64 {
	for i := 0; i+1 < len(data); i += 2 {
		s := int16(data[i]) | int16(data[i+1])<<8
		if m.filled < len(m.window) {
			m.window[m.filled] = s
			m.filled++
			continue
		}
		copy(m.window, m.window[1:])
		m.window[len(m.window)-1] = s
	}
	if m.filled == 0 {
		return 0
	}
	return m.level()
}

// Reset clears the sliding window. The next Process call starts from silence.
func (m *LevelMeter) Reset() {
	m.filled = 0
}

// level runs a DFT over the filled window and averages the bin magnitudes.
func (m *LevelMeter) level() float64 {
	n := m.filled
	bins := n / 2
	if bins == 0 {
		return 0
	}

	var sum float64
	for k := 1; k <= bins; k++ {
		var re, im float64
		omega := 2 * math.Pi * float64(k) / float64(n)
		for i := 0; i < n; i++ {
			angle := omega * float64(i)
			v := float64(m.window[i])
			re += v * math.Cos(angle)
			im -= v * math.Sin(angle)
		}
		// Normalise the bin magnitude against full scale, convert to dB, and
		// map the [minDecibels, maxDecibels] range onto 0–255 the way an
		// 8-bit frequency analyser reports it.
		mag := 2 * math.Hypot(re, im) / (float64(n) * 32767.0)
		db := minDecibels
		if mag > 0 {
			db = 20 * math.Log10(mag)
		}
		frac := (db - minDecibels) / (maxDecibels - minDecibels)
		frac = math.Max(0, math.Min(1, frac))
		sum += frac * 255.0
	}

	level := (sum / float64(bins)) / levelCeiling
	return math.Min(level, 1)
}
