package audio_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/tanklink/fieldscan/pkg/audio"
)

// samplesToBytes converts a slice of int16 samples to little-endian byte representation.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

// sinePCM generates a mono sine wave at the given frequency, amplitude, and
// sample rate containing n samples.
func sinePCM(n int, freq float64, amplitude float64, rate int) []byte {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return samplesToBytes(samples)
}

func TestStereoToMono(t *testing.T) {
	// Two stereo frames: L=100,R=200 and L=-100,R=-200
	stereo := samplesToBytes([]int16{100, 200, -100, -200})
	mono := audio.StereoToMono(stereo)
	got := bytesToSamples(mono)
	want := []int16{150, -150}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResampleMono16_HalvesSampleCount(t *testing.T) {
	src := sinePCM(440, 440, 10000, 32000)
	dst := audio.ResampleMono16(src, 32000, 16000)
	if len(dst) != len(src)/2 {
		t.Fatalf("resampled length: got %d bytes, want %d", len(dst), len(src)/2)
	}
}

func TestResampleMono16_SameRateReturnsInput(t *testing.T) {
	src := sinePCM(64, 440, 10000, 16000)
	dst := audio.ResampleMono16(src, 16000, 16000)
	if &dst[0] != &src[0] {
		t.Error("expected input slice to be returned unchanged for equal rates")
	}
}

func TestInt16Roundtrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 12345}
	got := audio.BytesToInt16s(audio.Int16sToBytes(in))
	if len(got) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], in[i])
		}
	}
}

// ---- level meter ------------------------------------------------------------

func TestLevelMeter_SilenceIsZero(t *testing.T) {
	m := audio.NewLevelMeter()
	level := m.Process(make([]byte, 512))
	if level != 0 {
		t.Errorf("silence level: got %v, want 0", level)
	}
}

func TestLevelMeter_ToneAboveSilence(t *testing.T) {
	m := audio.NewLevelMeter()
	level := m.Process(sinePCM(512, 440, 10000, 44100))
	if level <= 0 {
		t.Fatalf("tone level: got %v, want > 0", level)
	}
	if level > 1 {
		t.Errorf("tone level: got %v, want <= 1", level)
	}
}

func TestLevelMeter_MonotonicWithAmplitude(t *testing.T) {
	quiet := audio.NewLevelMeter().Process(sinePCM(512, 440, 500, 44100))
	loud := audio.NewLevelMeter().Process(sinePCM(512, 440, 20000, 44100))
	if loud <= quiet {
		t.Errorf("expected louder input to meter higher: quiet=%v loud=%v", quiet, loud)
	}
}

func TestLevelMeter_ResetClearsWindow(t *testing.T) {
	m := audio.NewLevelMeter()
	m.Process(sinePCM(512, 440, 20000, 44100))
	m.Reset()
	if level := m.Process(nil); level != 0 {
		t.Errorf("level after reset: got %v, want 0", level)
	}
}
