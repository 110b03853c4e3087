package audio_test

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/tanklink/fieldscan/pkg/audio"
)

func TestOpusWriter_FramedPackets(t *testing.T) {
	w, err := audio.NewOpusWriter()
	if err != nil {
		t.Fatalf("NewOpusWriter: %v", err)
	}

	// One second of 16 kHz mono tone: exactly 50 encode windows.
	if err := w.Append(audio.Frame{
		Data:       sinePCM(16000, 440, 10000, 16000),
		SampleRate: 16000,
		Channels:   1,
		Timestamp:  0,
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	blob, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(blob) == 0 {
		t.Fatal("expected non-empty packet stream")
	}

	// Walk the length-prefixed framing and count packets.
	packets := 0
	for off := 0; off < len(blob); {
		if off+2 > len(blob) {
			t.Fatalf("truncated length prefix at offset %d", off)
		}
		n := int(binary.BigEndian.Uint16(blob[off:]))
		off += 2
		if off+n > len(blob) {
			t.Fatalf("packet at offset %d overruns blob (len %d)", off, n)
		}
		off += n
		packets++
	}
	if packets != 50 {
		t.Errorf("packet count: got %d, want 50", packets)
	}
}

func TestOpusWriter_ResamplesInput(t *testing.T) {
	w, err := audio.NewOpusWriter()
	if err != nil {
		t.Fatalf("NewOpusWriter: %v", err)
	}

	// 100 ms of 44.1 kHz stereo input must still produce valid framing.
	stereo := make([]byte, 4410*4)
	if err := w.Append(audio.Frame{
		Data:       stereo,
		SampleRate: 44100,
		Channels:   2,
		Timestamp:  100 * time.Millisecond,
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	blob, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(blob) == 0 {
		t.Fatal("expected non-empty packet stream")
	}
}
