package audio

import (
	"encoding/binary"
	"fmt"

	"layeh.com/gopus"
)

// Recording uploads use 16 kHz mono Opus at 20 ms frame size. 16 kHz is the
// rate the transcription backends expect, and mono halves the encode cost.
const (
	opusSampleRate  = 16000
	opusChannels    = 1
	opusFrameSizeMs = 20
	// opusFrameSize is the number of samples per channel per 20 ms frame.
	opusFrameSize = opusSampleRate * opusFrameSizeMs / 1000 // 320

	// maxOpusPacket bounds the encoded size of a single frame.
	maxOpusPacket = 4000
)

// MIMEOpusPackets identifies the framed Opus packet stream produced by
// [OpusWriter]. Each packet is prefixed with its length as a big-endian
// uint16; the transcription backend reassembles and decodes the stream.
const MIMEOpusPackets = "audio/x-opus-packets"

// OpusWriter compresses mono PCM into a framed Opus packet stream suitable
// for upload over constrained field links. Feed it frames with Append and
// collect the finished blob with Bytes after the last frame.
//
// Input PCM may be at any sample rate; it is resampled to 16 kHz before
// encoding. Not safe for concurrent use; create one per recording session.
type OpusWriter struct {
	enc     *gopus.Encoder
	pending []int16
	out     []byte
}

// NewOpusWriter creates an OpusWriter ready to accept PCM frames.
func NewOpusWriter() (*OpusWriter, error) {
	enc, err := gopus.NewEncoder(opusSampleRate, opusChannels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("audio: create opus encoder: %w", err)
	}
	return &OpusWriter{enc: enc}, nil
}

// Append resamples the frame to 16 kHz mono and encodes every complete 20 ms
// window. Partial windows are buffered until the next call or Bytes.
func (w *OpusWriter) Append(frame Frame) error {
	pcm := frame.Data
	if frame.Channels == 2 {
		pcm = StereoToMono(pcm)
	}
	pcm = ResampleMono16(pcm, frame.SampleRate, opusSampleRate)
	w.pending = append(w.pending, BytesToInt16s(pcm)...)

	for len(w.pending) >= opusFrameSize {
		if err := w.encodeWindow(w.pending[:opusFrameSize]); err != nil {
			return err
		}
		w.pending = w.pending[opusFrameSize:]
	}
	return nil
}

// Bytes flushes any buffered partial window (zero-padded to a full frame)
// and returns the framed packet stream. The writer must not be reused after
// Bytes is called.
func (w *OpusWriter) Bytes() ([]byte, error) {
	if len(w.pending) > 0 {
		window := make([]int16, opusFrameSize)
		copy(window, w.pending)
		if err := w.encodeWindow(window); err != nil {
			return nil, err
		}
		w.pending = nil
	}
	return w.out, nil
}

func (w *OpusWriter) encodeWindow(window []int16) error {
	packet, err := w.enc.Encode(window, opusFrameSize, maxOpusPacket)
	if err != nil {
		return fmt.Errorf("audio: opus encode: %w", err)
	}
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(packet)))
	w.out = append(w.out, hdr[:]...)
	w.out = append(w.out, packet...)
	return nil
}
