package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// MIDIStream implements io.Reader for Ebitengine/audio.
// It renders audio samples from the MIDI sequencer.
type MIDIStream struct {
	sequencer   *meltysynth.MidiFileSequencer
	sampleCount int64
	stopped     bool
	mu          sync.Mutex
}

// newMIDIStream はMIDIデータからストリームを作成する
func newMIDIStream(data []byte, sf *meltysynth.SoundFont, loop bool) (*MIDIStream, error) {
	if sf == nil {
		return nil, ErrNoSoundFont
	}
	midi, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAudio, err)
	}
	synth, err := meltysynth.NewSynthesizer(sf, meltysynth.NewSynthesizerSettings(SampleRate))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	sequencer := meltysynth.NewMidiFileSequencer(synth)
	sequencer.Play(midi, loop)
	return &MIDIStream{sequencer: sequencer}, nil
}

// Read implements io.Reader interface for MIDIStream.
// It renders audio samples from the sequencer and converts them to int16 format.
func (s *MIDIStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.sequencer == nil {
		clear(p)
		return len(p), nil
	}

	// 16ビットステレオ = 1サンプル4バイト
	samples := len(p) / 4
	if samples == 0 {
		return 0, nil
	}

	left := make([]float32, samples)
	right := make([]float32, samples)
	s.sequencer.Render(left, right)
	s.sampleCount += int64(samples)

	for i := range samples {
		l := int16(clamp(left[i], -1, 1) * 32767)
		r := int16(clamp(right[i], -1, 1) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}

	return samples * 4, nil
}

// Stop marks the stream as stopped, causing Read to return silence.
func (s *MIDIStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// SampleCount returns the total number of samples rendered.
func (s *MIDIStream) SampleCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleCount
}

// clamp restricts a value to the range [lo, hi].
func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
