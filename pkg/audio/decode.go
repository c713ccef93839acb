// Package audio plays the music and sound effects a script asks for.
// Music loops until stopped or replaced; sound effects play once and overlap.
// WAV, MP3 and Ogg Vorbis are decoded by Ebitengine; Standard MIDI Files are
// rendered through a SoundFont with go-meltysynth.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

// SampleRate is the sample rate of the audio context and MIDI synthesis.
const SampleRate = 44100

var (
	// ErrUnsupportedAudioFormat is returned for file extensions no decoder handles.
	ErrUnsupportedAudioFormat = errors.New("unsupported audio format")

	// ErrInvalidAudio is returned when a file cannot be decoded.
	ErrInvalidAudio = errors.New("invalid audio data")

	// ErrNoSoundFont is returned when MIDI playback is requested without a SoundFont.
	ErrNoSoundFont = errors.New("SoundFont file is required for MIDI playback")

	// ErrSoundFontNotFound is returned when the SoundFont file cannot be found.
	ErrSoundFontNotFound = errors.New("SoundFont file not found")
)

// Format is an audio container format.
type Format string

const (
	FormatWAV    Format = "wav"
	FormatMP3    Format = "mp3"
	FormatVorbis Format = "ogg"
	FormatMIDI   Format = "midi"
)

// FormatOf returns the format implied by the file extension of name.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".wav":
		return FormatWAV, nil
	case ".mp3":
		return FormatMP3, nil
	case ".ogg", ".oga":
		return FormatVorbis, nil
	case ".mid", ".midi":
		return FormatMIDI, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAudioFormat, name)
	}
}

// LoadSoundFont reads and parses a SoundFont (.sf2) file.
func LoadSoundFont(p string) (*meltysynth.SoundFont, error) {
	if p == "" {
		return nil, ErrNoSoundFont
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSoundFontNotFound, p)
		}
		return nil, fmt.Errorf("failed to read SoundFont file: %w", err)
	}
	return ParseSoundFont(data)
}

// ParseSoundFont parses SoundFont data read from any file system.
func ParseSoundFont(data []byte) (*meltysynth.SoundFont, error) {
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SoundFont: %w", err)
	}
	return sf, nil
}

// Decode turns encoded audio into a 16-bit stereo stream at SampleRate.
// With loop set the stream repeats forever. The returned closer stops
// rendering for streams that synthesize audio and is a no-op otherwise.
func Decode(name string, data []byte, sf *meltysynth.SoundFont, loop bool) (io.Reader, func(), error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, nil, err
	}

	var stream interface {
		io.ReadSeeker
		Length() int64
	}
	switch format {
	case FormatWAV:
		stream, err = wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
	case FormatMP3:
		stream, err = mp3.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
	case FormatVorbis:
		stream, err = vorbis.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
	case FormatMIDI:
		midi, err := newMIDIStream(data, sf, loop)
		if err != nil {
			return nil, nil, err
		}
		return midi, midi.Stop, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrInvalidAudio, name, err)
	}

	if loop {
		return audio.NewInfiniteLoop(stream, stream.Length()), func() {}, nil
	}
	return stream, func() {}, nil
}
