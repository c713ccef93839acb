package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/vnscript/pkg/assets"
	"github.com/zurustar/vnscript/pkg/logger"
)

// NewContext returns the process-wide Ebitengine audio context, creating it
// on first use. Ebitengine allows only one context per process.
func NewContext() *audio.Context {
	if ctx := audio.CurrentContext(); ctx != nil {
		return ctx
	}
	return audio.NewContext(SampleRate)
}

// Mixer はBGMと効果音の再生を管理する
type Mixer struct {
	ctx       *audio.Context
	assets    *assets.Resolver
	soundFont *meltysynth.SoundFont

	music     *audio.Player
	stopMusic func()
	musicPath string
	sfx       []*audio.Player

	muted bool
	log   *slog.Logger
	mu    sync.Mutex
}

// Option is a functional option for configuring the Mixer.
type Option func(*Mixer)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Mixer) {
		m.log = log
	}
}

// WithSoundFont enables MIDI music.
func WithSoundFont(sf *meltysynth.SoundFont) Option {
	return func(m *Mixer) {
		m.soundFont = sf
	}
}

// WithMuted starts the mixer muted. Headless runs use this.
func WithMuted(muted bool) Option {
	return func(m *Mixer) {
		m.muted = muted
	}
}

// NewMixer Mixerを作成
// Audio files are read through resolver from audio/music and audio/sfx.
func NewMixer(ctx *audio.Context, resolver *assets.Resolver, opts ...Option) *Mixer {
	m := &Mixer{
		ctx:    ctx,
		assets: resolver,
		log:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PlayMusic starts a looping track, replacing the current one.
// Failures are logged and the previous track keeps playing.
func (m *Mixer) PlayMusic(p string) {
	if err := m.StartMusic(p); err != nil {
		m.log.Error("PlayMusic failed", "path", p, "error", err)
	}
}

// StopMusic stops the current track.
func (m *Mixer) StopMusic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopMusicLocked()
}

// PlaySfx plays a sound effect once. Failures are logged.
func (m *Mixer) PlaySfx(p string) {
	if err := m.StartSfx(p); err != nil {
		m.log.Error("PlaySfx failed", "path", p, "error", err)
	}
}

// StartMusic is PlayMusic with the error returned.
func (m *Mixer) StartMusic(p string) error {
	assetPath := assets.MusicPath(p)
	data, err := m.assets.ReadFile(assetPath)
	if err != nil {
		return err
	}
	stream, stop, err := Decode(assetPath, data, m.soundFont, true)
	if err != nil {
		return err
	}
	player, err := m.ctx.NewPlayer(stream)
	if err != nil {
		stop()
		return fmt.Errorf("failed to create audio player: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopMusicLocked()
	m.applyVolume(player)
	player.Play()
	m.music = player
	m.stopMusic = stop
	m.musicPath = p

	m.log.Info("Music started", "path", p)
	return nil
}

// StartSfx is PlaySfx with the error returned.
func (m *Mixer) StartSfx(p string) error {
	assetPath := assets.SfxPath(p)
	data, err := m.assets.ReadFile(assetPath)
	if err != nil {
		return err
	}
	stream, _, err := Decode(assetPath, data, m.soundFont, false)
	if err != nil {
		return err
	}
	player, err := m.ctx.NewPlayer(stream)
	if err != nil {
		return fmt.Errorf("failed to create audio player: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cleanupFinishedLocked()
	m.applyVolume(player)
	player.Play()
	m.sfx = append(m.sfx, player)

	m.log.Debug("Sound effect started", "path", p)
	return nil
}

// stopMusicLocked はロック取得済みの状態でBGMを止める
func (m *Mixer) stopMusicLocked() {
	if m.stopMusic != nil {
		m.stopMusic()
		m.stopMusic = nil
	}
	if m.music != nil {
		m.music.Close()
		m.music = nil
		m.log.Info("Music stopped", "path", m.musicPath)
	}
	m.musicPath = ""
}

// cleanupFinishedLocked removes sound effects that have finished playing.
func (m *Mixer) cleanupFinishedLocked() {
	active := m.sfx[:0]
	for _, player := range m.sfx {
		if player.IsPlaying() {
			active = append(active, player)
		} else {
			player.Close()
		}
	}
	clear(m.sfx[len(active):])
	m.sfx = active
}

func (m *Mixer) applyVolume(player *audio.Player) {
	if m.muted {
		player.SetVolume(0)
	} else {
		player.SetVolume(1)
	}
}

// Update releases finished sound effects. Hosts call it once per frame.
func (m *Mixer) Update() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupFinishedLocked()
}

// SetMuted mutes or unmutes all current and future playback.
func (m *Mixer) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.muted = muted
	if m.music != nil {
		m.applyVolume(m.music)
	}
	for _, player := range m.sfx {
		m.applyVolume(player)
	}
}

// IsMuted returns whether the mixer is muted.
func (m *Mixer) IsMuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// MusicPath returns the script path of the current track, or "".
func (m *Mixer) MusicPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.musicPath
}

// ActiveSfx returns the number of sound effects still playing.
func (m *Mixer) ActiveSfx() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupFinishedLocked()
	return len(m.sfx)
}

// Close stops everything.
func (m *Mixer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopMusicLocked()
	for _, player := range m.sfx {
		player.Close()
	}
	m.sfx = nil
}
