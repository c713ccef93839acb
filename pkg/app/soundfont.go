package app

import (
	"os"
	"path"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/vnscript/pkg/audio"
	"github.com/zurustar/vnscript/pkg/fileutil"
)

// SoundFontLocation represents the location of a SoundFont file.
type SoundFontLocation struct {
	// Path is the path to the SoundFont file
	Path string
	// FileSystem is the FileSystem to use for loading (nil for external files)
	FileSystem fileutil.FileSystem
	// IsEmbedded indicates whether the SoundFont is embedded
	IsEmbedded bool
}

// DefaultSoundFontName is the default SoundFont filename to search for.
const DefaultSoundFontName = "GeneralUser-GS.sf2"

// findSoundFont searches for a SoundFont file in the following order:
// 1. The explicit path (--soundfont or VNSCRIPT_SOUNDFONT)
// 2. audio/ in the asset file system
// 3. The root of the asset file system
// 4. Current directory (external)
//
// It returns nil if none is found.
func findSoundFont(explicit string, assetFS fileutil.FileSystem) *SoundFontLocation {
	// 1. 明示的に指定されたファイル
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return &SoundFontLocation{Path: explicit}
		}
	}

	// 2, 3. アセットのファイルシステム
	if assetFS != nil {
		for _, p := range []string{path.Join("audio", DefaultSoundFontName), DefaultSoundFontName} {
			if assetFS.Exists(p) {
				return &SoundFontLocation{
					Path:       p,
					FileSystem: assetFS,
					IsEmbedded: assetFS.IsEmbedded(),
				}
			}
		}
	}

	// 4. カレントディレクトリ
	if _, err := os.Stat(DefaultSoundFontName); err == nil {
		return &SoundFontLocation{Path: DefaultSoundFontName}
	}

	return nil
}

// Load reads and parses the SoundFont.
func (l *SoundFontLocation) Load() (*meltysynth.SoundFont, error) {
	if l.FileSystem == nil {
		return audio.LoadSoundFont(l.Path)
	}
	data, err := l.FileSystem.ReadFile(l.Path)
	if err != nil {
		return nil, err
	}
	return audio.ParseSoundFont(data)
}

// loadSoundFont はSoundFontを探して読み込む
// MIDI music is optional: a missing or broken SoundFont is logged and nil
// is returned.
func (app *Application) loadSoundFont(assetFS fileutil.FileSystem) *meltysynth.SoundFont {
	if app.config.SoundFont != "" {
		if _, err := os.Stat(app.config.SoundFont); err != nil {
			app.log.Warn("SoundFont not found", "path", app.config.SoundFont, "error", err)
		}
	}

	loc := findSoundFont(app.config.SoundFont, assetFS)
	if loc == nil {
		app.log.Info("No SoundFont found, MIDI music disabled")
		return nil
	}
	sf, err := loc.Load()
	if err != nil {
		app.log.Warn("Failed to load SoundFont, MIDI music disabled", "path", loc.Path, "error", err)
		return nil
	}
	app.log.Info("SoundFont loaded", "path", loc.Path, "embedded", loc.IsEmbedded)
	return sf
}
