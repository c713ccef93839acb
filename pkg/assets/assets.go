// Package assets resolves and decodes the files a script refers to.
//
// Script paths are relative to a category directory under the asset root:
//
//	backgrounds/<path>
//	characters/<name>/<expression>.png
//	audio/music/<path>
//	audio/sfx/<path>
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF デコーダを登録
	_ "image/jpeg" // JPEG デコーダを登録
	_ "image/png"  // PNG デコーダを登録
	"log/slog"
	"path"
	"sync"

	_ "golang.org/x/image/bmp"  // BMP デコーダを登録
	_ "golang.org/x/image/webp" // WebP デコーダを登録

	"github.com/zurustar/vnscript/pkg/fileutil"
	"github.com/zurustar/vnscript/pkg/logger"
)

var (
	// ErrAssetNotFound はアセットが見つからない場合のエラー
	ErrAssetNotFound = errors.New("asset not found")

	// ErrUndecodableImage は画像をデコードできない場合のエラー
	ErrUndecodableImage = errors.New("undecodable image")
)

// Category directories under the asset root.
const (
	BackgroundDir = "backgrounds"
	CharacterDir  = "characters"
	MusicDir      = "audio/music"
	SfxDir        = "audio/sfx"
)

// BackgroundPath returns the asset path of a background image.
func BackgroundPath(p string) string {
	return path.Join(BackgroundDir, p)
}

// CharacterPath returns the asset path of a character sprite.
func CharacterPath(name, expression string) string {
	return path.Join(CharacterDir, name, expression+".png")
}

// MusicPath returns the asset path of a music track.
func MusicPath(p string) string {
	return path.Join(MusicDir, p)
}

// SfxPath returns the asset path of a sound effect.
func SfxPath(p string) string {
	return path.Join(SfxDir, p)
}

// Resolver はアセットの読み込みとキャッシュを行う
type Resolver struct {
	fs     fileutil.FileSystem
	images map[string]image.Image
	log    *slog.Logger
	mu     sync.RWMutex
}

// NewResolver Resolverを作成
func NewResolver(fsys fileutil.FileSystem) *Resolver {
	return &Resolver{
		fs:     fsys,
		images: make(map[string]image.Image),
		log:    logger.GetLogger(),
	}
}

// ReadFile reads an asset. Missing files yield an error wrapping ErrAssetNotFound.
func (r *Resolver) ReadFile(p string) ([]byte, error) {
	data, err := r.fs.ReadFile(p)
	if err != nil {
		if fileutil.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrAssetNotFound, p, err)
		}
		return nil, fmt.Errorf("failed to read asset %s: %w", p, err)
	}
	return data, nil
}

// Exists reports whether the asset exists.
func (r *Resolver) Exists(p string) bool {
	return r.fs.Exists(p)
}

// Image reads and decodes an image asset. Decoded images are cached by path.
func (r *Resolver) Image(p string) (image.Image, error) {
	r.mu.RLock()
	img, ok := r.images[p]
	r.mu.RUnlock()
	if ok {
		return img, nil
	}

	data, err := r.ReadFile(p)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUndecodableImage, p, err)
	}

	r.mu.Lock()
	r.images[p] = img
	r.mu.Unlock()

	r.log.Debug("Image loaded",
		"path", p,
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())
	return img, nil
}

// Background loads a background image by its script path.
func (r *Resolver) Background(p string) (image.Image, error) {
	return r.Image(BackgroundPath(p))
}

// Character loads a character sprite.
func (r *Resolver) Character(name, expression string) (image.Image, error) {
	return r.Image(CharacterPath(name, expression))
}

// Forget drops a cached image.
func (r *Resolver) Forget(p string) {
	r.mu.Lock()
	delete(r.images, p)
	r.mu.Unlock()
}

// Cached returns the number of cached images.
func (r *Resolver) Cached() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.images)
}
