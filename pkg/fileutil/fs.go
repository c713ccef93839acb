// Package fileutil provides unified file system access for on-disk projects
// and the embedded demo. Names always use forward slashes and are relative to
// the file system root; the final lookup is case-insensitive per path element,
// so scripts written on case-insensitive systems keep working elsewhere.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// FileSystem は実ファイルシステムと埋め込みファイルシステムを統一的に扱うインターフェース
type FileSystem interface {
	// Open はファイルを開く（大文字小文字を無視）
	Open(name string) (fs.File, error)
	// ReadFile はファイルの内容を読み込む（大文字小文字を無視）
	ReadFile(name string) ([]byte, error)
	// ReadDir はディレクトリの内容を読み込む
	ReadDir(name string) ([]fs.DirEntry, error)
	// Exists はファイルが存在するかを返す
	Exists(name string) bool
	// FS は基底の fs.FS を返す
	FS() fs.FS
	// BasePath はベースパスを返す
	BasePath() string
	// IsEmbedded は埋め込みファイルシステムかどうかを返す
	IsEmbedded() bool
}

// base は RealFS と EmbedFS の共通実装
type base struct {
	fsys     fs.FS
	basePath string
}

func (b *base) Open(name string) (fs.File, error) {
	actual, err := Resolve(b.fsys, name)
	if err != nil {
		return nil, err
	}
	return b.fsys.Open(actual)
}

func (b *base) ReadFile(name string) ([]byte, error) {
	actual, err := Resolve(b.fsys, name)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(b.fsys, actual)
}

func (b *base) ReadDir(name string) ([]fs.DirEntry, error) {
	actual, err := Resolve(b.fsys, name)
	if err != nil {
		return nil, err
	}
	return fs.ReadDir(b.fsys, actual)
}

func (b *base) Exists(name string) bool {
	_, err := Resolve(b.fsys, name)
	return err == nil
}

func (b *base) FS() fs.FS {
	return b.fsys
}

func (b *base) BasePath() string {
	return b.basePath
}

// RealFS は実ファイルシステムへのアクセスを提供する
type RealFS struct {
	base
}

// NewRealFS は実ファイルシステム用のFileSystemを作成する
func NewRealFS(basePath string) *RealFS {
	if basePath == "" {
		basePath = "."
	}
	return &RealFS{base{fsys: os.DirFS(basePath), basePath: basePath}}
}

func (r *RealFS) IsEmbedded() bool {
	return false
}

// EmbedFS は埋め込みファイルシステムへのアクセスを提供する
type EmbedFS struct {
	base
}

// NewEmbedFS は埋め込みファイルシステム用のFileSystemを作成する
// basePath 以下がルートになる
func NewEmbedFS(fsys fs.FS, basePath string) *EmbedFS {
	if basePath != "" && basePath != "." {
		if sub, err := fs.Sub(fsys, basePath); err == nil {
			fsys = sub
		}
	}
	return &EmbedFS{base{fsys: fsys, basePath: basePath}}
}

func (e *EmbedFS) IsEmbedded() bool {
	return true
}

// Clean converts name to a valid fs.FS path: forward slashes, no leading
// slash, no "." or ".." elements. Leading ".." elements are clamped at the root.
func Clean(name string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		cleaned = "."
	}
	if !fs.ValidPath(cleaned) {
		return "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return cleaned, nil
}

// Resolve returns the actual path of name in fsys. Each path element that
// does not exist as written is matched case-insensitively against its
// directory. Missing files yield an error wrapping fs.ErrNotExist.
func Resolve(fsys fs.FS, name string) (string, error) {
	cleaned, err := Clean(name)
	if err != nil {
		return "", err
	}
	// まず直接アクセスを試みる
	if _, err := fs.Stat(fsys, cleaned); err == nil {
		return cleaned, nil
	}
	if cleaned == "." {
		return "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	// 大文字小文字を無視して1要素ずつ検索
	dir := "."
	for _, elem := range strings.Split(cleaned, "/") {
		next := path.Join(dir, elem)
		if _, err := fs.Stat(fsys, next); err != nil {
			found, err := FindCaseInsensitive(fsys, dir, elem)
			if err != nil {
				return "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
			}
			next = found
		}
		dir = next
	}
	return dir, nil
}

// FindCaseInsensitive searches dir for an entry named filename, ignoring case.
// It returns the entry's path within fsys.
func FindCaseInsensitive(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if strings.EqualFold(entry.Name(), filename) {
			return path.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("file not found: %s (searched in %s): %w", filename, dir, fs.ErrNotExist)
}

// WalkDir はディレクトリを再帰的に走査する
// 返されるパスはファイルシステムのルートからの相対パス
func WalkDir(fsys FileSystem, root string, fn fs.WalkDirFunc) error {
	actual, err := Resolve(fsys.FS(), root)
	if err != nil {
		return err
	}
	return fs.WalkDir(fsys.FS(), actual, fn)
}

// IsNotExist reports whether err means a file was not found.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
