package script

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/vnscript/pkg/fileutil"
)

// Extension is the file extension of script files.
const Extension = ".vn"

// Loader はスクリプトファイルの読み込みを行う
type Loader struct {
	fs fileutil.FileSystem
}

// NewLoader Loaderを作成
func NewLoader(fsys fileutil.FileSystem) *Loader {
	return &Loader{fs: fsys}
}

// FileSystem returns the file system scripts are read from.
func (l *Loader) FileSystem() fileutil.FileSystem {
	return l.fs
}

// Load reads the named script and returns its text as UTF-8 with LF line endings.
func (l *Loader) Load(name string) (string, error) {
	data, err := l.fs.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read script %s: %w", name, err)
	}
	content, err := Decode(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode script %s: %w", name, err)
	}
	return content, nil
}

// FindScripts lists the script files under dir, sorted by path.
// The extension is matched case-insensitively.
func (l *Loader) FindScripts(dir string) ([]string, error) {
	var scripts []string
	err := fileutil.WalkDir(l.fs, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(path.Ext(p), Extension) {
			scripts = append(scripts, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find script files: %w", err)
	}
	sort.Strings(scripts)
	return scripts, nil
}

// Decode converts raw script bytes to text.
// Valid UTF-8 has its byte order mark removed; anything else is decoded as Shift-JIS.
// CRLF and lone CR line endings become LF.
func Decode(data []byte) (string, error) {
	var text []byte
	if utf8.Valid(data) {
		decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode UTF-8: %w", err)
		}
		text = decoded
	} else {
		// Shift-JISからUTF-8に変換
		reader := transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder())
		decoded, err := io.ReadAll(reader)
		if err != nil {
			return "", fmt.Errorf("failed to decode Shift-JIS: %w", err)
		}
		text = decoded
	}

	text = bytes.ReplaceAll(text, []byte("\r\n"), []byte("\n"))
	text = bytes.ReplaceAll(text, []byte("\r"), []byte("\n"))
	return string(text), nil
}
