package app

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zurustar/vnscript/pkg/runner"
)

// writeGame はテスト用のゲームディレクトリを作成する
func writeGame(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return dir
}

func runApp(t *testing.T, demo fs.FS, args ...string) (string, error) {
	t.Helper()
	for _, name := range []string{"HEADLESS", "TIMEOUT", "LOG_LEVEL", "VNSCRIPT_ASSETS", "VNSCRIPT_SOUNDFONT"} {
		t.Setenv(name, "")
	}
	application := New(demo)
	var out bytes.Buffer
	application.SetIO(strings.NewReader(""), &out)

	logFile := filepath.Join(t.TempDir(), "vnscript.log")
	err := application.Run(append([]string{"--log-file", logFile}, args...))
	return out.String(), err
}

func TestRun_Help(t *testing.T) {
	out, err := runApp(t, nil, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
}

func TestRun_InvalidArgs(t *testing.T) {
	_, err := runApp(t, nil, "--timeout", "-1")
	assert.Error(t, err)
}

func TestRun_CheckOK(t *testing.T) {
	dir := writeGame(t, map[string]string{
		"scripts/main.vn": "label start\nsay hi\njump start\n",
	})

	out, err := runApp(t, nil, "--check", dir)
	require.NoError(t, err)
	assert.Equal(t, "scripts/main.vn: ok\n", out)
}

func TestRun_CheckIssues(t *testing.T) {
	dir := writeGame(t, map[string]string{
		"scripts/main.vn": "jump nowhere\nfrobnicate\n",
	})

	out, err := runApp(t, nil, "--check", dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))
	assert.Contains(t, out, "scripts/main.vn:1: ")
	assert.Contains(t, out, "nowhere")
	assert.Contains(t, out, "scripts/main.vn:2: ")
}

func TestRun_HeadlessAuto(t *testing.T) {
	dir := writeGame(t, map[string]string{
		"scripts/main.vn": "bg color=#000000\nsay Hana: Hello\nsay Bye\n",
	})

	out, err := runApp(t, nil, "--headless", "--auto", filepath.Join(dir, "scripts", "main.vn"))
	require.NoError(t, err)
	assert.Equal(t, "[background #000000]\nHana: Hello\nBye\n[end]\n", out)
}

func TestRun_HeadlessVars(t *testing.T) {
	dir := writeGame(t, map[string]string{
		"story.vn": "if score > 3 jump high\nsay low\njump end\nlabel high\nsay high\nlabel end\n",
	})

	out, err := runApp(t, nil, "--headless", "--auto", "--var", "score=5", filepath.Join(dir, "story.vn"))
	require.NoError(t, err)
	assert.Equal(t, "high\n[end]\n", out)
}

func TestRun_FindsFirstScript(t *testing.T) {
	dir := writeGame(t, map[string]string{
		"chapters/b.vn": "say from b\n",
		"a.vn":          "say from a\n",
	})

	out, err := runApp(t, nil, "--headless", "--auto", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "from a")
}

func TestRun_Demo(t *testing.T) {
	demo := fstest.MapFS{
		"demo/scripts/main.vn": {Data: []byte("say Welcome\n")},
	}

	out, err := runApp(t, demo, "--headless", "--auto")
	require.NoError(t, err)
	assert.Equal(t, "Welcome\n[end]\n", out)
}

func TestRun_NoScript(t *testing.T) {
	_, err := runApp(t, nil, "--headless")
	assert.True(t, errors.Is(err, ErrNoScript))

	empty := writeGame(t, map[string]string{"readme.txt": "nothing here"})
	_, err = runApp(t, nil, "--headless", empty)
	assert.True(t, errors.Is(err, ErrNoScript))
}

func TestRun_MissingDirectory(t *testing.T) {
	_, err := runApp(t, nil, "--headless", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRun_MissingScriptFile(t *testing.T) {
	dir := writeGame(t, map[string]string{"scripts/main.vn": "say hi\n"})

	_, err := runApp(t, nil, "--headless", filepath.Join(dir, "scripts", "other.vn"))
	var rerr *runner.RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, runner.ErrorScriptLoadFailed, rerr.Type)
}

func TestRun_LogFile(t *testing.T) {
	dir := writeGame(t, map[string]string{"scripts/main.vn": "say hi\n"})
	logFile := filepath.Join(t.TempDir(), "run.log")

	t.Setenv("HEADLESS", "")
	application := New(nil)
	application.SetIO(strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, application.Run([]string{"--headless", "--auto", "--log-file", logFile, dir}))

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Application started")
	assert.Contains(t, string(data), "Script loaded")
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "    a\n    b", indent("a\nb\n"))
}
