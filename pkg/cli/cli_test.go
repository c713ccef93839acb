package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zurustar/vnscript/pkg/vars"
)

// clearEnv は設定に影響する環境変数を空にする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"HEADLESS", "TIMEOUT", "LOG_LEVEL", "VNSCRIPT_ASSETS", "VNSCRIPT_SOUNDFONT"} {
		t.Setenv(name, "")
	}
}

func TestParseArgs_ValidArgs(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name:     "デフォルト設定",
			args:     []string{},
			expected: Config{LogLevel: "info"},
		},
		{
			name:     "ディレクトリ指定",
			args:     []string{"/path/to/game"},
			expected: Config{ScriptPath: "/path/to/game", AssetRoot: "/path/to/game", LogLevel: "info"},
		},
		{
			name:     "scripts内のファイル指定",
			args:     []string{"/path/to/game/scripts/main.vn"},
			expected: Config{ScriptPath: "/path/to/game/scripts/main.vn", AssetRoot: "/path/to/game", LogLevel: "info"},
		},
		{
			name:     "単独のファイル指定",
			args:     []string{"stories/demo.vn"},
			expected: Config{ScriptPath: "stories/demo.vn", AssetRoot: "stories", LogLevel: "info"},
		},
		{
			name:     "タイムアウト指定",
			args:     []string{"--timeout", "10"},
			expected: Config{Timeout: 10 * time.Second, LogLevel: "info"},
		},
		{
			name:     "タイムアウト指定（短縮形）",
			args:     []string{"-t", "5"},
			expected: Config{Timeout: 5 * time.Second, LogLevel: "info"},
		},
		{
			name:     "ログレベル指定",
			args:     []string{"--log-level", "DEBUG"},
			expected: Config{LogLevel: "debug"},
		},
		{
			name:     "ログレベル指定（短縮形）",
			args:     []string{"-l", "warning"},
			expected: Config{LogLevel: "warning"},
		},
		{
			name:     "ログファイル",
			args:     []string{"--log-file", "run.log"},
			expected: Config{LogLevel: "info", LogFile: "run.log"},
		},
		{
			name:     "ヘッドレスと自動送り",
			args:     []string{"--headless", "--auto", "game"},
			expected: Config{ScriptPath: "game", AssetRoot: "game", LogLevel: "info", Headless: true, AutoAdvance: true},
		},
		{
			name:     "ターミナルUI",
			args:     []string{"--tui"},
			expected: Config{LogLevel: "info", TUI: true},
		},
		{
			name:     "検証とミュート",
			args:     []string{"game", "--check", "--mute"},
			expected: Config{ScriptPath: "game", AssetRoot: "game", LogLevel: "info", Check: true, Mute: true},
		},
		{
			name:     "アセットとSoundFont",
			args:     []string{"-a", "assets", "--soundfont=gm.sf2", "game/scripts/main.vn"},
			expected: Config{ScriptPath: "game/scripts/main.vn", AssetRoot: "assets", SoundFont: "gm.sf2", LogLevel: "info"},
		},
		{
			name:     "ヘルプ表示",
			args:     []string{"--help"},
			expected: Config{LogLevel: "info", ShowHelp: true},
		},
		{
			name:     "ヘルプ表示（短縮形）",
			args:     []string{"-h"},
			expected: Config{LogLevel: "info", ShowHelp: true},
		},
		{
			name:     "位置引数が最初（順序に関係なく動作）",
			args:     []string{"game", "--timeout", "10", "--headless"},
			expected: Config{ScriptPath: "game", AssetRoot: "game", Timeout: 10 * time.Second, LogLevel: "info", Headless: true},
		},
		{
			name:     "ダッシュで始まるファイル名",
			args:     []string{"--", "-odd.vn"},
			expected: Config{ScriptPath: "-odd.vn", AssetRoot: ".", LogLevel: "info"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if config.ScriptPath != tt.expected.ScriptPath {
				t.Errorf("ScriptPath = %q, want %q", config.ScriptPath, tt.expected.ScriptPath)
			}
			if config.AssetRoot != filepath.FromSlash(tt.expected.AssetRoot) {
				t.Errorf("AssetRoot = %q, want %q", config.AssetRoot, tt.expected.AssetRoot)
			}
			if config.Timeout != tt.expected.Timeout {
				t.Errorf("Timeout = %v, want %v", config.Timeout, tt.expected.Timeout)
			}
			if config.LogLevel != tt.expected.LogLevel {
				t.Errorf("LogLevel = %q, want %q", config.LogLevel, tt.expected.LogLevel)
			}
			if config.LogFile != tt.expected.LogFile {
				t.Errorf("LogFile = %q, want %q", config.LogFile, tt.expected.LogFile)
			}
			if config.SoundFont != tt.expected.SoundFont {
				t.Errorf("SoundFont = %q, want %q", config.SoundFont, tt.expected.SoundFont)
			}
			if config.Headless != tt.expected.Headless {
				t.Errorf("Headless = %v, want %v", config.Headless, tt.expected.Headless)
			}
			if config.TUI != tt.expected.TUI {
				t.Errorf("TUI = %v, want %v", config.TUI, tt.expected.TUI)
			}
			if config.Check != tt.expected.Check || config.Mute != tt.expected.Mute {
				t.Errorf("Check/Mute = %v/%v, want %v/%v", config.Check, config.Mute, tt.expected.Check, tt.expected.Mute)
			}
			if config.AutoAdvance != tt.expected.AutoAdvance {
				t.Errorf("AutoAdvance = %v, want %v", config.AutoAdvance, tt.expected.AutoAdvance)
			}
			if config.ShowHelp != tt.expected.ShowHelp {
				t.Errorf("ShowHelp = %v, want %v", config.ShowHelp, tt.expected.ShowHelp)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "負のタイムアウト", args: []string{"--timeout", "-10"}},
		{name: "数値でないタイムアウト", args: []string{"--timeout", "soon"}},
		{name: "無効なログレベル", args: []string{"--log-level", "invalid"}},
		{name: "無効なログレベル（短縮形）", args: []string{"-l", "trace"}},
		{name: "ヘッドレスとTUIの併用", args: []string{"--headless", "--tui"}},
		{name: "位置引数が多すぎる", args: []string{"a.vn", "b.vn"}},
		{name: "不正な変数", args: []string{"--var", "novalue"}},
		{name: "不正な変数名", args: []string{"--var", "a+b=2"}},
		{name: "未知のフラグ", args: []string{"--fullscreen"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseArgs_Vars(t *testing.T) {
	clearEnv(t)

	config, err := ParseArgs([]string{"--var", "count=3", "--var", "name=Hana", "--var", "ratio=0.5", "--var", "met=true"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]vars.Value{
		"count": vars.Int(3),
		"name":  vars.Text("Hana"),
		"ratio": vars.Float(0.5),
		"met":   vars.Bool(true),
	}
	if len(config.Vars) != len(want) {
		t.Fatalf("expected %d vars, got %d", len(want), len(config.Vars))
	}
	for name, v := range want {
		got, ok := config.Vars[name]
		if !ok || !got.Equal(v) || got.Kind() != v.Kind() {
			t.Errorf("var %s = %v (%v), want %v (%v)", name, got, got.Kind(), v, v.Kind())
		}
	}
}

func TestParseArgs_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HEADLESS", "true")
	t.Setenv("TIMEOUT", "7")
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("VNSCRIPT_ASSETS", "/srv/assets")
	t.Setenv("VNSCRIPT_SOUNDFONT", "/srv/gm.sf2")

	config, err := ParseArgs([]string{"game"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !config.Headless {
		t.Error("HEADLESS should enable headless mode")
	}
	if config.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s", config.Timeout)
	}
	if config.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", config.LogLevel)
	}
	if config.AssetRoot != "/srv/assets" {
		t.Errorf("AssetRoot = %q, want /srv/assets", config.AssetRoot)
	}
	if config.SoundFont != "/srv/gm.sf2" {
		t.Errorf("SoundFont = %q, want /srv/gm.sf2", config.SoundFont)
	}
}

func TestParseArgs_FlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEOUT", "7")
	t.Setenv("LOG_LEVEL", "error")

	config, err := ParseArgs([]string{"-t", "3", "-l", "debug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", config.Timeout)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", config.LogLevel)
	}
}

func TestScriptLocation(t *testing.T) {
	tests := []struct {
		path     string
		wantRoot string
		wantName string
	}{
		{"", "", ""},
		{"game", "game", ""},
		{"game/scripts/main.vn", "game", "scripts/main.vn"},
		{"game/Scripts/Intro.VN", "game", "Scripts/Intro.VN"},
		{"stories/demo.vn", "stories", "demo.vn"},
	}
	for _, tt := range tests {
		c := &Config{ScriptPath: filepath.FromSlash(tt.path)}
		root, name := c.ScriptLocation()
		if root != filepath.FromSlash(tt.wantRoot) || name != tt.wantName {
			t.Errorf("ScriptLocation(%q) = (%q, %q), want (%q, %q)", tt.path, root, name, tt.wantRoot, tt.wantName)
		}
	}
}

func TestReorderArgs(t *testing.T) {
	got := reorderArgs([]string{"game", "--headless", "-t", "5", "--var=a=1", "--log-level", "debug"})
	want := "--headless -t 5 --var=a=1 --log-level debug game"
	if strings.Join(got, " ") != want {
		t.Errorf("reorderArgs = %q, want %q", strings.Join(got, " "), want)
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)
	for _, want := range []string{"Usage:", "--headless", "--tui", "--check", "--var", "VNSCRIPT_ASSETS"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help text should mention %s", want)
		}
	}
}
