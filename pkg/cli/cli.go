package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/vnscript/pkg/logger"
	"github.com/zurustar/vnscript/pkg/script"
	"github.com/zurustar/vnscript/pkg/vars"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	ScriptPath  string                // スクリプトファイルまたはディレクトリ（空なら組み込みデモ）
	AssetRoot   string                // アセットのルートディレクトリ
	Timeout     time.Duration         // タイムアウト時間（0は無制限）
	LogLevel    string                // ログレベル（debug, info, warn, error）
	LogFile     string                // ログの出力先（空なら標準エラー出力）
	Headless    bool                  // ヘッドレスモード
	TUI         bool                  // ターミナルUIモード
	Check       bool                  // 検証のみ
	Mute        bool                  // 音声を無効化
	AutoAdvance bool                  // 台詞を自動で送る（ヘッドレス）
	SoundFont   string                // MIDI用SoundFontのパス
	Vars        map[string]vars.Value // 初期変数
	ShowHelp    bool                  // ヘルプ表示フラグ
}

// ScriptLocation returns the directory scripts are read from and the entry
// script relative to it. name is empty when ScriptPath is a directory and the
// entry has to be discovered. A script inside a scripts/ directory is rooted
// at that directory's parent so that scripts/ and the asset directories are
// siblings.
func (c *Config) ScriptLocation() (root, name string) {
	if c.ScriptPath == "" {
		return "", ""
	}
	if !strings.EqualFold(filepath.Ext(c.ScriptPath), script.Extension) {
		return c.ScriptPath, ""
	}
	dir := filepath.Dir(c.ScriptPath)
	base := filepath.Base(c.ScriptPath)
	if strings.EqualFold(filepath.Base(dir), "scripts") {
		return filepath.Dir(dir), filepath.Base(dir) + "/" + base
	}
	return dir, base
}

// varFlag は --var name=value を繰り返し受け付ける
type varFlag map[string]vars.Value

func (v varFlag) String() string {
	return fmt.Sprintf("%d vars", len(v))
}

func (v varFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || !script.IsValidName(name) {
		return fmt.Errorf("invalid variable %q (want name=value)", s)
	}
	v[name] = vars.ParseLiteral(value)
	return nil
}

// boolFlags は値を取らないフラグ
var boolFlags = map[string]bool{
	"h": true, "help": true,
	"headless": true, "tui": true, "check": true,
	"mute": true, "auto": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("vnscript", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{Vars: make(map[string]vars.Value)}

	var timeoutSec int
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.StringVar(&config.LogFile, "log-file", "", "ログファイル")
	fs.StringVar(&config.AssetRoot, "assets", "", "アセットのルートディレクトリ")
	fs.StringVar(&config.AssetRoot, "a", "", "アセットのルートディレクトリ（短縮形）")
	fs.StringVar(&config.SoundFont, "soundfont", "", "SoundFontファイル")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.BoolVar(&config.TUI, "tui", false, "ターミナルUIモード")
	fs.BoolVar(&config.Check, "check", false, "スクリプトを検証して終了")
	fs.BoolVar(&config.Mute, "mute", false, "音声を無効化")
	fs.BoolVar(&config.AutoAdvance, "auto", false, "台詞を自動で送る")
	fs.Var(varFlag(config.Vars), "var", "初期変数 name=value")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	// 環境変数からタイムアウトを取得（コマンドラインフラグが優先）
	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	// 環境変数からログレベルを取得（コマンドラインフラグが優先）
	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	if config.AssetRoot == "" {
		config.AssetRoot = os.Getenv("VNSCRIPT_ASSETS")
	}
	if config.SoundFont == "" {
		config.SoundFont = os.Getenv("VNSCRIPT_SOUNDFONT")
	}

	// タイムアウトの検証
	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	// ログレベルの検証
	if _, err := logger.ParseLevel(config.LogLevel); err != nil {
		return nil, fmt.Errorf("%w (must be debug, info, warn, or error)", err)
	}
	config.LogLevel = strings.ToLower(config.LogLevel)

	if config.Headless && config.TUI {
		return nil, errors.New("--headless and --tui cannot be combined")
	}

	// 位置引数（スクリプトファイルまたはディレクトリ）
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("too many arguments: %s", strings.Join(fs.Args(), " "))
	}
	if fs.NArg() == 1 {
		config.ScriptPath = fs.Arg(0)
		if config.AssetRoot == "" {
			config.AssetRoot, _ = config.ScriptLocation()
		}
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string
	terminated := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" 以降はすべて位置引数
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			terminated = true
			break
		}

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// 次の引数が値である可能性をチェック
			// （-t 5 のような場合）
			name := strings.TrimLeft(arg, "-")
			if strings.Contains(name, "=") || boolFlags[name] {
				continue
			}
			if i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	if terminated {
		flags = append(flags, "--")
	}
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `vnscript - visual novel script player

Usage:
  vnscript [options] [script]

Arguments:
  script        .vnファイル、またはscripts/main.vnを含むディレクトリ（省略時は組み込みデモ）
                scripts/内のファイルを指定した場合、その親ディレクトリをアセットのルートとする

Options:
  -t, --timeout <seconds>     指定秒数後にプログラムを終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --log-file <path>           ログをファイルに出力（デフォルト: 標準エラー出力）
  -a, --assets <dir>          アセットのルートディレクトリ
  --soundfont <path>          MIDI再生に使うSoundFont（.sf2）
  --var <name=value>          初期変数を設定（複数指定可）
  --headless                  ヘッドレスモード（標準入出力で実行、音声なし）
  --auto                      ヘッドレスモードで台詞を自動で送る
  --tui                       ターミナルUIで実行
  --check                     スクリプトを検証して終了
  --mute                      音声を無効化
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  VNSCRIPT_ASSETS=<dir>       アセットのルートディレクトリ
  VNSCRIPT_SOUNDFONT=<path>   SoundFontファイル

Examples:
  vnscript                                  組み込みデモを実行
  vnscript ./mygame                         ./mygame/scripts/main.vn を実行
  vnscript ./mygame/scripts/chapter2.vn     エントリーファイルを明示的に指定
  vnscript --headless --auto story.vn       台詞を自動で送りながら標準出力に表示
  vnscript --check ./mygame                 スクリプトを検証
  vnscript --var affection=3 ./mygame       変数を設定して開始
`)
}
