// Package app wires the command line, the script, the presentation
// collaborators and a host together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/zurustar/vnscript/pkg/assets"
	"github.com/zurustar/vnscript/pkg/audio"
	"github.com/zurustar/vnscript/pkg/cli"
	"github.com/zurustar/vnscript/pkg/fileutil"
	"github.com/zurustar/vnscript/pkg/headless"
	"github.com/zurustar/vnscript/pkg/logger"
	"github.com/zurustar/vnscript/pkg/runner"
	"github.com/zurustar/vnscript/pkg/script"
	"github.com/zurustar/vnscript/pkg/stage"
	"github.com/zurustar/vnscript/pkg/terminal"
	"github.com/zurustar/vnscript/pkg/vars"
	"github.com/zurustar/vnscript/pkg/window"
)

// DemoDir is the directory of the embedded demo inside the demo file system.
const DemoDir = "demo"

// MainScript is the entry script looked up in a game directory.
const MainScript = "scripts/main.vn"

var (
	// ErrValidationFailed is returned by --check when the script has issues.
	ErrValidationFailed = errors.New("script validation failed")

	// ErrNoScript is returned when a directory contains no script.
	ErrNoScript = errors.New("no script found")
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config    *cli.Config
	log       *slog.Logger
	demo      fs.FS
	stdin     io.Reader
	stdout    io.Writer
	logCloser io.Closer
}

// New Applicationを作成
// demo holds the embedded demo game under DemoDir; it may be nil.
func New(demo fs.FS) *Application {
	return &Application{
		demo:   demo,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

// SetIO replaces standard input and output. Tests use it.
func (app *Application) SetIO(in io.Reader, out io.Writer) {
	app.stdin = in
	app.stdout = out
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	config, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	app.config = config

	if config.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer app.closeLogger()

	app.log.Info("Application started")

	// 3. スクリプトの場所を決定
	scriptFS, entry, err := app.resolveScript()
	if err != nil {
		return fmt.Errorf("failed to resolve script: %w", err)
	}
	loader := script.NewLoader(scriptFS)
	app.log.Info("Script selected", "entry", entry, "root", scriptFS.BasePath(), "embedded", scriptFS.IsEmbedded())

	// 4. 検証のみ
	if config.Check {
		return app.check(loader, entry)
	}

	// 5. 表示系とランナーの構築
	assetFS := app.assetFS(scriptFS)
	resolver := assets.NewResolver(assetFS)
	st := stage.New()

	var mixer *audio.Mixer
	if !config.Headless {
		mixer = app.newMixer(resolver, assetFS)
		defer mixer.Close()
	}

	r := app.newRunner(st, mixer)
	warnings, err := r.LoadFile(loader, entry)
	if err != nil {
		return err
	}
	app.log.Info("Script ready", "entry", entry, "instructions", r.Len(), "warnings", len(warnings))

	// 6. ホストの実行
	if err := app.runHost(r, st, resolver, mixer, entry); err != nil {
		return err
	}

	app.log.Info("Application terminated normally")
	return nil
}

// initLogger ロガーを初期化
// The terminal UI owns the screen, so without --log-file its logs are dropped.
func (app *Application) initLogger() error {
	var w io.Writer
	switch {
	case app.config.LogFile != "":
		f, err := os.Create(app.config.LogFile)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		app.logCloser = f
		w = f
	case app.config.TUI:
		w = io.Discard
	}
	if err := logger.InitLogger(app.config.LogLevel, w); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

func (app *Application) closeLogger() {
	if app.logCloser != nil {
		app.logCloser.Close()
		app.logCloser = nil
	}
}

// resolveScript はスクリプトのファイルシステムとエントリー名を返す
func (app *Application) resolveScript() (fileutil.FileSystem, string, error) {
	root, name := app.config.ScriptLocation()

	var fsys fileutil.FileSystem
	if root == "" {
		if app.demo == nil {
			return nil, "", fmt.Errorf("%w: no script given and no embedded demo", ErrNoScript)
		}
		fsys = fileutil.NewEmbedFS(app.demo, DemoDir)
	} else {
		info, err := os.Stat(root)
		if err != nil {
			return nil, "", err
		}
		if !info.IsDir() {
			return nil, "", fmt.Errorf("not a script or directory: %s", root)
		}
		fsys = fileutil.NewRealFS(root)
	}

	if name != "" {
		return fsys, name, nil
	}
	name, err := findEntry(fsys)
	if err != nil {
		return nil, "", fmt.Errorf("%w in %s", err, fsys.BasePath())
	}
	return fsys, name, nil
}

// findEntry はscripts/main.vn、無ければ最初に見つかったスクリプトを返す
func findEntry(fsys fileutil.FileSystem) (string, error) {
	if fsys.Exists(MainScript) {
		return MainScript, nil
	}
	found, err := script.NewLoader(fsys).FindScripts(".")
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", ErrNoScript
	}
	return found[0], nil
}

// assetFS はアセットのファイルシステムを返す
// An explicit asset root wins; otherwise assets live next to the scripts.
func (app *Application) assetFS(scriptFS fileutil.FileSystem) fileutil.FileSystem {
	if app.config.AssetRoot != "" && app.config.AssetRoot != scriptFS.BasePath() {
		return fileutil.NewRealFS(app.config.AssetRoot)
	}
	return scriptFS
}

// check はスクリプトを検証して問題を出力する
func (app *Application) check(loader *script.Loader, entry string) error {
	source, err := loader.Load(entry)
	if err != nil {
		return runner.NewScriptLoadError(entry, err)
	}
	issues := script.Validate(source)
	for _, w := range issues {
		fmt.Fprintf(app.stdout, "%s:%d: %s\n", entry, w.Line, w.Message)
		if w.Context != "" {
			fmt.Fprintln(app.stdout, indent(w.Context))
		}
	}
	if len(issues) > 0 {
		return fmt.Errorf("%w: %d issue(s) in %s", ErrValidationFailed, len(issues), entry)
	}
	fmt.Fprintf(app.stdout, "%s: ok\n", entry)
	return nil
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

// newMixer は音声ミキサーを作成する
func (app *Application) newMixer(resolver *assets.Resolver, assetFS fileutil.FileSystem) *audio.Mixer {
	opts := []audio.Option{
		audio.WithLogger(app.log),
		audio.WithMuted(app.config.Mute),
	}
	if sf := app.loadSoundFont(assetFS); sf != nil {
		opts = append(opts, audio.WithSoundFont(sf))
	}
	return audio.NewMixer(audio.NewContext(), resolver, opts...)
}

// newRunner はステージとミキサーにつながったランナーを作成する
func (app *Application) newRunner(st *stage.Stage, mixer *audio.Mixer) *runner.Runner {
	store := vars.NewStore()
	for name, v := range app.config.Vars {
		store.Set(name, v)
		app.log.Debug("Variable seeded", "name", name, "value", v.String(), "kind", v.Kind().String())
	}

	var out runner.Audio = st
	if mixer != nil {
		out = runner.MultiAudio{st, mixer}
	}
	return runner.New(
		runner.WithLogger(app.log),
		runner.WithDialogue(st),
		runner.WithScene(st),
		runner.WithAudio(out),
		runner.WithVars(store),
	)
}

// runHost は設定に応じたホストで実行する
func (app *Application) runHost(r *runner.Runner, st *stage.Stage, resolver *assets.Resolver, mixer *audio.Mixer, entry string) error {
	title := "vnscript - " + entry

	switch {
	case app.config.Headless:
		app.log.Info("Running headless", "auto", app.config.AutoAdvance)
		host := headless.New(r, st, app.stdin, app.stdout,
			headless.WithTimeout(app.config.Timeout),
			headless.WithAutoAdvance(app.config.AutoAdvance),
			headless.WithLogger(app.log),
		)
		outcome, err := host.Run(context.Background())
		app.log.Info("Headless run ended", "outcome", outcome.String())
		return err

	case app.config.TUI:
		app.log.Info("Running terminal UI")
		m, err := terminal.Run(terminal.NewModel(r, st,
			terminal.WithTimeout(app.config.Timeout),
			terminal.WithTitle(title),
		))
		if err != nil {
			return err
		}
		app.log.Info("Terminal UI ended", "timed_out", m.TimedOut())
		return nil

	default:
		app.log.Info("Opening window")
		return window.Run(window.NewGame(r, st,
			window.WithAssets(resolver),
			window.WithMixer(mixer),
			window.WithTimeout(app.config.Timeout),
			window.WithTitle(title),
			window.WithLogger(app.log),
		))
	}
}
