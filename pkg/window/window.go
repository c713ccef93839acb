// Package window is the default host: an Ebitengine window that renders the
// stage and turns keyboard and mouse input into Advance and SelectChoice.
package window

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/zurustar/vnscript/pkg/assets"
	"github.com/zurustar/vnscript/pkg/logger"
	"github.com/zurustar/vnscript/pkg/runner"
	"github.com/zurustar/vnscript/pkg/stage"
)

// 論理画面サイズ
const (
	ScreenWidth  = 1280
	ScreenHeight = 720
)

// レイアウト定数
const (
	dialogueMargin  = 40
	dialogueHeight  = 160
	dialoguePadding = 20
	lineHeight      = 20
	choiceWidth     = 640
	choiceHeight    = 44
	choiceGap       = 12
)

var (
	// テキスト色（白）
	textColor = color.White
	// 話者名の色
	speakerColor = color.RGBA{0xFF, 0xD7, 0x80, 0xFF}
	// 選択中の選択肢の色（黄色）
	selectedTextColor = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	// ダイアログボックスの背景（半透明黒）
	boxColor = color.RGBA{0x00, 0x00, 0x00, 0xC0}
	// 枠線
	borderColor = color.RGBA{0xC0, 0xC0, 0xC0, 0xFF}
	// デフォルトフォント
	defaultFace = text.NewGoXFace(basicfont.Face7x13)
)

// Mixer is the audio side of the window. Update is called once per frame
// so finished sound effects are released; M toggles muting.
type Mixer interface {
	Update()
	SetMuted(muted bool)
	IsMuted() bool
}

// Game はEbitengineのゲームインターフェースを実装する
type Game struct {
	runner   *runner.Runner
	stage    *stage.Stage
	assets   *assets.Resolver
	mixer    Mixer
	timeout  time.Duration
	started  time.Time
	selected int // 選択中の選択肢
	title    string

	textures map[string]*ebiten.Image
	missing  map[string]bool
	log      *slog.Logger
}

// Option is a functional option for configuring the Game.
type Option func(*Game)

// WithAssets sets the resolver used for background and character images.
// Without one only solid backgrounds are drawn.
func WithAssets(r *assets.Resolver) Option {
	return func(g *Game) {
		g.assets = r
	}
}

// WithMixer sets the audio mixer.
func WithMixer(m Mixer) Option {
	return func(g *Game) {
		g.mixer = m
	}
}

// WithTimeout terminates the game after d. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Game) {
		g.timeout = d
	}
}

// WithTitle sets the window title.
func WithTitle(title string) Option {
	return func(g *Game) {
		g.title = title
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(g *Game) {
		g.log = log
	}
}

// NewGame Gameを作成
func NewGame(r *runner.Runner, st *stage.Stage, opts ...Option) *Game {
	g := &Game{
		runner:   r,
		stage:    st,
		started:  time.Now(),
		title:    "vnscript",
		textures: make(map[string]*ebiten.Image),
		missing:  make(map[string]bool),
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// actionKind は入力から得られる操作の種類
type actionKind int

const (
	actAdvance actionKind = iota
	actSelect
	actUp
	actDown
	actConfirm
	actMute
	actQuit
)

type action struct {
	kind  actionKind
	index int // actSelectのみ
}

var digitKeys = []ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3,
	ebiten.KeyDigit4, ebiten.KeyDigit5, ebiten.KeyDigit6,
	ebiten.KeyDigit7, ebiten.KeyDigit8, ebiten.KeyDigit9,
}

var numpadKeys = []ebiten.Key{
	ebiten.KeyNumpad1, ebiten.KeyNumpad2, ebiten.KeyNumpad3,
	ebiten.KeyNumpad4, ebiten.KeyNumpad5, ebiten.KeyNumpad6,
	ebiten.KeyNumpad7, ebiten.KeyNumpad8, ebiten.KeyNumpad9,
}

// readInput はこのフレームで押されたキーとクリックを操作に変換する
func (g *Game) readInput() []action {
	var actions []action
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return append(actions, action{kind: actQuit})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		actions = append(actions, action{kind: actMute})
	}

	choices := len(g.runner.PendingChoices())
	if choices > 0 {
		for i := range digitKeys {
			if inpututil.IsKeyJustPressed(digitKeys[i]) || inpututil.IsKeyJustPressed(numpadKeys[i]) {
				actions = append(actions, action{kind: actSelect, index: i})
			}
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyUp) {
			actions = append(actions, action{kind: actUp})
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyDown) {
			actions = append(actions, action{kind: actDown})
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeySpace) {
			actions = append(actions, action{kind: actConfirm})
		}
		if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
			x, y := ebiten.CursorPosition()
			if i := choiceAt(x, y, choices); i >= 0 {
				actions = append(actions, action{kind: actSelect, index: i})
			}
		}
		return actions
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) ||
		inpututil.IsKeyJustPressed(ebiten.KeyEnter) ||
		inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		actions = append(actions, action{kind: actAdvance})
	}
	return actions
}

// apply は操作をランナーに伝える
func (g *Game) apply(a action) error {
	switch a.kind {
	case actQuit:
		return ebiten.Termination
	case actAdvance:
		g.runner.Advance()
	case actUp:
		if g.selected > 0 {
			g.selected--
		}
	case actDown:
		if g.selected < len(g.runner.PendingChoices())-1 {
			g.selected++
		}
	case actConfirm:
		g.choose(g.selected)
	case actMute:
		if g.mixer != nil {
			g.mixer.SetMuted(!g.mixer.IsMuted())
			g.log.Info("Audio mute toggled", "muted", g.mixer.IsMuted())
		}
	case actSelect:
		g.choose(a.index)
	}
	return nil
}

// choose は選択肢を確定する
// Out-of-range input leaves the choice pending.
func (g *Game) choose(index int) {
	if index >= len(g.runner.PendingChoices()) {
		return
	}
	if err := g.runner.SelectChoice(index); err != nil {
		// ラベルが無い場合も待機状態は解除されている
		g.log.Warn("Choice failed", "index", index, "error", err)
	}
	g.stage.ClearChoices()
	g.selected = 0
}

// Update ゲームロジックの更新（Ebitengineが毎フレーム呼び出す）
// Each frame applies input and then executes one runner tick.
func (g *Game) Update() error {
	// タイムアウトチェック
	if g.timeout > 0 && time.Since(g.started) >= g.timeout {
		g.log.Info("Timeout reached", "timeout", g.timeout)
		return ebiten.Termination
	}

	for _, a := range g.readInput() {
		if err := g.apply(a); err != nil {
			return err
		}
	}
	return g.tick()
}

// tick はランナーを1ステップ進める
func (g *Game) tick() error {
	g.runner.Step()
	if g.mixer != nil {
		g.mixer.Update()
	}
	for _, e := range g.stage.Drain() {
		g.log.Debug("Stage event", "event", e.String())
	}
	return nil
}

// Draw 画面描画（Ebitengineが毎フレーム呼び出す）
func (g *Game) Draw(screen *ebiten.Image) {
	g.drawBackground(screen)
	g.drawCharacters(screen)
	g.drawDialogue(screen)
	g.drawChoices(screen)
	if g.runner.Finished() {
		g.drawText(screen, "[ End ]  Press Esc to quit", ScreenWidth-220, 20, textColor)
	}
}

func (g *Game) drawBackground(screen *ebiten.Image) {
	bg := g.stage.Background()
	if !bg.IsImage() {
		screen.Fill(bg.Color)
		return
	}
	screen.Fill(color.Black)
	img := g.texture(bg.AssetPath())
	if img == nil {
		return
	}
	// 画面全体に引き伸ばす
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(ScreenWidth)/float64(w), float64(ScreenHeight)/float64(h))
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(img, op)
}

func (g *Game) drawCharacters(screen *ebiten.Image) {
	for _, c := range g.stage.Characters() {
		img := g.texture(c.AssetPath())
		if img == nil {
			continue
		}
		screen.DrawImage(img, characterOptions(c, img.Bounds()))
	}
}

// characterOptions は立ち絵の変換行列を作る
// The sprite is centred on its stage position; rotation is counter-clockwise
// in degrees because stage Y points up.
func characterOptions(c stage.Character, bounds image.Rectangle) *ebiten.DrawImageOptions {
	t := c.Transform
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(-float64(bounds.Dx())/2, -float64(bounds.Dy())/2)
	op.GeoM.Scale(t.Scale, t.Scale)
	op.GeoM.Rotate(-t.Rotation * math.Pi / 180)
	op.GeoM.Translate(stage.ToScreen(t.X, t.Y, ScreenWidth, ScreenHeight))
	op.Filter = ebiten.FilterLinear
	return op
}

func (g *Game) drawDialogue(screen *ebiten.Image) {
	line, ok := g.stage.Line()
	if !ok {
		return
	}
	r := dialogueRect()
	drawBox(screen, r)

	x := float64(r.Min.X + dialoguePadding)
	y := float64(r.Min.Y + dialoguePadding)
	if line.Speaker != "" {
		g.drawText(screen, line.Speaker, x, y, speakerColor)
		y += lineHeight + 4
	}
	width := float64(r.Dx() - 2*dialoguePadding)
	for _, l := range wrapText(line.Text, width, measure) {
		if y > float64(r.Max.Y-lineHeight) {
			break
		}
		g.drawText(screen, l, x, y, textColor)
		y += lineHeight
	}
	if g.runner.State() == runner.StateAwaitingAdvance {
		g.drawText(screen, "v", float64(r.Max.X-dialoguePadding), float64(r.Max.Y-dialoguePadding-lineHeight/2), textColor)
	}
}

func (g *Game) drawChoices(screen *ebiten.Image) {
	choices := g.runner.PendingChoices()
	for i, r := range choiceRects(len(choices)) {
		drawBox(screen, r)
		clr := color.Color(textColor)
		label := fmt.Sprintf("%d. %s", i+1, choices[i].Text)
		if i == g.selected {
			clr = selectedTextColor
			label = "> " + label
		}
		g.drawText(screen, label, float64(r.Min.X+dialoguePadding), float64(r.Min.Y+choiceHeight/2-7), clr)
	}
}

func (g *Game) drawText(screen *ebiten.Image, s string, x, y float64, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, s, defaultFace, op)
}

func drawBox(screen *ebiten.Image, r image.Rectangle) {
	x, y := float32(r.Min.X), float32(r.Min.Y)
	w, h := float32(r.Dx()), float32(r.Dy())
	vector.FillRect(screen, x, y, w, h, boxColor, false)
	vector.StrokeRect(screen, x, y, w, h, 1, borderColor, false)
}

// texture は画像アセットをGPUテクスチャとして返す
// Failures are logged once per path and yield nil.
func (g *Game) texture(p string) *ebiten.Image {
	if img, ok := g.textures[p]; ok {
		return img
	}
	if g.assets == nil || g.missing[p] {
		return nil
	}
	src, err := g.assets.Image(p)
	if err != nil {
		g.missing[p] = true
		g.log.Warn("Image unavailable", "path", p, "error", err)
		return nil
	}
	img := ebiten.NewImageFromImage(src)
	g.textures[p] = img
	return img
}

// Layout 画面サイズを返す
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// dialogueRect はダイアログボックスの位置を返す
func dialogueRect() image.Rectangle {
	return image.Rect(dialogueMargin, ScreenHeight-dialogueMargin-dialogueHeight,
		ScreenWidth-dialogueMargin, ScreenHeight-dialogueMargin)
}

// choiceRects は選択肢ボタンの位置を返す
// Buttons are stacked and centred in the area above the dialogue box.
func choiceRects(n int) []image.Rectangle {
	if n <= 0 {
		return nil
	}
	total := n*choiceHeight + (n-1)*choiceGap
	top := (dialogueRect().Min.Y - total) / 2
	left := (ScreenWidth - choiceWidth) / 2
	rects := make([]image.Rectangle, n)
	for i := range rects {
		y := top + i*(choiceHeight+choiceGap)
		rects[i] = image.Rect(left, y, left+choiceWidth, y+choiceHeight)
	}
	return rects
}

// choiceAt はクリック位置の選択肢を返す。無ければ-1
func choiceAt(x, y, n int) int {
	p := image.Pt(x, y)
	for i, r := range choiceRects(n) {
		if p.In(r) {
			return i
		}
	}
	return -1
}

func measure(s string) float64 {
	return text.Advance(s, defaultFace)
}

// wrapText は文字列を幅に収まるよう折り返す
// Lines break at spaces when possible and between runes otherwise, so text
// without spaces still wraps.
func wrapText(s string, width float64, measure func(string) float64) []string {
	var lines []string
	var current []rune
	lastSpace := -1
	for _, r := range s {
		if r == '\n' {
			lines = append(lines, string(current))
			current, lastSpace = current[:0], -1
			continue
		}
		current = append(current, r)
		if r == ' ' {
			lastSpace = len(current) - 1
		}
		if measure(string(current)) <= width || len(current) == 1 {
			continue
		}
		if lastSpace > 0 {
			lines = append(lines, string(current[:lastSpace]))
			current = append([]rune(nil), current[lastSpace+1:]...)
		} else {
			lines = append(lines, string(current[:len(current)-1]))
			current = []rune{r}
		}
		lastSpace = -1
		for i, c := range current {
			if c == ' ' {
				lastSpace = i
			}
		}
	}
	return append(lines, string(current))
}

// Run GUIモードでウィンドウを実行
func Run(g *Game) error {
	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle(g.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	return nil
}
