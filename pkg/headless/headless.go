// Package headless runs a script on standard input and output. Lines and
// stage changes are printed as they happen; Enter advances, a number picks a
// choice and q quits.
package headless

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/vnscript/pkg/logger"
	"github.com/zurustar/vnscript/pkg/runner"
	"github.com/zurustar/vnscript/pkg/stage"
)

// Outcome is why a headless run ended.
type Outcome int

const (
	Finished    Outcome = iota // スクリプト終端に到達
	Quit                       // ユーザーがqを入力
	TimedOut                   // タイムアウト
	InputClosed                // 入力が閉じられた
)

func (o Outcome) String() string {
	switch o {
	case Finished:
		return "finished"
	case Quit:
		return "quit"
	case TimedOut:
		return "timed out"
	case InputClosed:
		return "input closed"
	default:
		return "unknown"
	}
}

// Host はヘッドレスモードの実行環境
type Host struct {
	runner  *runner.Runner
	stage   *stage.Stage
	in      io.Reader
	out     io.Writer
	timeout time.Duration
	auto    bool
	log     *slog.Logger
}

// Option is a functional option for configuring the Host.
type Option func(*Host)

// WithTimeout ends the run after d. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *Host) {
		h.timeout = d
	}
}

// WithAutoAdvance advances dialogue without waiting for Enter.
// Choices still wait for input.
func WithAutoAdvance(auto bool) Option {
	return func(h *Host) {
		h.auto = auto
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Host) {
		h.log = log
	}
}

// New Hostを作成
func New(r *runner.Runner, st *stage.Stage, in io.Reader, out io.Writer, opts ...Option) *Host {
	h := &Host{
		runner: r,
		stage:  st,
		in:     in,
		out:    out,
		log:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run drives the runner until the script finishes, the user quits, the
// timeout expires or input is closed. Only output failures are errors.
func (h *Host) Run(ctx context.Context) (Outcome, error) {
	// タイムアウト処理用のコンテキスト
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	lines, stop := h.readLines()
	defer stop()

	for {
		if err := h.runUntilSuspended(ctx); err != nil {
			return TimedOut, h.flush()
		}
		if err := h.flush(); err != nil {
			return Finished, err
		}
		if h.runner.Finished() {
			_, err := fmt.Fprintln(h.out, "[end]")
			return Finished, err
		}

		choices := h.runner.PendingChoices()
		if len(choices) == 0 && h.auto {
			h.runner.Advance()
			continue
		}
		if len(choices) > 0 {
			for i, c := range choices {
				fmt.Fprintf(h.out, "  %d: %s\n", i+1, c.Text)
			}
			fmt.Fprintf(h.out, "Select (1-%d) or 'q' to quit: ", len(choices))
		} else {
			fmt.Fprint(h.out, "> ")
		}

		// 入力またはタイムアウトを待つ
		var input string
		select {
		case <-ctx.Done():
			fmt.Fprintln(h.out)
			h.log.Info("Timeout reached", "timeout", h.timeout)
			return TimedOut, nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(h.out)
				return InputClosed, nil
			}
			input = strings.TrimSpace(line)
		}

		if input == "q" || input == "Q" || input == "quit" {
			return Quit, nil
		}
		if len(choices) == 0 {
			h.runner.Advance()
			continue
		}
		h.choose(input, len(choices))
	}
}

// runUntilSuspended はランナーが入力待ちか終了になるまで実行する
// It returns ctx.Err() if the context ends first, which stops scripts that
// loop forever.
func (h *Host) runUntilSuspended(ctx context.Context) error {
	for !h.runner.Suspended() && !h.runner.Finished() {
		select {
		case <-ctx.Done():
			h.log.Info("Timeout reached", "timeout", h.timeout)
			return ctx.Err()
		default:
		}
		h.runner.Step()
	}
	return nil
}

// choose は入力された番号の選択肢を選ぶ
func (h *Host) choose(input string, count int) {
	num, err := strconv.Atoi(input)
	if err != nil {
		fmt.Fprintln(h.out, "Invalid input. Please enter a number.")
		return
	}
	if num < 1 || num > count {
		fmt.Fprintf(h.out, "Invalid selection. Please enter a number between 1 and %d.\n", count)
		return
	}
	if err := h.runner.SelectChoice(num - 1); err != nil {
		fmt.Fprintf(h.out, "[error] %v\n", err)
	}
	h.stage.ClearChoices()
}

// flush はステージのイベントを出力する
// Choice events are skipped; the options are printed with the prompt.
func (h *Host) flush() error {
	for _, e := range h.stage.Drain() {
		if e.Kind == stage.EventChoices {
			continue
		}
		if _, err := fmt.Fprintln(h.out, e.String()); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// readLines は入力を行単位でチャネルに送る
// The channel is closed at end of input. stop releases the reader goroutine
// if it is waiting to send.
func (h *Host) readLines() (<-chan string, func()) {
	lines := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(h.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			h.log.Error("Failed to read input", "error", err)
		}
	}()
	return lines, func() { close(done) }
}
