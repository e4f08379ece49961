package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"
)

// ChromeLauncher launches Chrome or Chromium over the DevTools protocol.
// The browser process lives until Close is called or the context passed
// to Launch is done.
type ChromeLauncher struct {
	ExecPath string
	Logger   *slog.Logger
}

// NewChromeLauncher returns a launcher for the executable at execPath.
// An empty execPath lets chromedp search its default locations.
func NewChromeLauncher(execPath string, logger *slog.Logger) *ChromeLauncher {
	return &ChromeLauncher{
		ExecPath: execPath,
		Logger:   logger.With(slog.String("component", "chrome")),
	}
}

// Launch implements Launcher.
func (l *ChromeLauncher) Launch(ctx context.Context, headless bool) (Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(
		ctx, l.allocatorOptions(headless)...,
	)

	browserCtx, browserCancel := chromedp.NewContext(
		allocCtx, chromedp.WithErrorf(l.errorf),
	)

	// Running no actions on a fresh context starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()

		return nil, fmt.Errorf("start browser: %w", err)
	}

	l.Logger.Debug("browser started", slog.Bool("headless", headless))

	return &chromeBrowser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
	}, nil
}

func (l *ChromeLauncher) allocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0,
		len(chromedp.DefaultExecAllocatorOptions)+2)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)

	// A false flag value drops the default --headless switch.
	opts = append(opts, chromedp.Flag("headless", headless))

	if l.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.ExecPath))
	}

	return opts
}

func (l *ChromeLauncher) errorf(format string, args ...any) {
	l.Logger.Debug(fmt.Sprintf(format, args...))
}

type chromeBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	closed      bool
}

func (b *chromeBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(b.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()

		return nil, fmt.Errorf("open tab: %w", err)
	}

	return &chromePage{ctx: tabCtx}, nil
}

func (b *chromeBrowser) Close() error {
	if b.closed {
		return nil
	}

	b.closed = true

	// Cancel on the context that allocated the browser closes it
	// gracefully and waits for the process to exit.
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()

	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}

	return nil
}

type chromePage struct {
	ctx context.Context
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := chromedp.Run(p.ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	return nil
}
