package session

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/polzovatel/video-finder/internal/browser"
)

// Playwright opens a real browser. StorageState seeds the context when it
// names an existing file.
type Playwright struct {
	Options      browser.Options
	StorageState string
	Logger       zerolog.Logger
}

type playwrightHandle struct {
	launcher *browser.Launcher
	*browser.Session
}

func (p Playwright) Open(ctx context.Context) (Handle, error) {
	l, err := browser.NewLauncher(ctx, p.Options, p.Logger)
	if err != nil {
		return nil, err
	}
	s, err := l.NewSession(ctx, p.StorageState)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	return &playwrightHandle{launcher: l, Session: s}, nil
}

func (h *playwrightHandle) Close() error {
	return errors.Join(h.Session.Close(), h.launcher.Close())
}
