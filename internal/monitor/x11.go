//go:build !windows

package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
)

// X11 queries monitors through the RandR 1.5 extension. An empty Display
// uses $DISPLAY.
type X11 struct {
	Display string
}

// NewSource returns the platform display source.
func NewSource(display string) Source {
	return X11{Display: display}
}

// NewWatcher returns a RandR event watcher, or a poll watcher when
// interval is positive.
func NewWatcher(src Source, display string, interval time.Duration) Watcher {
	if interval > 0 {
		return &PollWatcher{Source: src, Interval: interval}
	}
	return X11Watcher{Display: display}
}

// List returns every active monitor in one batched query.
func (x X11) List(ctx context.Context) ([]Monitor, error) {
	conn, root, err := connect(x.Display)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, conn.Close)
	defer stop()

	reply, err := randr.GetMonitors(conn, root, true).Reply()
	if err != nil {
		return nil, ctxErr(ctx, fmt.Errorf("randr GetMonitors: %w", err))
	}

	// Send every name lookup before reading any reply.
	cookies := make([]xproto.GetAtomNameCookie, len(reply.Monitors))
	for i, info := range reply.Monitors {
		cookies[i] = xproto.GetAtomName(conn, info.Name)
	}

	list := make([]Monitor, 0, len(reply.Monitors))
	for i, info := range reply.Monitors {
		name, err := cookies[i].Reply()
		if err != nil {
			return nil, ctxErr(ctx, fmt.Errorf("GetAtomName %d: %w", info.Name, err))
		}
		list = append(list, Monitor{
			Name:     latin1(name.Name),
			X:        int(info.X),
			Y:        int(info.Y),
			W:        uint32(info.Width),
			H:        uint32(info.Height),
			Primary:  info.Primary,
			WidthMM:  info.WidthInMillimeters,
			HeightMM: info.HeightInMillimeters,
		})
	}
	return list, nil
}

// X11Watcher reports RandR screen, CRTC and output changes.
type X11Watcher struct {
	Display string
}

// Watch blocks until ctx is done or the X connection fails.
func (w X11Watcher) Watch(ctx context.Context, notify func()) error {
	conn, root, err := connect(w.Display)
	if err != nil {
		return err
	}
	defer conn.Close()

	mask := uint16(randr.NotifyMaskScreenChange | randr.NotifyMaskCrtcChange | randr.NotifyMaskOutputChange)
	if err := randr.SelectInputChecked(conn, root, mask).Check(); err != nil {
		return fmt.Errorf("randr SelectInput: %w", err)
	}

	stop := context.AfterFunc(ctx, conn.Close)
	defer stop()

	for {
		ev, xerr := conn.WaitForEvent()
		if ctx.Err() != nil {
			return nil
		}
		switch {
		case ev == nil && xerr == nil:
			return errors.New("x11 connection closed")
		case xerr != nil:
			// Protocol errors for unrelated requests do not end the watch.
			continue
		}
		switch ev.(type) {
		case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
			notify()
		}
	}
}

// connect opens a connection with RandR initialised and returns the
// default root window.
func connect(display string) (*xgb.Conn, xproto.Window, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, 0, fmt.Errorf("connect to X server %q: %w", display, err)
	}
	if err := randr.Init(conn); err != nil {
		conn.Close()
		return nil, 0, fmt.Errorf("randr extension: %w", err)
	}
	root := xproto.Setup(conn).DefaultScreen(conn).Root
	return conn, root, nil
}

// latin1 decodes an atom name. X atom names are Latin-1, whose code points
// map one-to-one onto runes.
func latin1(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b.WriteRune(rune(s[i]))
	}
	return b.String()
}
