//go:build windows

package monitor

import (
	"context"
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
)

// defaultPollInterval is used because WinAPI topology notifications need a
// message window.
const defaultPollInterval = 2 * time.Second

// WinAPI enumerates displays with EnumDisplayMonitors.
type WinAPI struct{}

// NewSource returns the platform display source. display is ignored.
func NewSource(display string) Source {
	_ = display
	return WinAPI{}
}

// NewWatcher returns a poll watcher; interval <= 0 selects the default.
func NewWatcher(src Source, display string, interval time.Duration) Watcher {
	_ = display
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &PollWatcher{Source: src, Interval: interval}
}

// List returns the list of available displays using WinAPI.
func (WinAPI) List(ctx context.Context) ([]Monitor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state := &enumState{}
	callback := syscall.NewCallback(state.enumProc)

	if ok := win.EnumDisplayMonitors(0, nil, callback, 0); !ok {
		return nil, fmt.Errorf("EnumDisplayMonitors failed: %w", syscall.GetLastError())
	}
	return state.list, nil
}

// monitorInfoEx mirrors MONITORINFOEXW, which lxn/win does not declare.
type monitorInfoEx struct {
	win.MONITORINFO
	Device [32]uint16
}

type enumState struct {
	list []Monitor
}

func (s *enumState) enumProc(hMonitor win.HMONITOR, hdc win.HDC, rect *win.RECT, lparam uintptr) uintptr {
	var info monitorInfoEx
	info.CbSize = uint32(unsafe.Sizeof(info))
	if !win.GetMonitorInfo(hMonitor, (*win.MONITORINFO)(unsafe.Pointer(&info))) {
		return 1
	}

	r := info.RcMonitor
	name := syscall.UTF16ToString(info.Device[:])
	if name == "" {
		name = fmt.Sprintf("DISPLAY%d", len(s.list)+1)
	}
	s.list = append(s.list, Monitor{
		Name:    name,
		X:       int(r.Left),
		Y:       int(r.Top),
		W:       uint32(r.Right - r.Left),
		H:       uint32(r.Bottom - r.Top),
		Primary: info.DwFlags&win.MONITORINFOF_PRIMARY != 0,
	})
	return 1
}
