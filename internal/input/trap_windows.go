//go:build windows

package input

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows implementation of input capture using the Raw Input API

var (
	user32                      = windows.NewLazySystemDLL("user32.dll")
	kernel32                    = windows.NewLazySystemDLL("kernel32.dll")
	procRegisterRawInputDevices = user32.NewProc("RegisterRawInputDevices")
	procGetRawInputData         = user32.NewProc("GetRawInputData")
	procCreateWindowEx          = user32.NewProc("CreateWindowExW")
	procDestroyWindow           = user32.NewProc("DestroyWindow")
	procDefWindowProc           = user32.NewProc("DefWindowProcW")
	procRegisterClassEx         = user32.NewProc("RegisterClassExW")
	procPeekMessage             = user32.NewProc("PeekMessageW")
	procTranslateMessage        = user32.NewProc("TranslateMessage")
	procDispatchMessage         = user32.NewProc("DispatchMessageW")
	procGetModuleHandle         = kernel32.NewProc("GetModuleHandleW")
)

const (
	wmInput          = 0x00FF
	rimTypeMouse     = 0
	rimTypeKeyboard  = 1
	ridInput         = 0x10000003
	ridevInputSink   = 0x00000100
	pmRemove         = 0x0001
	hidUsagePageGen  = 0x01
	hidUsageMouse    = 0x02
	hidUsageKeyboard = 0x06
	riKeyBreak       = 0x01

	riMouseWheel  = 0x0400
	riMouseHWheel = 0x0800
)

// hwndMessage is HWND_MESSAGE, the parent of message-only windows.
var hwndMessage = ^uintptr(2)

type wndClassEx struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     windows.Handle
	HIcon         windows.Handle
	HCursor       windows.Handle
	HbrBackground windows.Handle
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       windows.Handle
}

type msg struct {
	Hwnd    windows.HWND
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

type rawInputDevice struct {
	UsagePage  uint16
	Usage      uint16
	Flags      uint32
	HwndTarget windows.HWND
}

type rawInputHeader struct {
	Type   uint32
	Size   uint32
	Device windows.Handle
	WParam uintptr
}

type rawMouse struct {
	Flags            uint16
	_                uint16
	ButtonFlags      uint16
	ButtonData       uint16
	RawButtons       uint32
	LastX            int32
	LastY            int32
	ExtraInformation uint32
}

type rawKeyboard struct {
	MakeCode         uint16
	Flags            uint16
	Reserved         uint16
	VKey             uint16
	Message          uint32
	ExtraInformation uint32
}

// button transition flags in RAWMOUSE.usButtonFlags, in down/up pairs
var buttonFlags = [...]struct {
	down, up uint16
	button   int
}{
	{0x0001, 0x0002, ButtonLeft},
	{0x0004, 0x0008, ButtonRight},
	{0x0010, 0x0020, ButtonMiddle},
	{0x0040, 0x0080, ButtonX1},
	{0x0100, 0x0200, ButtonX2},
}

var (
	registerClassOnce sync.Once
	// raw input is registered per process, so only one trap receives it
	activeTrap atomic.Pointer[Trap]
)

// Trap captures raw mouse and keyboard input through a message-only window
// and queues it for the session to drain.
type Trap struct {
	queue   *Queue
	logger  *slog.Logger
	hwnd    windows.HWND
	running atomic.Bool
	done    chan struct{}
}

// NewTrap creates a new input trap for Windows
func NewTrap(queue *Queue, logger *slog.Logger) *Trap {
	if queue == nil {
		queue = NewQueue(DefaultQueueCapacity)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trap{
		queue:  queue,
		logger: logger.With("component", "trap"),
	}
}

// Start creates the window, registers for raw input and starts the message
// pump on a dedicated OS thread.
func (t *Trap) Start() error {
	if t.running.Load() {
		return fmt.Errorf("trap already running")
	}

	ready := make(chan error, 1)
	t.done = make(chan struct{})
	go t.messageLoop(ready)
	if err := <-ready; err != nil {
		return err
	}
	return nil
}

// Stop stops the message pump and closes the queue.
func (t *Trap) Stop() error {
	if !t.running.Swap(false) {
		return nil
	}
	<-t.done
	return t.queue.Close()
}

// Close implements io.Closer.
func (t *Trap) Close() error {
	return t.Stop()
}

// Drain returns the events captured since the previous call.
func (t *Trap) Drain() []InputEvent {
	return t.queue.Drain()
}

// messageLoop owns the window: raw input is delivered to the thread that
// created it, so creation, pumping and destruction all happen here.
func (t *Trap) messageLoop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)

	if err := t.createWindow(); err != nil {
		ready <- fmt.Errorf("failed to create window: %w", err)
		return
	}
	defer procDestroyWindow.Call(uintptr(t.hwnd))

	if err := t.registerRawInput(); err != nil {
		ready <- fmt.Errorf("failed to register raw input: %w", err)
		return
	}

	activeTrap.Store(t)
	defer activeTrap.CompareAndSwap(t, nil)

	t.running.Store(true)
	ready <- nil
	t.logger.Info("raw input capture started")

	var m msg
	for t.running.Load() {
		ret, _, _ := procPeekMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmRemove)
		if int32(ret) != 0 {
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
			continue
		}
		// No message, sleep a bit to avoid busy loop
		time.Sleep(2 * time.Millisecond)
	}
	t.logger.Info("raw input capture stopped")
}

func (t *Trap) createWindow() error {
	className, err := windows.UTF16PtrFromString("NorseInputTrap")
	if err != nil {
		return err
	}
	hInstance, _, _ := procGetModuleHandle.Call(0)

	var regErr error
	registerClassOnce.Do(func() {
		wc := wndClassEx{
			CbSize:        uint32(unsafe.Sizeof(wndClassEx{})),
			LpfnWndProc:   windows.NewCallback(windowProc),
			HInstance:     windows.Handle(hInstance),
			LpszClassName: className,
		}
		if ret, _, callErr := procRegisterClassEx.Call(uintptr(unsafe.Pointer(&wc))); ret == 0 {
			regErr = fmt.Errorf("RegisterClassEx failed: %v", callErr)
		}
	})
	if regErr != nil {
		return regErr
	}

	hwnd, _, callErr := procCreateWindowEx.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		0, 0,
		0, 0, 0, 0,
		hwndMessage, 0, hInstance, 0,
	)
	if hwnd == 0 {
		return fmt.Errorf("CreateWindowEx failed: %v", callErr)
	}
	t.hwnd = windows.HWND(hwnd)
	return nil
}

func (t *Trap) registerRawInput() error {
	rids := []rawInputDevice{
		{UsagePage: hidUsagePageGen, Usage: hidUsageMouse, Flags: ridevInputSink, HwndTarget: t.hwnd},
		{UsagePage: hidUsagePageGen, Usage: hidUsageKeyboard, Flags: ridevInputSink, HwndTarget: t.hwnd},
	}
	ret, _, err := procRegisterRawInputDevices.Call(
		uintptr(unsafe.Pointer(&rids[0])),
		uintptr(len(rids)),
		unsafe.Sizeof(rids[0]),
	)
	if ret == 0 {
		return fmt.Errorf("RegisterRawInputDevices failed: %v", err)
	}
	return nil
}

func windowProc(hwnd windows.HWND, message uint32, wparam, lparam uintptr) uintptr {
	if message == wmInput {
		if t := activeTrap.Load(); t != nil {
			t.handleRawInput(lparam)
		}
	}
	ret, _, _ := procDefWindowProc.Call(uintptr(hwnd), uintptr(message), wparam, lparam)
	return ret
}

func (t *Trap) handleRawInput(lparam uintptr) {
	var size uint32
	headerSize := unsafe.Sizeof(rawInputHeader{})

	ret, _, _ := procGetRawInputData.Call(lparam, ridInput, 0, uintptr(unsafe.Pointer(&size)), headerSize)
	if ret == ^uintptr(0) || size == 0 {
		return
	}

	data := make([]byte, size)
	ret, _, err := procGetRawInputData.Call(lparam, ridInput, uintptr(unsafe.Pointer(&data[0])), uintptr(unsafe.Pointer(&size)), headerSize)
	if ret == ^uintptr(0) || ret == 0 {
		t.logger.Debug("GetRawInputData failed", "error", err)
		return
	}

	header := (*rawInputHeader)(unsafe.Pointer(&data[0]))
	body := unsafe.Pointer(&data[headerSize])
	now := time.Now().UnixMilli()

	switch header.Type {
	case rimTypeMouse:
		t.handleMouse((*rawMouse)(body), now)
	case rimTypeKeyboard:
		kb := (*rawKeyboard)(body)
		ev := Key(kb.VKey, kb.Flags&riKeyBreak == 0, 0)
		ev.Timestamp = now
		t.push(ev)
	}
}

func (t *Trap) handleMouse(m *rawMouse, now int64) {
	if m.LastX != 0 || m.LastY != 0 {
		ev := MouseMove(int(m.LastX), int(m.LastY))
		ev.Timestamp = now
		t.push(ev)
	}

	// one report may carry several transitions
	for _, bf := range buttonFlags {
		if m.ButtonFlags&bf.down != 0 {
			ev := MouseButton(bf.button, true)
			ev.Timestamp = now
			t.push(ev)
		}
		if m.ButtonFlags&bf.up != 0 {
			ev := MouseButton(bf.button, false)
			ev.Timestamp = now
			t.push(ev)
		}
	}

	if m.ButtonFlags&riMouseWheel != 0 {
		ev := MouseWheel(int(int16(m.ButtonData)), false)
		ev.Timestamp = now
		t.push(ev)
	}
	if m.ButtonFlags&riMouseHWheel != 0 {
		ev := MouseWheel(int(int16(m.ButtonData)), true)
		ev.Timestamp = now
		t.push(ev)
	}
}

func (t *Trap) push(ev InputEvent) {
	if !t.queue.Push(ev) {
		t.logger.Debug("event queue full, dropping event", "type", ev.Type)
	}
}
