//go:build windows

package input

import (
	"context"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	procGetRawInputDeviceList  = user32.NewProc("GetRawInputDeviceList")
	procGetRawInputDeviceInfoW = user32.NewProc("GetRawInputDeviceInfoW")
)

const ridiDeviceName = 0x20000007

type rawInputDeviceList struct {
	Device windows.Handle
	Type   uint32
}

// Enumerate lists raw input devices via GetRawInputDeviceList.
func (PlatformEnumerator) Enumerate(ctx context.Context) ([]PhysicalDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var count uint32
	entrySize := unsafe.Sizeof(rawInputDeviceList{})
	ret, _, err := procGetRawInputDeviceList.Call(0, uintptr(unsafe.Pointer(&count)), entrySize)
	if int32(ret) == -1 {
		return nil, fmt.Errorf("GetRawInputDeviceList (count) failed: %v", err)
	}
	if count == 0 {
		return nil, nil
	}

	list := make([]rawInputDeviceList, count)
	ret, _, err = procGetRawInputDeviceList.Call(uintptr(unsafe.Pointer(&list[0])), uintptr(unsafe.Pointer(&count)), entrySize)
	if int32(ret) == -1 {
		return nil, fmt.Errorf("GetRawInputDeviceList failed: %v", err)
	}
	list = list[:ret]

	devices := make([]PhysicalDevice, 0, len(list))
	for _, entry := range list {
		devices = append(devices, PhysicalDevice{
			Handle: uintptr(entry.Device),
			Class:  classFromRawType(entry.Type),
			Name:   deviceName(entry.Device),
		})
	}
	return devices, nil
}

func classFromRawType(t uint32) DeviceClass {
	switch t {
	case rimTypeMouse:
		return ClassMouse
	case rimTypeKeyboard:
		return ClassKeyboard
	default:
		return ClassUnknown
	}
}

func deviceName(h windows.Handle) string {
	var size uint32
	procGetRawInputDeviceInfoW.Call(uintptr(h), ridiDeviceName, 0, uintptr(unsafe.Pointer(&size)))
	if size == 0 {
		return ""
	}
	buf := make([]uint16, size)
	ret, _, _ := procGetRawInputDeviceInfoW.Call(uintptr(h), ridiDeviceName, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if int32(ret) <= 0 {
		return ""
	}
	return windows.UTF16ToString(buf)
}
