//go:build windows

package grabber

import (
	"runtime"
	"testing"
	"unsafe"

	"golang.org/x/sys/windows"
)

// kernel32Driver wires a few kernel32 exports into a dllDriver so the call
// wrappers can be exercised without the vendor library installed.
func kernel32Driver(t *testing.T, names ...string) *dllDriver {
	t.Helper()
	dll := windows.NewLazySystemDLL("kernel32.dll")
	d := &dllDriver{dll: dll, procs: make(map[string]*windows.LazyProc)}
	for _, name := range names {
		proc := dll.NewProc(name)
		if err := proc.Find(); err != nil {
			t.Fatalf("kernel32 does not export %s: %v", name, err)
		}
		d.procs[name] = proc
	}
	return d
}

// growStack forces the goroutine stack to be copied before fn runs
func growStack(depth int, fn func()) {
	var pad [256]byte
	if depth > 0 {
		growStack(depth-1, fn)
		runtime.KeepAlive(pad)
		return
	}
	fn()
}

func TestDLLDriver_PointerArgs(t *testing.T) {
	d := kernel32Driver(t, "QueryPerformanceFrequency", "lstrlenA")

	growStack(64, func() {
		var freq int64
		runtime.GC()
		// QueryPerformanceFrequency returns TRUE, which matches StatusSuccess
		if err := d.status("QueryPerformanceFrequency", uintptr(unsafe.Pointer(&freq))); err != nil {
			t.Errorf("status failed: %v", err)
		}
		if freq == 0 {
			t.Error("Expected the out parameter to be written")
		}
	})

	for _, name := range []string{"", "DMK 33UX174", "Y16 (1920x1200)"} {
		p, err := cString(name)
		if err != nil {
			t.Fatalf("cString(%q) failed: %v", name, err)
		}
		runtime.GC()
		n := d.call("lstrlenA", uintptr(unsafe.Pointer(p)))
		runtime.KeepAlive(p)
		if int(n) != len(name) {
			t.Errorf("lstrlenA(%q) = %d, want %d", name, n, len(name))
		}
	}
}

func TestGoString(t *testing.T) {
	p, err := cString("DMK 33UX174 12345678")
	if err != nil {
		t.Fatalf("cString failed: %v", err)
	}
	if got := goString(uintptr(unsafe.Pointer(p))); got != "DMK 33UX174 12345678" {
		t.Errorf("goString = %q", got)
	}
	runtime.KeepAlive(p)
	if got := goString(0); got != "" {
		t.Errorf("goString(0) = %q, want empty", got)
	}
}
