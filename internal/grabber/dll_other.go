//go:build !windows

package grabber

// Open always fails outside windows; the vendor library ships only as a DLL.
func Open(dir string) (Driver, error) {
	return nil, ErrUnsupportedPlatform
}
