//go:build !amd64

package recompiler

// Compile refuses to run off amd64, so this body is unreachable; it exists
// to keep the package building everywhere the interpreter is useful.
func callNative(entry uintptr, a0, a1, a2, a3 int64) int64 {
	panic("recompiler: native execution requires amd64")
}
