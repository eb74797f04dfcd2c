package supervisor

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WritePIDFile records pid at path, overwriting any previous content.
func WritePIDFile(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

// ReadPIDFile reads a pid file written by WritePIDFile. A missing file is
// reported through the returned error (os.IsNotExist).
func ReadPIDFile(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	first, _, _ := strings.Cut(string(b), "\n")
	return strconv.Atoi(strings.TrimSpace(first))
}

// RemovePIDFile is best-effort; removing an absent file is not an error.
func RemovePIDFile(path string) {
	_ = os.Remove(path)
}
