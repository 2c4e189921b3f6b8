package batch

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
)

// CopyOriginal copies src into dstDir together with every sibling sharing
// its base name (a shapefile's .shx, .dbf, .prj, ...). It returns the path
// of the copied src.
func CopyOriginal(src, dstDir string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", &errors.IOError{Op: "stat", Path: src, Err: err}
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", &errors.IOError{Op: "mkdir", Path: dstDir, Err: err}
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	siblings, err := filepath.Glob(filepath.Join(filepath.Dir(src), globEscape(base)+".*"))
	if err != nil {
		return "", &errors.IOError{Op: "glob", Path: src, Err: err}
	}
	if len(siblings) == 0 {
		siblings = []string{src}
	}

	for _, s := range siblings {
		if err := copyFile(s, filepath.Join(dstDir, filepath.Base(s))); err != nil {
			return "", err
		}
	}
	return filepath.Join(dstDir, filepath.Base(src)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &errors.IOError{Op: "open", Path: src, Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return &errors.IOError{Op: "stat", Path: src, Err: err}
	}
	if info.IsDir() {
		return nil
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return &errors.IOError{Op: "create", Path: dst, Err: err}
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &errors.IOError{Op: "copy", Path: dst, Err: err}
	}
	if err := out.Close(); err != nil {
		return &errors.IOError{Op: "close", Path: dst, Err: err}
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}
