package sampler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/pprof/profile"

	"profiletk/internal/report"
)

var gzipMagic = []byte{0x1f, 0x8b}

// LoadFile reads a report from path. Text reports are returned as they are.
// CPU profiles in the pprof format, such as those written by
// `go test -cpuprofile`, are rendered into a report named after the file.
func LoadFile(path string) (report.Raw, error) {
	//nolint:gosec // G304: Path is chosen by the operator.
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !bytes.HasPrefix(data, gzipMagic) {
		return report.ReadFile(path)
	}

	prof, err := profile.ParseData(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return Render(prof, report.FormatV1, filepath.Base(path), nil)
}
