package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// MarkerDir publishes notifications as files in a shared directory.
// The file name identifies the entity; the content is
// "<unix-nanos> <origin-window>".
type MarkerDir struct {
	dir    string
	origin string
	now    func() time.Time
}

// NewMarkerDir creates dir if needed and returns a publisher writing markers
// on behalf of origin.
func NewMarkerDir(dir, origin string) (*MarkerDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create marker dir: %w", err)
	}
	return &MarkerDir{dir: dir, origin: origin, now: time.Now}, nil
}

// Dir returns the marker directory.
func (m *MarkerDir) Dir() string {
	return m.dir
}

// Publish writes the marker for n. Origin and At are filled in when empty.
// The marker is written to a temporary file and renamed, so watchers never
// observe partial content.
func (m *MarkerDir) Publish(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.Origin == "" {
		n.Origin = m.origin
	}
	if n.At.IsZero() {
		n.At = m.now()
	}
	name, err := n.key()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(m.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	content := strconv.FormatInt(n.At.UnixNano(), 10) + " " + n.Origin + "\n"
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write marker: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(m.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write marker: %w", err)
	}
	return nil
}

// readMarker decodes the marker file at path.
func readMarker(path string) (Notification, error) {
	n, err := parseKey(filepath.Base(path))
	if err != nil {
		return n, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return n, fmt.Errorf("read marker: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) != 2 {
		return n, fmt.Errorf("read marker %s: malformed content", filepath.Base(path))
	}
	nanos, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return n, fmt.Errorf("read marker %s: %w", filepath.Base(path), err)
	}
	n.At = time.Unix(0, nanos)
	n.Origin = fields[1]
	return n, nil
}
