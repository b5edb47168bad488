// CLAUDE:SUMMARY Materializes manifest components to a caller-supplied directory layout.
package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hazyhaar/mailsift/extract"
)

// writeBufSize bounds the copy buffer so peak memory tracks the buffer,
// not the payload.
const writeBufSize = 64 * 1024

// WriteComponents materializes a manifest under dir: every component with
// payload data lands at <dir>/<secure name>, and the manifest itself at
// <dir>/manifest.json. The directory layout is the caller's contract; this
// only fills it.
func WriteComponents(dir string, m *Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	buf := make([]byte, writeBufSize)
	for i := range m.Components {
		c := &m.Components[i]
		if c.Kind == extract.KindBodyText {
			if err := writeFile(filepath.Join(dir, c.SecureName), []byte(c.Text), buf); err != nil {
				return fmt.Errorf("write body %s: %w", c.SecureName, err)
			}
			continue
		}
		if len(c.Data) == 0 {
			continue
		}
		if err := writeFile(filepath.Join(dir, c.SecureName), c.Data, buf); err != nil {
			return fmt.Errorf("write component %s: %w", c.SecureName, err)
		}
	}

	data, err := m.JSON()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeFile(filepath.Join(dir, "manifest.json"), data, buf); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func writeFile(path string, data []byte, buf []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.CopyBuffer(f, bytes.NewReader(data), buf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
