package installer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gamedeck/internal/logging"
	"gamedeck/internal/services"
)

// ProgressFunc receives the bytes written so far and the expected total,
// which is -1 when the server did not announce a length.
type ProgressFunc func(written, total int64)

type progressWriter struct {
	dst     io.Writer
	written int64
	total   int64
	report  ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.dst.Write(b)
	p.written += int64(n)
	if p.report != nil {
		p.report(p.written, p.total)
	}
	return n, err
}

// tempArchivePath builds a collision-free archive name from the title,
// the current time and the operation's correlation id.
func (m *Manager) tempArchivePath(name, correlationID string) string {
	suffix := strings.ReplaceAll(correlationID, "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	file := fmt.Sprintf("gamedeck-%s-%d-%s.zip", name, m.now().UnixNano(), suffix)
	return filepath.Join(m.tempDir, file)
}

// download streams rawURL into dest. The file is only created once the
// server has answered with a 2xx status and a body.
func (m *Manager) download(ctx context.Context, logger *slog.Logger, rawURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "installer", "build request", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransport, "installer", "download", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, services.Wrap(services.ErrHTTPStatus, "installer", "download",
			fmt.Sprintf("server returned %s", resp.Status), nil)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return 0, services.Wrap(services.ErrTransport, "installer", "download", "response has no body", nil)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, services.Wrap(services.ErrFilesystem, "installer", "create temp dir", filepath.Dir(dest), err)
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, services.Wrap(services.ErrFilesystem, "installer", "create temp archive", dest, err)
	}
	writer := &progressWriter{dst: out, total: resp.ContentLength, report: m.progress}
	if _, err := io.Copy(writer, resp.Body); err != nil {
		_ = out.Close()
		return writer.written, services.Wrap(services.ErrTransport, "installer", "download",
			fmt.Sprintf("stream interrupted after %d bytes", writer.written), err)
	}
	if err := out.Close(); err != nil {
		return writer.written, services.Wrap(services.ErrFilesystem, "installer", "close temp archive", dest, err)
	}
	logger.Debug("archive downloaded",
		logging.Int64("bytes", writer.written),
		logging.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return writer.written, nil
}
