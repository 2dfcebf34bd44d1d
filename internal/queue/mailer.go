package queue

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// Mail is a rendered message ready for delivery.
type Mail struct {
	ID      string
	To      string
	Subject string
	Body    string
}

// Mailer delivers rendered mail.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// LogMailer writes each mail as one line to a daily rotated file instead
// of talking to an SMTP server.
type LogMailer struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewLogMailer appends to dir/mail.YYYYMMDD.log, keeping 30 days.
func NewLogMailer(dir string) (*LogMailer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	rl, err := rotatelogs.New(
		filepath.Join(dir, "mail.%Y%m%d.log"),
		rotatelogs.WithClock(rotatelogs.UTC),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(30*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("open mail log: %w", err)
	}
	return newLogMailer(rl), nil
}

func newLogMailer(w io.Writer) *LogMailer {
	return &LogMailer{w: w, now: func() time.Time { return time.Now().UTC() }}
}

func (l *LogMailer) Send(_ context.Context, m Mail) error {
	line := fmt.Sprintf("[%s] mail | id=%s | to=%s | subject=%s | body=%s\n",
		l.now().Format(time.RFC3339), m.ID, m.To, strconv.Quote(m.Subject), strconv.Quote(m.Body))

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := io.WriteString(l.w, line); err != nil {
		return fmt.Errorf("write mail log: %w", err)
	}
	return nil
}

// Close releases the underlying file when it has one.
func (l *LogMailer) Close() error {
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
