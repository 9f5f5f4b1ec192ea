package mailer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender writes outgoing emails to a local directory instead of sending
// them, for development environments without Postmark credentials.
type DevSender struct {
	dir string
}

// NewDevSender creates a file-based sender. The directory is created on
// first send if it doesn't exist.
func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir}
}

// Send writes the message to a timestamped .txt file in the configured
// directory.
func (d *DevSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %v", ErrFailedToSend, err)
	}

	name := fmt.Sprintf("%s_%s.txt",
		time.Now().Format("2006_01_02_150405"),
		sanitizeFilename(msg.Subject),
	)

	content := fmt.Sprintf("To: %s\nSubject: %s\n\n%s\n", msg.To, msg.Subject, msg.Body)
	if err := os.WriteFile(filepath.Join(d.dir, name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("%w: write file: %v", ErrFailedToSend, err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	if len(s) > 80 {
		s = s[:80]
	}
	if s == "" {
		s = "email"
	}
	return strings.ToLower(s)
}
