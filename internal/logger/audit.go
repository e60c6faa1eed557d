package logger

import (
	"encoding/json"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sonnylabs/sonnylabs-go/internal/redact"
	"github.com/sonnylabs/sonnylabs-go/scan"
)

const (
	defaultMaxLogBytes = 10 << 20
	maxExcerptRunes    = 200
)

// AuditEvent is one JSONL line of the audit log.
type AuditEvent struct {
	Timestamp      string    `json:"timestamp"`
	Operation      string    `json:"operation"`
	ScanType       string    `json:"scan_type,omitempty"`
	Tag            string    `json:"tag,omitempty"`
	IsSafe         bool      `json:"is_safe"`
	Score          float64   `json:"score"`
	Recommendation string    `json:"recommendation,omitempty"`
	Excerpt        string    `json:"excerpt,omitempty"`
	Meta           scan.Meta `json:"meta,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// VerdictEvent builds an audit event from a verdict and the scanned text.
// PII reported by the scorer is masked in the excerpt along with secrets.
func VerdictEvent(operation, text string, v scan.Verdict) AuditEvent {
	return AuditEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Operation: operation,
		ScanType:  string(v.ScanType),
		Tag:       v.Tag,
		IsSafe:    v.IsSafe,
		Score:     v.Score,
		Excerpt:   excerpt(redact.RedactPII(text, piiOf(v.RawAnalysis))),
		Meta:      v.Meta,
		Error:     v.Error,
	}
}

func piiOf(records []scan.Record) []scan.PIIFinding {
	a := scan.Analysis{Success: true, Records: records}
	return a.PII()
}

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= maxExcerptRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxExcerptRunes]) + "…"
}

type AuditLogger struct {
	path     string
	maxBytes int64
	file     *os.File
	mu       sync.Mutex
}

func NewAudit(path string) (*AuditLogger, error) {
	l := &AuditLogger{path: path, maxBytes: defaultMaxLogBytes}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *AuditLogger) open() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	l.file = file
	return nil
}

// rotate moves a full log to <path>.1, replacing any earlier rotation.
func (l *AuditLogger) rotate() error {
	info, err := l.file.Stat()
	if err != nil || info.Size() < l.maxBytes {
		return err
	}
	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return err
	}
	return l.open()
}

func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotate(); err != nil {
		return err
	}

	event.Excerpt = redact.Redact(event.Excerpt)
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
