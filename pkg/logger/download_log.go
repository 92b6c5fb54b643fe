package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DownloadLog appends raw engine output to a dated log file, with a
// command header and a success/failure footer around each run. It is
// separate from the structured zap logs: engine output is line noise a
// human reads when a download misbehaves.
type DownloadLog struct {
	dir  string
	mu   sync.Mutex
	file *os.File
}

// NewDownloadLog opens (or creates) today's download log in dir.
func NewDownloadLog(dir string) (*DownloadLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	dateStr := time.Now().Format("20060102")
	path := filepath.Join(dir, "download-"+dateStr+".log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open download log: %w", err)
	}

	return &DownloadLog{dir: dir, file: file}, nil
}

// WriteHeader writes the run start marker with the escaped command line.
func (l *DownloadLog) WriteHeader(cmdLine string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.file, "\n=== [%s] engine run ===\n$ %s\n", timestamp, cmdLine)
}

// WriteLine appends one raw output line.
func (l *DownloadLog) WriteLine(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.file, line)
}

// WriteFooter writes the run end marker.
func (l *DownloadLog) WriteFooter(success bool, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.file, "[%s] %s: %s\n=== END ===\n\n", timestamp, status, message)
}

// Close closes the underlying file.
func (l *DownloadLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
