package domain

import (
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a download record
type DownloadStatus string

const (
	StatusQueued     DownloadStatus = "queued"
	StatusProcessing DownloadStatus = "processing"
	StatusCompleted  DownloadStatus = "completed"
	StatusFailed     DownloadStatus = "failed"
	StatusCancelled  DownloadStatus = "cancelled"
)

// Download is the persisted record of one download request: what was
// asked for, how many attempts it took, and where the file ended up.
type Download struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	URL          string         `json:"url" gorm:"not null"`
	Quality      Quality        `json:"quality" gorm:"not null"`
	Format       Format         `json:"format" gorm:"not null"`
	AudioOnly    bool           `json:"audio_only"`
	OutputDir    string         `json:"output_dir,omitempty"`
	Status       DownloadStatus `json:"status" gorm:"not null;index"`
	Attempts     int            `json:"attempts" gorm:"default:0"`
	ErrorKind    ErrorKind      `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	FilePath     string         `json:"file_path,omitempty"`
	FileSize     int64          `json:"file_size,omitempty"`
	Title        string         `json:"title,omitempty"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// NewDownload creates a queued download record from a validated request.
func NewDownload(req DownloadRequest) *Download {
	return &Download{
		ID:        uuid.New().String(),
		URL:       req.URL,
		Quality:   req.Quality,
		Format:    req.Format,
		AudioOnly: req.AudioOnly,
		OutputDir: req.OutputDir,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// Request rebuilds the validated request for this record.
func (d *Download) Request() (DownloadRequest, error) {
	return NewDownloadRequest(d.URL, d.Quality, d.Format, d.AudioOnly, d.OutputDir)
}

// MarkProcessing marks the download as processing
func (d *Download) MarkProcessing() {
	d.Status = StatusProcessing
	now := time.Now()
	d.StartedAt = &now
	d.UpdatedAt = now
}

// MarkCompleted records the terminal result of a successful download.
func (d *Download) MarkCompleted(result Result) {
	d.Status = StatusCompleted
	d.FilePath = result.Outcome.FilePath
	d.FileSize = result.Outcome.FileSize
	d.Attempts = len(result.Attempts)
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// MarkFailed records the terminal result of an exhausted download.
func (d *Download) MarkFailed(result Result) {
	d.Status = StatusFailed
	d.ErrorKind = result.Outcome.Kind
	d.ErrorMessage = result.Outcome.Message
	d.Attempts = len(result.Attempts)
	d.UpdatedAt = time.Now()
}

// IsTerminal checks if the download is in a terminal state
func (d *Download) IsTerminal() bool {
	return d.Status == StatusCompleted || d.Status == StatusCancelled
}

// IsPending checks if the download is pending
func (d *Download) IsPending() bool {
	return d.Status == StatusQueued
}

// IsProcessing checks if the download is currently processing
func (d *Download) IsProcessing() bool {
	return d.Status == StatusProcessing
}
