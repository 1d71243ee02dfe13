package models

import "time"

// StoredFile keeps the storage key next to the public URL so deletes never
// have to parse the URL.
type StoredFile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Folder      string    `gorm:"size:60;not null" json:"folder"`
	Key         string    `gorm:"size:300;uniqueIndex;not null" json:"key"`
	URL         string    `gorm:"size:500;not null" json:"url"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  uint      `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
