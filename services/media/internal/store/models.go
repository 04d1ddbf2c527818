package store

import (
	"time"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"

	"mediahub/pkg/domain"
)

// MediaModel is the relational row for a media item.
type MediaModel struct {
	ID            string `gorm:"primaryKey"`
	UserID        string `gorm:"not null;index"`
	Title         string `gorm:"not null"`
	Description   string `gorm:"type:text"`
	ThumbnailURL  string
	SourceURL     string `gorm:"not null"`
	MediaType     string `gorm:"not null;index"`
	Duration      string
	Views         int64 `gorm:"not null;default:0"`
	CreatorName   string
	CreatorAvatar string
	Tags          datatypes.JSON `gorm:"type:jsonb"`
	IsPremium     bool           `gorm:"not null;default:false"`
	Price         *float64
	UploadedAt    string
	FileName      string
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (MediaModel) TableName() string { return "media" }

func mediaToModel(m domain.MediaItem) MediaModel {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	raw, _ := json.Marshal(tags)
	return MediaModel{
		ID:            m.ID,
		UserID:        m.UserID,
		Title:         m.Title,
		Description:   m.Description,
		ThumbnailURL:  m.ThumbnailURL,
		SourceURL:     m.SourceURL,
		MediaType:     string(m.MediaType),
		Duration:      m.Duration,
		Views:         m.Views,
		CreatorName:   m.CreatorName,
		CreatorAvatar: m.CreatorAvatar,
		Tags:          datatypes.JSON(raw),
		IsPremium:     m.IsPremium,
		Price:         m.Price,
		UploadedAt:    m.UploadedAt,
		FileName:      m.FileName,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func modelToMedia(m MediaModel) domain.MediaItem {
	tags := []string{}
	if len(m.Tags) > 0 {
		_ = json.Unmarshal(m.Tags, &tags)
	}
	return domain.MediaItem{
		ID:            m.ID,
		UserID:        m.UserID,
		Title:         m.Title,
		Description:   m.Description,
		ThumbnailURL:  m.ThumbnailURL,
		SourceURL:     m.SourceURL,
		MediaType:     domain.MediaType(m.MediaType),
		Duration:      m.Duration,
		Views:         m.Views,
		CreatorName:   m.CreatorName,
		CreatorAvatar: m.CreatorAvatar,
		Tags:          tags,
		IsPremium:     m.IsPremium,
		Price:         m.Price,
		UploadedAt:    m.UploadedAt,
		FileName:      m.FileName,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}
