package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleConsumer     UserRole = "CONSUMER"
	RoleCreator      UserRole = "CREATOR"
	RoleProfessional UserRole = "PROFESSIONAL"
	RoleAdmin        UserRole = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleConsumer, RoleCreator, RoleProfessional, RoleAdmin:
		return true
	}
	return false
}

type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaImage MediaType = "image"
)

type NotificationType string

const (
	NotifyLike    NotificationType = "like"
	NotifyComment NotificationType = "comment"
	NotifySystem  NotificationType = "system"
	NotifyBooking NotificationType = "booking"
	NotifyUpload  NotificationType = "upload"
)

type Availability string

const (
	AvailableNow      Availability = "Available Now"
	AvailableThisWeek Availability = "This Week"
	AvailableBooked   Availability = "Booked"
)

// GuestUserID addresses broadcast notifications and identifies the anonymous viewer.
const GuestUserID = "guest"

// JustNow is the display label given to freshly created records.
const JustNow = "Just now"

// BlobPrefix marks session-local file handles that must not be persisted.
const BlobPrefix = "blob:"

type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Role      UserRole `json:"role"`
	Verified  bool     `json:"verified"`
	AvatarURL string   `json:"avatarUrl"`
	Email     string   `json:"email,omitempty"`
	Password  string   `json:"password,omitempty"`
}

// Guest returns the anonymous viewer used when nobody is signed in.
func Guest() User {
	return User{ID: GuestUserID, Name: "Guest", Role: RoleConsumer}
}

type MediaItem struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	ThumbnailURL  string    `json:"thumbnailUrl"`
	SourceURL     string    `json:"sourceUrl"`
	MediaType     MediaType `json:"mediaType"`
	Duration      string    `json:"duration,omitempty"`
	Views         int64     `json:"views"`
	CreatorName   string    `json:"creatorName"`
	CreatorAvatar string    `json:"creatorAvatar"`
	Tags          []string  `json:"tags"`
	IsPremium     bool      `json:"isPremium"`
	Price         *float64  `json:"price,omitempty"`
	UploadedAt    string    `json:"uploadedAt"`
	FileName      string    `json:"fileName,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IsEphemeral reports whether the source points at a session-local handle.
func (m MediaItem) IsEphemeral() bool {
	return strings.HasPrefix(m.SourceURL, BlobPrefix)
}

// MediaPatch carries a partial update. Nil fields are left untouched.
type MediaPatch struct {
	UserID        *string    `json:"userId,omitempty"`
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	ThumbnailURL  *string    `json:"thumbnailUrl,omitempty"`
	SourceURL     *string    `json:"sourceUrl,omitempty"`
	MediaType     *MediaType `json:"mediaType,omitempty"`
	Duration      *string    `json:"duration,omitempty"`
	Views         *int64     `json:"views,omitempty"`
	CreatorName   *string    `json:"creatorName,omitempty"`
	CreatorAvatar *string    `json:"creatorAvatar,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	IsPremium     *bool      `json:"isPremium,omitempty"`
	Price         *float64   `json:"price,omitempty"`
	UploadedAt    *string    `json:"uploadedAt,omitempty"`
	FileName      *string    `json:"fileName,omitempty"`
}

// Apply merges the patch into m and returns the result.
func (p MediaPatch) Apply(m MediaItem) MediaItem {
	if p.UserID != nil {
		m.UserID = *p.UserID
	}
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Description != nil {
		m.Description = *p.Description
	}
	if p.ThumbnailURL != nil {
		m.ThumbnailURL = *p.ThumbnailURL
	}
	if p.SourceURL != nil {
		m.SourceURL = *p.SourceURL
	}
	if p.MediaType != nil {
		m.MediaType = *p.MediaType
	}
	if p.Duration != nil {
		m.Duration = *p.Duration
	}
	if p.Views != nil {
		m.Views = *p.Views
	}
	if p.CreatorName != nil {
		m.CreatorName = *p.CreatorName
	}
	if p.CreatorAvatar != nil {
		m.CreatorAvatar = *p.CreatorAvatar
	}
	if p.Tags != nil {
		m.Tags = append([]string(nil), p.Tags...)
	}
	if p.IsPremium != nil {
		m.IsPremium = *p.IsPremium
	}
	if p.Price != nil {
		price := *p.Price
		m.Price = &price
	}
	if p.UploadedAt != nil {
		m.UploadedAt = *p.UploadedAt
	}
	if p.FileName != nil {
		m.FileName = *p.FileName
	}
	return m
}

// PatchFrom builds a patch that overwrites every editable field with m's values.
func PatchFrom(m MediaItem) MediaPatch {
	p := MediaPatch{
		UserID:        &m.UserID,
		Title:         &m.Title,
		Description:   &m.Description,
		ThumbnailURL:  &m.ThumbnailURL,
		SourceURL:     &m.SourceURL,
		MediaType:     &m.MediaType,
		Duration:      &m.Duration,
		CreatorName:   &m.CreatorName,
		CreatorAvatar: &m.CreatorAvatar,
		Tags:          append([]string{}, m.Tags...),
		IsPremium:     &m.IsPremium,
		Price:         m.Price,
	}
	return p
}

type Comment struct {
	ID         string `json:"id"`
	MediaID    string `json:"mediaId"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	UserAvatar string `json:"userAvatar"`
	Text       string `json:"text"`
	CreatedAt  string `json:"createdAt"`
	Likes      int    `json:"likes"`
}

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt string           `json:"createdAt"`
}

type TalentProfile struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Title        string       `json:"title"`
	Location     string       `json:"location"`
	Rating       float64      `json:"rating"`
	ReviewCount  int          `json:"reviewCount"`
	HourlyRate   float64      `json:"hourlyRate"`
	ImageURL     string       `json:"imageUrl"`
	Verified     bool         `json:"verified"`
	Online       bool         `json:"online"`
	Tags         []string     `json:"tags"`
	Availability Availability `json:"availability"`
}

type SiteSettings struct {
	FeaturedMediaID *string `json:"featuredMediaId"`
}

type UserPatch struct {
	Name      *string   `json:"name,omitempty"`
	Role      *UserRole `json:"role,omitempty"`
	Verified  *bool     `json:"verified,omitempty"`
	AvatarURL *string   `json:"avatarUrl,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Password  *string   `json:"password,omitempty"`
}

func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Verified != nil {
		u.Verified = *p.Verified
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	return u
}

type TalentPatch struct {
	Name         *string       `json:"name,omitempty"`
	Title        *string       `json:"title,omitempty"`
	Location     *string       `json:"location,omitempty"`
	Rating       *float64      `json:"rating,omitempty"`
	ReviewCount  *int          `json:"reviewCount,omitempty"`
	HourlyRate   *float64      `json:"hourlyRate,omitempty"`
	ImageURL     *string       `json:"imageUrl,omitempty"`
	Verified     *bool         `json:"verified,omitempty"`
	Online       *bool         `json:"online,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	Availability *Availability `json:"availability,omitempty"`
}

func (p TalentPatch) Apply(t TalentProfile) TalentProfile {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Location != nil {
		t.Location = *p.Location
	}
	if p.Rating != nil {
		t.Rating = *p.Rating
	}
	if p.ReviewCount != nil {
		t.ReviewCount = *p.ReviewCount
	}
	if p.HourlyRate != nil {
		t.HourlyRate = *p.HourlyRate
	}
	if p.ImageURL != nil {
		t.ImageURL = *p.ImageURL
	}
	if p.Verified != nil {
		t.Verified = *p.Verified
	}
	if p.Online != nil {
		t.Online = *p.Online
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), p.Tags...)
	}
	if p.Availability != nil {
		t.Availability = *p.Availability
	}
	return t
}

// SettingsPatch updates the site settings. ClearFeatured unsets the featured item.
type SettingsPatch struct {
	FeaturedMediaID *string `json:"featuredMediaId,omitempty"`
	ClearFeatured   bool    `json:"-"`
}

func (p SettingsPatch) Apply(s SiteSettings) SiteSettings {
	if p.ClearFeatured {
		s.FeaturedMediaID = nil
	}
	if p.FeaturedMediaID != nil {
		id := *p.FeaturedMediaID
		s.FeaturedMediaID = &id
	}
	return s
}
