package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"mediahub/pkg/domain"
)

// CreateInput holds the form fields of a create request.
type CreateInput struct {
	UserID        string
	Title         string
	Description   string
	MediaType     domain.MediaType
	Duration      string
	CreatorName   string
	CreatorAvatar string
	Tags          []string
	IsPremium     bool
	Price         *float64
	ThumbnailURL  string
	SourceURL     string
	UploadedAt    string
}

func (in CreateInput) item() domain.MediaItem {
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	return domain.MediaItem{
		UserID:        strings.TrimSpace(in.UserID),
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		MediaType:     in.MediaType,
		Duration:      in.Duration,
		CreatorName:   strings.TrimSpace(in.CreatorName),
		CreatorAvatar: in.CreatorAvatar,
		Tags:          tags,
		IsPremium:     in.IsPremium,
		Price:         in.Price,
		ThumbnailURL:  strings.TrimSpace(in.ThumbnailURL),
		SourceURL:     strings.TrimSpace(in.SourceURL),
		UploadedAt:    in.UploadedAt,
	}
}

// ParseTags splits a comma-separated tag list, dropping blanks.
func ParseTags(raw string) []string {
	out := []string{}
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// mediaRules mirrors the persisted schema's required fields.
type mediaRules struct {
	UserID      string   `json:"userId" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	SourceURL   string   `json:"sourceUrl" validate:"required"`
	MediaType   string   `json:"mediaType" validate:"required,oneof=video image"`
	CreatorName string   `json:"creatorName" validate:"required"`
	Views       int64    `json:"views" validate:"gte=0"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (a *App) check(item domain.MediaItem) error {
	err := a.validate.Struct(mediaRules{
		UserID:      item.UserID,
		Title:       item.Title,
		SourceURL:   item.SourceURL,
		MediaType:   string(item.MediaType),
		CreatorName: item.CreatorName,
		Views:       item.Views,
		Price:       item.Price,
	})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return &ValidationError{Message: "Media validation failed: " + strings.Join(msgs, ", ")}
}
