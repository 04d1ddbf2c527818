package server

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"mediahub/pkg/domain"
	"mediahub/services/media/internal/app"
)

// mediaFields holds the submitted fields of a create or update request,
// whatever encoding the client used.
type mediaFields map[string]any

// readMediaRequest accepts multipart (with optional "file"), urlencoded or JSON bodies.
func (s *Server) readMediaRequest(w http.ResponseWriter, r *http.Request) (mediaFields, *app.Upload, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+formOverhead)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			if isTooLarge(err) {
				return nil, nil, noop, err
			}
			return nil, nil, noop, &app.ValidationError{Message: "invalid form data"}
		}
		fields := formFields(r)
		file, header, err := r.FormFile("file")
		if err != nil {
			return fields, nil, func() { removeMultipart(r) }, nil
		}
		if header.Size > s.maxUploadBytes {
			file.Close()
			removeMultipart(r)
			return nil, nil, noop, &http.MaxBytesError{Limit: s.maxUploadBytes}
		}
		upload := &app.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Reader:      file,
		}
		return fields, upload, func() {
			file.Close()
			removeMultipart(r)
		}, nil
	case "application/json":
		fields := mediaFields{}
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			if isTooLarge(err) {
				return nil, nil, noop, err
			}
			return nil, nil, noop, &app.ValidationError{Message: "invalid JSON body"}
		}
		return fields, nil, noop, nil
	default:
		if err := r.ParseForm(); err != nil {
			return nil, nil, noop, &app.ValidationError{Message: "invalid form data"}
		}
		return formFields(r), nil, noop, nil
	}
}

func formFields(r *http.Request) mediaFields {
	fields := mediaFields{}
	values := r.PostForm
	if r.MultipartForm != nil {
		values = r.MultipartForm.Value
	}
	for key, vals := range values {
		if len(vals) > 0 {
			fields[key] = vals[0]
		}
	}
	return fields
}

func removeMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func (f mediaFields) str(key string) (string, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

func (f mediaFields) text(key string) string {
	v, _ := f.str(key)
	return v
}

func (f mediaFields) tags() ([]string, bool) {
	v, ok := f["tags"]
	if !ok || v == nil {
		return nil, false
	}
	switch t := v.(type) {
	case string:
		return app.ParseTags(t), true
	case []any:
		out := make([]string, 0, len(t))
		for _, tag := range t {
			if s, ok := tag.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out, true
	}
	return nil, false
}

func (f mediaFields) flag(key string) (bool, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true"), true
	}
	return false, true
}

func (f mediaFields) number(key string) (*float64, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case float64:
		return &t, nil
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, nil
		}
		n, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, &app.ValidationError{Message: fmt.Sprintf("invalid field %s: expected a number", key)}
		}
		return &n, nil
	}
	return nil, &app.ValidationError{Message: fmt.Sprintf("invalid field %s: expected a number", key)}
}

func (f mediaFields) createInput() app.CreateInput {
	in := app.CreateInput{
		UserID:        f.text("userId"),
		Title:         f.text("title"),
		Description:   f.text("description"),
		MediaType:     domain.MediaType(f.text("mediaType")),
		Duration:      f.text("duration"),
		CreatorName:   f.text("creatorName"),
		CreatorAvatar: f.text("creatorAvatar"),
		ThumbnailURL:  f.text("thumbnailUrl"),
		SourceURL:     f.text("sourceUrl"),
	}
	in.Tags, _ = f.tags()
	in.IsPremium, _ = f.flag("isPremium")
	// Unparseable prices are dropped on create.
	in.Price, _ = f.number("price")
	return in
}

func (f mediaFields) patch() (domain.MediaPatch, error) {
	var p domain.MediaPatch
	strField := func(key string) *string {
		if v, ok := f.str(key); ok {
			return &v
		}
		return nil
	}
	p.UserID = strField("userId")
	p.Title = strField("title")
	p.Description = strField("description")
	p.ThumbnailURL = strField("thumbnailUrl")
	p.SourceURL = strField("sourceUrl")
	p.Duration = strField("duration")
	p.CreatorName = strField("creatorName")
	p.CreatorAvatar = strField("creatorAvatar")
	p.UploadedAt = strField("uploadedAt")
	if v, ok := f.str("mediaType"); ok {
		mt := domain.MediaType(v)
		p.MediaType = &mt
	}
	if tags, ok := f.tags(); ok {
		p.Tags = tags
	}
	if premium, ok := f.flag("isPremium"); ok {
		p.IsPremium = &premium
	}
	price, err := f.number("price")
	if err != nil {
		return p, err
	}
	p.Price = price
	views, err := f.number("views")
	if err != nil {
		return p, err
	}
	if views != nil {
		n := int64(*views)
		p.Views = &n
	}
	return p, nil
}
