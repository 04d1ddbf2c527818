package mediaclient

import (
	"io"
	"net/url"
	"strconv"
	"strings"

	"mediahub/pkg/domain"
)

func itemFields(item domain.MediaItem) url.Values {
	v := url.Values{}
	v.Set("userId", item.UserID)
	v.Set("title", item.Title)
	v.Set("description", item.Description)
	v.Set("thumbnailUrl", item.ThumbnailURL)
	v.Set("sourceUrl", item.SourceURL)
	v.Set("mediaType", string(item.MediaType))
	v.Set("duration", item.Duration)
	v.Set("creatorName", item.CreatorName)
	v.Set("creatorAvatar", item.CreatorAvatar)
	v.Set("tags", strings.Join(item.Tags, ","))
	v.Set("isPremium", strconv.FormatBool(item.IsPremium))
	if item.Price != nil {
		v.Set("price", strconv.FormatFloat(*item.Price, 'f', -1, 64))
	}
	return v
}

func patchFields(p domain.MediaPatch) url.Values {
	v := url.Values{}
	setIf := func(key string, s *string) {
		if s != nil {
			v.Set(key, *s)
		}
	}
	setIf("userId", p.UserID)
	setIf("title", p.Title)
	setIf("description", p.Description)
	setIf("thumbnailUrl", p.ThumbnailURL)
	setIf("sourceUrl", p.SourceURL)
	setIf("duration", p.Duration)
	setIf("creatorName", p.CreatorName)
	setIf("creatorAvatar", p.CreatorAvatar)
	if p.MediaType != nil {
		v.Set("mediaType", string(*p.MediaType))
	}
	if p.Tags != nil {
		v.Set("tags", strings.Join(p.Tags, ","))
	}
	if p.IsPremium != nil {
		v.Set("isPremium", strconv.FormatBool(*p.IsPremium))
	}
	if p.Price != nil {
		v.Set("price", strconv.FormatFloat(*p.Price, 'f', -1, 64))
	}
	return v
}

// progressReader reports read progress as a percentage, once per distinct value.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct != p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
