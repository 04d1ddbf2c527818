package content

import (
	"fmt"
	"sort"

	"mediahub/pkg/domain"
)

// GetMedia returns freshly added items first, otherwise collection order.
func (s *Store) GetMedia() []domain.MediaItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := cloneMedia(s.media)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadedAt == domain.JustNow && out[j].UploadedAt != domain.JustNow
	})
	return out
}

func (s *Store) GetMediaByID(id string) (domain.MediaItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.mediaIndex(id); i >= 0 {
		return cloneItem(s.media[i]), true
	}
	return domain.MediaItem{}, false
}

// AddMedia stores item under a fresh id, prepends it and announces the upload.
// The caller's ID, Views and UploadedAt are ignored.
func (s *Store) AddMedia(item domain.MediaItem) domain.MediaItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	item = cloneItem(item)
	item.ID = s.newID()
	item.Views = 0
	item.UploadedAt = domain.JustNow
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Tags == nil {
		item.Tags = []string{}
	}
	s.media = append([]domain.MediaItem{item}, s.media...)
	s.addNotification(domain.GuestUserID, domain.NotifyUpload, fmt.Sprintf("%s just uploaded: %s", item.CreatorName, item.Title))
	s.persist()
	return cloneItem(item)
}

// UpdateMedia merges patch into the item and bumps its update time.
func (s *Store) UpdateMedia(id string, patch domain.MediaPatch) (domain.MediaItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.mediaIndex(id)
	if i < 0 {
		s.persist()
		return domain.MediaItem{}, false
	}
	item := patch.Apply(s.media[i])
	item.UpdatedAt = s.now()
	s.media[i] = item
	s.persist()
	return cloneItem(item), true
}

// DeleteMedia removes the item. Its comments are left in place.
func (s *Store) DeleteMedia(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.mediaIndex(id)
	if i >= 0 {
		s.media = append(s.media[:i], s.media[i+1:]...)
	}
	s.persist()
	return i >= 0
}

// ImportMedia merges items by id: existing ids are overwritten in place,
// new ids are appended in input order. It returns the number of items merged.
func (s *Store) ImportMedia(items []domain.MediaItem) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := make(map[string]int, len(s.media))
	for i, item := range s.media {
		index[item.ID] = i
	}
	for _, item := range items {
		item = cloneItem(item)
		if item.Tags == nil {
			item.Tags = []string{}
		}
		if i, ok := index[item.ID]; ok {
			s.media[i] = item
			continue
		}
		index[item.ID] = len(s.media)
		s.media = append(s.media, item)
	}
	s.persist()
	return len(items)
}

// MirrorMedia stores a copy of a remote item. An existing id is overwritten in
// place, a new one is prepended.
func (s *Store) MirrorMedia(item domain.MediaItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror(item)
	s.persist()
}

func (s *Store) mirror(item domain.MediaItem) {
	item = cloneItem(item)
	if item.Tags == nil {
		item.Tags = []string{}
	}
	if i := s.mediaIndex(item.ID); i >= 0 {
		s.media[i] = item
		return
	}
	s.media = append([]domain.MediaItem{item}, s.media...)
}

// RekeyMedia replaces the item stored under oldID with item, which carries the
// id the API assigned. Comments and the featured setting follow the new id.
// It reports whether oldID was present; when it was not, item is mirrored.
func (s *Store) RekeyMedia(oldID string, item domain.MediaItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.mediaIndex(oldID)
	if i < 0 || oldID == item.ID {
		s.mirror(item)
		s.persist()
		return i >= 0
	}
	if dup := s.mediaIndex(item.ID); dup >= 0 {
		s.media = append(s.media[:dup], s.media[dup+1:]...)
		i = s.mediaIndex(oldID)
	}
	item = cloneItem(item)
	if item.Tags == nil {
		item.Tags = []string{}
	}
	s.media[i] = item
	for j := range s.comments {
		if s.comments[j].MediaID == oldID {
			s.comments[j].MediaID = item.ID
		}
	}
	if s.settings.FeaturedMediaID != nil && *s.settings.FeaturedMediaID == oldID {
		id := item.ID
		s.settings.FeaturedMediaID = &id
	}
	s.persist()
	return true
}

// ExportVideos returns every video item in collection order.
func (s *Store) ExportVideos() []domain.MediaItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MediaItem, 0, len(s.media))
	for _, item := range s.media {
		if item.MediaType == domain.MediaVideo {
			out = append(out, cloneItem(item))
		}
	}
	return out
}

func (s *Store) mediaIndex(id string) int {
	for i := range s.media {
		if s.media[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneItem(item domain.MediaItem) domain.MediaItem {
	if item.Tags != nil {
		item.Tags = append([]string(nil), item.Tags...)
	}
	if item.Price != nil {
		price := *item.Price
		item.Price = &price
	}
	return item
}

func cloneMedia(items []domain.MediaItem) []domain.MediaItem {
	out := make([]domain.MediaItem, len(items))
	for i, item := range items {
		out[i] = cloneItem(item)
	}
	return out
}
