package store

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"mediahub/pkg/domain"
)

func TestMemoryStoreNewestFirstAndFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, mt := range []domain.MediaType{domain.MediaVideo, domain.MediaImage, domain.MediaVideo} {
		_, err := s.CreateMedia(ctx, domain.MediaItem{
			Title:     string(rune('a' + i)),
			MediaType: mt,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	all, _ := s.ListMedia(ctx)
	if len(all) != 3 || all[0].Title != "c" || all[2].Title != "a" {
		t.Fatalf("unexpected order %+v", all)
	}
	videos, _ := s.ListByType(ctx, domain.MediaVideo)
	if len(videos) != 2 || videos[0].Title != "c" {
		t.Fatalf("unexpected videos %+v", videos)
	}
}

func TestMemoryStoreCrud(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	created, err := s.CreateMedia(ctx, domain.MediaItem{ID: "caller-id", Title: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.ID == "caller-id" {
		t.Fatalf("store must assign a fresh id, got %q", created.ID)
	}
	if created.CreatedAt.IsZero() || !created.UpdatedAt.Equal(created.CreatedAt) {
		t.Fatalf("timestamps not stamped: %+v", created)
	}
	created.Title = "y"
	if err := s.SaveMedia(ctx, created); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, _ := s.GetMedia(ctx, created.ID)
	if !ok || got.Title != "y" {
		t.Fatalf("unexpected get %+v %v", got, ok)
	}
	deleted, _ := s.DeleteMedia(ctx, created.ID)
	if !deleted {
		t.Fatalf("expected delete")
	}
	deleted, _ = s.DeleteMedia(ctx, created.ID)
	if deleted {
		t.Fatalf("second delete should report false")
	}
	n, _ := s.InsertMany(ctx, []domain.MediaItem{{Title: "a"}, {Title: "b"}})
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}
}

func TestGormModelRoundTrip(t *testing.T) {
	price := 9.5
	item := domain.MediaItem{
		ID:        "m1",
		Title:     "t",
		MediaType: domain.MediaVideo,
		Tags:      []string{"a", "b"},
		Price:     &price,
		Views:     7,
		CreatedAt: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
	}
	back := modelToMedia(mediaToModel(item))
	if back.ID != "m1" || len(back.Tags) != 2 || back.Tags[1] != "b" || *back.Price != 9.5 || back.Views != 7 {
		t.Fatalf("unexpected round trip %+v", back)
	}
	empty := modelToMedia(mediaToModel(domain.MediaItem{}))
	if empty.Tags == nil {
		t.Fatalf("tags should decode to an empty slice")
	}
}

func TestMongoDocumentConversion(t *testing.T) {
	doc := toDocument(domain.MediaItem{ID: "ignored", Title: "t", MediaType: domain.MediaImage})
	if doc.ID != primitive.NilObjectID {
		t.Fatalf("document id must be assigned by the database")
	}
	doc = stampNew(doc)
	if doc.CreatedAt.IsZero() || !doc.UpdatedAt.Equal(doc.CreatedAt) {
		t.Fatalf("expected stamped timestamps, got %+v", doc)
	}
	doc.ID = primitive.NewObjectID()
	item := doc.toDomain()
	if item.ID != doc.ID.Hex() || item.Tags == nil {
		t.Fatalf("unexpected domain item %+v", item)
	}
}
