package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

func validStory() StoryPayload {
	return StoryPayload{
		StoryID:   "s1",
		Title:     "Hello",
		Author:    "gopher",
		URL:       "https://go.dev",
		Username:  "alice",
		CreatedAt: "2024-03-04T05:06:07.123Z",
	}
}

func TestStoryPayload_ToStory(t *testing.T) {
	s, err := validStory().ToStory()
	if err != nil {
		t.Fatalf("ToStory がエラーを返した: %v", err)
	}
	want := time.Date(2024, 3, 4, 5, 6, 7, 123000000, time.UTC)
	if !s.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", s.CreatedAt, want)
	}
	checks := []struct {
		field, got, want string
	}{
		{"ID", s.ID, "s1"},
		{"Title", s.Title, "Hello"},
		{"Author", s.Author, "gopher"},
		{"URL", s.URL, "https://go.dev"},
		{"Username", s.Username, "alice"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.field, c.got, c.want)
		}
	}
}

func TestStoryPayload_RoundTrip(t *testing.T) {
	p := validStory()
	s, err := p.ToStory()
	if err != nil {
		t.Fatalf("ToStory がエラーを返した: %v", err)
	}
	if got := FromStory(s); got != p {
		t.Errorf("FromStory(ToStory(p)) = %+v, want %+v", got, p)
	}
}

func TestStoryPayload_ToStory_RejectsMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *StoryPayload)
	}{
		{"storyId", func(p *StoryPayload) { p.StoryID = "" }},
		{"title", func(p *StoryPayload) { p.Title = " " }},
		{"author", func(p *StoryPayload) { p.Author = "" }},
		{"url", func(p *StoryPayload) { p.URL = "" }},
		{"username", func(p *StoryPayload) { p.Username = "" }},
		{"createdAt", func(p *StoryPayload) { p.CreatedAt = "" }},
		{"createdAt format", func(p *StoryPayload) { p.CreatedAt = "yesterday" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validStory()
			tt.modify(&p)
			_, err := p.ToStory()
			if !model.IsValidationError(err) {
				t.Errorf("カテゴリ = %q, want %q", model.CategoryOf(err), model.CategoryValidation)
			}
		})
	}
}

func TestUserPayload_ToProfile_NestedStoryError(t *testing.T) {
	broken := validStory()
	broken.URL = ""
	p := UserPayload{
		Username:  "alice",
		CreatedAt: "2024-01-01T00:00:00Z",
		Favorites: []StoryPayload{validStory(), broken},
	}

	_, err := p.ToProfile()
	if !model.IsValidationError(err) {
		t.Errorf("カテゴリ = %q, want %q", model.CategoryOf(err), model.CategoryValidation)
	}
}

func TestFromProfile_EncodesEmptyListsAsArrays(t *testing.T) {
	p := FromProfile(model.Profile{
		Username:  "alice",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal がエラーを返した: %v", err)
	}
	want := `{"username":"alice","name":"","createdAt":"2024-01-01T00:00:00Z","favorites":[],"stories":[]}`
	if string(b) != want {
		t.Errorf("JSON = %s, want %s", b, want)
	}
}
