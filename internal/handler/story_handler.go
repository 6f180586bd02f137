package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/hackorsnooze/internal/middleware"
	"github.com/hitoshi/hackorsnooze/internal/model"
	"github.com/hitoshi/hackorsnooze/internal/wire"
)

// StoryHandler はストーリー関連のHTTPハンドラー。
type StoryHandler struct {
	catalog  CatalogServiceInterface
	accounts AccountServiceInterface
}

// NewStoryHandler はStoryHandlerを生成する。
func NewStoryHandler(catalog CatalogServiceInterface, accounts AccountServiceInterface) *StoryHandler {
	return &StoryHandler{catalog: catalog, accounts: accounts}
}

// ListStories は全ストーリーを返す。
// GET /stories
func (h *StoryHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.catalog.List(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.StoriesEnvelope{Stories: wire.FromStories(stories)})
}

// GetStory は指定IDのストーリーを返す。
// GET /stories/{storyId}
func (h *StoryHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	story, err := h.catalog.Get(r.Context(), chi.URLParam(r, "storyId"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	p := wire.FromStory(*story)
	writeJSON(w, http.StatusOK, wire.StoryEnvelope{Story: &p})
}

// CreateStory はトークンの持ち主を投稿者としてストーリーを作成する。
// POST /stories
func (h *StoryHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req wire.CreateStoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	username, err := authenticate(r, h.accounts, tokenFrom(r, req.Token))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if err := validate.Validate(req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	story, err := h.catalog.Create(r.Context(), username, model.NewStory{
		Author: req.Story.Author,
		Title:  req.Story.Title,
		URL:    req.Story.URL,
	})
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	p := wire.FromStory(*story)
	writeJSON(w, http.StatusCreated, wire.StoryEnvelope{Story: &p})
}

// DeleteStory は投稿者本人のストーリーを削除する。
// DELETE /stories/{storyId}
func (h *StoryHandler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	var req wire.TokenRequest
	if err := decodeBody(w, r, &req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	username, err := authenticate(r, h.accounts, tokenFrom(r, req.Token))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	story, err := h.catalog.Delete(r.Context(), username, chi.URLParam(r, "storyId"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	p := wire.FromStory(*story)
	writeJSON(w, http.StatusOK, wire.MessageEnvelope{
		Message: "Deleted Story!",
		Story:   &p,
	})
}
