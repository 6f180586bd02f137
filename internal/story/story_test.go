package story

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

// mockRemote はRemoteのテスト用モック実装。
type mockRemote struct {
	mu sync.Mutex

	listStoriesFn func(ctx context.Context) ([]model.Story, error)
	getStoryFn    func(ctx context.Context, storyID string) (model.Story, error)
	createStoryFn func(ctx context.Context, token string, ns model.NewStory) (model.Story, error)

	createCalls int
}

func (m *mockRemote) ListStories(ctx context.Context) ([]model.Story, error) {
	if m.listStoriesFn != nil {
		return m.listStoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockRemote) GetStory(ctx context.Context, storyID string) (model.Story, error) {
	if m.getStoryFn != nil {
		return m.getStoryFn(ctx, storyID)
	}
	return model.Story{}, model.NewStoryNotFoundError(storyID)
}

func (m *mockRemote) CreateStory(ctx context.Context, token string, ns model.NewStory) (model.Story, error) {
	m.mu.Lock()
	m.createCalls++
	m.mu.Unlock()
	if m.createStoryFn != nil {
		return m.createStoryFn(ctx, token, ns)
	}
	return model.Story{}, errors.New("not implemented")
}

// fakeAuthor はAuthorのテスト用実装。
type fakeAuthor struct {
	username string
	token    string
}

func (a fakeAuthor) Username() string   { return a.username }
func (a fakeAuthor) LoginToken() string { return a.token }

// recordingAuthor は確定した投稿を記録するAuthor。
type recordingAuthor struct {
	fakeAuthor
	recorded []model.Story
}

func (a *recordingAuthor) RecordOwnStory(story model.Story) {
	a.recorded = append(a.recorded, story)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func testStory(id string) model.Story {
	return model.Story{
		ID:        id,
		Title:     "title " + id,
		Author:    "author",
		URL:       "https://example.com/" + id,
		Username:  "alice",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func ids(stories []model.Story) []string {
	out := make([]string, len(stories))
	for i, s := range stories {
		out[i] = s.ID
	}
	return out
}

func equalIDs(got []model.Story, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func validNewStory() model.NewStory {
	return model.NewStory{Author: "gopher", Title: "Go", URL: "https://go.dev"}
}

// --- FetchByID ---

func TestFetchByID_ReturnsStory(t *testing.T) {
	remote := &mockRemote{
		getStoryFn: func(ctx context.Context, storyID string) (model.Story, error) {
			return testStory(storyID), nil
		},
	}

	s, err := FetchByID(context.Background(), remote, "s1")
	if err != nil {
		t.Fatalf("FetchByID がエラーを返した: %v", err)
	}
	if s.ID != "s1" {
		t.Errorf("ID = %s, want s1", s.ID)
	}
}

func TestFetchByID_NotFound(t *testing.T) {
	remote := &mockRemote{}

	_, err := FetchByID(context.Background(), remote, "missing")
	if !model.IsNotFoundError(err) {
		t.Errorf("カテゴリ = %q, want %q", model.CategoryOf(err), model.CategoryNotFound)
	}
}

func TestFetchByID_EmptyID(t *testing.T) {
	called := false
	remote := &mockRemote{
		getStoryFn: func(ctx context.Context, storyID string) (model.Story, error) {
			called = true
			return model.Story{}, nil
		},
	}

	_, err := FetchByID(context.Background(), remote, "")
	if !model.IsValidationError(err) {
		t.Errorf("カテゴリ = %q, want %q", model.CategoryOf(err), model.CategoryValidation)
	}
	if called {
		t.Error("空のIDでリモートが呼び出された")
	}
}

// --- FetchAll ---

func TestFetchAll_PreservesServerOrder(t *testing.T) {
	var buf bytes.Buffer
	remote := &mockRemote{
		listStoriesFn: func(ctx context.Context) ([]model.Story, error) {
			return []model.Story{testStory("s1"), testStory("s2")}, nil
		},
	}

	list, err := FetchAll(context.Background(), remote, newTestLogger(&buf))
	if err != nil {
		t.Fatalf("FetchAll がエラーを返した: %v", err)
	}
	if !equalIDs(list.Stories(), "s1", "s2") {
		t.Errorf("順序 = %v, want [s1 s2]", ids(list.Stories()))
	}
}

func TestFetchAll_DeduplicatesByID(t *testing.T) {
	var buf bytes.Buffer
	remote := &mockRemote{
		listStoriesFn: func(ctx context.Context) ([]model.Story, error) {
			return []model.Story{testStory("s1"), testStory("s2"), testStory("s1")}, nil
		},
	}

	list, err := FetchAll(context.Background(), remote, newTestLogger(&buf))
	if err != nil {
		t.Fatalf("FetchAll がエラーを返した: %v", err)
	}
	if !equalIDs(list.Stories(), "s1", "s2") {
		t.Errorf("順序 = %v, want [s1 s2]", ids(list.Stories()))
	}
}

func TestFetchAll_FailureReturnsNoList(t *testing.T) {
	var buf bytes.Buffer
	remote := &mockRemote{
		listStoriesFn: func(ctx context.Context) ([]model.Story, error) {
			return nil, model.NewTransportError("down", nil)
		},
	}

	list, err := FetchAll(context.Background(), remote, newTestLogger(&buf))
	if !model.IsTransportError(err) {
		t.Errorf("カテゴリ = %q, want %q", model.CategoryOf(err), model.CategoryTransport)
	}
	if list != nil {
		t.Error("失敗時に List が返された")
	}
}

// --- Refresh ---

func TestList_Refresh(t *testing.T) {
	var buf bytes.Buffer
	fail := false
	remote := &mockRemote{
		listStoriesFn: func(ctx context.Context) ([]model.Story, error) {
			if fail {
				return nil, model.NewTransportError("down", nil)
			}
			return []model.Story{testStory("s9"), testStory("s8")}, nil
		},
	}
	list := NewList(remote, newTestLogger(&buf), []model.Story{testStory("s1")})

	if err := list.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh がエラーを返した: %v", err)
	}
	if !equalIDs(list.Stories(), "s9", "s8") {
		t.Errorf("順序 = %v, want [s9 s8]", ids(list.Stories()))
	}

	fail = true
	if err := list.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh がエラーを返さなかった")
	}
	if !equalIDs(list.Stories(), "s9", "s8") {
		t.Errorf("失敗後に内容が変化した: %v", ids(list.Stories()))
	}
}

// --- AddStory ---

func TestList_AddStory_InsertsServerStoryAtFront(t *testing.T) {
	var buf bytes.Buffer
	remote := &mockRemote{
		createStoryFn: func(ctx context.Context, token string, ns model.NewStory) (model.Story, error) {
			if token != "tok" {
				t.Errorf("token = %q, want tok", token)
			}
			s := testStory("new")
			s.Title = ns.Title
			return s, nil
		},
	}
	list := NewList(remote, newTestLogger(&buf), []model.Story{testStory("s1"), testStory("s2")})

	created, err := list.AddStory(context.Background(), fakeAuthor{"alice", "tok"}, validNewStory())
	if err != nil {
		t.Fatalf("AddStory がエラーを返した: %v", err)
	}
	if created.ID != "new" {
		t.Errorf("ID = %s, want new", created.ID)
	}
	if !equalIDs(list.Stories(), "new", "s1", "s2") {
		t.Errorf("順序 = %v, want [new s1 s2]", ids(list.Stories()))
	}
}

func TestList_AddStory_RecordsOwnStoryOnAuthor(t *testing.T) {
	var buf bytes.Buffer
	remote := &mockRemote{
		createStoryFn: func(ctx context.Context, token string, ns model.NewStory) (model.Story, error) {
			return testStory("new"), nil
		},
	}
	list := NewList(remote, newTestLogger(&buf), nil)
	author := &recordingAuthor{fakeAuthor: fakeAuthor{"alice", "tok"}}

	created, err := list.AddStory(context.Background(), author, validNewStory())
	if err != nil {
		t.Fatalf("AddStory がエラーを返した: %v", err)
	}
	if len(author.recorded) != 1 || author.recorded[0].ID != created.ID {
		t.Errorf("recorded = %v, want [%s]", ids(author.recorded), created.ID)
	}
}

func TestList_AddStory_FailureDoesNotRecordOwnStory(t *testing.T) {
	var buf bytes.Buffer
	remote := &mockRemote{
		createStoryFn: func(ctx context.Context, token string, ns model.NewStory) (model.Story, error) {
			return model.Story{}, model.NewTransportError("create failed", errors.New("timeout"))
		},
	}
	list := NewList(remote, newTestLogger(&buf), nil)
	author := &recordingAuthor{fakeAuthor: fakeAuthor{"alice", "tok"}}

	if _, err := list.AddStory(context.Background(), author, validNewStory()); !model.IsTransportError(err) {
		t.Errorf("カテゴリ = %q, want %q", model.CategoryOf(err), model.CategoryTransport)
	}
	if len(author.recorded) != 0 {
		t.Errorf("recorded = %v, want none", ids(author.recorded))
	}
}

func TestList_AddStory_DuplicateIDIsNoop(t *testing.T) {
	var buf bytes.Buffer
	remote := &mockRemote{
		createStoryFn: func(ctx context.Context, token string, ns model.NewStory) (model.Story, error) {
			return testStory("s2"), nil
		},
	}
	list := NewList(remote, newTestLogger(&buf), []model.Story{testStory("s1"), testStory("s2")})

	if _, err := list.AddStory(context.Background(), fakeAuthor{"alice", "tok"}, validNewStory()); err != nil {
		t.Fatalf("AddStory がエラーを返した: %v", err)
	}
	if !equalIDs(list.Stories(), "s1", "s2") {
		t.Errorf("順序 = %v, want [s1 s2]", ids(list.Stories()))
	}
}

func TestList_AddStory_FailureLeavesStoriesUnchanged(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"auth", model.NewUnauthorizedError()},
		{"transport", model.NewTransportError("timeout", nil)},
		{"validation", model.NewInvalidRequestError("bad url")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			remote := &mockRemote{
				createStoryFn: func(ctx context.Context, token string, ns model.NewStory) (model.Story, error) {
					return model.Story{}, tt.err
				},
			}
			list := NewList(remote, newTestLogger(&buf), []model.Story{testStory("s1"), testStory("s2")})

			_, err := list.AddStory(context.Background(), fakeAuthor{"alice", "tok"}, validNewStory())
			if !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
			if !equalIDs(list.Stories(), "s1", "s2") {
				t.Errorf("順序 = %v, want [s1 s2]", ids(list.Stories()))
			}
		})
	}
}

func TestList_AddStory_RequiresLoginToken(t *testing.T) {
	tests := []struct {
		name   string
		author Author
	}{
		{"nil author", nil},
		{"empty token", fakeAuthor{"alice", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			remote := &mockRemote{}
			list := NewList(remote, newTestLogger(&buf), nil)

			_, err := list.AddStory(context.Background(), tt.author, validNewStory())
			if !model.IsAuthError(err) {
				t.Errorf("カテゴリ = %q, want %q", model.CategoryOf(err), model.CategoryAuth)
			}
			if remote.createCalls != 0 {
				t.Errorf("リモート呼び出し回数 = %d, want 0", remote.createCalls)
			}
		})
	}
}

func TestList_AddStory_InvalidInputNotSent(t *testing.T) {
	tests := []struct {
		name string
		ns   model.NewStory
	}{
		{"empty author", model.NewStory{Title: "t", URL: "https://go.dev"}},
		{"empty title", model.NewStory{Author: "a", URL: "https://go.dev"}},
		{"empty url", model.NewStory{Author: "a", Title: "t"}},
		{"relative url", model.NewStory{Author: "a", Title: "t", URL: "/relative"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			remote := &mockRemote{}
			list := NewList(remote, newTestLogger(&buf), []model.Story{testStory("s1")})

			_, err := list.AddStory(context.Background(), fakeAuthor{"alice", "tok"}, tt.ns)
			if !model.IsValidationError(err) {
				t.Errorf("カテゴリ = %q, want %q", model.CategoryOf(err), model.CategoryValidation)
			}
			if remote.createCalls != 0 {
				t.Errorf("リモート呼び出し回数 = %d, want 0", remote.createCalls)
			}
			if list.Len() != 1 {
				t.Errorf("Len = %d, want 1", list.Len())
			}
		})
	}
}

func TestList_ConcurrentAddStoryKeepsIDsUnique(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	n := 0
	remote := &mockRemote{
		createStoryFn: func(ctx context.Context, token string, ns model.NewStory) (model.Story, error) {
			mu.Lock()
			defer mu.Unlock()
			n++
			// 2回に1回は同じIDを返す
			return testStory([]string{"a", "b"}[n%2]), nil
		},
	}
	list := NewList(remote, newTestLogger(&buf), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			list.AddStory(context.Background(), fakeAuthor{"alice", "tok"}, validNewStory())
		}()
	}
	wg.Wait()

	if list.Len() != 2 {
		t.Errorf("Len = %d, want 2", list.Len())
	}
}

func TestList_StoriesReturnsCopy(t *testing.T) {
	var buf bytes.Buffer
	list := NewList(&mockRemote{}, newTestLogger(&buf), []model.Story{testStory("s1")})

	snap := list.Stories()
	snap[0].ID = "mutated"

	if !list.Contains("s1") || list.Stories()[0].ID != "s1" {
		t.Error("スナップショットの変更が List に反映された")
	}
}

func TestList_ContainsURL(t *testing.T) {
	var buf bytes.Buffer
	list := NewList(&mockRemote{}, newTestLogger(&buf), []model.Story{testStory("s1")})

	if !list.ContainsURL("https://example.com/s1") {
		t.Error("ContainsURL = false, want true")
	}
	if list.ContainsURL("https://example.com/other") {
		t.Error("ContainsURL = true, want false")
	}
}
