package model

// StorySet はstoryIdで一意な、順序付きのストーリー集合。
// 同じストーリーが別インスタンスとして複数の集合にハイドレートされ得るため、
// 同一性は常にIDで判定する。
// 並行アクセスに対して安全ではない。所有者側で排他制御すること。
type StorySet struct {
	stories []Story
	ids     map[string]struct{}
}

// NewStorySet は与えられた順序を保ったままStorySetを生成する。
// 重複したIDは先に現れたものを残す。
func NewStorySet(stories []Story) *StorySet {
	s := &StorySet{
		stories: make([]Story, 0, len(stories)),
		ids:     make(map[string]struct{}, len(stories)),
	}
	for _, st := range stories {
		s.Append(st)
	}
	return s
}

// Contains はIDが集合に含まれるかを返す。
func (s *StorySet) Contains(storyID string) bool {
	_, ok := s.ids[storyID]
	return ok
}

// ContainsURL はURLが完全一致するエントリがあるかを返す。
func (s *StorySet) ContainsURL(rawURL string) bool {
	for i := range s.stories {
		if s.stories[i].URL == rawURL {
			return true
		}
	}
	return false
}

// Append は末尾に追加する。既に含まれている場合は何もせずfalseを返す。
func (s *StorySet) Append(story Story) bool {
	if s.Contains(story.ID) {
		return false
	}
	s.stories = append(s.stories, story)
	s.ids[story.ID] = struct{}{}
	return true
}

// Prepend は先頭に追加する。既に含まれている場合は何もせずfalseを返す。
func (s *StorySet) Prepend(story Story) bool {
	if s.Contains(story.ID) {
		return false
	}
	s.stories = append([]Story{story}, s.stories...)
	s.ids[story.ID] = struct{}{}
	return true
}

// Remove はIDに一致するエントリを取り除く。含まれていない場合はfalseを返す。
func (s *StorySet) Remove(storyID string) bool {
	if !s.Contains(storyID) {
		return false
	}
	kept := s.stories[:0]
	for _, st := range s.stories {
		if st.ID != storyID {
			kept = append(kept, st)
		}
	}
	// 末尾に残った要素への参照を切る
	for i := len(kept); i < len(s.stories); i++ {
		s.stories[i] = Story{}
	}
	s.stories = kept
	delete(s.ids, storyID)
	return true
}

// Len は要素数を返す。
func (s *StorySet) Len() int {
	return len(s.stories)
}

// Snapshot は現在の内容のコピーを返す。
func (s *StorySet) Snapshot() []Story {
	out := make([]Story, len(s.stories))
	copy(out, s.stories)
	return out
}
