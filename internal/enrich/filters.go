package enrich

import (
	"strings"

	"golang.org/x/text/cases"
)

// Filter rejects candidates before API budget is spent on them. Keyword
// matching is case-folded so upstream titles in any casing match configured
// patterns.
type Filter struct {
	keywords []string
	genres   map[string]struct{}
	folder   cases.Caser
}

// NewFilter builds a filter from configured keyword and genre denylists.
func NewFilter(keywords, genres []string) *Filter {
	folder := cases.Fold()
	filter := &Filter{
		folder: folder,
		genres: make(map[string]struct{}, len(genres)),
	}
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		filter.keywords = append(filter.keywords, folder.String(keyword))
	}
	for _, genre := range genres {
		genre = strings.TrimSpace(genre)
		if genre == "" {
			continue
		}
		filter.genres[folder.String(genre)] = struct{}{}
	}
	return filter
}

// TitleExcluded reports whether a title matches any denylisted keyword.
func (f *Filter) TitleExcluded(titles ...string) bool {
	for _, title := range titles {
		if title == "" {
			continue
		}
		folded := f.folder.String(title)
		for _, keyword := range f.keywords {
			if strings.Contains(folded, keyword) {
				return true
			}
		}
	}
	return false
}

// GenresExcluded reports whether any genre is denylisted.
func (f *Filter) GenresExcluded(genres []string) bool {
	for _, genre := range genres {
		if _, denied := f.genres[f.folder.String(genre)]; denied {
			return true
		}
	}
	return false
}

// RelatedIncluded applies the relatedness rule for a candidate's genre set
// against the base entity's: denylisted genres exclude outright, otherwise a
// candidate passes when either side has no genres or the sets intersect.
func (f *Filter) RelatedIncluded(base, candidate []string) bool {
	if f.GenresExcluded(candidate) {
		return false
	}
	if len(candidate) == 0 || len(base) == 0 {
		return true
	}
	baseSet := make(map[string]struct{}, len(base))
	for _, genre := range base {
		baseSet[f.folder.String(genre)] = struct{}{}
	}
	for _, genre := range candidate {
		if _, ok := baseSet[f.folder.String(genre)]; ok {
			return true
		}
	}
	return false
}
