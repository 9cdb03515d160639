// Package story owns the story lifecycle: slug derivation, the document
// repository, and the live story-list store.
package story

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Slugify lowercases a title and reduces it to hyphen-separated ASCII words.
func Slugify(title string) string {
	lower := strings.ToLower(title)
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '-':
			b.WriteRune(r)
		}
	}
	fields := strings.FieldsFunc(b.String(), func(r rune) bool {
		return r == ' ' || r == '-'
	})
	return strings.Join(fields, "-")
}

// NewSlug derives a slug from a title with a millisecond-timestamp suffix so
// stories with identical titles still get distinct slugs. Slugs are immutable
// after creation.
func NewSlug(title string) string {
	return Slugify(title) + "-" + strconv.FormatInt(slugStamp(), 10)
}

var (
	slugMu        sync.Mutex
	lastSlugStamp int64
)

// slugStamp returns a strictly increasing millisecond timestamp so that two
// creations in the same millisecond still produce distinct slugs.
func slugStamp() int64 {
	slugMu.Lock()
	defer slugMu.Unlock()
	now := time.Now().UnixMilli()
	if now <= lastSlugStamp {
		now = lastSlugStamp + 1
	}
	lastSlugStamp = now
	return now
}
