package model

import "sort"

// Tag is a workspace-wide label attached to tasks one at a time.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TagIDs returns the ids of tags in order.
func TagIDs(tags []Tag) []string {
	ids := make([]string, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}

// DiffTags compares the tag ids a task had when the edit session started
// with the ids the form now holds. toAdd is desired minus current and
// toRemove is current minus desired; both are sorted and free of
// duplicates. Ids present in both sets appear in neither result.
func DiffTags(current, desired []string) (toAdd, toRemove []string) {
	cur := make(map[string]bool, len(current))
	for _, id := range current {
		cur[id] = true
	}
	want := make(map[string]bool, len(desired))
	for _, id := range desired {
		want[id] = true
	}

	for id := range want {
		if !cur[id] {
			toAdd = append(toAdd, id)
		}
	}
	for id := range cur {
		if !want[id] {
			toRemove = append(toRemove, id)
		}
	}
	sort.Strings(toAdd)
	sort.Strings(toRemove)
	return toAdd, toRemove
}

// SameTagSet reports whether a and b hold the same ids, ignoring order
// and duplicates.
func SameTagSet(a, b []string) bool {
	toAdd, toRemove := DiffTags(a, b)
	return len(toAdd) == 0 && len(toRemove) == 0
}
