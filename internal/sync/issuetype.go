package sync

import (
	"strings"
)

// DefaultIssueType is used when no label matches and no fallback is configured.
const DefaultIssueType = "Task"

// ResolveIssueType maps a GitHub label set to a Jira issue type name. A
// label matches a type when it equals the type name or "type: <name>",
// case-insensitively and ignoring surrounding whitespace.
//
// When several labels could match distinct types, the first matching label
// in source label order wins, and within a label the first matching type in
// destination listing order wins. The returned name is the destination's
// spelling, not the label's. Pure: same inputs always yield the same answer.
func ResolveIssueType(labels []string, available []string, fallback string) string {
	for _, label := range labels {
		key := normalizeLabel(label)
		for _, typeName := range available {
			name := strings.ToLower(strings.TrimSpace(typeName))
			if key == name {
				return typeName
			}
		}
	}
	if fallback == "" {
		return DefaultIssueType
	}
	return fallback
}

// normalizeLabel lowercases a label and strips an optional "type:" prefix
// so "Type: Bug" compares equal to "bug".
func normalizeLabel(label string) string {
	key := strings.ToLower(strings.TrimSpace(label))
	if rest, ok := strings.CutPrefix(key, "type:"); ok {
		key = strings.TrimSpace(rest)
	}
	return key
}
