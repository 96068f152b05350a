package transfer

import (
	"fmt"
	"strings"
)

// NamespaceRule decides how a source folder name maps onto the destination
// hierarchy. Some servers (Courier and friends) root every folder under
// INBOX., so an unprefixed nested name cannot be created there.
type NamespaceRule string

const (
	// NamespaceOff keeps the source name as-is.
	NamespaceOff NamespaceRule = "off"
	// NamespaceAlwaysPrefix puts every folder except INBOX itself under INBOX.
	NamespaceAlwaysPrefix NamespaceRule = "always-prefix"
	// NamespacePrefixWhenNested prefixes only names that already carry a
	// hierarchy delimiter.
	NamespacePrefixWhenNested NamespaceRule = "prefix-when-nested"
)

const inboxPrefix = "INBOX."

// ParseNamespaceRule validates a --dest-namespace value.
func ParseNamespaceRule(value string) (NamespaceRule, error) {
	switch NamespaceRule(value) {
	case NamespaceOff, NamespaceAlwaysPrefix, NamespacePrefixWhenNested:
		return NamespaceRule(value), nil
	}
	return "", fmt.Errorf("unknown namespace rule %q (expected off, always-prefix or prefix-when-nested)", value)
}

// skip-list of folder names that are delimiters or provider-internal
// pseudo-folders, not mail.
var (
	skipExact     = map[string]struct{}{"": {}, "|": {}, "/": {}, ".": {}, "..": {}}
	skipSubstring = []string{"[Gmail]", "Notes", "Contacts"}
)

// ShouldSkipFolder reports whether auto-mode should pass over folder.
func ShouldSkipFolder(folder string) bool {
	if _, ok := skipExact[folder]; ok {
		return true
	}
	for _, fragment := range skipSubstring {
		if strings.Contains(folder, fragment) {
			return true
		}
	}
	return false
}

// NormalizeDestination maps a source folder name to its destination name
// under rule. INBOX and anything already under INBOX. are never rewritten.
func NormalizeDestination(rule NamespaceRule, folder string) string {
	if folder == "INBOX" || strings.HasPrefix(folder, inboxPrefix) {
		return folder
	}

	switch rule {
	case NamespaceAlwaysPrefix:
		return inboxPrefix + folder
	case NamespacePrefixWhenNested:
		if strings.ContainsAny(folder, "./") {
			return inboxPrefix + folder
		}
	}
	return folder
}
