package common

import (
	"fmt"
	"regexp"
)

const (
	// NamespaceMaxLength bounds a namespace the way the repository-name
	// validation this package is adapted from bounds its own identifiers.
	NamespaceMaxLength = 255
)

// NamespaceRegexp matches a well-formed namespace: a leading '/' followed
// by anything except ',', the byte reserved by the wire format (§4.1) to
// separate a namespace from the id/payload fields that may follow it.
var NamespaceRegexp = regexp.MustCompile(`^/[^,]*$`)

var (
	ErrNamespaceMissingSlash = fmt.Errorf("namespace must start with '/'")
	ErrNamespaceLong         = fmt.Errorf("namespace must not be more than %v characters", NamespaceMaxLength)
	ErrNamespaceHasSeparator = fmt.Errorf("namespace must not contain %q, the wire separator", ",")
)

// ValidateNamespace ensures namespace is well-formed for use as a Packet's
// Namespace field. An empty namespace is always valid: per §3 the field is
// optional, and this function is only ever called once the caller has
// already established that a namespace is present.
func ValidateNamespace(namespace string) error {
	if namespace == "" {
		return nil
	}

	if namespace[0] != '/' {
		return ErrNamespaceMissingSlash
	}

	if len(namespace) > NamespaceMaxLength {
		return ErrNamespaceLong
	}

	if !NamespaceRegexp.MatchString(namespace) {
		return ErrNamespaceHasSeparator
	}

	return nil
}
