package common

import (
	"strings"
	"testing"
)

func TestValidateNamespace(t *testing.T) {
	for _, testcase := range []struct {
		input string
		valid bool
	}{
		{input: "", valid: true},
		{input: "/", valid: true},
		{input: "/chat", valid: true},
		{input: "/admin/room1", valid: true},
		{input: "chat", valid: false},
		{input: "/chat,oops", valid: false},
		{input: "/" + strings.Repeat("a", NamespaceMaxLength-1), valid: true},
		{input: "/" + strings.Repeat("a", NamespaceMaxLength), valid: false},
	} {
		err := ValidateNamespace(testcase.input)
		if testcase.valid && err != nil {
			t.Fatalf("expected %q to be a valid namespace, got %v", testcase.input, err)
		}
		if !testcase.valid && err == nil {
			t.Fatalf("expected %q to be rejected as a namespace", testcase.input)
		}
	}
}
