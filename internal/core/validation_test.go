// internal/core/validation_test.go
package core

import (
	"strings"
	"testing"
)

func TestIsValidIdentifier(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    bool
		comment string
	}{
		{"valid simple", "shop", true, ""},
		{"valid with numbers", "orders_48213", true, ""},
		{"valid uppercase", "MY_DB", true, ""},
		{"valid underscore start", "_scratch", true, ""},
		{"valid number start", "123db", true, ""},
		{"valid short", "a", true, ""},
		{"valid long (64 chars)", strings.Repeat("a", 64), true, ""},
		{"invalid empty", "", false, "empty string"},
		{"invalid space", "my db", false, "contains space"},
		{"invalid hyphen", "my-db", false, "contains hyphen"},
		{"invalid special char", "db$", false, "contains dollar sign"},
		{"invalid path separator", "../etc", false, "contains path separator"},
		{"invalid too long", strings.Repeat("a", 65), false, "exceeds 64 chars"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsValidIdentifier(tc.input)
			if got != tc.want {
				t.Errorf("IsValidIdentifier(%q) = %v; want %v. %s", tc.input, got, tc.want, tc.comment)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	testCases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"\n\t ", true},
		{"SELECT 1", false},
		{"  ;  ", false},
	}

	for _, tc := range testCases {
		if got := IsBlank(tc.input); got != tc.want {
			t.Errorf("IsBlank(%q) = %v; want %v", tc.input, got, tc.want)
		}
	}
}

func TestIsJSONObject(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  bool
	}{
		{"object", `{"user": "alice"}`, true},
		{"empty object", `{}`, true},
		{"array", `[1, 2]`, false},
		{"null", `null`, false},
		{"scalar", `"text"`, false},
		{"broken", `{"user":`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsJSONObject([]byte(tc.input)); got != tc.want {
				t.Errorf("IsJSONObject(%s) = %v; want %v", tc.input, got, tc.want)
			}
		})
	}
}
