package validation

import (
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		// Valid identifiers
		{"simple", "wf1", false},
		{"single char", "a", false},
		{"uuid style", "5a1c9f0e-3b2d-4e8f-9a7b-1c2d3e4f5a6b", false},
		{"nanoid style", "V1StGXR8_Z5jdHi6B-myT", false},
		{"max length", "a123456789012345678901234567890123456789012345678901234567890123", false},
		{"all digits", "12345", false},

		// Invalid identifiers - traversal and smuggling attempts
		{"empty", "", true},
		{"path traversal", "../admin", true},
		{"encoded traversal", "..%2Fadmin", true},
		{"slash", "wf/1", true},
		{"query injection", "wf1?active=true", true},
		{"space", "wf 1", true},
		{"newline", "wf1\n", true},
		{"too long", "a1234567890123456789012345678901234567890123456789012345678901234", true},
		{"starts with hyphen", "-wf1", true},
		{"starts with underscore", "_wf1", true},
		{"unicode", "wf™", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateIdentifiers(t *testing.T) {
	if err := ValidateIdentifiers([]string{"wf1", "wf2"}); err != nil {
		t.Errorf("expected valid list, got %v", err)
	}
	err := ValidateIdentifiers([]string{"wf1", "../bad", "also bad"})
	if err == nil {
		t.Fatal("expected error for invalid identifiers")
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	got, err := SanitizeIdentifier("  wf1  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "wf1" {
		t.Errorf("got %q, want %q", got, "wf1")
	}

	if _, err := SanitizeIdentifier("../etc"); err == nil {
		t.Error("expected error for traversal attempt")
	}
}
