package names

import "testing"

func TestKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "John Doe", "john doe"},
		{"trims", "  John Doe\t", "john doe"},
		{"keeps inner spacing", "John  Doe", "john  doe"},
		{"folds sharp s", "Straße", "strasse"},
		{"composes accents", "René", "rené"},
		{"empty", "   ", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Key(tc.input); got != tc.want {
				t.Errorf("Key(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal("JOHN DOE", "john doe") {
		t.Error("expected case-insensitive match")
	}
	if !Equal("René", "RENÉ") {
		t.Error("expected composed and decomposed forms to match")
	}
	if Equal("John", "Jon") {
		t.Error("did not expect different names to match")
	}
}

func TestSet(t *testing.T) {
	set := NewSet("Alice", "", "  BOB ")

	if len(set) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(set))
	}
	for _, name := range []string{"alice", "ALICE", "bob"} {
		if !set.Contains(name) {
			t.Errorf("expected set to contain %q", name)
		}
	}
	if set.Contains("carol") {
		t.Error("did not expect carol")
	}
}
