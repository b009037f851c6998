package session

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	t.Setenv(HomeEnv, "/tmp/ap")

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "main", false},
		{"numbers", "work123", false},
		{"hyphen and underscore", "my-session_2", false},
		{"single char", "a", false},
		{"max length", strings.Repeat("a", 64), false},
		{"empty", "", true},
		{"uppercase", "Main", true},
		{"space", "my session", true},
		{"dot", "my.session", true},
		{"too long", strings.Repeat("a", 65), true},
		{"slash", "my/session", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNameSocketLimit(t *testing.T) {
	t.Setenv(HomeEnv, "/tmp/"+strings.Repeat("d", 80))

	if err := ValidateName("main"); err == nil {
		t.Fatal("expected socket path error")
	} else if !strings.Contains(err.Error(), HomeEnv) {
		t.Errorf("error should point at %s: %v", HomeEnv, err)
	}
}
