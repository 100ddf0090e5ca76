package cmd

import "testing"

func TestUnderDir(t *testing.T) {
	tests := []struct {
		path string
		dir  string
		want bool
	}{
		{"/music/a.mp3", "/music", true},
		{"/music/sub/a.mp3", "/music", true},
		{"/music/a.mp3", "/music/", true},
		{"/music2/a.mp3", "/music", false},
		{"/music", "/music", false},
		{"/other/a.mp3", "/music", false},
	}
	for _, tt := range tests {
		if got := underDir(tt.path, tt.dir); got != tt.want {
			t.Errorf("underDir(%q, %q) = %v, want %v", tt.path, tt.dir, got, tt.want)
		}
	}
}
