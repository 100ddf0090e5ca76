package player

import "testing"

func TestGuessFormat(t *testing.T) {
	tests := []struct {
		name string
		mime string
		url  string
		want Format
	}{
		{"mime mpeg", "audio/mpeg", "/api/songs/1/stream", FormatMP3},
		{"mime mp3", "audio/mp3", "", FormatMP3},
		{"mime flac", "audio/flac", "", FormatFLAC},
		{"mime with params", "audio/ogg; codecs=vorbis", "", FormatOGG},
		{"mime case insensitive", "Audio/FLAC", "", FormatFLAC},
		{"extension fallback", "", "/music/song.flac", FormatFLAC},
		{"extension with query", "", "/music/song.mp3?token=abc", FormatMP3},
		{"extension wav", "application/octet-stream", "/files/test.wav", FormatWAV},
		{"opus extension", "", "/files/test.opus", FormatOGG},
		{"unknown", "", "/api/songs/1/stream", FormatUnknown},
		{"unknown mime unknown ext", "text/html", "/page.html", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuessFormat(tt.mime, tt.url); got != tt.want {
				t.Errorf("GuessFormat(%q, %q) = %v, want %v", tt.mime, tt.url, got, tt.want)
			}
		})
	}
}

func TestIsActivationError(t *testing.T) {
	if IsActivationError(nil) {
		t.Error("nil error should not classify as activation error")
	}
	if !IsActivationError(ErrContextSuspended) {
		t.Error("ErrContextSuspended should classify as activation error")
	}
}
