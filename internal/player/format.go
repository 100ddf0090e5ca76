package player

import (
	"path"
	"strings"
)

// Format identifies the container/codec a voice should decode.
type Format int

const (
	FormatUnknown Format = iota // let the backend auto-detect
	FormatMP3
	FormatFLAC
	FormatOGG
	FormatWAV
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatMP3:
		return "mp3"
	case FormatFLAC:
		return "flac"
	case FormatOGG:
		return "ogg"
	case FormatWAV:
		return "wav"
	default:
		return "auto"
	}
}

// mimeFormats maps MIME types to decode formats.
var mimeFormats = map[string]Format{
	"audio/mpeg":   FormatMP3,
	"audio/mp3":    FormatMP3,
	"audio/flac":   FormatFLAC,
	"audio/x-flac": FormatFLAC,
	"audio/ogg":    FormatOGG,
	"audio/vorbis": FormatOGG,
	"audio/opus":   FormatOGG,
	"audio/wav":    FormatWAV,
	"audio/x-wav":  FormatWAV,
	"audio/wave":   FormatWAV,
}

// extFormats maps file extensions to decode formats.
var extFormats = map[string]Format{
	".mp3":  FormatMP3,
	".flac": FormatFLAC,
	".ogg":  FormatOGG,
	".oga":  FormatOGG,
	".opus": FormatOGG,
	".wav":  FormatWAV,
}

// GuessFormat derives the decode format from a MIME type, falling back to
// the URL's file extension, falling back to auto-detect.
func GuessFormat(mimeType, url string) Format {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if f, ok := mimeFormats[mt]; ok {
		return f
	}

	// Strip query/fragment before looking at the extension.
	clean := url
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	if f, ok := extFormats[strings.ToLower(path.Ext(clean))]; ok {
		return f
	}

	return FormatUnknown
}
