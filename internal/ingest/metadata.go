package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// Metadata holds the tags and technical fields extracted from a file.
type Metadata struct {
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Genre       string
	Year        int
	TrackNumber int
	TotalTracks int
	DiscNumber  int
	TotalDiscs  int
	Composer    string
	Comment     string

	// Technical fields as reported by the parser.
	Format   string // tag format, e.g. VORBIS, ID3v2.4, MP4
	FileType string // container/codec, e.g. FLAC, MP3, AAC
}

// Cover is an embedded cover image in its original encoding.
type Cover struct {
	Data     []byte
	MIMEType string
}

// parseMetadata extracts tags and cover art from one readable branch.
// dhowden/tag handles every common container; when it fails the raw
// header decides a format-specific fallback parser, mirroring how some
// ID3 and FLAC files in the wild defeat the generic parser.
func parseMetadata(r io.ReadSeeker) (*Metadata, *Cover, error) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		if _, serr := r.Seek(0, io.SeekStart); serr != nil {
			return nil, nil, serr
		}
		return parseFallback(r)
	}

	track, totalTracks := m.Track()
	disc, totalDiscs := m.Disc()

	albumArtist := m.AlbumArtist()
	if albumArtist == "" {
		albumArtist = m.Artist()
	}

	meta := &Metadata{
		Title:       m.Title(),
		Artist:      m.Artist(),
		AlbumArtist: albumArtist,
		Album:       m.Album(),
		Genre:       m.Genre(),
		Year:        m.Year(),
		TrackNumber: track,
		TotalTracks: totalTracks,
		DiscNumber:  disc,
		TotalDiscs:  totalDiscs,
		Composer:    m.Composer(),
		Comment:     m.Comment(),
		Format:      string(m.Format()),
		FileType:    string(m.FileType()),
	}

	var cover *Cover
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		cover = &Cover{Data: pic.Data, MIMEType: pic.MIMEType}
	}
	return meta, cover, nil
}

// parseFallback sniffs the stream header and dispatches a
// format-specific parser.
func parseFallback(r io.ReadSeeker) (*Metadata, *Cover, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil {
		return nil, nil, fmt.Errorf("sniff header: %w", err)
	}

	switch {
	case string(head[:3]) == "ID3":
		return parseID3Fallback(br)
	case string(head) == "fLaC":
		return parseFLACFallback(br)
	default:
		return nil, nil, fmt.Errorf("unrecognized tag header %q", head)
	}
}

// parseID3Fallback reads ID3v2 tags directly; dhowden/tag mishandles
// some UTF-16 encoded frames that id3v2 parses fine.
func parseID3Fallback(r io.Reader) (*Metadata, *Cover, error) {
	id3tag, err := id3v2.ParseReader(r, id3v2.Options{Parse: true})
	if err != nil {
		return nil, nil, fmt.Errorf("parse id3: %w", err)
	}

	meta := &Metadata{
		Title:       id3tag.Title(),
		Artist:      id3tag.Artist(),
		AlbumArtist: id3tag.GetTextFrame("TPE2").Text,
		Album:       id3tag.Album(),
		Genre:       id3tag.Genre(),
		Format:      "ID3v2",
		FileType:    "MP3",
	}
	if meta.AlbumArtist == "" {
		meta.AlbumArtist = meta.Artist
	}
	if y, err := strconv.Atoi(strings.TrimSpace(id3tag.Year())); err == nil {
		meta.Year = y
	}
	if trck := id3tag.GetTextFrame("TRCK").Text; trck != "" {
		meta.TrackNumber, meta.TotalTracks = parseFraction(trck)
	}
	if tpos := id3tag.GetTextFrame("TPOS").Text; tpos != "" {
		meta.DiscNumber, meta.TotalDiscs = parseFraction(tpos)
	}

	var cover *Cover
	for _, frame := range id3tag.GetFrames(id3tag.CommonID("Attached picture")) {
		pic, ok := frame.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		cover = &Cover{Data: pic.Picture, MIMEType: pic.MimeType}
		break
	}
	return meta, cover, nil
}

// parseFLACFallback walks FLAC metadata blocks for the Vorbis comment
// and picture blocks.
func parseFLACFallback(r io.Reader) (*Metadata, *Cover, error) {
	f, err := goflac.ParseBytes(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse flac: %w", err)
	}

	meta := &Metadata{Format: "VORBIS", FileType: "FLAC"}
	var cover *Cover

	for _, block := range f.Meta {
		switch block.Type {
		case goflac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				continue
			}
			meta.Title = vorbisField(cmt, flacvorbis.FIELD_TITLE)
			meta.Artist = vorbisField(cmt, flacvorbis.FIELD_ARTIST)
			meta.Album = vorbisField(cmt, flacvorbis.FIELD_ALBUM)
			meta.Genre = vorbisField(cmt, flacvorbis.FIELD_GENRE)
			meta.AlbumArtist = vorbisField(cmt, "ALBUMARTIST")
			if meta.AlbumArtist == "" {
				meta.AlbumArtist = meta.Artist
			}
			if date := vorbisField(cmt, flacvorbis.FIELD_DATE); len(date) >= 4 {
				if y, err := strconv.Atoi(date[:4]); err == nil {
					meta.Year = y
				}
			}
			if n := vorbisField(cmt, flacvorbis.FIELD_TRACKNUMBER); n != "" {
				meta.TrackNumber, meta.TotalTracks = parseFraction(n)
			}
		case goflac.Picture:
			if cover != nil {
				continue
			}
			pic, err := flacpicture.ParseFromMetaDataBlock(*block)
			if err != nil || len(pic.ImageData) == 0 {
				continue
			}
			cover = &Cover{Data: pic.ImageData, MIMEType: pic.MIME}
		}
	}
	return meta, cover, nil
}

func vorbisField(cmt *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	vals, err := cmt.Get(field)
	if err != nil || len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// parseFraction splits "3/12" style track/disc numbering.
func parseFraction(s string) (num, total int) {
	parts := strings.SplitN(s, "/", 2)
	num, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	if len(parts) == 2 {
		total, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return num, total
}
