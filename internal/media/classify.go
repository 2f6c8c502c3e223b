package media

import (
	"path/filepath"
	"sort"
	"strings"
)

// Kind is the media classification of a file name.
type Kind int

const (
	KindOther Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "other"
	}
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".heic": {}, ".heif": {},
	".tiff": {}, ".tif": {}, ".bmp": {}, ".raw": {}, ".arw": {}, ".cr2": {}, ".nef": {},
	".orf": {}, ".raf": {}, ".dng": {},
}

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".avi": {}, ".mkv": {}, ".webm": {}, ".m4v": {}, ".3gp": {},
	".mts": {}, ".m2ts": {},
}

// Classify decides the kind of a file from its extension alone. Hidden and
// temporary names are never media.
func Classify(name string) Kind {
	base := filepath.Base(name)
	if IsHidden(base) {
		return KindOther
	}
	ext := strings.ToLower(filepath.Ext(base))
	if _, ok := imageExtensions[ext]; ok {
		return KindImage
	}
	if _, ok := videoExtensions[ext]; ok {
		return KindVideo
	}
	return KindOther
}

// IsMedia reports whether name carries a recognized image or video extension.
func IsMedia(name string) bool {
	return Classify(name) != KindOther
}

// IsHidden reports dot files and editor or office temp files ("~$doc").
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~")
}

// IsSidecar reports JSON metadata files that accompany exported media.
func IsSidecar(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}

// Extensions returns the recognized extensions, images first.
func Extensions() []string {
	out := make([]string, 0, len(imageExtensions)+len(videoExtensions))
	for _, set := range []map[string]struct{}{imageExtensions, videoExtensions} {
		start := len(out)
		for ext := range set {
			out = append(out, ext)
		}
		sort.Strings(out[start:])
	}
	return out
}
