package ai

import (
	"strings"

	"github.com/kettleworks/shiplog/internal/types"
)

var videoExtensions = map[string]bool{
	"mp4": true, "mov": true, "webm": true, "avi": true, "mkv": true, "m4v": true,
}

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true, "svg": true, "bmp": true,
}

// ExtractMedia classifies a message's attachments into images and
// videos and resolves one URL per attachment. Extraction is fully
// deterministic; the LLM is never involved.
//
// URL preference: public permalink > private URL > format-specific URL.
func ExtractMedia(msg *types.ChannelMessage) []types.ReleaseMedia {
	var media []types.ReleaseMedia
	for _, f := range msg.Files {
		kind, ok := classifyFile(f)
		if !ok {
			continue
		}
		url := bestURL(f)
		if url == "" {
			continue
		}
		media = append(media, types.ReleaseMedia{
			Kind:   kind,
			URL:    url,
			Name:   f.Name,
			Width:  f.Width,
			Height: f.Height,
		})
	}
	return media
}

func classifyFile(f types.MediaFile) (types.MediaKind, bool) {
	mime := strings.ToLower(f.MimeType)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return types.MediaImage, true
	case strings.HasPrefix(mime, "video/"):
		return types.MediaVideo, true
	}

	ext := strings.ToLower(strings.TrimPrefix(f.FileType, "."))
	switch {
	case imageExtensions[ext]:
		return types.MediaImage, true
	case videoExtensions[ext]:
		return types.MediaVideo, true
	}
	return "", false
}

func bestURL(f types.MediaFile) string {
	if f.PermalinkPublic != "" {
		return f.PermalinkPublic
	}
	if f.URLPrivate != "" {
		return f.URLPrivate
	}
	return f.URLFormat
}
