package assets

import "strings"

// Extension maps a media type to the file extension used on disk, or "" when
// the type is unknown.
func Extension(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.ToLower(strings.TrimSpace(base)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	default:
		return ""
	}
}

// ExtensionOr is Extension with a fallback for unknown types.
func ExtensionOr(mimeType, fallback string) string {
	if ext := Extension(mimeType); ext != "" {
		return ext
	}
	return fallback
}
