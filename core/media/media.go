// Package media turns content-author URLs into embeddable playback descriptors.
package media

import "strings"

// DeclaredSource is the hosting hint supplied by the content author. It may be wrong or absent ("").
type DeclaredSource string

const (
	SourceYouTube     DeclaredSource = "youtube"
	SourceVimeo       DeclaredSource = "vimeo"
	SourceOneDrive    DeclaredSource = "onedrive"
	SourceGoogleDrive DeclaredSource = "google_drive"
	SourceUpload      DeclaredSource = "upload"
	SourceOther       DeclaredSource = "other"
)

// DeclaredSources is the full set of accepted hints.
var DeclaredSources = []DeclaredSource{
	SourceYouTube,
	SourceVimeo,
	SourceOneDrive,
	SourceGoogleDrive,
	SourceUpload,
	SourceOther,
}

// ParseDeclaredSource is case-insensitive. Unknown or blank values yield the absent hint.
func ParseDeclaredSource(s string) DeclaredSource {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, src := range DeclaredSources {
		if string(src) == s {
			return src
		}
	}
	return ""
}

// Provider is the detected hosting provider of a media URL.
type Provider string

const (
	ProviderYouTube     Provider = "youtube"
	ProviderVimeo       Provider = "vimeo"
	ProviderGoogleDrive Provider = "google_drive"
	ProviderPDF         Provider = "pdf"
	ProviderMP4         Provider = "mp4"
	ProviderGeneric     Provider = "generic"
)

// Confidence tells whether a provider pattern matched (exact) or a generic strategy was used (fallback).
type Confidence string

const (
	ConfidenceExact    Confidence = "exact"
	ConfidenceFallback Confidence = "fallback"
)

// Reference is one author-supplied media URL, as stored.
type Reference struct {
	RawURL         string         `json:"url"`
	DeclaredSource DeclaredSource `json:"declared_source,omitempty"`
}

// Descriptor is the normalized, embeddable form of a Reference.
// EmbedURL is never empty.
type Descriptor struct {
	Provider     Provider   `json:"provider"`
	EmbedURL     string     `json:"embed_url"`
	NativeID     string     `json:"native_id,omitempty"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	Confidence   Confidence `json:"confidence"`
}

// IsFrame reports whether the descriptor is rendered inside a sandboxed iframe.
// Direct mp4 files are played by a native video element instead.
func (d Descriptor) IsFrame() bool {
	return d.Provider != ProviderMP4
}

// AgreesWith reports whether the detected provider is compatible with the author's hint.
// An absent or "other" hint agrees with anything.
func (d Descriptor) AgreesWith(declared DeclaredSource) bool {
	switch declared {
	case "", SourceOther:
		return true
	case SourceYouTube:
		return d.Provider == ProviderYouTube
	case SourceVimeo:
		return d.Provider == ProviderVimeo
	case SourceGoogleDrive:
		return d.Provider == ProviderGoogleDrive
	case SourceOneDrive:
		return d.Provider == ProviderGeneric
	case SourceUpload:
		return d.Provider == ProviderMP4 || d.Provider == ProviderPDF
	}
	return false
}
