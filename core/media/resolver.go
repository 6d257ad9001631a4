package media

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	youtubeEmbedFmt     = "https://www.youtube.com/embed/"
	youtubeThumbnailFmt = "https://img.youtube.com/vi/%s/hqdefault.jpg"
	vimeoEmbedFmt       = "https://player.vimeo.com/video/"
	driveEmbedFmt       = "https://drive.google.com/file/d/%s/preview"

	// DefaultDocumentViewerURL takes the url-encoded document URL as a suffix.
	DefaultDocumentViewerURL = "https://docs.google.com/viewer?embedded=true&url="

	blankEmbed = "about:blank"

	// youtubePlaylistID is the /embed/ segment of playlist players; it names no video.
	youtubePlaylistID = "videoseries"
)

var (
	// DefaultPDFViewerHosts already render PDFs inline; their URLs are embedded as-is.
	DefaultPDFViewerHosts = []string{"docs.google.com", "view.officeapps.live.com"}

	// watch?v=ID, youtu.be/ID, /embed/ID, /v/ID, /shorts/ID & /live/ID forms.
	youtubeRegex = regexp.MustCompile(
		`(?i)(?:youtube(?:-nocookie)?\.com/(?:watch\?(?:[^#]*&)?v=|embed/|v/|e/|shorts/|live/)|youtu\.be/)([a-z0-9_-]{11})(?:[^a-z0-9_-]|$)`,
	)
	driveFileRegex  = regexp.MustCompile(`(?i)/file/d/([A-Za-z0-9_-]+)`)
	driveQueryRegex = regexp.MustCompile(`(?i)[?&]id=([A-Za-z0-9_-]+)`)
	digitsRegex     = regexp.MustCompile(`^[0-9]+$`)
	oneDriveRegex   = regexp.MustCompile(`(?i)/(?:redir|view\.aspx)\?`)

	defaultResolver = NewResolver(Options{})
)

// Options tunes the policy fallbacks of a Resolver. Zero values select the defaults.
type Options struct {
	// DriveFallbackEmbed is the last-known-good embed used when a Drive URL carries no file ID.
	// When empty, the trimmed raw Drive URL is that embed.
	DriveFallbackEmbed string
	// DocumentViewerURL wraps PDFs that are not hosted on a PDF viewer.
	DocumentViewerURL string
	// PDFViewerHosts are hosts (or parent domains) that render PDFs inline.
	PDFViewerHosts []string
}

// Resolver classifies media URLs. The zero value is not usable; see NewResolver.
// A Resolver holds no mutable state and is safe for concurrent use.
type Resolver struct {
	opts  Options
	rules []rule
}

// rule is one provider branch. ok=false passes the target on to the next rule.
type rule func(r Resolver, t target) (d Descriptor, ok bool)

func NewResolver(opts Options) Resolver {
	if opts.DocumentViewerURL == "" {
		opts.DocumentViewerURL = DefaultDocumentViewerURL
	}
	if len(opts.PDFViewerHosts) == 0 {
		opts.PDFViewerHosts = DefaultPDFViewerHosts
	}
	return Resolver{
		opts: opts,
		// first match wins
		rules: []rule{
			resolveGoogleDrive,
			resolveMP4,
			resolveYouTube,
			resolveVimeo,
			resolvePDF,
			resolveOneDrive,
		},
	}
}

// Resolve classifies rawURL with the default Resolver.
func Resolve(rawURL string, declared DeclaredSource) Descriptor {
	return defaultResolver.Resolve(rawURL, declared)
}

// Resolve never fails: URLs that match no provider degrade to a generic fallback descriptor.
// The declared hint only matters when no provider matched; it never overrides a match.
func (r Resolver) Resolve(rawURL string, declared DeclaredSource) Descriptor {
	t := parseTarget(rawURL)
	if t.raw == "" {
		return genericFallback(blankEmbed)
	}

	for _, match := range r.rules {
		if d, ok := match(r, t); ok {
			return d
		}
	}

	if declared == SourceUpload {
		return Descriptor{Provider: ProviderMP4, EmbedURL: t.raw, Confidence: ConfidenceFallback}
	}
	return genericFallback(t.raw)
}

// ResolveReference is Resolve for a stored Reference.
func (r Resolver) ResolveReference(ref Reference) Descriptor {
	return r.Resolve(ref.RawURL, ref.DeclaredSource)
}

func genericFallback(embed string) Descriptor {
	return Descriptor{Provider: ProviderGeneric, EmbedURL: embed, Confidence: ConfidenceFallback}
}

// Rules

// Legacy Drive file links live on docs.google.com/file/d/{id}.
func resolveGoogleDrive(r Resolver, t target) (Descriptor, bool) {
	if !t.hostHas("drive.google.com") && !(t.hostHas("docs.google.com") && strings.Contains(t.path, "/file/d/")) {
		return Descriptor{}, false
	}

	id := firstSubmatch(driveFileRegex, t.raw)
	if id == "" {
		id = firstSubmatch(driveQueryRegex, t.raw)
	}
	if id == "" {
		embed := r.opts.DriveFallbackEmbed
		if embed == "" {
			embed = t.raw
		}
		return Descriptor{Provider: ProviderGoogleDrive, EmbedURL: embed, Confidence: ConfidenceFallback}, true
	}

	return Descriptor{
		Provider:   ProviderGoogleDrive,
		EmbedURL:   strings.Replace(driveEmbedFmt, "%s", id, 1),
		NativeID:   id,
		Confidence: ConfidenceExact,
	}, true
}

func resolveMP4(_ Resolver, t target) (Descriptor, bool) {
	if !strings.HasSuffix(t.path, ".mp4") {
		return Descriptor{}, false
	}
	return Descriptor{Provider: ProviderMP4, EmbedURL: t.raw, Confidence: ConfidenceExact}, true
}

func resolveYouTube(_ Resolver, t target) (Descriptor, bool) {
	if !(t.hostHas("youtube.com") || t.hostHas("youtu.be") || t.hostHas("youtube-nocookie.com")) {
		return Descriptor{}, false
	}

	id := firstSubmatch(youtubeRegex, t.raw)
	if id == "" || strings.EqualFold(id, youtubePlaylistID) {
		return genericFallback(t.raw), true
	}
	return Descriptor{
		Provider:     ProviderYouTube,
		EmbedURL:     youtubeEmbedFmt + id,
		NativeID:     id,
		ThumbnailURL: strings.Replace(youtubeThumbnailFmt, "%s", id, 1),
		Confidence:   ConfidenceExact,
	}, true
}

// Vimeo thumbnails need a metadata fetch; they are left to a ThumbnailFetcher.
func resolveVimeo(_ Resolver, t target) (Descriptor, bool) {
	if !t.hostHas("vimeo.com") {
		return Descriptor{}, false
	}

	// trailing numeric segment: vimeo.com/123, vimeo.com/channels/x/123, vimeo.com/123/<unlisted hash>
	var id string
	segments := strings.Split(strings.Trim(t.path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if digitsRegex.MatchString(segments[i]) {
			id = segments[i]
			break
		}
	}
	if id == "" {
		return genericFallback(t.raw), true
	}
	return Descriptor{
		Provider:   ProviderVimeo,
		EmbedURL:   vimeoEmbedFmt + id,
		NativeID:   id,
		Confidence: ConfidenceExact,
	}, true
}

func resolvePDF(r Resolver, t target) (Descriptor, bool) {
	if !strings.HasSuffix(t.path, ".pdf") {
		return Descriptor{}, false
	}

	embed := t.raw
	if !r.isPDFViewerHost(t.host) {
		embed = r.opts.DocumentViewerURL + url.QueryEscape(t.raw)
	}
	return Descriptor{Provider: ProviderPDF, EmbedURL: embed, Confidence: ConfidenceExact}, true
}

// OneDrive has no dedicated player: share links are rewritten to their embed form.
// 1drv.ms short links only redirect; they carry nothing to rewrite and fall through.
func resolveOneDrive(_ Resolver, t target) (Descriptor, bool) {
	if !t.hostHas("onedrive.live.com") {
		return Descriptor{}, false
	}
	if strings.Contains(t.lower, "/embed?") {
		return Descriptor{Provider: ProviderGeneric, EmbedURL: t.raw, Confidence: ConfidenceExact}, true
	}
	if loc := oneDriveRegex.FindStringIndex(t.raw); loc != nil {
		embed := t.raw[:loc[0]] + "/embed?" + t.raw[loc[1]:]
		return Descriptor{Provider: ProviderGeneric, EmbedURL: embed, Confidence: ConfidenceExact}, true
	}
	return Descriptor{}, false
}

func (r Resolver) isPDFViewerHost(host string) bool {
	if host == "" {
		return false
	}
	for _, h := range r.opts.PDFViewerHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func firstSubmatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return ""
}

// target is a raw URL broken down for matching. host & path are lowered.
type target struct {
	raw   string
	lower string
	host  string
	path  string
}

func parseTarget(rawURL string) target {
	raw := strings.TrimSpace(rawURL)
	t := target{raw: raw, lower: strings.ToLower(raw)}
	if raw == "" {
		return t
	}

	candidate := raw
	if !strings.Contains(candidate, "://") && !strings.HasPrefix(candidate, "/") {
		candidate = "https://" + candidate // scheme-less links: youtu.be/ID, www.site.com/a.pdf
	}
	if u, err := url.Parse(candidate); err == nil {
		t.host = strings.ToLower(u.Hostname())
		t.path = strings.ToLower(u.Path)
		return t
	}

	// malformed: keep whatever precedes the query string/fragment as the path
	p := t.lower
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	t.path = p
	return t
}

// hostHas is a substring test on the host, or on the whole URL when no host could be parsed.
func (t target) hostHas(s string) bool {
	if t.host != "" {
		return strings.Contains(t.host, s)
	}
	return strings.Contains(t.lower, s)
}
