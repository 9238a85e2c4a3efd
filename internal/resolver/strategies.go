package resolver

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// MediaKind tells what a candidate link points at.
type MediaKind uint8

const (
	KindUnknownMedia MediaKind = iota
	KindVideo
	KindAudio
)

func (k MediaKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// MediaCandidate is one extracted, unconfirmed media link.
type MediaCandidate struct {
	URL       string
	Extension mo.Option[string]
	Quality   mo.Option[string]
	Kind      MediaKind
}

// Strategy extracts candidates from a provider response, most preferred first.
// An empty result passes control to the next strategy in the chain.
type Strategy func(raw Node) []MediaCandidate

// NamedStrategy labels a Strategy for logs and history.
type NamedStrategy struct {
	Name    string
	Extract Strategy
}

const (
	StrategyMediaList = "media-list"
	StrategyLinkArray = "link-array"
	StrategyDirectURL = "direct-url"
	StrategyFuzzyScan = "fuzzy-scan"
)

var (
	videoExtensions  = []string{"mp4", "webm", "mkv", "mov", "m4v"}
	audioExtensions  = []string{"mp3", "m4a", "aac", "ogg", "opus", "wav"}
	directExtensions = []string{"mp4", "webm", "mkv"}

	mediaListFields = []string{"medias", "media"}
	videoFlagFields = []string{"videoAvailable", "is_video", "hasVideo"}

	// DefaultFuzzyExtensions are the file types the last-resort scan looks for.
	DefaultFuzzyExtensions = []string{"mp4"}
)

// qualityRank orders labelled qualities; unlisted labels rank zero and keep
// their original order.
var qualityRank = map[string]int{
	"full hd": 2,
	"hd":      1,
}

// DefaultStrategies returns the standard chain with the given fuzzy-scan
// extensions (DefaultFuzzyExtensions when empty).
func DefaultStrategies(fuzzyExtensions ...string) []NamedStrategy {
	return []NamedStrategy{
		{Name: StrategyMediaList, Extract: MediaListStrategy},
		{Name: StrategyLinkArray, Extract: LinkArrayStrategy},
		{Name: StrategyDirectURL, Extract: DirectURLStrategy},
		{Name: StrategyFuzzyScan, Extract: FuzzyScanStrategy(fuzzyExtensions...)},
	}
}

// MediaListStrategy reads a list of heterogeneous media entries, preferring
// video entries by quality and falling back to audio-only entries.
func MediaListStrategy(raw Node) []MediaCandidate {
	list, ok := firstArrayField(raw, mediaListFields...)
	if !ok {
		return nil
	}

	entries := lo.FilterMap(list.Items(), func(item Node, _ int) (MediaCandidate, bool) {
		return mediaEntry(item)
	})

	videos := lo.Filter(entries, func(c MediaCandidate, _ int) bool { return c.Kind == KindVideo })
	if len(videos) > 0 {
		sort.SliceStable(videos, func(i, j int) bool {
			return rankOf(videos[i]) > rankOf(videos[j])
		})
		return videos
	}

	return lo.Filter(entries, func(c MediaCandidate, _ int) bool { return c.Kind == KindAudio })
}

func mediaEntry(item Node) (MediaCandidate, bool) {
	link := fieldText(item, "url")
	if link == "" {
		link = fieldText(item, "link")
	}
	if link == "" {
		return MediaCandidate{}, false
	}

	ext := strings.TrimPrefix(strings.ToLower(firstFieldText(item, "extension", "ext")), ".")
	kindLabel := strings.ToLower(fieldText(item, "type"))
	isVideoFlag := lo.SomeBy(videoFlagFields, func(name string) bool {
		flag, ok := item.Field(name)
		return ok && flag.Truthy()
	})

	c := MediaCandidate{
		URL:       link,
		Extension: optionalText(ext),
		Quality:   optionalText(fieldText(item, "quality")),
	}
	switch {
	case lo.Contains(videoExtensions, ext), kindLabel == "video", isVideoFlag:
		c.Kind = KindVideo
	case lo.Contains(audioExtensions, ext), kindLabel == "audio":
		c.Kind = KindAudio
	}
	return c, true
}

func rankOf(c MediaCandidate) int {
	label := strings.ToLower(strings.TrimSpace(c.Quality.OrEmpty()))
	return qualityRank[label]
}

// LinkArrayStrategy takes the first entry of a {quality, link} array verbatim.
func LinkArrayStrategy(raw Node) []MediaCandidate {
	links, ok := firstArrayField(raw, "links")
	if !ok {
		return nil
	}
	items := links.Items()
	if len(items) == 0 {
		return nil
	}

	first := items[0]
	linkNode, ok := first.Field("link")
	if !ok {
		return nil
	}
	link, ok := linkNode.Str()
	if !ok || strings.TrimSpace(link) == "" {
		return nil
	}

	return []MediaCandidate{{
		URL:     link,
		Quality: optionalText(fieldText(first, "quality")),
	}}
}

// DirectURLStrategy accepts a top-level url only when it points at a video
// file; providers often echo the submitted page URL in that field.
func DirectURLStrategy(raw Node) []MediaCandidate {
	link := fieldText(raw, "url")
	if link == "" {
		return nil
	}

	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	if !lo.Contains(directExtensions, ext) {
		return nil
	}

	return []MediaCandidate{{URL: link, Extension: mo.Some(ext), Kind: KindVideo}}
}

// FuzzyScanStrategy serializes the whole response and returns the first
// absolute URL ending in one of extensions.
func FuzzyScanStrategy(extensions ...string) Strategy {
	pattern := fuzzyPattern(extensions)
	return func(raw Node) []MediaCandidate {
		text, err := raw.MarshalJSON()
		if err != nil {
			return nil
		}
		match := pattern.FindSubmatch(text)
		if match == nil {
			return nil
		}
		return []MediaCandidate{{
			URL:       string(match[0]),
			Extension: mo.Some(strings.ToLower(string(match[1]))),
			Kind:      KindVideo,
		}}
	}
}

func fuzzyPattern(extensions []string) *regexp.Regexp {
	exts := lo.Uniq(lo.FilterMap(extensions, func(ext string, _ int) (string, bool) {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		return regexp.QuoteMeta(ext), ext != ""
	}))
	if len(exts) == 0 {
		exts = DefaultFuzzyExtensions
	}
	return regexp.MustCompile(`https?://[^"]+\.(` + strings.Join(exts, "|") + `)`)
}

func firstArrayField(n Node, names ...string) (Node, bool) {
	for _, name := range names {
		if v, ok := n.Field(name); ok && v.Kind() == ArrayNode {
			return v, true
		}
	}
	return Node{}, false
}

func fieldText(n Node, name string) string {
	v, ok := n.Field(name)
	if !ok {
		return ""
	}
	return v.Text()
}

func firstFieldText(n Node, names ...string) string {
	for _, name := range names {
		if s := fieldText(n, name); s != "" {
			return s
		}
	}
	return ""
}

func optionalText(s string) mo.Option[string] {
	if s == "" {
		return mo.None[string]()
	}
	return mo.Some(s)
}
