package resolver

// DefaultTitle and DefaultThumbnailURL stand in for missing display metadata.
const (
	DefaultTitle        = "Untitled video"
	DefaultThumbnailURL = "https://via.placeholder.com/640x360?text=No+Thumbnail"
)

var (
	titleFields     = []string{"title", "caption"}
	thumbnailFields = []string{"picture", "thumbnail", "cover", "thumb"}
)

// ResolvedMedia is the canonical result of a successful resolution.
type ResolvedMedia struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
	DownloadURL  string `json:"downloadUrl"`
}

// Result carries the resolved media plus how it was found.
type Result struct {
	Media     ResolvedMedia
	Strategy  string
	Candidate MediaCandidate
}

// NormalizerOption customises a Normalizer.
type NormalizerOption func(*normalizerOptions)

type normalizerOptions struct {
	chain     []NamedStrategy
	fuzzyExts []string
}

// WithStrategies replaces the extraction chain.
func WithStrategies(chain ...NamedStrategy) NormalizerOption {
	return func(o *normalizerOptions) {
		o.chain = append([]NamedStrategy(nil), chain...)
	}
}

// WithFuzzyExtensions sets the extensions accepted by the fuzzy-scan step of
// the chain in use, whatever the option order.
func WithFuzzyExtensions(exts ...string) NormalizerOption {
	return func(o *normalizerOptions) {
		o.fuzzyExts = append([]string(nil), exts...)
	}
}

// Normalizer turns provider responses into ResolvedMedia. The zero value is
// not usable; build one with NewNormalizer.
type Normalizer struct {
	chain []NamedStrategy
}

// NewNormalizer returns a Normalizer using the default chain unless overridden.
func NewNormalizer(opts ...NormalizerOption) Normalizer {
	var o normalizerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.chain == nil {
		return Normalizer{chain: DefaultStrategies(o.fuzzyExts...)}
	}
	if o.fuzzyExts != nil {
		for i := range o.chain {
			if o.chain[i].Name == StrategyFuzzyScan {
				o.chain[i].Extract = FuzzyScanStrategy(o.fuzzyExts...)
			}
		}
	}
	return Normalizer{chain: o.chain}
}

// Strategies returns the names of the chain in evaluation order.
func (n Normalizer) Strategies() []string {
	names := make([]string, 0, len(n.chain))
	for _, s := range n.chain {
		names = append(names, s.Name)
	}
	return names
}

// NormalizeResult walks the chain; the first strategy yielding a candidate wins.
func (n Normalizer) NormalizeResult(raw Node) (Result, error) {
	for _, strategy := range n.chain {
		candidates := strategy.Extract(raw)
		if len(candidates) == 0 {
			continue
		}
		best := candidates[0]
		return Result{
			Media: ResolvedMedia{
				Title:        firstText(raw, titleFields, DefaultTitle),
				ThumbnailURL: firstText(raw, thumbnailFields, DefaultThumbnailURL),
				DownloadURL:  best.URL,
			},
			Strategy:  strategy.Name,
			Candidate: best,
		}, nil
	}
	return Result{}, ErrNoCandidateFound
}

// Normalize is NormalizeResult without the provenance.
func (n Normalizer) Normalize(raw Node) (ResolvedMedia, error) {
	res, err := n.NormalizeResult(raw)
	if err != nil {
		return ResolvedMedia{}, err
	}
	return res.Media, nil
}

// Normalize runs the default chain over raw.
func Normalize(raw Node) (ResolvedMedia, error) {
	return NewNormalizer().Normalize(raw)
}

func firstText(raw Node, fields []string, fallback string) string {
	if s := firstFieldText(raw, fields...); s != "" {
		return s
	}
	return fallback
}
