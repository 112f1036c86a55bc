package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-fonts/dejavu/dejavusans"
	"github.com/go-fonts/dejavu/dejavusansbold"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/ByLCY/namecard/renderer"
)

// DefaultFamily is the family used when a preset names none.
const DefaultFamily = "Body"

// DejaVu Sans carries Arabic glyphs; the Go fonts are Latin only.
const (
	embedRegular = "embed:dejavu-sans"
	embedBold    = "embed:dejavu-sans-bold"
)

var embedded = map[string][]byte{
	"dejavu-sans":      dejavusans.TTF,
	"dejavu-sans-bold": dejavusansbold.TTF,
	"go-regular":       goregular.TTF,
	"go-bold":          gobold.TTF,
}

// Load returns font bytes for src, written as "embed:<name>" for one of the
// embedded faces (dejavu-sans, dejavu-sans-bold, go-regular, go-bold) or a
// path resolved against baseDir. The data must parse as TrueType/OpenType.
func Load(src, baseDir string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("font source is empty")
	}
	var data []byte
	if name, ok := strings.CutPrefix(src, "embed:"); ok {
		blob, found := embedded[name]
		if !found {
			return nil, fmt.Errorf("no embedded font %q", name)
		}
		data = blob
	} else {
		path := src
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", src, err)
		}
		data = blob
	}
	if _, err := opentype.Parse(data); err != nil {
		return nil, fmt.Errorf("parse font %s: %w", src, err)
	}
	return data, nil
}

// Family lists the sources of one font family.
type Family struct {
	Regular string `json:"regular"`
	Bold    string `json:"bold,omitempty"`
}

// Registry resolves font keys to font bytes and caches them.
// Unknown families and unreadable files fall back to embedded DejaVu Sans.
type Registry struct {
	baseDir  string
	families map[string]Family

	mu    sync.Mutex
	cache map[renderer.FontKey][]byte
}

// NewRegistry creates a registry that already knows DefaultFamily.
func NewRegistry(baseDir string) *Registry {
	return &Registry{
		baseDir: baseDir,
		families: map[string]Family{
			DefaultFamily: {Regular: embedRegular, Bold: embedBold},
		},
		cache: map[renderer.FontKey][]byte{},
	}
}

// Register adds or replaces a family.
func (r *Registry) Register(name string, f Family) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[name] = f
	for key := range r.cache {
		if key.Family == name {
			delete(r.cache, key)
		}
	}
}

// Bytes returns the font data for key, falling back to DejaVu Sans.
func (r *Registry) Bytes(key renderer.FontKey) ([]byte, error) {
	if key.Family == "" {
		key.Family = DefaultFamily
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if data, ok := r.cache[key]; ok {
		return data, nil
	}

	data, err := r.load(key)
	if err != nil {
		fallback := embedRegular
		if key.Bold {
			fallback = embedBold
		}
		var fbErr error
		if data, fbErr = Load(fallback, ""); fbErr != nil {
			return nil, fmt.Errorf("font %s: %w", key, err)
		}
	}
	r.cache[key] = data
	return data, nil
}

func (r *Registry) load(key renderer.FontKey) ([]byte, error) {
	fam, ok := r.families[key.Family]
	if !ok {
		return nil, fmt.Errorf("unknown font family %q", key.Family)
	}
	src := fam.Regular
	if key.Bold && fam.Bold != "" {
		src = fam.Bold
	}
	return Load(src, r.baseDir)
}
