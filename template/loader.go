// Package template acquires card templates from files, URLs or uploads and decodes
// them into something a drawing surface can place.
package template

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ByLCY/namecard/renderer"
)

var (
	// ErrNotFound reports a template file or URL that does not exist.
	ErrNotFound = errors.New("template: not found")
	// ErrDecode reports template bytes that are neither a supported image nor a PDF.
	ErrDecode = errors.New("template: cannot decode")
	// ErrForbiddenURL reports a template URL with a non-HTTP scheme or one that
	// resolves to a loopback, private or link-local address.
	ErrForbiddenURL = errors.New("template: URL not allowed")
)

// cgnat is the shared address space of RFC 6598.
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

const (
	defaultTimeout  = 10 * time.Second
	defaultMaxBytes = 20 << 20
)

// Kind tells how a template was decoded.
type Kind int

const (
	KindImage Kind = iota
	KindPDF
)

func (k Kind) String() string {
	if k == KindPDF {
		return "pdf"
	}
	return "image"
}

// Loaded is a decoded template. Width and Height are pixels for images and points
// for PDF pages.
type Loaded struct {
	Width    float64
	Height   float64
	Kind     Kind
	Drawable renderer.Drawable
	Origin   string
}

// Source describes where template bytes come from. Exactly one of Path, URL
// or Data is used, in that order of preference.
type Source struct {
	Path string
	URL  string
	Name string
	Data []byte
}

func FileSource(path string) Source { return Source{Path: path} }
func URLSource(rawURL string) Source { return Source{URL: rawURL} }
func BytesSource(name string, data []byte) Source { return Source{Name: name, Data: data} }

// IsZero reports whether the source names nothing.
func (s Source) IsZero() bool { return s.Path == "" && s.URL == "" && len(s.Data) == 0 }

func (s Source) String() string {
	switch {
	case s.Path != "":
		return s.Path
	case s.URL != "":
		return s.URL
	case s.Name != "":
		return s.Name
	default:
		return "upload"
	}
}

// Loader reads and decodes templates.
type Loader struct {
	BaseDir  string
	Client   *http.Client
	MaxBytes int64
	// MaxSide downsizes larger images to fit a MaxSide x MaxSide box; 0 keeps native size.
	MaxSide int
}

// NewLoader returns a loader resolving relative paths against baseDir. Its
// client only connects to public addresses.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		BaseDir:  baseDir,
		Client:   publicClient(defaultTimeout),
		MaxBytes: defaultMaxBytes,
	}
}

// publicClient returns an HTTP client whose dialer refuses loopback, private,
// link-local and other non-public addresses, including after redirects.
func publicClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: timeout, Control: publicOnly}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{Timeout: timeout, Transport: transport}
}

func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenURL, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenURL, address)
	}
	if !isPublicAddr(ip) {
		return fmt.Errorf("%w: %s is not a public address", ErrForbiddenURL, ip)
	}
	return nil
}

// isPublicAddr reports whether ip is a globally routable unicast address.
func isPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsGlobalUnicast() && !ip.IsPrivate() && !cgnat.Contains(ip)
}

// Load fetches and decodes src.
func (l *Loader) Load(ctx context.Context, src Source) (*Loaded, error) {
	data, err := l.read(ctx, src)
	if err != nil {
		return nil, err
	}
	tpl, err := l.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	tpl.Origin = src.String()
	return tpl, nil
}

// Decode turns raw bytes into a template. PDFs are recognised by their header.
func (l *Loader) Decode(data []byte) (*Loaded, error) {
	if bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		dims, err := api.PageDims(bytes.NewReader(data), model.NewDefaultConfiguration())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if len(dims) == 0 || dims[0].Width <= 0 || dims[0].Height <= 0 {
			return nil, fmt.Errorf("%w: PDF has no usable page", ErrDecode)
		}
		return &Loaded{
			Width:    dims[0].Width,
			Height:   dims[0].Height,
			Kind:     KindPDF,
			Drawable: renderer.Drawable{PDF: data},
		}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if l.MaxSide > 0 {
		b := img.Bounds()
		if b.Dx() > l.MaxSide || b.Dy() > l.MaxSide {
			img = imaging.Fit(img, l.MaxSide, l.MaxSide, imaging.Lanczos)
		}
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	return &Loaded{
		Width:    float64(b.Dx()),
		Height:   float64(b.Dy()),
		Kind:     KindImage,
		Drawable: renderer.Drawable{Image: img},
	}, nil
}

func (l *Loader) read(ctx context.Context, src Source) ([]byte, error) {
	switch {
	case src.Path != "":
		path := src.Path
		if !filepath.IsAbs(path) && l.BaseDir != "" {
			path = filepath.Join(l.BaseDir, path)
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, src.Path)
		}
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", src.Path, err)
		}
		return data, nil
	case src.URL != "":
		return l.download(ctx, src.URL)
	case len(src.Data) > 0:
		return src.Data, nil
	default:
		return nil, fmt.Errorf("%w: empty template source", ErrNotFound)
	}
}

func (l *Loader) download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrForbiddenURL, rawURL)
	}
	client := l.Client
	if client == nil {
		client = publicClient(defaultTimeout)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("template request %s: %w", rawURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download template %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s (%d)", ErrNotFound, rawURL, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("download template %s: status %d", rawURL, resp.StatusCode)
	}
	limit := l.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("download template %s: %w", rawURL, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("download template %s: larger than %d bytes", rawURL, limit)
	}
	return data, nil
}
