package media

import (
	"net/url"
	"strconv"
	"strings"
)

// Transform describes a CDN-side variant of a stored image.
type Transform struct {
	Width  int
	Height int
	Format string
}

func (t Transform) param() string {
	var parts []string
	if t.Width > 0 {
		parts = append(parts, "w-"+strconv.Itoa(t.Width))
	}
	if t.Height > 0 {
		parts = append(parts, "h-"+strconv.Itoa(t.Height))
	}
	if f := strings.TrimSpace(t.Format); f != "" {
		parts = append(parts, "f-"+strings.ToLower(f))
	}
	return strings.Join(parts, ",")
}

// TransformURL returns raw with a tr=w-…,h-…,f-… query parameter. An existing
// tr parameter is replaced. An empty transform or an unparseable URL returns
// raw unchanged.
func TransformURL(raw string, t Transform) string {
	p := t.param()
	if p == "" || raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("tr", p)
	// Keep the commas readable; CDNs accept them unescaped.
	u.RawQuery = strings.ReplaceAll(q.Encode(), "%2C", ",")
	return u.String()
}
