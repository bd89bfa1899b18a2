package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"albumserver/internal/cache"

	"github.com/sirupsen/logrus"
)

//go:embed html/*.html
var embedded embed.FS

// TemplateNotFoundError is returned when a page template cannot be read
type TemplateNotFoundError struct {
	Name string
	Err  error
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template %s not found: %v", e.Name, e.Err)
}

func (e *TemplateNotFoundError) Unwrap() error {
	return e.Err
}

// Renderer loads page templates and substitutes {{token}} placeholders.
// There are no conditionals, loops or escaping; callers pass finished markup.
type Renderer struct {
	fsys   fs.FS
	cache  *cache.TemplateCache
	logger *logrus.Logger
}

// DefaultFS returns the templates compiled into the binary
func DefaultFS() fs.FS {
	sub, err := fs.Sub(embedded, "html")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewRenderer creates a renderer reading from fsys. When tc is non-nil loaded
// templates are kept in it until invalidated, typically by a Watcher.
func NewRenderer(fsys fs.FS, tc *cache.TemplateCache, logger *logrus.Logger) *Renderer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Renderer{
		fsys:   fsys,
		cache:  tc,
		logger: logger,
	}
}

// NewDirRenderer reads templates from a directory on disk
func NewDirRenderer(dir string, tc *cache.TemplateCache, logger *logrus.Logger) (*Renderer, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("template directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template directory %s is not a directory", dir)
	}
	return NewRenderer(os.DirFS(dir), tc, logger), nil
}

// Load returns the raw text of the named template
func (r *Renderer) Load(name string) (string, error) {
	if r.cache != nil {
		if text, ok := r.cache.GetTemplate(name); ok {
			return text, nil
		}
	}

	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		r.logger.WithError(err).WithField("template", name).Error("Failed to load template")
		return "", &TemplateNotFoundError{Name: name, Err: err}
	}

	text := string(data)
	if r.cache != nil {
		r.cache.SetTemplate(name, text)
	}
	return text, nil
}

// Render loads the named template and replaces each {{key}} with values[key]
func (r *Renderer) Render(name string, values map[string]string) (string, error) {
	text, err := r.Load(name)
	if err != nil {
		return "", err
	}
	return Substitute(text, values), nil
}

// Substitute replaces every {{key}} in text with values[key] in a single
// pass. Replacement text is never scanned for further tokens and tokens
// without a value are left untouched.
func Substitute(text string, values map[string]string) string {
	if len(values) == 0 {
		return text
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		pairs = append(pairs, Token(key), values[key])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Token returns the placeholder marker for key
func Token(key string) string {
	return "{{" + key + "}}"
}
