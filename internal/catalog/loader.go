// Package catalog loads the static content catalog: ordered sections of
// lessons and the question banks that quizzes sample from.
package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

const (
	sectionSuffix = ".section.yaml"
	bankSuffix    = ".bank.yaml"

	defaultPassingThreshold = 70
	defaultTimeLimit        = 10 * time.Minute
)

//go:embed data/*.yaml
var builtin embed.FS

//go:embed schema/*.json
var schemas embed.FS

// CatalogError reports malformed catalog content. It is only ever returned
// from loading; a loaded Catalog is valid by construction.
type CatalogError struct {
	Path   string
	Reason string
}

func (e *CatalogError) Error() string {
	if e.Path == "" {
		return "catalog: " + e.Reason
	}
	return fmt.Sprintf("catalog: %s: %s", e.Path, e.Reason)
}

func catalogErr(path, format string, args ...any) *CatalogError {
	return &CatalogError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Option adjusts defaults applied while loading.
type Option func(*options)

type options struct {
	passingThreshold int
	timeLimit        time.Duration
}

// WithPassingThreshold sets the threshold used by banks that omit one.
func WithPassingThreshold(pct int) Option {
	return func(o *options) { o.passingThreshold = pct }
}

// WithTimeLimit sets the attempt duration used by banks that omit one.
func WithTimeLimit(d time.Duration) Option {
	return func(o *options) { o.timeLimit = d }
}

// Catalog is the immutable set of sections and question banks.
type Catalog struct {
	sections  []Section
	byID      map[string]*Section
	itemIndex map[string]string // item ID -> section ID
	banks     map[string]*QuestionBank
	bankOrder []string
}

// Default loads the catalog compiled into the binary.
func Default(opts ...Option) (*Catalog, error) {
	return LoadFS(builtin, "data", opts...)
}

// Load reads every *.section.yaml and *.bank.yaml file under dir.
func Load(dir string, opts ...Option) (*Catalog, error) {
	return LoadFS(os.DirFS(dir), ".", opts...)
}

// LoadFS reads a catalog from fsys rooted at root.
func LoadFS(fsys fs.FS, root string, opts ...Option) (*Catalog, error) {
	o := options{passingThreshold: defaultPassingThreshold, timeLimit: defaultTimeLimit}
	for _, opt := range opts {
		opt(&o)
	}

	sectionSchema, err := compileSchema("schema/section.schema.json")
	if err != nil {
		return nil, err
	}
	bankSchema, err := compileSchema("schema/bank.schema.json")
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		byID:      make(map[string]*Section),
		itemIndex: make(map[string]string),
		banks:     make(map[string]*QuestionBank),
	}

	err = fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(p, sectionSuffix):
			var s Section
			if err := decode(fsys, p, sectionSchema, &s); err != nil {
				return err
			}
			return c.addSection(p, s)
		case strings.HasSuffix(p, bankSuffix):
			var b QuestionBank
			if err := decode(fsys, p, bankSchema, &b); err != nil {
				return err
			}
			return c.addBank(p, b, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(c.sections, func(i, j int) bool {
		if c.sections[i].Track != c.sections[j].Track {
			return c.sections[i].Track < c.sections[j].Track
		}
		return c.sections[i].ID < c.sections[j].ID
	})
	for i := range c.sections {
		c.byID[c.sections[i].ID] = &c.sections[i]
	}
	sort.Strings(c.bankOrder)

	slog.Info("catalog loaded", "sections", len(c.sections), "items", len(c.itemIndex), "banks", len(c.banks))
	return c, nil
}

func compileSchema(name string) (*gojsonschema.Schema, error) {
	raw, err := schemas.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", name, err)
	}
	return s, nil
}

// decode validates the YAML document at p against schema, then decodes it into out.
func decode(fsys fs.FS, p string, schema *gojsonschema.Schema, out any) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return fmt.Errorf("reading %s: %w", p, err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return catalogErr(p, "invalid YAML: %v", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return catalogErr(p, "schema validation: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return catalogErr(p, "%s", strings.Join(msgs, "; "))
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return catalogErr(p, "decoding: %v", err)
	}
	return nil
}

func (c *Catalog) addSection(p string, s Section) error {
	for _, existing := range c.sections {
		if existing.ID == s.ID {
			return catalogErr(p, "duplicate section id %q", s.ID)
		}
	}
	sort.SliceStable(s.Items, func(i, j int) bool { return s.Items[i].Order < s.Items[j].Order })
	for i, item := range s.Items {
		if item.Order != i+1 {
			return catalogErr(p, "section %q: item %q has order %d, want %d (orders must run 1..%d without gaps or duplicates)",
				s.ID, item.ID, item.Order, i+1, len(s.Items))
		}
		if owner, dup := c.itemIndex[item.ID]; dup {
			return catalogErr(p, "item id %q already used in section %q", item.ID, owner)
		}
		c.itemIndex[item.ID] = s.ID
	}

	c.sections = append(c.sections, s)
	return nil
}

func (c *Catalog) addBank(p string, b QuestionBank, o options) error {
	if _, dup := c.banks[b.ID]; dup {
		return catalogErr(p, "duplicate bank id %q", b.ID)
	}

	seen := make(map[string]struct{}, len(b.Questions))
	for i := range b.Questions {
		q := &b.Questions[i]
		if _, dup := seen[q.ID]; dup {
			return catalogErr(p, "bank %q: duplicate question id %q", b.ID, q.ID)
		}
		seen[q.ID] = struct{}{}

		if len(q.Options) < 2 {
			return catalogErr(p, "question %q: needs at least 2 options", q.ID)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return catalogErr(p, "question %q: correct_answer %d out of range", q.ID, q.CorrectAnswer)
		}
		if q.Points == 0 {
			q.Points = 1
		}
	}

	if b.SampleSize == 0 {
		b.SampleSize = len(b.Questions)
	}
	if b.SampleSize > len(b.Questions) {
		return catalogErr(p, "bank %q: sample_size %d exceeds %d questions", b.ID, b.SampleSize, len(b.Questions))
	}
	if b.PassingThreshold == 0 {
		b.PassingThreshold = o.passingThreshold
	}
	if b.TimeLimitSeconds == 0 {
		b.TimeLimitSeconds = int(o.timeLimit / time.Second)
	}

	c.banks[b.ID] = &b
	c.bankOrder = append(c.bankOrder, b.ID)
	return nil
}

// Sections returns all sections, grouped by track.
func (c *Catalog) Sections() []Section {
	return append([]Section(nil), c.sections...)
}

// SectionsByTrack returns the sections presented on one page.
func (c *Catalog) SectionsByTrack(t Track) []Section {
	var out []Section
	for _, s := range c.sections {
		if s.Track == t {
			out = append(out, s)
		}
	}
	return out
}

// Section returns a section by ID.
func (c *Catalog) Section(id string) (Section, bool) {
	s, ok := c.byID[id]
	if !ok {
		return Section{}, false
	}
	return *s, true
}

// SectionOf returns the section containing the given item.
func (c *Catalog) SectionOf(itemID string) (Section, bool) {
	sid, ok := c.itemIndex[itemID]
	if !ok {
		return Section{}, false
	}
	return c.Section(sid)
}

// TotalItems returns the number of content items across all sections.
func (c *Catalog) TotalItems() int {
	return len(c.itemIndex)
}

// Bank returns a question bank by ID.
func (c *Catalog) Bank(id string) (QuestionBank, bool) {
	b, ok := c.banks[id]
	if !ok {
		return QuestionBank{}, false
	}
	return *b, true
}

// Banks returns all question banks ordered by ID.
func (c *Catalog) Banks() []QuestionBank {
	out := make([]QuestionBank, 0, len(c.bankOrder))
	for _, id := range c.bankOrder {
		out = append(out, *c.banks[id])
	}
	return out
}
