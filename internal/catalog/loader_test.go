package catalog

import (
	"errors"
	"slices"
	"testing"
	"testing/fstest"
	"time"
)

const validSection = `kind: section
id: earthquake
track: drills
name: Earthquake Safety
items:
  - id: eq2
    order: 2
    title: Drop, Cover, and Hold On
  - id: eq1
    order: 1
    title: Earthquake Safety Basics
  - id: eq3
    order: 3
    title: Earthquake Preparedness Kit
`

const validBank = `kind: bank
id: basics
title: Basics
sample_size: 2
questions:
  - id: q1
    prompt: First?
    options: [a, b]
    correct_answer: 1
  - id: q2
    prompt: Second?
    options: [a, b, c]
    correct_answer: 0
    points: 3
  - id: q3
    prompt: Third?
    options: [a, b]
    correct_answer: 0
`

func TestDefault_LoadsBuiltinCatalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	if got := len(c.Sections()); got != 8 {
		t.Errorf("len(Sections()) = %d, want 8", got)
	}
	if got := len(c.SectionsByTrack(TrackDrills)); got != 5 {
		t.Errorf("drill sections = %d, want 5", got)
	}
	if got := c.TotalItems(); got != 30 {
		t.Errorf("TotalItems() = %d, want 30", got)
	}

	bank, ok := c.Bank("disaster-management")
	if !ok {
		t.Fatal("disaster-management bank not found")
	}
	if bank.Size() != 30 || bank.SampleSize != 25 {
		t.Errorf("bank size/sample = %d/%d, want 30/25", bank.Size(), bank.SampleSize)
	}
	if bank.TimeLimit() != 10*time.Minute {
		t.Errorf("TimeLimit() = %v, want 10m", bank.TimeLimit())
	}

	basics, ok := c.Bank("preparedness-basics")
	if !ok {
		t.Fatal("preparedness-basics bank not found")
	}
	if basics.SampleSize != basics.Size() {
		t.Errorf("static bank sample = %d, want full size %d", basics.SampleSize, basics.Size())
	}
}

func TestDefault_DecodesDocumentKind(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	for _, s := range c.Sections() {
		if s.Kind != "section" {
			t.Errorf("section %s: Kind = %q, want section", s.ID, s.Kind)
		}
	}
	for _, b := range c.Banks() {
		if b.Kind != "bank" {
			t.Errorf("bank %s: Kind = %q, want bank", b.ID, b.Kind)
		}
	}
}

func TestDefault_DrillSections(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	var ids []string
	for _, s := range c.SectionsByTrack(TrackDrills) {
		ids = append(ids, s.ID)
	}
	slices.Sort(ids)
	want := []string{"drills-earthquake", "drills-fire", "drills-flood", "drills-storm", "drills-thunder"}
	if !slices.Equal(ids, want) {
		t.Errorf("drill sections = %v, want %v", ids, want)
	}
}

func TestDefault_SectionsAreDenselyOrdered(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	for _, s := range c.Sections() {
		for i, item := range s.Items {
			if item.Order != i+1 {
				t.Errorf("section %s: item %s order = %d, want %d", s.ID, item.ID, item.Order, i+1)
			}
		}
	}
}

func TestLoadFS_SortsItemsAndAppliesDefaults(t *testing.T) {
	fsys := fstest.MapFS{
		"quake.section.yaml": {Data: []byte(validSection)},
		"basics.bank.yaml":   {Data: []byte(validBank)},
		"README.md":          {Data: []byte("ignored")},
	}

	c, err := LoadFS(fsys, ".", WithPassingThreshold(80), WithTimeLimit(5*time.Minute))
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}

	s, ok := c.Section("earthquake")
	if !ok {
		t.Fatal("section earthquake not found")
	}
	for i, want := range []string{"eq1", "eq2", "eq3"} {
		if s.Items[i].ID != want {
			t.Errorf("Items[%d].ID = %q, want %q", i, s.Items[i].ID, want)
		}
	}

	owner, ok := c.SectionOf("eq3")
	if !ok || owner.ID != "earthquake" {
		t.Errorf("SectionOf(eq3) = %q, %v; want earthquake", owner.ID, ok)
	}

	b, _ := c.Bank("basics")
	if b.PassingThreshold != 80 {
		t.Errorf("PassingThreshold = %d, want 80", b.PassingThreshold)
	}
	if b.TimeLimit() != 5*time.Minute {
		t.Errorf("TimeLimit() = %v, want 5m", b.TimeLimit())
	}
	if b.Questions[0].Points != 1 {
		t.Errorf("default Points = %d, want 1", b.Questions[0].Points)
	}
	if b.Questions[1].Points != 3 {
		t.Errorf("explicit Points = %d, want 3", b.Questions[1].Points)
	}
}

func TestLoadFS_RejectsMalformedContent(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{
			name: "order gap",
			files: map[string]string{"a.section.yaml": `kind: section
id: s
track: drills
name: S
items:
  - {id: a, order: 1, title: A}
  - {id: b, order: 3, title: B}
`},
		},
		{
			name: "duplicate order",
			files: map[string]string{"a.section.yaml": `kind: section
id: s
track: drills
name: S
items:
  - {id: a, order: 1, title: A}
  - {id: b, order: 1, title: B}
`},
		},
		{
			name: "order not starting at one",
			files: map[string]string{"a.section.yaml": `kind: section
id: s
track: drills
name: S
items:
  - {id: a, order: 2, title: A}
`},
		},
		{
			name: "duplicate item across sections",
			files: map[string]string{
				"a.section.yaml": "kind: section\nid: s1\ntrack: drills\nname: S1\nitems:\n  - {id: x, order: 1, title: X}\n",
				"b.section.yaml": "kind: section\nid: s2\ntrack: drills\nname: S2\nitems:\n  - {id: x, order: 1, title: X}\n",
			},
		},
		{
			name:  "schema: missing name",
			files: map[string]string{"a.section.yaml": "kind: section\nid: s\ntrack: drills\nitems: []\n"},
		},
		{
			name:  "schema: unknown track",
			files: map[string]string{"a.section.yaml": "kind: section\nid: s\ntrack: games\nname: S\nitems: []\n"},
		},
		{
			name: "schema: single option",
			files: map[string]string{"b.bank.yaml": `kind: bank
id: b
title: B
questions:
  - {id: q, prompt: P, options: [only], correct_answer: 0}
`},
		},
		{
			name: "correct answer out of range",
			files: map[string]string{"b.bank.yaml": `kind: bank
id: b
title: B
questions:
  - {id: q, prompt: P, options: [a, b], correct_answer: 2}
`},
		},
		{
			name: "sample larger than bank",
			files: map[string]string{"b.bank.yaml": `kind: bank
id: b
title: B
sample_size: 5
questions:
  - {id: q, prompt: P, options: [a, b], correct_answer: 0}
`},
		},
		{
			name:  "invalid yaml",
			files: map[string]string{"b.bank.yaml": "kind: [bank"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{}
			for name, data := range tt.files {
				fsys[name] = &fstest.MapFile{Data: []byte(data)}
			}

			_, err := LoadFS(fsys, ".")
			var catErr *CatalogError
			if !errors.As(err, &catErr) {
				t.Fatalf("LoadFS() error = %v, want *CatalogError", err)
			}
		})
	}
}

func TestLoadFS_EmptySectionIsValid(t *testing.T) {
	fsys := fstest.MapFS{
		"empty.section.yaml": {Data: []byte("kind: section\nid: empty\ntrack: modules\nname: Empty\nitems: []\n")},
	}

	c, err := LoadFS(fsys, ".")
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}
	s, ok := c.Section("empty")
	if !ok || len(s.Items) != 0 {
		t.Errorf("Section(empty) = %+v, %v; want zero items", s, ok)
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	if _, err := Load(t.TempDir() + "/missing"); err == nil {
		t.Fatal("Load() should fail for a missing directory")
	}
}
