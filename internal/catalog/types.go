package catalog

import "time"

// Track groups sections by the page that presents them.
type Track string

const (
	TrackDrills   Track = "drills"
	TrackFirstAid Track = "first-aid"
	TrackModules  Track = "modules"
)

// ContentItem is a lesson, video or article inside a section.
type ContentItem struct {
	ID          string `yaml:"id" json:"id"`
	Order       int    `yaml:"order" json:"order"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description,omitempty"`
	MediaURL    string `yaml:"media_url" json:"media_url,omitempty"`
	MediaType   string `yaml:"media_type" json:"media_type,omitempty"`
	Duration    string `yaml:"duration" json:"duration,omitempty"`
	Lessons     int    `yaml:"lessons" json:"lessons,omitempty"`
}

// Section is a named group of items sharing one linear unlock chain.
// Items are kept sorted by Order, which runs 1..N without gaps.
type Section struct {
	Kind        string        `yaml:"kind" json:"-"`
	ID          string        `yaml:"id" json:"id"`
	Track       Track         `yaml:"track" json:"track"`
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description" json:"description,omitempty"`
	Items       []ContentItem `yaml:"items" json:"items"`
}

// Question is a single multiple-choice question in a bank.
type Question struct {
	ID            string   `yaml:"id" json:"id"`
	Prompt        string   `yaml:"prompt" json:"prompt"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer int      `yaml:"correct_answer" json:"-"`
	Explanation   string   `yaml:"explanation" json:"-"`
	Points        int      `yaml:"points" json:"points"`
}

// QuestionBank is a fixed pool of questions that attempts sample from.
type QuestionBank struct {
	Kind             string     `yaml:"kind" json:"-"`
	ID               string     `yaml:"id" json:"id"`
	Title            string     `yaml:"title" json:"title"`
	Description      string     `yaml:"description" json:"description,omitempty"`
	PassingThreshold int        `yaml:"passing_threshold" json:"passing_threshold"`
	TimeLimitSeconds int        `yaml:"time_limit_seconds" json:"time_limit_seconds"`
	SampleSize       int        `yaml:"sample_size" json:"sample_size"`
	Questions        []Question `yaml:"questions" json:"-"`
}

// TimeLimit returns the attempt duration for this bank.
func (b QuestionBank) TimeLimit() time.Duration {
	return time.Duration(b.TimeLimitSeconds) * time.Second
}

// Size returns the number of questions in the bank.
func (b QuestionBank) Size() int {
	return len(b.Questions)
}
