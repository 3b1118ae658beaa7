package screening

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Course is a recommended course for a missing skill.
type Course struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Feedback is the structured analysis for one CV.
type Feedback struct {
	MatchPercentage       float64  `json:"match_percentage"`
	Similarities          []string `json:"similarities,omitempty"`
	Missing               []string `json:"missing,omitempty"`
	CourseRecommendations []Course `json:"course_recommendations,omitempty"`
}

// Outcome is the per-CV analysis result: either structured feedback or an
// error message from the analyzer. Outcomes are immutable once stored.
type Outcome struct {
	Filename string    `json:"filename"`
	Feedback *Feedback `json:"feedback,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Failed reports whether the analyzer returned an error for this CV instead
// of feedback.
func (o *Outcome) Failed() bool {
	return o.Feedback == nil
}

// Percentage returns the match percentage, or 0 for a failed outcome.
func (o *Outcome) Percentage() float64 {
	if o.Failed() {
		return 0
	}
	return o.Feedback.MatchPercentage
}

// Results holds the aggregated outcomes of the latest submission, keyed by
// CV name with insertion order preserved. It is only ever replaced
// wholesale, never partially mutated.
type Results struct {
	byName map[string]*Outcome
	order  []string
}

func NewResults() *Results {
	return &Results{
		byName: make(map[string]*Outcome),
	}
}

// Replace discards any prior content and stores the given outcomes. A
// duplicate filename keeps its first position, the later outcome wins.
func (r *Results) Replace(outcomes []*Outcome) {
	r.byName = make(map[string]*Outcome, len(outcomes))
	r.order = r.order[:0]
	for _, outcome := range outcomes {
		if outcome == nil || outcome.Filename == "" {
			continue
		}
		if _, ok := r.byName[outcome.Filename]; !ok {
			r.order = append(r.order, outcome.Filename)
		}
		r.byName[outcome.Filename] = outcome
	}
}

// Get returns the outcome for a CV name, or nil when absent.
func (r *Results) Get(name string) *Outcome {
	return r.byName[name]
}

// List returns the outcomes in stored order. This is also the snapshot
// persisted into the session state.
func (r *Results) List() []*Outcome {
	outcomes := make([]*Outcome, 0, len(r.order))
	for _, name := range r.order {
		outcomes = append(outcomes, r.byName[name])
	}
	return outcomes
}

func (r *Results) Len() int {
	return len(r.order)
}

// Report renders the outcomes as table rows limited to the selected
// dimensions. Percentages are suffixed with %, list values comma-joined and
// absent values shown as N/A. Failed outcomes carry their error message.
func (r *Results) Report(selection *Selection) []map[string]string {
	rows := make([]map[string]string, 0, r.Len())
	for _, outcome := range r.List() {
		row := map[string]string{"cv_name": outcome.Filename}

		if outcome.Failed() {
			row["error"] = outcome.Error
			for _, dim := range selection.Dimensions() {
				row[string(dim)] = "Error"
			}
			rows = append(rows, row)
			continue
		}

		for _, dim := range selection.Dimensions() {
			row[string(dim)] = formatDimension(outcome.Feedback, dim)
		}
		rows = append(rows, row)
	}
	return rows
}

func formatDimension(fb *Feedback, dim Dimension) string {
	switch dim {
	case DimensionPercentage:
		return fmt.Sprintf("%g%%", fb.MatchPercentage)
	case DimensionSimilarities:
		return joinOrNA(fb.Similarities)
	case DimensionMissing:
		return joinOrNA(fb.Missing)
	case DimensionCourses:
		if len(fb.CourseRecommendations) == 0 {
			return "N/A"
		}
		courses := make([]string, 0, len(fb.CourseRecommendations))
		for _, course := range fb.CourseRecommendations {
			if course.URL != "" {
				courses = append(courses, fmt.Sprintf("%s (%s)", course.Name, course.URL))
				continue
			}
			courses = append(courses, course.Name)
		}
		return strings.Join(courses, ", ")
	default:
		return "N/A"
	}
}

func joinOrNA(values []string) string {
	if len(values) == 0 {
		return "N/A"
	}
	return strings.Join(values, ", ")
}

// DumpToTmpFile writes the outcomes as indented JSON to a temporary file
// and returns its name.
func (r *Results) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "cv-results_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.List()); err != nil {
		return "", err
	}
	return file.Name(), nil
}
