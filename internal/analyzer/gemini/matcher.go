package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	logutil "github.com/spigell/cv-screener/internal/logger"
	"github.com/spigell/cv-screener/internal/screening"
	"github.com/spigell/cv-screener/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// keyMap translates selection identifiers into the JSON keys the model is
// asked to produce.
var keyMap = map[string]string{
	"percentage":   "match_percentage",
	"similarities": "similarities",
	"missing":      "missing",
	"courses":      "course_recommendations",
}

var keyDescriptions = map[string]string{
	"match_percentage":       `- "match_percentage": a number between 0 and 100`,
	"similarities":           `- "similarities": list of matching skills and qualifications`,
	"missing":                `- "missing": list of skills or requirements missing from the CV`,
	"course_recommendations": `- "course_recommendations": list of objects with "name" and "url" for each missing skill`,
}

// Order of keys inside the prompt, independent of the selection order.
var keyOrder = []string{"match_percentage", "similarities", "missing", "course_recommendations"}

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Matcher analyzes CVs one by one through a content generator. A failure
// for one CV becomes a failure outcome and never aborts the chunk.
type Matcher struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewMatcher(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Matcher{
		generator: generator,
		logger:    logutil.WithBackendFields(logger, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (m *Matcher) Name() string { return "gemini" }

// AnalyzeBatch evaluates each document of the chunk against the job
// description. Only a canceled context fails the whole chunk.
func (m *Matcher) AnalyzeBatch(ctx context.Context, job *screening.JobDescription, docs []*screening.Document, selected []string) ([]*screening.Outcome, error) {
	keys := selectedKeys(selected)

	outcomes := make([]*screening.Outcome, 0, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		feedback, err := m.evaluate(ctx, job, doc, keys)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}

			m.logger.Warn("cv analysis failed",
				zap.String("cv_name", doc.Name),
				zap.Error(err),
			)
			outcomes = append(outcomes, &screening.Outcome{
				Filename: doc.Name,
				Error:    err.Error(),
			})
			continue
		}

		outcomes = append(outcomes, &screening.Outcome{
			Filename: doc.Name,
			Feedback: feedback,
		})
	}

	return outcomes, nil
}

func (m *Matcher) evaluate(ctx context.Context, job *screening.JobDescription, doc *screening.Document, keys []string) (*screening.Feedback, error) {
	prompt := buildPrompt(string(job.Content), string(doc.Content), keys)

	m.logger.Debug("gemini generate content request",
		zap.String("cv_name", doc.Name),
		zap.String("model", m.generator.Model()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content response",
		zap.String("cv_name", doc.Name),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	feedback, err := parseFeedback(raw)
	if err != nil {
		return nil, err
	}

	return filterFeedback(feedback, keys), nil
}

func selectedKeys(selected []string) []string {
	requested := make(map[string]bool, len(selected))
	all := false
	for _, id := range selected {
		if id == "all" {
			all = true
			continue
		}
		if key, ok := keyMap[id]; ok {
			requested[key] = true
		}
	}

	keys := make([]string, 0, len(keyOrder))
	for _, key := range keyOrder {
		if all || requested[key] {
			keys = append(keys, key)
		}
	}
	return keys
}

func buildPrompt(jobDescription, cvContent string, keys []string) string {
	descriptions := make([]string, 0, len(keys))
	for _, key := range keys {
		descriptions = append(descriptions, keyDescriptions[key])
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{JOB_DESCRIPTION}}", jobDescription)
	prompt = strings.ReplaceAll(prompt, "{{CV_CONTENT}}", cvContent)
	prompt = strings.ReplaceAll(prompt, "{{RESPONSE_KEYS}}", strings.Join(descriptions, "\n"))
	return prompt
}

func parseFeedback(raw string) (*screening.Feedback, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	percentage := coerceFloat(data["match_percentage"])
	if math.IsNaN(percentage) {
		percentage = 0
	}

	return &screening.Feedback{
		MatchPercentage:       percentage,
		Similarities:          coerceStrings(data["similarities"]),
		Missing:               coerceStrings(data["missing"]),
		CourseRecommendations: coerceCourses(data["course_recommendations"]),
	}, nil
}

// filterFeedback keeps only the requested keys, the way the remote
// endpoint trims its feedback to the selected options.
func filterFeedback(fb *screening.Feedback, keys []string) *screening.Feedback {
	kept := make(map[string]bool, len(keys))
	for _, key := range keys {
		kept[key] = true
	}

	filtered := &screening.Feedback{}
	if kept["match_percentage"] {
		filtered.MatchPercentage = fb.MatchPercentage
	}
	if kept["similarities"] {
		filtered.Similarities = fb.Similarities
	}
	if kept["missing"] {
		filtered.Missing = fb.Missing
	}
	if kept["course_recommendations"] {
		filtered.CourseRecommendations = fb.CourseRecommendations
	}
	return filtered
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	values := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				values = append(values, s)
			}
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func coerceCourses(v any) []screening.Course {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	courses := make([]screening.Course, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		course := screening.Course{
			Name: coerceString(entry["name"]),
			URL:  coerceString(entry["url"]),
		}
		if course.Name == "" && course.URL == "" {
			continue
		}
		courses = append(courses, course)
	}
	if len(courses) == 0 {
		return nil
	}
	return courses
}

func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
