// Package prompts holds the model prompts of the audit, comparative and
// fact-check pipelines. Each pipeline has one embedded JSON file mapping
// prompt keys to templates with {{.Name}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Pipeline names a prompt file.
type Pipeline string

// Pipelines with prompt files.
const (
	Audit       Pipeline = "audit"
	Comparative Pipeline = "comparative"
	FactCheck   Pipeline = "factcheck"
)

// Pipelines lists every pipeline that ships prompts.
func Pipelines() []Pipeline {
	return []Pipeline{Audit, Comparative, FactCheck}
}

func (p Pipeline) file() string {
	return string(p) + ".json"
}

// Key names a prompt within a pipeline file.
type Key string

// Prompt keys.
const (
	AuditSystem   Key = "system-instruction"
	AuditAnalyze  Key = "analyze-result"
	ComparePages  Key = "compare-pages"
	FactQuestions Key = "generate-questions"
	FactNaive     Key = "naive-answer"
	FactGrounded  Key = "ground-truth"
	FactVerify    Key = "verify-answer"
)

var placeholderRe = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// Error reports a prompt that could not be loaded or rendered.
type Error struct {
	Pipeline Pipeline
	Key      Key
	Message  string
	Missing  []string
	Cause    error
}

func (e *Error) Error() string {
	where := string(e.Pipeline)
	if e.Key != "" {
		where += "/" + string(e.Key)
	}
	msg := fmt.Sprintf("prompt %s: %s", where, e.Message)
	if len(e.Missing) > 0 {
		msg += " (" + strings.Join(e.Missing, ", ") + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

var (
	loadOnce sync.Once
	loaded   map[Pipeline]map[Key]string
	loadErr  error
)

// load parses every embedded prompt file once.
func load() (map[Pipeline]map[Key]string, error) {
	loadOnce.Do(func() {
		loaded = make(map[Pipeline]map[Key]string, len(Pipelines()))
		for _, p := range Pipelines() {
			data, err := promptFiles.ReadFile(p.file())
			if err != nil {
				loadErr = &Error{Pipeline: p, Message: "failed to read prompt file", Cause: err}
				return
			}
			var templates map[Key]string
			if err := json.Unmarshal(data, &templates); err != nil {
				loadErr = &Error{Pipeline: p, Message: "failed to parse prompt file", Cause: err}
				return
			}
			loaded[p] = templates
		}
	})
	return loaded, loadErr
}

// Get returns the raw template of a prompt.
func Get(p Pipeline, key Key) (string, error) {
	all, err := load()
	if err != nil {
		return "", err
	}
	templates, ok := all[p]
	if !ok {
		return "", &Error{Pipeline: p, Message: "unknown pipeline"}
	}
	template, ok := templates[key]
	if !ok {
		return "", &Error{Pipeline: p, Key: key, Message: "prompt not found"}
	}
	return template, nil
}

// MustGet is Get for prompts that must exist; it panics otherwise.
func MustGet(p Pipeline, key Key) string {
	template, err := Get(p, key)
	if err != nil {
		panic(err)
	}
	return template
}

// Placeholders returns the distinct placeholder names of a template in
// order of first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Format fills the placeholders of template from data. Placeholders with
// no value are left as they are.
func Format(template string, data map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(ph string) string {
		if v, ok := data[ph[3:len(ph)-2]]; ok {
			return v
		}
		return ph
	})
}

// Render loads a prompt and fills it. Every placeholder of the template
// must have a value in data. Values are inserted once and never expanded,
// so page text that happens to contain "{{." is passed through verbatim.
func Render(p Pipeline, key Key, data map[string]string) (string, error) {
	template, err := Get(p, key)
	if err != nil {
		return "", err
	}

	var missing []string
	for _, name := range Placeholders(template) {
		if _, ok := data[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &Error{Pipeline: p, Key: key, Message: "missing values", Missing: missing}
	}
	return Format(template, data), nil
}

// Keys returns the prompt keys of a pipeline, sorted.
func Keys(p Pipeline) ([]Key, error) {
	all, err := load()
	if err != nil {
		return nil, err
	}
	templates, ok := all[p]
	if !ok {
		return nil, &Error{Pipeline: p, Message: "unknown pipeline"}
	}
	keys := make([]Key, 0, len(templates))
	for key := range templates {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}
