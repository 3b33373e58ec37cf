// Package responder picks the assistant's canned reply for a visitor's
// utterance. Selection is a pure function of the utterance, a short window of
// recent exchanges and a static rule table: rules are tried in declaration
// order and the first rule with a trigger contained in the lower-cased
// utterance wins.
package responder

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Response is the record handed back to the caller. Body may carry **bold**
// markers and newlines; it is authored content, never user input.
type Response struct {
	Body      string   `json:"body" yaml:"body"`
	FollowUps []string `json:"follow_ups,omitempty" yaml:"follow_ups,omitempty"`
	// Topic is the path of the rule that produced the response, e.g.
	// "skills/rag" or "context/skills".
	Topic string `json:"topic,omitempty" yaml:"-"`
}

func (r Response) clone() Response {
	r.FollowUps = append([]string(nil), r.FollowUps...)
	return r
}

// Rule maps trigger substrings to a response. A rule with Subtopics is
// compound: any of its own or its subtopics' triggers opens it, then the
// subtopics are tried in order and Response is the category fallback.
// Generate, when set, builds the response from the trigger that matched.
type Rule struct {
	Name      string                      `yaml:"name"`
	Triggers  []string                    `yaml:"triggers"`
	Response  Response                    `yaml:"response"`
	Subtopics []Rule                      `yaml:"subtopics,omitempty"`
	Generate  func(match string) Response `yaml:"-"`
}

// ContextFallback applies when no rule matched but one of WindowTriggers
// appears in the recent conversation.
type ContextFallback struct {
	Name           string   `yaml:"name"`
	WindowTriggers []string `yaml:"window_triggers"`
	Response       Response `yaml:"response"`
}

// Table is the full dispatch table. It is built once at startup and only read
// afterwards.
type Table struct {
	Window    int               `yaml:"window"`
	Welcome   Response          `yaml:"welcome"`
	Rules     []Rule            `yaml:"rules"`
	Fallbacks []ContextFallback `yaml:"fallbacks"`
	Default   Response          `yaml:"default"`
	Apology   Response          `yaml:"apology"`
}

// SelectionFailure is an internal fault while evaluating the table. Select
// never returns it; it is reported through the failure hook.
type SelectionFailure struct {
	Cause error
}

func (e *SelectionFailure) Error() string {
	return "response selection failed: " + e.Cause.Error()
}

func (e *SelectionFailure) Unwrap() error { return e.Cause }

// Validate reports every problem in the table.
func (t Table) Validate() error {
	var errs *multierror.Error
	if len(t.Rules) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("table has no rules"))
	}
	for i, r := range t.Rules {
		errs = multierror.Append(errs, validateRule(r, fmt.Sprintf("rules[%d]", i)))
	}
	for i, fb := range t.Fallbacks {
		where := fmt.Sprintf("fallbacks[%d]", i)
		if fb.Name == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s: missing name", where))
		}
		errs = multierror.Append(errs, validateTriggers(fb.WindowTriggers, where))
		if strings.TrimSpace(fb.Response.Body) == "" {
			errs = multierror.Append(errs, fmt.Errorf("%s: empty response body", where))
		}
	}
	if strings.TrimSpace(t.Default.Body) == "" {
		errs = multierror.Append(errs, fmt.Errorf("default: empty response body"))
	}
	if t.Window < 0 {
		errs = multierror.Append(errs, fmt.Errorf("window: negative size %d", t.Window))
	}
	return errs.ErrorOrNil()
}

func validateRule(r Rule, where string) error {
	var errs *multierror.Error
	if r.Name == "" {
		errs = multierror.Append(errs, fmt.Errorf("%s: missing name", where))
	} else {
		where = fmt.Sprintf("%s(%s)", where, r.Name)
	}
	if len(r.Triggers) == 0 && len(r.Subtopics) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("%s: no triggers", where))
	}
	errs = multierror.Append(errs, validateTriggers(r.Triggers, where))
	if r.Generate == nil && strings.TrimSpace(r.Response.Body) == "" {
		errs = multierror.Append(errs, fmt.Errorf("%s: empty response body", where))
	}
	for i, sub := range r.Subtopics {
		errs = multierror.Append(errs, validateRule(sub, fmt.Sprintf("%s.subtopics[%d]", where, i)))
	}
	return errs.ErrorOrNil()
}

// Triggers are compared against a lower-cased utterance, so anything else
// could never match.
func validateTriggers(triggers []string, where string) error {
	var errs *multierror.Error
	for _, tr := range triggers {
		switch {
		case tr == "":
			errs = multierror.Append(errs, fmt.Errorf("%s: empty trigger", where))
		case tr != strings.ToLower(tr):
			errs = multierror.Append(errs, fmt.Errorf("%s: trigger %q is not lower-case", where, tr))
		}
	}
	return errs.ErrorOrNil()
}
