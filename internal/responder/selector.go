package responder

import (
	"fmt"
	"strings"

	"portfolio-assistant/internal/history"
)

// DefaultWindow is how many recent exchanges the context fallbacks look at.
const DefaultWindow = 3

// Topic prefixes for records that did not come from a keyword rule.
const (
	TopicContextPrefix = "context/"
	TopicDefault       = "default"
	TopicApology       = "apology"
	TopicWelcome       = "welcome"
)

// RetryFollowUp is the follow-up attached to the built-in apology.
const RetryFollowUp = "Retry"

var builtinApology = Response{
	Body:      "I'm sorry, I had trouble understanding that. Could you try asking in a different way?",
	FollowUps: []string{RetryFollowUp},
}

// Option configures a Selector.
type Option func(*Selector)

// WithFailureHook registers a callback for contained selection failures.
func WithFailureHook(fn func(*SelectionFailure)) Option {
	return func(s *Selector) { s.onFailure = fn }
}

// Selector evaluates a Table. It holds no mutable state and is safe for
// concurrent use.
type Selector struct {
	table     Table
	window    int
	invalid   error
	onFailure func(*SelectionFailure)
}

// NewSelector validates t. An invalid table still yields a selector, one that
// answers every call with the apology.
func NewSelector(t Table, opts ...Option) *Selector {
	s := &Selector{table: t, window: t.Window}
	if s.window == 0 {
		s.window = DefaultWindow
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := t.Validate(); err != nil {
		s.invalid = fmt.Errorf("invalid response table: %w", err)
	}
	return s
}

// Err reports why the selector is failing closed, or nil.
func (s *Selector) Err() error { return s.invalid }

// WindowSize is the number of recent exchanges Select consults.
func (s *Selector) WindowSize() int { return s.window }

// Welcome is the greeting seeded into every new conversation.
func (s *Selector) Welcome() Response {
	w := s.table.Welcome
	if strings.TrimSpace(w.Body) == "" {
		w = s.table.Default
	}
	w = w.clone()
	w.Topic = TopicWelcome
	return w
}

// Select returns the response for utterance given the recent exchanges,
// oldest first. Only the last WindowSize entries of recent are consulted.
func (s *Selector) Select(utterance string, recent []history.Exchange) (resp Response) {
	if s.invalid != nil {
		return s.fail(s.invalid)
	}
	defer func() {
		if r := recover(); r != nil {
			resp = s.fail(fmt.Errorf("panic: %v", r))
		}
	}()

	// Padded so space-anchored triggers also match at either end.
	text := " " + strings.ToLower(utterance) + " "
	for _, rule := range s.table.Rules {
		if r, ok := dispatch(rule, text, ""); ok {
			return r
		}
	}

	if len(recent) > s.window {
		recent = recent[len(recent)-s.window:]
	}
	if len(recent) > 0 {
		parts := make([]string, len(recent))
		for i, ex := range recent {
			parts[i] = ex.Body
		}
		window := strings.ToLower(strings.Join(parts, " "))
		for _, fb := range s.table.Fallbacks {
			if _, ok := firstMatch(fb.WindowTriggers, window); ok {
				r := fb.Response.clone()
				r.Topic = TopicContextPrefix + fb.Name
				return r
			}
		}
	}

	r := s.table.Default.clone()
	r.Topic = TopicDefault
	return r
}

func (s *Selector) fail(cause error) Response {
	if s.onFailure != nil {
		s.onFailure(&SelectionFailure{Cause: cause})
	}
	r := s.table.Apology
	if strings.TrimSpace(r.Body) == "" {
		r = builtinApology
	}
	r = r.clone()
	if !containsString(r.FollowUps, RetryFollowUp) {
		r.FollowUps = append(r.FollowUps, RetryFollowUp)
	}
	r.Topic = TopicApology
	return r
}

// dispatch tests one rule against the normalized text. For compound rules
// the gate is the rule's own triggers plus every subtopic trigger.
func dispatch(rule Rule, text, parent string) (Response, bool) {
	topic := rule.Name
	if parent != "" {
		topic = parent + "/" + rule.Name
	}

	own, ownOK := firstMatch(rule.Triggers, text)
	if len(rule.Subtopics) == 0 {
		if !ownOK {
			return Response{}, false
		}
		return build(rule, own, topic), true
	}

	for _, sub := range rule.Subtopics {
		if r, ok := dispatch(sub, text, topic); ok {
			return r, true
		}
	}
	if !ownOK {
		return Response{}, false
	}
	return build(rule, own, topic), true
}

func build(rule Rule, match, topic string) Response {
	var r Response
	if rule.Generate != nil {
		r = rule.Generate(match)
	} else {
		r = rule.Response.clone()
	}
	r.Topic = topic
	return r
}

func firstMatch(triggers []string, text string) (string, bool) {
	for _, tr := range triggers {
		if tr != "" && strings.Contains(text, tr) {
			return tr, true
		}
	}
	return "", false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
