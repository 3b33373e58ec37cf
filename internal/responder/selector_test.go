package responder

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-assistant/internal/history"
)

func agent(body string) history.Exchange {
	return history.Exchange{Sender: history.SenderAgent, Body: body}
}

func user(body string) history.Exchange {
	return history.Exchange{Sender: history.SenderUser, Body: body}
}

func TestDefaultTableIsValid(t *testing.T) {
	s := NewSelector(DefaultTable())
	require.NoError(t, s.Err())
	assert.Equal(t, DefaultWindow, s.WindowSize())
}

func TestSelectTopics(t *testing.T) {
	s := NewSelector(DefaultTable())
	cases := []struct {
		utterance string
		topic     string
	}{
		{"hello, what are your skills", "greeting"},
		{"Hi! anyone there?", "greeting"},
		{"SKILLS", "skills"},
		{"skills", "skills"},
		{"myskillsareunclear", "skills"},
		{"what is RAG", "skills/rag"},
		{"What is RAG?", "skills/rag"},
		{"tell me about LLMs", "skills/llm"},
		{"do you use langchain?", "skills/agents"},
		{"any fine-tuning tech?", "skills/fine-tuning"},
		{"Vector Databases", "skills/vector-databases"},
		{"how good is he with Python", "skills/proficiency"},
		{"Tell me about your experience", "experience"},
		{"Education", "education"},
		{"show me a project", "projects"},
		{"Contact Info", "contact"},
		{"where does he live", "location"},
		{"what is generative ai", "explainers/generative-ai"},
		{"MLOps", "explainers/mlops"},
		{"ETL pipelines", "explainers/data-engineering"},
		{"what is machine learning", "explainers/machine-learning"},
		{"artificial intelligence", "explainers"},
		{"Download Resume", "resume"},
		{"GitHub", "github"},
		{"hi", "greeting"},
		{"hey there", "greeting"},
		{"RAG", "skills/rag"},
		{"what are they building", "projects"},
		{"how did he shape his career", "experience"},
		{"can you explain", TopicDefault},
		{"drag and drop", TopicDefault},
		{"sushi", TopicDefault},
	}
	for _, tc := range cases {
		t.Run(tc.utterance, func(t *testing.T) {
			got := s.Select(tc.utterance, nil)
			assert.Equal(t, tc.topic, got.Topic)
			assert.NotEmpty(t, got.Body)
		})
	}
}

func TestSelectIsCaseInsensitive(t *testing.T) {
	s := NewSelector(DefaultTable())
	assert.Equal(t, s.Select("skills", nil), s.Select("SKILLS", nil))
}

func TestSelectIsDeterministic(t *testing.T) {
	s := NewSelector(DefaultTable())
	window := []history.Exchange{user("which programming languages?")}
	first := s.Select("banana smoothie", window)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Select("banana smoothie", window))
	}
}

func TestExperienceRecord(t *testing.T) {
	got := NewSelector(DefaultTable()).Select("Tell me about your experience", nil)
	assert.Contains(t, got.Body, "Professional Journey")
	assert.Contains(t, got.FollowUps, LabelSkillsTech)
	assert.Contains(t, got.FollowUps, LabelContact)
}

func TestRAGIsNotSkillsOverview(t *testing.T) {
	s := NewSelector(DefaultTable())
	rag := s.Select("what is RAG", nil)
	overview := s.Select("skills", nil)
	assert.NotEqual(t, overview.Body, rag.Body)
	assert.Contains(t, rag.Body, "Retrieval-Augmented Generation")
}

func TestGeneratedProficiency(t *testing.T) {
	s := NewSelector(DefaultTable())
	got := s.Select("tell me about his postgres work", nil)
	assert.Equal(t, "skills/proficiency", got.Topic)
	assert.Contains(t, got.Body, "PostgreSQL")
	assert.Contains(t, got.Body, "85%")

	got = s.Select("and sql?", nil)
	assert.Contains(t, got.Body, "**SQL**")
	assert.Contains(t, got.Body, "90%")
}

func TestProficiencyPrefersLongerNames(t *testing.T) {
	s := NewSelector(DefaultTable())
	cases := map[string]string{
		"does he know javascript":   "**JavaScript**",
		"does he know java":         "**Java**",
		"what about SHAP?":          "**SHAP**",
		"shapley values in his work": "**SHAP**",
		"any aws":                   "**AWS**",
	}
	for utterance, name := range cases {
		t.Run(utterance, func(t *testing.T) {
			got := s.Select(utterance, nil)
			assert.Equal(t, "skills/proficiency", got.Topic)
			assert.Contains(t, got.Body, name)
		})
	}
	assert.NotEqual(t, "skills/proficiency", s.Select("which laws apply", nil).Topic)
}

func TestContextFallbacks(t *testing.T) {
	s := NewSelector(DefaultTable())

	got := s.Select("banana smoothie", []history.Exchange{user("which programming languages?")})
	assert.Equal(t, "context/skills", got.Topic)
	assert.True(t, strings.HasPrefix(got.Body, "Based on our conversation about skills"))

	got = s.Select("banana smoothie", []history.Exchange{agent("he changed jobs twice")})
	assert.Equal(t, "context/experience", got.Topic)

	// skills context wins over experience context
	got = s.Select("banana smoothie", []history.Exchange{user("work"), agent("tech")})
	assert.Equal(t, "context/skills", got.Topic)
}

func TestContextWindowIsBounded(t *testing.T) {
	s := NewSelector(DefaultTable())
	window := []history.Exchange{
		user("tech"),
		agent("banana"),
		user("apple"),
		agent("cherry"),
	}
	got := s.Select("banana smoothie", window)
	assert.Equal(t, TopicDefault, got.Topic)

	got = s.Select("banana smoothie", window[:3])
	assert.Equal(t, "context/skills", got.Topic)
}

func TestDefaultResponse(t *testing.T) {
	s := NewSelector(DefaultTable())
	got := s.Select("banana smoothie", nil)
	assert.Equal(t, TopicDefault, got.Topic)
	assert.Equal(t, []string{LabelSkillsTech, LabelExperience, LabelProjects, LabelContact}, got.FollowUps)

	blank := s.Select("   ", nil)
	assert.Equal(t, TopicDefault, blank.Topic)
}

func TestSelectDoesNotMutateInputs(t *testing.T) {
	table := DefaultTable()
	s := NewSelector(table)
	window := []history.Exchange{user("Which Programming?")}
	got := s.Select("skills", window)
	got.FollowUps[0] = "mutated"

	assert.Equal(t, "Which Programming?", window[0].Body)
	assert.NotEqual(t, "mutated", s.Select("skills", window).FollowUps[0])
}

func TestFirstMatchWinsByDeclarationOrder(t *testing.T) {
	table := Table{
		Rules: []Rule{
			{Name: "first", Triggers: []string{"alpha"}, Response: Response{Body: "one"}},
			{Name: "second", Triggers: []string{"beta"}, Response: Response{Body: "two"}},
		},
		Default: Response{Body: "menu"},
	}
	s := NewSelector(table)
	assert.Equal(t, "one", s.Select("beta alpha", nil).Body)
	assert.Equal(t, "two", s.Select("beta", nil).Body)
}

func TestCompoundGateIncludesSubtopics(t *testing.T) {
	table := Table{
		Rules: []Rule{
			{
				Name:     "outer",
				Triggers: []string{"outer"},
				Response: Response{Body: "category"},
				Subtopics: []Rule{
					{Name: "inner", Triggers: []string{"inner"}, Response: Response{Body: "inner"}},
				},
			},
			{Name: "later", Triggers: []string{"inner"}, Response: Response{Body: "later"}},
		},
		Default: Response{Body: "menu"},
	}
	s := NewSelector(table)
	assert.Equal(t, "inner", s.Select("inner", nil).Body)
	assert.Equal(t, "outer/inner", s.Select("inner", nil).Topic)
	assert.Equal(t, "category", s.Select("outer", nil).Body)
}

func TestInvalidTableFailsClosed(t *testing.T) {
	var failures []error
	s := NewSelector(Table{}, WithFailureHook(func(f *SelectionFailure) { failures = append(failures, f) }))
	require.Error(t, s.Err())

	got := s.Select("skills", nil)
	assert.Equal(t, TopicApology, got.Topic)
	assert.Contains(t, got.FollowUps, RetryFollowUp)
	require.Len(t, failures, 1)
}

func TestPanickingGeneratorIsContained(t *testing.T) {
	boom := errors.New("boom")
	var failure *SelectionFailure
	table := Table{
		Rules: []Rule{{
			Name:     "broken",
			Triggers: []string{"boom"},
			Generate: func(string) Response { panic(boom) },
		}},
		Default: Response{Body: "menu"},
		Apology: Response{Body: "sorry"},
	}
	s := NewSelector(table, WithFailureHook(func(f *SelectionFailure) { failure = f }))
	require.NoError(t, s.Err())

	got := s.Select("boom", nil)
	assert.Equal(t, "sorry", got.Body)
	assert.Equal(t, []string{RetryFollowUp}, got.FollowUps)
	require.NotNil(t, failure)
	assert.Contains(t, failure.Error(), "boom")

	assert.Equal(t, "menu", s.Select("fine", nil).Body)
}

func TestValidateReportsAllProblems(t *testing.T) {
	err := Table{
		Rules: []Rule{
			{Name: "upper", Triggers: []string{"Skills"}, Response: Response{Body: "x"}},
			{Triggers: []string{""}},
		},
		Fallbacks: []ContextFallback{{Name: "fb"}},
	}.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "not lower-case")
	assert.Contains(t, msg, "missing name")
	assert.Contains(t, msg, "empty trigger")
	assert.Contains(t, msg, "default: empty response body")
}

func TestWelcome(t *testing.T) {
	w := NewSelector(DefaultTable()).Welcome()
	assert.Equal(t, TopicWelcome, w.Topic)
	assert.Contains(t, w.Body, "AI assistant")
	assert.Equal(t, []string{LabelSkillsTech, LabelExperience, LabelProjects, LabelContact}, w.FollowUps)
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "responses.yaml")
	doc := `
welcome:
  body: "Welcome!"
rules:
  - name: greeting
    triggers: ["hello"]
    response:
      body: "Hi there"
      follow_ups: ["Skills"]
  - name: skills
    triggers: ["skill"]
    response:
      body: "Skills overview"
    subtopics:
      - name: rag
        triggers: [" rag"]
        response:
          body: "RAG explained"
fallbacks:
  - name: skills
    window_triggers: ["skill"]
    response:
      body: "More on skills?"
default:
  body: "Menu"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindow, table.Window)

	s := NewSelector(table)
	assert.Equal(t, "Hi there", s.Select("hello", nil).Body)
	assert.Equal(t, "RAG explained", s.Select("what is rag", nil).Body)
	assert.Equal(t, "More on skills?", s.Select("ok", []history.Exchange{agent("Skills overview")}).Body)
	assert.Equal(t, "Menu", s.Select("ok", nil).Body)
	assert.Equal(t, RetryFollowUp, table.Apology.FollowUps[0])
}

func TestLoadTableRejectsBadDocuments(t *testing.T) {
	_, err := ParseTable([]byte("rules: [\n"))
	require.Error(t, err)

	_, err = ParseTable([]byte("unknown_field: 1\n"))
	require.Error(t, err)

	table, err := ParseTable([]byte("default:\n  body: menu\n"))
	require.Error(t, err)
	assert.Equal(t, TopicApology, NewSelector(table).Select("hello", nil).Topic)

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
