package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"portfolio-assistant/internal/storage"
)

// DailyStats summarizes one day of chat interactions.
type DailyStats struct {
	Date            string                  `json:"date"`
	TotalMessages   int                     `json:"total_messages"`
	UniqueSessions  int                     `json:"unique_sessions"`
	Unmatched       int                     `json:"unmatched"`
	Apologies       int                     `json:"apologies"`
	TopicCounts     map[string]int          `json:"topic_counts"`
	TransportCounts map[string]int          `json:"transport_counts"`
	SessionStats    map[string]SessionStats `json:"session_stats"`
}

// SessionStats is the per-session slice of DailyStats.
type SessionStats struct {
	SessionID string         `json:"session_id"`
	Messages  int            `json:"messages"`
	Topics    map[string]int `json:"topics"`
}

// AnalyzeDailyLogs aggregates the events that fall on targetDate's day, in
// targetDate's location. Topics are counted by their top-level rule, so
// "skills/rag" counts as "skills".
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:            startOfDay.Format("2006-01-02"),
		TopicCounts:     make(map[string]int),
		TransportCounts: make(map[string]int),
		SessionStats:    make(map[string]SessionStats),
	}

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		// system records carry no utterance
		if event.UserMessage == "" {
			continue
		}
		stats.TotalMessages++

		topic := topLevel(event.Topic)
		stats.TopicCounts[topic]++
		switch {
		case topic == "default" || topic == "context":
			stats.Unmatched++
		case topic == "apology":
			stats.Apologies++
		}
		if event.Transport != "" {
			stats.TransportCounts[event.Transport]++
		}

		ss, ok := stats.SessionStats[event.SessionID]
		if !ok {
			ss = SessionStats{SessionID: event.SessionID, Topics: make(map[string]int)}
		}
		ss.Messages++
		ss.Topics[topic]++
		stats.SessionStats[event.SessionID] = ss
	}

	stats.UniqueSessions = len(stats.SessionStats)
	return stats
}

func topLevel(topic string) string {
	if topic == "" {
		return "unknown"
	}
	if i := strings.IndexByte(topic, '/'); i >= 0 {
		return topic[:i]
	}
	return topic
}

// GenerateReportSummary renders the stats as plain text for the admin report.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio assistant usage for %s:\n\n", ds.Date)
	fmt.Fprintf(&b, "Activity:\n- Messages: %d\n- Unique sessions: %d\n- Unmatched questions: %d\n- Apologies: %d\n\n",
		ds.TotalMessages, ds.UniqueSessions, ds.Unmatched, ds.Apologies)

	if len(ds.TopicCounts) > 0 {
		b.WriteString("Topics:\n")
		for _, kv := range sortedCounts(ds.TopicCounts) {
			fmt.Fprintf(&b, "- %s: %d\n", kv.key, kv.n)
		}
		b.WriteString("\n")
	}
	if len(ds.TransportCounts) > 0 {
		b.WriteString("Transports:\n")
		for _, kv := range sortedCounts(ds.TransportCounts) {
			fmt.Fprintf(&b, "- %s: %d\n", kv.key, kv.n)
		}
	}
	return b.String()
}

// ToJSON serializes the stats for detailed inspection.
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type count struct {
	key string
	n   int
}

// sortedCounts orders by count descending, then key.
func sortedCounts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, n := range m {
		out = append(out, count{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}
