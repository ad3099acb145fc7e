// Package intent classifies user messages to a provider label.
package intent

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Label identifies the provider family a message is routed to.
type Label string

const (
	LabelOpenAI   Label = "openai"
	LabelGemini   Label = "gemini"
	LabelDeepSeek Label = "deepseek"
)

// DefaultLabel is used when no keyword rule matches.
const DefaultLabel = LabelOpenAI

// rule maps a set of trigger substrings to a label. Rules are checked
// in declaration order and the first hit wins.
type rule struct {
	name     string
	label    Label
	keywords []string
}

// Location and search queries go to Gemini, coding tasks to DeepSeek,
// everything else falls through to OpenAI. Matching is substring on the
// lowercased message, so "decode" trips the "code" keyword; accepted.
var rules = []rule{
	{
		name:  "location_search",
		label: LabelGemini,
		keywords: []string{
			"map", "location", "navigate", "directions",
			"search for", "find nearby", "restaurant", "google",
		},
	},
	{
		name:  "coding",
		label: LabelDeepSeek,
		keywords: []string{
			"code", "program", "function", "debug",
			"script", "automate", "algorithm",
		},
	},
}

// Decision records why a label was selected.
type Decision struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`

	QueryLength int `json:"query_length"`

	RulesEvaluated []string `json:"rules_evaluated"`
	RuleMatched    string   `json:"rule_matched,omitempty"`
	KeywordHit     string   `json:"keyword_hit,omitempty"`

	Label     Label  `json:"label"`
	Reasoning string `json:"reasoning"`
}

// Stats tracks classification counts.
type Stats struct {
	TotalRequests int64            `json:"total_requests"`
	LabelCounts   map[Label]int64  `json:"label_counts"`
	RuleCounts    map[string]int64 `json:"rule_counts"`
}

// Classifier assigns labels and keeps a bounded in-memory audit log.
type Classifier struct {
	logger      *slog.Logger
	maxAuditLog int

	mu       sync.RWMutex
	auditLog []Decision
	stats    Stats
}

// New creates a classifier. maxAuditLog <= 0 selects a default of 1000
// retained decisions.
func New(logger *slog.Logger, maxAuditLog int) *Classifier {
	if maxAuditLog <= 0 {
		maxAuditLog = 1000
	}
	return &Classifier{
		logger:      logger,
		maxAuditLog: maxAuditLog,
		auditLog:    make([]Decision, 0, maxAuditLog),
		stats: Stats{
			LabelCounts: make(map[Label]int64),
			RuleCounts:  make(map[string]int64),
		},
	}
}

// Classify maps message text to a provider label and records the
// decision. Classification itself is pure; only the audit log mutates.
func (c *Classifier) Classify(text string) (Label, Decision) {
	d := Decision{
		RequestID:   uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		QueryLength: len(text),
		Label:       DefaultLabel,
	}

	lower := strings.ToLower(text)
	for _, r := range rules {
		d.RulesEvaluated = append(d.RulesEvaluated, r.name)
		if kw, ok := firstHit(lower, r.keywords); ok {
			d.RuleMatched = r.name
			d.KeywordHit = kw
			d.Label = r.label
			d.Reasoning = "keyword '" + kw + "' matched rule " + r.name
			break
		}
	}
	if d.RuleMatched == "" {
		d.Reasoning = "no rule matched, using default"
	}

	c.record(d)

	c.logger.Debug("message classified",
		"request_id", d.RequestID,
		"label", string(d.Label),
		"reasoning", d.Reasoning,
	)

	return d.Label, d
}

func firstHit(lower string, keywords []string) (string, bool) {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return k, true
		}
	}
	return "", false
}

func (c *Classifier) record(d Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.auditLog) >= c.maxAuditLog {
		c.auditLog = c.auditLog[1:]
	}
	c.auditLog = append(c.auditLog, d)

	c.stats.TotalRequests++
	c.stats.LabelCounts[d.Label]++
	if d.RuleMatched != "" {
		c.stats.RuleCounts[d.RuleMatched]++
	}
}

// Audit returns up to limit most recent decisions, oldest first.
func (c *Classifier) Audit(limit int) []Decision {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 || limit > len(c.auditLog) {
		limit = len(c.auditLog)
	}
	start := len(c.auditLog) - limit
	result := make([]Decision, limit)
	copy(result, c.auditLog[start:])
	return result
}

// GetStats returns a copy of the running statistics.
func (c *Classifier) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := Stats{
		TotalRequests: c.stats.TotalRequests,
		LabelCounts:   make(map[Label]int64, len(c.stats.LabelCounts)),
		RuleCounts:    make(map[string]int64, len(c.stats.RuleCounts)),
	}
	for k, v := range c.stats.LabelCounts {
		out.LabelCounts[k] = v
	}
	for k, v := range c.stats.RuleCounts {
		out.RuleCounts[k] = v
	}
	return out
}

// Explain returns the recorded decision for a request ID, or nil if it
// has aged out of the audit log.
func (c *Classifier) Explain(requestID string) *Decision {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.auditLog) - 1; i >= 0; i-- {
		if c.auditLog[i].RequestID == requestID {
			d := c.auditLog[i]
			return &d
		}
	}
	return nil
}
