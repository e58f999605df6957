package domain

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxModerationChars bounds the text sent to the moderation backend. The tail is kept.
const MaxModerationChars = 500

const (
	CategoryHate            = "hate"
	CategoryHateThreatening = "hate/threatening"
	CategorySelfHarm        = "self-harm"
	CategorySexual          = "sexual"
	CategorySexualMinors    = "sexual/minors"
	CategoryViolence        = "violence"
	CategoryViolenceGraphic = "violence/graphic"
)

// ModerationScores maps a category to its score in [0,1].
type ModerationScores map[string]float64

// Thresholds maps a category to the score it has to exceed.
type Thresholds map[string]float64

func DefaultBlockThresholds() Thresholds {
	return Thresholds{
		CategoryHate:            0.5,
		CategoryHateThreatening: 0.4,
		CategorySelfHarm:        0.2,
		CategorySexual:          0.5,
		CategorySexualMinors:    0.2,
		CategoryViolence:        0.95,
		CategoryViolenceGraphic: 0.95,
	}
}

func DefaultFlagThresholds() Thresholds {
	return Thresholds{
		CategoryHate:            0.4,
		CategoryHateThreatening: 0.2,
		CategorySelfHarm:        0.1,
		CategorySexual:          0.3,
		CategorySexualMinors:    0.1,
		CategoryViolence:        0.5,
		CategoryViolenceGraphic: 0.5,
	}
}

// Exceeded returns the categories of scores strictly above their threshold, sorted by name.
func (t Thresholds) Exceeded(scores ModerationScores) []CategoryScore {
	var out []CategoryScore
	for category, limit := range t {
		score, ok := scores[category]
		if ok && score > limit {
			out = append(out, CategoryScore{Category: category, Score: score})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

type CategoryScore struct {
	Category string
	Score    float64
}

func (c CategoryScore) String() string {
	return fmt.Sprintf("%s(%.3f)", c.Category, c.Score)
}

// ModerationVerdict lists the categories crossing the block and flag tables. A category crossing its block
// threshold is reported as blocked only.
type ModerationVerdict struct {
	Blocked []CategoryScore
	Flagged []CategoryScore
}

// Classify applies both threshold tables to scores.
func Classify(scores ModerationScores, block, flag Thresholds) ModerationVerdict {
	v := ModerationVerdict{Blocked: block.Exceeded(scores)}

	blocked := make(map[string]struct{}, len(v.Blocked))
	for _, c := range v.Blocked {
		blocked[c.Category] = struct{}{}
	}

	for _, c := range flag.Exceeded(scores) {
		if _, ok := blocked[c.Category]; !ok {
			v.Flagged = append(v.Flagged, c)
		}
	}

	return v
}

func (v ModerationVerdict) IsBlocked() bool {
	return len(v.Blocked) > 0
}

func (v ModerationVerdict) IsFlagged() bool {
	return !v.IsBlocked() && len(v.Flagged) > 0
}

func (v ModerationVerdict) BlockedText() string {
	return joinScores(v.Blocked)
}

func (v ModerationVerdict) FlaggedText() string {
	return joinScores(v.Flagged)
}

func joinScores(scores []CategoryScore) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = s.String()
	}

	return strings.Join(parts, ", ")
}

// ModerationTail returns the last MaxModerationChars runes of text.
func ModerationTail(text string) string {
	i := 0
	for skip := utf8.RuneCountInString(text) - MaxModerationChars; skip > 0; skip-- {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}

	return text[i:]
}

// AuditKind tells whether content was only flagged or withheld.
type AuditKind string

const (
	AuditFlagged AuditKind = "flagged"
	AuditBlocked AuditKind = "blocked"
)

// AuditSource names where moderated content came from.
type AuditSource string

const (
	SourceInput        AuditSource = "input"
	SourceResponse     AuditSource = "response"
	SourceInstructions AuditSource = "instructions"
	SourceVisualize    AuditSource = "visualize"
)
