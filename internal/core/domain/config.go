package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultTemperature      = 1.1
	DefaultTopP             = 1.0
	DefaultPresencePenalty  = 0.0
	DefaultFrequencyPenalty = 0.0
	DefaultMaxTokens        = 250

	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0
	MinPenalty     = -2.0
	MaxPenalty     = 2.0
	MinMaxTokens   = 1
	MaxMaxTokens   = 500
)

// GenerationConfig holds the sampling parameters of a conversation. Values are always within range.
type GenerationConfig struct {
	Temperature      float64
	TopP             float64
	PresencePenalty  float64
	FrequencyPenalty float64
	MaxTokens        int
}

// RawConfig is untrusted user input, one optional string per parameter.
type RawConfig struct {
	Temperature      *string
	TopP             *string
	PresencePenalty  *string
	FrequencyPenalty *string
	MaxTokens        *string
}

func DefaultConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:      DefaultTemperature,
		TopP:             DefaultTopP,
		PresencePenalty:  DefaultPresencePenalty,
		FrequencyPenalty: DefaultFrequencyPenalty,
		MaxTokens:        DefaultMaxTokens,
	}
}

// ParseConfig clamps every present, numeric field into its range. Absent or malformed fields use their
// default; parsing never fails.
func ParseConfig(raw RawConfig) GenerationConfig {
	return GenerationConfig{
		Temperature:      parseFloat(raw.Temperature, DefaultTemperature, MinTemperature, MaxTemperature),
		TopP:             parseFloat(raw.TopP, DefaultTopP, MinTopP, MaxTopP),
		PresencePenalty:  parseFloat(raw.PresencePenalty, DefaultPresencePenalty, MinPenalty, MaxPenalty),
		FrequencyPenalty: parseFloat(raw.FrequencyPenalty, DefaultFrequencyPenalty, MinPenalty, MaxPenalty),
		MaxTokens:        parseInt(raw.MaxTokens, DefaultMaxTokens, MinMaxTokens, MaxMaxTokens),
	}
}

// Encode returns the canonical string form stored on the anchor record.
func (c GenerationConfig) Encode() string {
	return "temperature:" + formatFloat(c.Temperature) +
		",top_p:" + formatFloat(c.TopP) +
		",presence_penalty:" + formatFloat(c.PresencePenalty) +
		",frequency_penalty:" + formatFloat(c.FrequencyPenalty) +
		",max_tokens:" + strconv.Itoa(c.MaxTokens)
}

func (c GenerationConfig) String() string {
	return c.Encode()
}

var configPattern = regexp.MustCompile(`^temperature:(-?\d+(?:\.\d+)?),` +
	`top_p:(-?\d+(?:\.\d+)?),` +
	`presence_penalty:(-?\d+(?:\.\d+)?),` +
	`frequency_penalty:(-?\d+(?:\.\d+)?),` +
	`max_tokens:(-?\d+)$`)

// DecodeConfig parses the canonical form. Anything else yields the default config.
func DecodeConfig(s string) GenerationConfig {
	m := configPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return DefaultConfig()
	}

	return ParseConfig(RawConfig{
		Temperature:      &m[1],
		TopP:             &m[2],
		PresencePenalty:  &m[3],
		FrequencyPenalty: &m[4],
		MaxTokens:        &m[5],
	})
}

func parseNumber(raw *string) (float64, bool) {
	if raw == nil {
		return 0, false
	}

	s := strings.TrimSpace(*raw)
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}

func parseFloat(raw *string, def, lo, hi float64) float64 {
	v, ok := parseNumber(raw)
	if !ok {
		return def
	}

	return math.Max(lo, math.Min(v, hi))
}

func parseInt(raw *string, def, lo, hi int) int {
	v, ok := parseNumber(raw)
	if !ok {
		return def
	}

	v = math.Max(float64(lo), math.Min(math.Trunc(v), float64(hi)))
	return int(v)
}

// formatFloat uses the shortest decimal that parses back to the same value.
func formatFloat(v float64) string {
	if v == 0 {
		// normalizes -0
		return "0"
	}

	return strconv.FormatFloat(v, 'f', -1, 64)
}
