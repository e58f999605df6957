package domain

import "strings"

const (
	AnchorVersionLegacy  = 1
	AnchorVersionCurrent = 2

	AnchorFieldBackstory    = "Backstory"
	AnchorFieldPreprompt    = "Preprompt"
	AnchorFieldInstructions = "Instructions"
	AnchorFieldCharacter    = "Character"

	anchorFooterPrefix = "v2 "
)

// AnchorRecord is the persisted state of a conversation, stored on the message that opens its thread.
type AnchorRecord struct {
	Version      int
	Author       string
	Instructions string
	// Preprompt is nil on legacy anchors, which predate the preprompt menu.
	Preprompt *string
	Config    GenerationConfig
}

// AnchorField is a named value on the anchor message.
type AnchorField struct {
	Name  string
	Value string
}

// AnchorFields is the platform-neutral layout of an anchor message.
type AnchorFields struct {
	Fields []AnchorField
	Footer string
}

// AnchorPost is an anchor record as posted on behalf of a user.
type AnchorPost struct {
	UserID  string
	Record  AnchorRecord
	Flagged bool
}

// NewAnchor builds a current-version anchor record.
func NewAnchor(author, instructions, preprompt string, config GenerationConfig) AnchorRecord {
	return AnchorRecord{
		Version:      AnchorVersionCurrent,
		Author:       author,
		Instructions: instructions,
		Preprompt:    &preprompt,
		Config:       config,
	}
}

// Fields lays the record out as always in the current version.
func (a AnchorRecord) Fields() AnchorFields {
	preprompt := ""
	if a.Preprompt != nil {
		preprompt = *a.Preprompt
	}

	character := AnchorFieldCharacter
	if a.Author != "" {
		character += " by " + a.Author
	}

	return AnchorFields{
		Fields: []AnchorField{
			{Name: AnchorFieldPreprompt, Value: preprompt},
			{Name: character, Value: a.Instructions},
		},
		Footer: anchorFooterPrefix + a.Config.Encode(),
	}
}

// DecodeAnchor reads a record by field name. Fields that are missing take their defaults; a layout carrying
// no instructions at all is not an anchor.
func DecodeAnchor(f AnchorFields) (AnchorRecord, error) {
	record := AnchorRecord{Version: AnchorVersionLegacy, Config: DefaultConfig()}
	found := false

	for _, field := range f.Fields {
		switch {
		case field.Name == AnchorFieldPreprompt || field.Name == AnchorFieldInstructions:
			v := field.Value
			record.Preprompt = &v
		case strings.HasPrefix(field.Name, AnchorFieldCharacter):
			record.Instructions = field.Value
			record.Author = strings.TrimSpace(strings.TrimPrefix(
				strings.TrimPrefix(field.Name, AnchorFieldCharacter), " by"))
			found = true
		case field.Name == AnchorFieldBackstory && !found:
			record.Instructions = field.Value
			found = true
		}
	}

	if !found {
		return AnchorRecord{}, ErrNotAnchor
	}

	if encoded, ok := strings.CutPrefix(f.Footer, anchorFooterPrefix); ok {
		record.Version = AnchorVersionCurrent
		record.Config = DecodeConfig(encoded)
	} else if f.Footer != "" {
		record.Config = DecodeConfig(f.Footer)
	}

	return record, nil
}
