package domain

// Preprompt is a scene-setting entry of the fixed menu offered when a chat is started.
type Preprompt struct {
	Key   string
	Label string
	Text  string
}

var Preprompts = []Preprompt{
	{Key: "actor", Label: "Actor",
		Text: "You are an actor. Follow the instructions to act out the character and the scene."},
	{Key: "assistant", Label: "AI Assistant",
		Text: "You are an AI assistant, ready to help with anything."},
	{Key: "teacher", Label: "Teacher",
		Text: "You are a teacher, you are knowledgeable on a variety of topics."},
	{Key: "dnd", Label: "Playing DnD",
		Text: "You are particpating in a dnd campaign, play your character as described below."},
	{Key: "none", Label: "No preprompt", Text: ""},
}

// DefaultPreprompt is selected when the user does not pick a menu entry.
const DefaultPreprompt = "actor"

// FindPreprompt looks up a menu entry by key, falling back to the default entry.
func FindPreprompt(key string) Preprompt {
	for _, p := range Preprompts {
		if p.Key == key {
			return p
		}
	}

	for _, p := range Preprompts {
		if p.Key == DefaultPreprompt {
			return p
		}
	}

	return Preprompt{}
}
