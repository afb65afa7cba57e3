package haunt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"chat-gamble-bot/internal/pkg/rng"
)

// Narratives are the flavor pools a resolved round draws from. Win and loss
// lines are suffixes appended to player names; sabotage lines contain a
// {player} placeholder for the saboteur.
type Narratives struct {
	Win      []string `yaml:"win"`
	Loss     []string `yaml:"loss"`
	Wipe     []string `yaml:"wipe"`
	Sabotage []string `yaml:"sabotage"`
	Jackpot  []string `yaml:"jackpot"`
}

// DefaultNarratives returns the built-in flavor text.
func DefaultNarratives() *Narratives {
	return &Narratives{
		Win: []string{
			" slipped out of the manor just before dawn. The village pays its heroes, but the Count will be back.",
		},
		Loss: []string{
			" got cornered in the kitchen by the Count. Looks like the hero was on the menu tonight.",
			" dodged the Count in the dungeon, only to walk straight into one of the traps below. Ouch.",
			" hid in the library until the shadows found fresh blood and dragged them into the dark.",
			" crawled under the bed in the master bedroom, right where the giant trapdoor spider nests.",
			" ran for the greenhouse and was swallowed whole by a flytrap the size of a carriage.",
		},
		Wipe: []string{
			"The group stormed the manor together, but the darkness was stronger and took every last one of them. The village will remember their names.",
		},
		Sabotage: []string{
			"The moment the party crossed the threshold, the Count clouded one mind. {player} came to standing over the remains of their allies, and now the reward is theirs alone. Enjoy it, killer.",
			"{player} promised to catch up in a moment. The doors slammed shut, the manor went up in flames with everyone inside, and the traitor walked off with the reward.",
		},
		Jackpot: []string{
			"Everyone made it out alive! Count Charles has been banished from his manor and the village can finally breathe. For now...",
		},
	}
}

// LoadNarratives reads a YAML narrative file. Categories missing from the
// file keep their defaults.
func LoadNarratives(path string) (*Narratives, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read narratives: %w", err)
	}

	var loaded Narratives
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse narratives: %w", err)
	}

	n := DefaultNarratives()
	if len(loaded.Win) > 0 {
		n.Win = loaded.Win
	}
	if len(loaded.Loss) > 0 {
		n.Loss = loaded.Loss
	}
	if len(loaded.Wipe) > 0 {
		n.Wipe = loaded.Wipe
	}
	if len(loaded.Sabotage) > 0 {
		n.Sabotage = loaded.Sabotage
	}
	if len(loaded.Jackpot) > 0 {
		n.Jackpot = loaded.Jackpot
	}
	return n, nil
}

func pickLine(src rng.Source, lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[rng.Pick(src, len(lines))]
}

// groupFlavor joins names as "A" or "A, B, & C" and appends the line.
func groupFlavor(names []string, line string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + line
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", & " + names[len(names)-1] + line
	}
}

// splitGroups cuts names into contiguous groups, keeping join order.
func splitGroups(names []string) [][]string {
	groups := 1
	switch {
	case len(names) >= 9:
		groups = 3
	case len(names) >= 6:
		groups = 2
	}

	out := make([][]string, 0, groups)
	size := (len(names) + groups - 1) / groups
	for start := 0; start < len(names); start += size {
		end := min(start+size, len(names))
		out = append(out, names[start:end])
	}
	return out
}

func render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
