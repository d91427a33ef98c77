package command

import (
	"log/slog"
	"sort"

	"github.com/foxseedlab/auditbot/internal/discord"
)

// Manifest is the list of commands an operator expects the bot to serve,
// usually kept next to the app registration in the Discord developer portal.
type Manifest struct {
	Commands []ManifestCommand `yaml:"commands"`
}

type ManifestCommand struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type ManifestDiff struct {
	// Missing are declared in the manifest but not served.
	Missing []string
	// Undeclared are served but absent from the manifest.
	Undeclared []string
}

func (d ManifestDiff) OK() bool {
	return len(d.Missing) == 0 && len(d.Undeclared) == 0
}

// VerifyManifest compares declared command names with the served definitions.
// Duplicate names on either side count once.
func VerifyManifest(m Manifest, defs []discord.SlashCommandDefinition) ManifestDiff {
	served := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		served[d.Name] = struct{}{}
	}
	declared := make(map[string]struct{}, len(m.Commands))
	for _, c := range m.Commands {
		declared[c.Name] = struct{}{}
	}

	var diff ManifestDiff
	for name := range declared {
		if _, ok := served[name]; !ok {
			diff.Missing = append(diff.Missing, name)
		}
	}
	for name := range served {
		if _, ok := declared[name]; !ok {
			diff.Undeclared = append(diff.Undeclared, name)
		}
	}
	sort.Strings(diff.Missing)
	sort.Strings(diff.Undeclared)
	return diff
}

// LogManifestDiff reports a mismatch without failing startup.
func LogManifestDiff(diff ManifestDiff) {
	if diff.OK() {
		slog.Info("slash command manifest verified")
		return
	}
	slog.Warn("slash command manifest mismatch", "missing", diff.Missing, "undeclared", diff.Undeclared)
}
