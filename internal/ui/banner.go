package ui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fatih/color"
)

var (
	brandPinkRed = color.RGB(219, 39, 119).Add(color.Bold).SprintFunc()
	whiteDim     = color.New(color.Faint).SprintFunc()

	pseudoVersionPattern = regexp.MustCompile(`^(v?\d+\.\d+\.\d+)-0\.\d{14}-[a-f0-9]{12}$`)
)

func GenerateBanner(version, commit string) string {
	line1 := fmt.Sprintf("█░█ █▄░█ █▀▄▀█ █░█ ▀█▀ █▀▀ ▀▄▀\tFrom SafeDep %s", whiteDim("(github.com/safedep/unmutex)"))
	line2 := "█▄█ █░▀█ █░▀░█ █▄█ ░█░ ██▄ █░█"

	text := "\n" + line1 + "\n" + line2

	if len(commit) >= 6 {
		commit = commit[:6]
	}

	return fmt.Sprintf("%s 	%s: %s %s: %s \n\n", brandPinkRed(text),
		whiteDim("version"), Colors.Bold(cleanVersion(version)),
		whiteDim("commit"), Colors.Bold(commit),
	)
}

// cleanVersion removes pseudo-version timestamps and build metadata.
// Versions like v1.2.3-alpha.1 are kept as-is.
func cleanVersion(version string) string {
	if version == "" {
		return version
	}

	version = strings.Split(version, "+")[0]

	if matches := pseudoVersionPattern.FindStringSubmatch(version); len(matches) > 1 {
		return matches[1]
	}

	return version
}
