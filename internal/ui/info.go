package ui

import (
	"fmt"
	"sort"
)

// PrintInfoSection prints a formatted block of key-value information.
func PrintInfoSection(title string, entries map[string]string) {
	fmt.Println()
	fmt.Println(Colors.Cyan(title))
	fmt.Println(Colors.Normal("--------------------"))

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("%-25s: %s\n", Colors.Bold(k), entries[k])
	}
}

func PrintSetupInitInfo(configPath string, written bool) {
	if !written {
		fmt.Printf("%s %s\n", Colors.Yellow("!"), "Config file already exists, left unchanged")
		fmt.Printf("   %s\n", Colors.Dim(fmt.Sprintf("Config at:     %s", configPath)))
		return
	}

	fmt.Printf("%s %s\n", Colors.Green("✓"), "Config file created")
	fmt.Printf("   %s\n", Colors.Dim(fmt.Sprintf("Config at:     %s", configPath)))
	fmt.Printf("   %s\n", Colors.Dim("Edit it to change the default profile, count or settle delay"))
}
