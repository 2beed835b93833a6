package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII banner shown by interactive commands.
func PrintBanner() {
	p := termenv.ColorProfile()
	lines := []string{
		`  ____            _            `,
		` |  _ \ __ _ _ __| | ___ _   _ `,
		` | |_) / _' | '__| |/ _ \ | | |`,
		` |  __/ (_| | |  | |  __/ |_| |`,
		` |_|   \__,_|_|  |_|\___|\__, |`,
		`                         |___/ `,
	}
	colors := []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6", "#fb7185"}

	fmt.Println()
	for i, line := range lines {
		fmt.Println(termenv.String(line).Foreground(p.Color(colors[i])))
	}
	fmt.Println()
}
