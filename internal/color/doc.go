// Package color holds the terminal palette of mcpe2e.
//
// Colors are adaptive: lipgloss picks the light or dark variant depending on
// the terminal background, and drops color entirely when the output is not a
// terminal or NO_COLOR is set.
//
// # Usage Example
//
//	color.Initialize(lipgloss.HasDarkBackground())
//	fmt.Println(color.PassStyle.Render("PASS"))
package color
