package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"vkgeo/pkg/export"
	"vkgeo/pkg/geo"
)

// ASCIILogo is printed by interactive commands
const ASCIILogo = `
    ╔════════════════════════════════════════════╗
    ║ ██╗   ██╗██╗  ██╗ ██████╗ ███████╗ ██████╗ ║
    ║ ██║   ██║██║ ██╔╝██╔════╝ ██╔════╝██╔═══██╗║
    ║ ██║   ██║█████╔╝ ██║  ███╗█████╗  ██║   ██║║
    ║ ╚██╗ ██╔╝██╔═██╗ ██║   ██║██╔══╝  ██║   ██║║
    ║  ╚████╔╝ ██║  ██╗╚██████╔╝███████╗╚██████╔╝║
    ║   ╚═══╝  ╚═╝  ╚═╝ ╚═════╝ ╚══════╝ ╚═════╝ ║
    ║      GEOTAGGED PHOTO LOCATOR FOR VK        ║
    ╚════════════════════════════════════════════╝
`

// colorEnabled is false when stdout is not a terminal or NO_COLOR is set
var colorEnabled = os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stdout.Fd()))

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// SetColor forces colored output on or off
func SetColor(enabled bool) {
	colorEnabled = enabled
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Print(Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(os.Stderr, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}

// PrintRecords writes a numbered table of records; the number is the index
// accepted by detail lookups
func PrintRecords(w io.Writer, records []geo.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLAT\tLONG\tCREATED (UTC)\tDESCRIPTION")
	for i, r := range records {
		fmt.Fprintf(tw, "%d\t%.6f\t%.6f\t%s\t%s\n",
			i,
			r.Latitude(),
			r.Longitude(),
			r.CreatedAt().Format("2006-01-02 15:04:05"),
			export.Truncate(r.Description(), 40),
		)
	}
	tw.Flush()
}

// PrintRecordDetail writes the full detail of one record
func PrintRecordDetail(w io.Writer, index int, r geo.Record) {
	fmt.Fprintf(w, "%s %d\n", Magenta("Location"), index)
	fmt.Fprintf(w, "  %s %.6f, %.6f\n", Cyan("coordinates:"), r.Latitude(), r.Longitude())
	fmt.Fprintf(w, "  %s %s\n", Cyan("created:"), r.CreatedAt().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  %s %s\n", Cyan("photo:"), r.SourceURL())
	fmt.Fprintf(w, "  %s %s\n", Cyan("link:"), r.ProfileLink())
	if desc := strings.TrimSpace(r.Description()); desc != "" {
		fmt.Fprintf(w, "  %s %s\n", Cyan("description:"), desc)
	}
}
