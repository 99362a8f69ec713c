package common

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Repeater decides whether a sender performs another run. With a fixed number
// of runs it counts them, otherwise it asks on its input after every run.
type Repeater struct {
	runs    int
	scanner *bufio.Scanner
	out     io.Writer
}

func NewRepeater(runs int, in io.Reader, out io.Writer) *Repeater {
	return &Repeater{
		runs:    runs,
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Again is called after run completed. Closed input ends the runs.
func (r *Repeater) Again(run int) bool {
	if r.runs > 0 {
		return run < r.runs
	}

	for {
		fmt.Fprint(r.out, "Do you want to send the file again? (y/n): ")
		if !r.scanner.Scan() {
			fmt.Fprintln(r.out)
			return false
		}

		switch strings.ToLower(strings.TrimSpace(r.scanner.Text())) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		default:
			fmt.Fprintln(r.out, "Invalid input. Please enter 'y' for yes or 'n' for no.")
		}
	}
}
