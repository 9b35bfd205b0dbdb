// Package prompt asks the user to pick one of several candidates.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoSelection is returned when input ends before a valid choice.
var ErrNoSelection = errors.New("no selection made")

// Select prints items as a numbered list and reads choices from in until one
// is valid. It returns the zero-based index of the chosen item.
func Select(in io.Reader, out io.Writer, label string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, ErrNoSelection
	}

	fmt.Fprintln(out, label)
	for i, item := range items {
		fmt.Fprintf(out, "  %d) %s\n", i+1, item)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "Select [1-%d]: ", len(items))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			if err := scanner.Err(); err != nil {
				return -1, fmt.Errorf("failed to read selection: %w", err)
			}
			return -1, ErrNoSelection
		}

		n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || n < 1 || n > len(items) {
			fmt.Fprintf(out, "Please enter a number between 1 and %d.\n", len(items))
			continue
		}
		return n - 1, nil
	}
}
