package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Line asks questions as numbered text prompts on any reader and writer.
type Line struct {
	in  *bufio.Reader
	out io.Writer
}

var _ Prompt = (*Line)(nil)

// NewLine returns a Line reading answers from in and writing to out.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

func (l *Line) readLine() (string, error) {
	s, err := l.in.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		if err == io.EOF {
			return "", ErrCanceled
		}
		return "", fmt.Errorf("prompt: read answer: %w", err)
	}
	return strings.TrimSpace(s), nil
}

// Confirm implements Prompt. It asks again until the answer is y or n.
func (l *Line) Confirm(question string) (bool, error) {
	for {
		fmt.Fprintf(l.out, "%s (y/n): ", question)
		ans, err := l.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(ans) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(l.out, "Please answer y or n.")
	}
}

// Select implements Prompt. Options are numbered from 1.
func (l *Line) Select(title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("prompt: %s: nothing to choose from", title)
	}
	for {
		fmt.Fprintln(l.out, title)
		for i, opt := range options {
			fmt.Fprintf(l.out, "  %d) %s\n", i+1, opt)
		}
		fmt.Fprintf(l.out, "Choose 1-%d: ", len(options))

		ans, err := l.readLine()
		if err != nil {
			return -1, err
		}
		n, err := strconv.Atoi(ans)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(l.out, "%q is not a valid choice.\n", ans)
	}
}

// Path implements Prompt. Blank answers are asked again.
func (l *Line) Path(question string) (string, error) {
	for {
		fmt.Fprintf(l.out, "%s: ", question)
		ans, err := l.readLine()
		if err != nil {
			return "", err
		}
		if ans = strings.Trim(ans, `"'`); ans != "" {
			return ans, nil
		}
	}
}
