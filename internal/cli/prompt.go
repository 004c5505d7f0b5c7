package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/curious-containers/cc-jupyter-cli/internal/util/sanitize"
)

// prompter reads answers for interactive setup.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	// readSecret reads a line without echo; nil falls back to in.
	readSecret func() (string, error)
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.readSecret = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			return string(b), err
		}
	}
	return p
}

// line asks for a value; an empty answer keeps def.
func (p *prompter) line(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	return p.read(def)
}

func (p *prompter) read(def string) (string, error) {
	input, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	if input = sanitize.Field(input); input == "" {
		return def, nil
	}
	return input, nil
}

// secret asks for a value without echo. An empty answer keeps def.
func (p *prompter) secret(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [keep current]: ", label)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	if p.readSecret == nil {
		return p.read(def)
	}
	value, err := p.readSecret()
	if err != nil {
		return "", err
	}
	if value = sanitize.Token(value); value == "" {
		return def, nil
	}
	return value, nil
}

// confirm asks a yes/no question.
func (p *prompter) confirm(label string) (bool, error) {
	answer, err := p.line(label+" [y/N]", "")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// maskSecret shows the first and last characters of a credential.
func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return s[:4] + "..." + s[len(s)-4:]
	}
}
