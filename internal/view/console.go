package view

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

// Console is a non-interactive results view. Every rebuild prints a fresh
// table, so the output doubles as a change log when watching.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	loc     *time.Location
	now     func() time.Time
	loading bool
	renders int
}

// NewConsole creates a console view writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out, loc: time.Local, now: time.Now}
}

// Clear starts a new rebuild.
func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.renders > 0 {
		fmt.Fprintln(c.out)
	}
}

func (c *Console) ShowLoading() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = true
	fmt.Fprintln(c.out, MutedStyle.Render("Loading results..."))
}

func (c *Console) HideLoading() {
	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()
}

// Render prints the result table with a timestamp.
func (c *Console) Render(results []models.ResultEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renders++
	fmt.Fprintf(c.out, "%s %s\n", TitleStyle.Render("Results"), LabelStyle.Render(c.now().In(c.loc).Format(TimeFormat)))
	fmt.Fprint(c.out, Results(ResultRows(results, c.loc)))
}

// Renders returns how often the table was printed.
func (c *Console) Renders() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renders
}
