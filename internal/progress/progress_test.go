package progress

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSingleDownloadPassesDataThrough(t *testing.T) {
	var out bytes.Buffer
	wrap := SingleDownload(&out)

	r := wrap("n1", "a.ipynb", 11, strings.NewReader("hello world"))
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("data = %q", data)
	}
	if !strings.Contains(out.String(), "Downloading a.ipynb") {
		t.Errorf("bar output = %q", out.String())
	}
}

func TestDownloadUINonTerminal(t *testing.T) {
	var out bytes.Buffer
	ui := newDownloadUI(2, &out, false)

	r := ui.Wrap("n1", "a.ipynb", 3, strings.NewReader("abc"))
	if data, _ := io.ReadAll(r); string(data) != "abc" {
		t.Errorf("data = %q", data)
	}
	ui.Complete("n1", "/tmp/a.ipynb", nil)

	ui.Wrap("n2", "b.ipynb", -1, strings.NewReader(""))
	ui.Complete("n2", "", errors.New("disk full"))
	ui.Complete("unknown", "", nil)
	ui.Wait()

	got := out.String()
	for _, want := range []string{"Downloading [1/2]: a.ipynb", "✓ a.ipynb → /tmp/a.ipynb", "Downloading [2/2]: b.ipynb", "✗ b.ipynb: disk full"} {
		if !strings.Contains(got, want) {
			t.Errorf("output is missing %q:\n%s", want, got)
		}
	}
	if ui.Completed() != 2 {
		t.Errorf("Completed() = %d, want 2", ui.Completed())
	}
}

func TestTruncatePath(t *testing.T) {
	if got := truncatePath("/a/b/c/file.ipynb", 2); got != "…/c/file.ipynb" {
		t.Errorf("truncatePath() = %q", got)
	}
	if got := truncatePath("file.ipynb", 2); got != "file.ipynb" {
		t.Errorf("truncatePath() = %q", got)
	}
}
