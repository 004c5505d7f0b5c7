package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadJobFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.yaml")
	content := `notebooks:
  - train.ipynb
  - /abs/eval.ipynb
customImage: me/image:1
gpus: [4096, 2048]
requirements: requirements.txt
externalData:
  - name: input_file
    type: File
    connector: SSH
    host: data.example.org
    path: /srv/train.csv
    username: alice
  - name: learning_rate
    type: Float
    value: 0.01
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	job, err := LoadJobFile(path)
	if err != nil {
		t.Fatalf("LoadJobFile() error = %v", err)
	}

	want := &JobFile{
		Notebooks:    []string{filepath.Join(dir, "train.ipynb"), "/abs/eval.ipynb"},
		CustomImage:  "me/image:1",
		GPUs:         []int{4096, 2048},
		Requirements: filepath.Join(dir, "requirements.txt"),
		ExternalData: []ExternalDataSpec{
			{Name: "input_file", Type: "File", Connector: "SSH", Host: "data.example.org", Path: "/srv/train.csv", Username: "alice"},
			{Name: "learning_rate", Type: "Float", Value: 0.01},
		},
	}
	if diff := cmp.Diff(want, job); diff != "" {
		t.Errorf("job mismatch (-want +got):\n%s", diff)
	}
	if got := job.ExternalData[1].ValueString(); got != "0.01" {
		t.Errorf("ValueString() = %q, want 0.01", got)
	}
}

func TestLoadJobFile_Errors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, []byte("image: base\n"), 0644)
	if job, err := LoadJobFile(empty); err != nil || len(job.Notebooks) != 0 || job.Image != "base" {
		t.Errorf("LoadJobFile(empty) = %+v, %v", job, err)
	}

	broken := filepath.Join(dir, "broken.yaml")
	os.WriteFile(broken, []byte("notebooks: [a\n"), 0644)
	if _, err := LoadJobFile(broken); err == nil {
		t.Error("LoadJobFile(broken) should fail")
	}

	if _, err := LoadJobFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadJobFile(missing) should fail")
	}
}

func TestSaveJobFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	job := &JobFile{Notebooks: []string{"/tmp/a.ipynb"}, Image: "base", GPUs: []int{2048}}

	if err := SaveJobFile(path, job); err != nil {
		t.Fatalf("SaveJobFile() error = %v", err)
	}
	loaded, err := LoadJobFile(path)
	if err != nil {
		t.Fatalf("LoadJobFile() error = %v", err)
	}
	if diff := cmp.Diff(job, loaded); diff != "" {
		t.Errorf("job mismatch (-want +got):\n%s", diff)
	}
}
