package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// JobFile is a YAML description of a draft submission. Relative file paths
// are resolved against the directory of the job file.
//
//	notebooks: [train.ipynb]
//	image: bruno1996/cc_jupyterservice_base_image
//	gpus: [4096]
//	requirements: requirements.txt
//	externalData:
//	  - name: input_file
//	    type: File
//	    connector: SSH
//	    host: data.example.org
//	    path: /srv/data/train.csv
//	    username: alice
//	  - name: learning_rate
//	    type: Float
//	    value: 0.01
type JobFile struct {
	Notebooks    []string           `yaml:"notebooks"`
	Image        string             `yaml:"image,omitempty"`
	CustomImage  string             `yaml:"customImage,omitempty"`
	GPUs         []int              `yaml:"gpus,omitempty"`
	Requirements string             `yaml:"requirements,omitempty"`
	ExternalData []ExternalDataSpec `yaml:"externalData,omitempty"`
}

// ExternalDataSpec is one external data binding of a job file.
type ExternalDataSpec struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type,omitempty"`
	Connector string `yaml:"connector,omitempty"`
	Host      string `yaml:"host,omitempty"`
	Path      string `yaml:"path,omitempty"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
	Mount     bool   `yaml:"mount,omitempty"`
	Value     any    `yaml:"value,omitempty"`
}

// LoadJobFile reads and parses a YAML job file. A file without notebooks is
// valid; notebooks may be given separately.
func LoadJobFile(path string) (*JobFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var job JobFile
	if err := yaml.Unmarshal(content, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job file %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i, nb := range job.Notebooks {
		job.Notebooks[i] = resolve(base, nb)
	}
	if job.Requirements != "" {
		job.Requirements = resolve(base, job.Requirements)
	}
	return &job, nil
}

// SaveJobFile writes job as YAML.
func SaveJobFile(path string, job *JobFile) error {
	data, err := yaml.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job file: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write job file: %w", err)
	}
	return nil
}

// ValueString renders the YAML value for the draft's text setters.
func (s ExternalDataSpec) ValueString() string {
	if s.Value == nil {
		return ""
	}
	return fmt.Sprint(s.Value)
}

func resolve(base, p string) string {
	p = ExpandHome(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
