// Package inference guesses external data bindings from the parameters cell
// of a notebook.
package inference

import (
	"encoding/json"
	"strings"

	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

type rule struct {
	substr    string
	inputType models.InputType
	connector models.ConnectorType
}

// Checked in order, first match wins.
var rules = []rule{
	{"file", models.InputTypeFile, models.ConnectorSSH},
	{"dir", models.InputTypeDirectory, models.ConnectorSSH},
	{"str", models.InputTypeString, models.ConnectorNone},
	{"num", models.InputTypeInteger, models.ConnectorNone},
	{"rate", models.InputTypeFloat, models.ConnectorNone},
}

type notebook struct {
	Cells []cell `json:"cells"`
}

type cell struct {
	Metadata struct {
		Tags []string `json:"tags"`
	} `json:"metadata"`
	Source json.RawMessage `json:"source"`
}

// Infer scans every cell tagged "parameters" and returns one entry per
// parameter line. Malformed documents yield no entries rather than an error.
func Infer(raw json.RawMessage) []models.ExternalDataEntry {
	var nb notebook
	if err := json.Unmarshal(raw, &nb); err != nil {
		// Structure differs from what we expect, e.g. "cells" is not an array.
		// Fall back to a cell-by-cell decode so one bad cell does not hide others.
		return inferLoose(raw)
	}

	var entries []models.ExternalDataEntry
	for _, c := range nb.Cells {
		entries = append(entries, inferCell(c)...)
	}
	return entries
}

func inferLoose(raw json.RawMessage) []models.ExternalDataEntry {
	var doc struct {
		Cells []json.RawMessage `json:"cells"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	var entries []models.ExternalDataEntry
	for _, rc := range doc.Cells {
		var c cell
		if err := json.Unmarshal(rc, &c); err != nil {
			continue
		}
		entries = append(entries, inferCell(c)...)
	}
	return entries
}

func inferCell(c cell) []models.ExternalDataEntry {
	if !hasTag(c.Metadata.Tags, constants.ParametersTag) {
		return nil
	}
	var entries []models.ExternalDataEntry
	for _, line := range sourceLines(c.Source) {
		name := Identifier(line)
		if name == "" {
			continue
		}
		entries = append(entries, Guess(name))
	}
	return entries
}

// Guess builds an entry for a parameter name using the ordered rule list.
func Guess(name string) models.ExternalDataEntry {
	entry := models.ExternalDataEntry{InputName: models.StringPtr(name)}
	lower := strings.ToLower(name)
	for _, r := range rules {
		if strings.Contains(lower, r.substr) {
			entry.InputType = r.inputType
			entry.ConnectorType = r.connector
			break
		}
	}
	return entry
}

// Identifier returns the parameter name declared by a source line: the token
// before the first whitespace. Blank and comment lines yield "".
func Identifier(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		line = line[:i]
	}
	return line
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// sourceLines accepts the two notebook encodings of cell source: a single
// string or a list of strings.
func sourceLines(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.Split(text, "\n")
	}
	var parts []string
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil
	}
	var lines []string
	for _, p := range parts {
		lines = append(lines, strings.Split(p, "\n")...)
	}
	return lines
}
