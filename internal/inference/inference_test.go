package inference

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

func TestInfer_ParametersCell(t *testing.T) {
	nb := `{
	  "cells": [
	    {"cell_type": "markdown", "metadata": {}, "source": ["# Title"]},
	    {"cell_type": "code", "metadata": {"tags": ["parameters"]},
	     "source": ["input_file = None", "learning_rate = 0.1"]}
	  ]
	}`

	got := Infer(json.RawMessage(nb))
	want := []models.ExternalDataEntry{
		{InputName: models.StringPtr("input_file"), InputType: models.InputTypeFile, ConnectorType: models.ConnectorSSH},
		{InputName: models.StringPtr("learning_rate"), InputType: models.InputTypeFloat},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Infer() mismatch (-want +got):\n%s", diff)
	}
}

func TestInfer_StringSourceAndNewlines(t *testing.T) {
	nb := `{"cells": [{"metadata": {"tags": ["x", "parameters"]},
	  "source": "data_dir = '/tmp'\n\n# comment\nnum_epochs = 3\nname_str = 'a'\nthreshold=2\n"}]}`

	got := Infer(json.RawMessage(nb))
	wantNames := []string{"data_dir", "num_epochs", "name_str", "threshold=2"}
	wantTypes := []models.InputType{models.InputTypeDirectory, models.InputTypeInteger, models.InputTypeString, models.InputTypeNone}

	if len(got) != len(wantNames) {
		t.Fatalf("Infer() returned %d entries, want %d: %+v", len(got), len(wantNames), got)
	}
	for i := range got {
		if got[i].Name() != wantNames[i] {
			t.Errorf("entry %d name = %q, want %q", i, got[i].Name(), wantNames[i])
		}
		if got[i].InputType != wantTypes[i] {
			t.Errorf("entry %d type = %q, want %q", i, got[i].InputType, wantTypes[i])
		}
	}
}

func TestInfer_RuleOrder(t *testing.T) {
	tests := []struct {
		name      string
		inputType models.InputType
		connector models.ConnectorType
	}{
		{"FILE_DIR", models.InputTypeFile, models.ConnectorSSH},
		{"outDir", models.InputTypeDirectory, models.ConnectorSSH},
		{"string_number", models.InputTypeString, models.ConnectorNone},
		{"NumRate", models.InputTypeInteger, models.ConnectorNone},
		{"dropout_rate", models.InputTypeFloat, models.ConnectorNone},
		{"alpha", models.InputTypeNone, models.ConnectorNone},
	}
	for _, tt := range tests {
		got := Guess(tt.name)
		if got.InputType != tt.inputType || got.ConnectorType != tt.connector {
			t.Errorf("Guess(%q) = %q/%q, want %q/%q", tt.name, got.InputType, got.ConnectorType, tt.inputType, tt.connector)
		}
	}
}

func TestInfer_MalformedNeverFails(t *testing.T) {
	docs := []string{
		`not json`,
		`{}`,
		`[]`,
		`{"cells": 5}`,
		`{"cells": [{}]}`,
		`{"cells": [{"metadata": null}]}`,
		`{"cells": [{"metadata": {"tags": "parameters"}, "source": "a_file = 1"}]}`,
		`{"cells": [{"metadata": {"tags": ["parameters"]}}]}`,
		`{"cells": [{"metadata": {"tags": ["parameters"]}, "source": 42}]}`,
	}
	for _, doc := range docs {
		if got := Infer(json.RawMessage(doc)); len(got) != 0 {
			t.Errorf("Infer(%s) = %+v, want no entries", doc, got)
		}
	}
}

func TestInfer_BadCellDoesNotHideOthers(t *testing.T) {
	doc := `{"cells": [
	  {"metadata": {"tags": "parameters"}},
	  {"metadata": {"tags": ["parameters"]}, "source": ["model_file = None"]}
	]}`
	got := Infer(json.RawMessage(doc))
	if len(got) != 1 || got[0].Name() != "model_file" {
		t.Errorf("Infer() = %+v, want one model_file entry", got)
	}
}

func TestIdentifier(t *testing.T) {
	tests := map[string]string{
		"input_file = None": "input_file",
		"  x\t= 1":          "x",
		"y=2":               "y=2",
		"lr=0.1 # rate":     "lr=0.1",
		"# note":            "",
		"   ":               "",
	}
	for in, want := range tests {
		if got := Identifier(in); got != want {
			t.Errorf("Identifier(%q) = %q, want %q", in, got, want)
		}
	}
}
