package draft

import (
	"errors"
	"fmt"
	"strings"

	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

// Validation errors
var (
	ErrNoNotebooks       = errors.New("please add at least one notebook")
	ErrNoImage           = errors.New("no docker image selected")
	ErrMissingInputName  = errors.New("input name is required")
	ErrMissingInputType  = errors.New("input type is required")
	ErrMissingConnection = errors.New("host, path and username are required")
	ErrMissingValue      = errors.New("value is required")
)

// Validate checks required fields only. It returns the first problem found.
func (m *Model) Validate() error {
	sub := m.BuildSubmissionPayload()

	if len(sub.JupyterNotebooks) == 0 {
		return ErrNoNotebooks
	}
	if strings.TrimSpace(sub.Dependencies.Image()) == "" {
		if sub.Dependencies.Custom {
			return fmt.Errorf("custom image: %w", ErrNoImage)
		}
		return fmt.Errorf("predefined image: %w", ErrNoImage)
	}
	for i, e := range sub.ExternalData {
		if err := validateEntry(e); err != nil {
			name := e.Name()
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return fmt.Errorf("external data %s: %w", name, err)
		}
	}
	return nil
}

func validateEntry(e models.ExternalDataEntry) error {
	if strings.TrimSpace(e.Name()) == "" {
		return ErrMissingInputName
	}
	switch {
	case e.InputType == models.InputTypeNone:
		return ErrMissingInputType
	case e.InputType.IsRemote():
		if e.ConnectorType == models.ConnectorNone {
			return fmt.Errorf("connector type: %w", ErrMissingInputType)
		}
		if blank(e.Host) || blank(e.Path) || blank(e.Username) {
			return ErrMissingConnection
		}
	case e.InputType.IsLiteral():
		if e.Value == nil {
			return ErrMissingValue
		}
	}
	return nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
