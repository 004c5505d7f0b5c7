// Package models defines the data structures exchanged with the notebook service
// and held in a draft job configuration.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// InputType is the declared type of an external data binding.
// The empty value means "not chosen yet" and is serialized as JSON null.
type InputType string

const (
	InputTypeNone      InputType = ""
	InputTypeFile      InputType = "File"
	InputTypeDirectory InputType = "Directory"
	InputTypeString    InputType = "String"
	InputTypeInteger   InputType = "Integer"
	InputTypeFloat     InputType = "Float"
)

// InputTypes lists the selectable input types in display order.
var InputTypes = []InputType{InputTypeFile, InputTypeDirectory, InputTypeString, InputTypeInteger, InputTypeFloat}

// ParseInputType converts user input into an InputType.
func ParseInputType(s string) (InputType, error) {
	if s == "" || s == "null" {
		return InputTypeNone, nil
	}
	for _, t := range InputTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return InputTypeNone, fmt.Errorf("unknown input type %q", s)
}

// IsRemote reports whether the type is bound through a connector.
func (t InputType) IsRemote() bool {
	return t == InputTypeFile || t == InputTypeDirectory
}

// IsLiteral reports whether the type carries an inline value.
func (t InputType) IsLiteral() bool {
	return t == InputTypeString || t == InputTypeInteger || t == InputTypeFloat
}

func (t InputType) MarshalJSON() ([]byte, error) {
	if t == InputTypeNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

func (t *InputType) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*t = InputTypeNone
		return nil
	}
	*t = InputType(*s)
	return nil
}

// ConnectorType selects how a File or Directory input is fetched.
type ConnectorType string

const (
	ConnectorNone ConnectorType = ""
	ConnectorSSH  ConnectorType = "SSH"
)

// ParseConnectorType converts user input into a ConnectorType.
func ParseConnectorType(s string) (ConnectorType, error) {
	switch s {
	case "", "null":
		return ConnectorNone, nil
	case string(ConnectorSSH):
		return ConnectorSSH, nil
	}
	return ConnectorNone, fmt.Errorf("unknown connector type %q", s)
}

func (c ConnectorType) MarshalJSON() ([]byte, error) {
	if c == ConnectorNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

func (c *ConnectorType) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*c = ConnectorNone
		return nil
	}
	*c = ConnectorType(*s)
	return nil
}

// NotebookEntry is one loaded notebook document.
// ID is a client-side identifier and never leaves the process.
type NotebookEntry struct {
	ID       string          `json:"-"`
	Data     json.RawMessage `json:"data"`
	Filename string          `json:"filename"`
}

// RequirementsEntry is an optional python requirements file.
type RequirementsEntry struct {
	Data     string `json:"data"`
	Filename string `json:"filename"`
}

// DependenciesSelection chooses the runtime image. Custom selects which of
// PredefinedImage and CustomImage is authoritative.
type DependenciesSelection struct {
	Custom          bool   `json:"custom"`
	PredefinedImage string `json:"predefinedImage"`
	CustomImage     string `json:"customImage"`
}

// Image returns the authoritative image name.
func (d DependenciesSelection) Image() string {
	if d.Custom {
		return d.CustomImage
	}
	return d.PredefinedImage
}

// GpuRequirement is the VRAM (MB) of one requested GPU.
type GpuRequirement struct {
	ID   string
	VRAM int
}

// ExternalDataEntry binds a notebook parameter to a value or a remote source.
type ExternalDataEntry struct {
	ID            string        `json:"-"`
	InputName     *string       `json:"inputName"`
	InputType     InputType     `json:"inputType"`
	ConnectorType ConnectorType `json:"connectorType"`
	Host          *string       `json:"host"`
	Path          *string       `json:"path"`
	Username      *string       `json:"username"`
	Password      *string       `json:"password"`
	Mount         bool          `json:"mount"`
	Value         any           `json:"value"`
}

// Name returns the input name or "" when unset.
func (e ExternalDataEntry) Name() string {
	return deref(e.InputName)
}

// Clone returns a deep copy of the entry.
func (e ExternalDataEntry) Clone() ExternalDataEntry {
	out := e
	out.InputName = cloneString(e.InputName)
	out.Host = cloneString(e.Host)
	out.Path = cloneString(e.Path)
	out.Username = cloneString(e.Username)
	out.Password = cloneString(e.Password)
	return out
}

// ValueString renders Value for display and editing.
func (e ExternalDataEntry) ValueString() string {
	switch v := e.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// JobSubmission is the body POSTed to executeNotebook.
type JobSubmission struct {
	JupyterNotebooks   []NotebookEntry       `json:"jupyterNotebooks"`
	Dependencies       DependenciesSelection `json:"dependencies"`
	PythonRequirements *RequirementsEntry    `json:"pythonRequirements"`
	GpuRequirements    []int                 `json:"gpuRequirements"`
	ExternalData       []ExternalDataEntry   `json:"externalData"`
}

// CancelRequest is the body of a cancel_notebook request.
type CancelRequest struct {
	NotebookID string `json:"notebookId"`
}

// PredefinedImage is one entry of predefined_docker_images.
type PredefinedImage struct {
	Name string `json:"name"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
