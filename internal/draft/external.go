package draft

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

// Field names an editable attribute of an external data entry.
type Field string

const (
	FieldInputName     Field = "inputName"
	FieldInputType     Field = "inputType"
	FieldConnectorType Field = "connectorType"
	FieldHost          Field = "host"
	FieldPath          Field = "path"
	FieldUsername      Field = "username"
	FieldPassword      Field = "password"
	FieldMount         Field = "mount"
	FieldValue         Field = "value"
)

// Fields lists every editable field.
var Fields = []Field{
	FieldInputName, FieldInputType, FieldConnectorType, FieldHost, FieldPath,
	FieldUsername, FieldPassword, FieldMount, FieldValue,
}

// UpdateExternalDataField sets one field of the entry at index from its text
// form. Changing the input or connector type reshapes the entry and notifies
// only that entry's section; other fields are stored without notification.
//
// Numeric values that do not parse are ignored. Unknown fields, unknown type
// names and out of range indices return an error.
func (m *Model) UpdateExternalDataField(index int, field Field, value string) error {
	m.mu.Lock()
	if index < 0 || index >= len(m.externalData) {
		m.mu.Unlock()
		return fmt.Errorf("external data index %d out of range", index)
	}
	e := &m.externalData[index]
	reshaped := false

	switch field {
	case FieldInputName:
		e.InputName = models.StringPtr(value)
	case FieldInputType:
		t, err := models.ParseInputType(value)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		setInputType(e, t)
		reshaped = true
	case FieldConnectorType:
		c, err := models.ParseConnectorType(value)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		setConnectorType(e, c)
		reshaped = true
	case FieldHost:
		e.Host = models.StringPtr(value)
	case FieldPath:
		e.Path = models.StringPtr(value)
	case FieldUsername:
		e.Username = models.StringPtr(value)
	case FieldPassword:
		e.Password = models.StringPtr(value)
	case FieldMount:
		mount, err := strconv.ParseBool(value)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("mount: %w", err)
		}
		e.Mount = mount && mountable(*e)
	case FieldValue:
		setValue(e, value)
	default:
		m.mu.Unlock()
		return fmt.Errorf("unknown external data field %q", field)
	}
	m.mu.Unlock()

	if reshaped {
		m.notify(Change{Section: SectionExternalDataEntry, Index: index})
	}
	return nil
}

// mountable reports whether the mount flag applies to e.
func mountable(e models.ExternalDataEntry) bool {
	return e.InputType == models.InputTypeDirectory && e.ConnectorType == models.ConnectorSSH
}

func setInputType(e *models.ExternalDataEntry, t models.InputType) {
	e.InputType = t
	switch t {
	case models.InputTypeInteger:
		if v, ok := toInt(e.Value); ok {
			e.Value = v
		} else if !isNumber(e.Value) {
			e.Value = nil
		}
	case models.InputTypeFloat:
		if v, ok := toFloat(e.Value); ok {
			e.Value = v
		} else if !isNumber(e.Value) {
			e.Value = nil
		}
	case models.InputTypeString:
		if e.Value != nil {
			e.Value = e.ValueString()
		}
	case models.InputTypeFile, models.InputTypeDirectory:
		e.Value = nil
		if e.ConnectorType == models.ConnectorNone {
			e.ConnectorType = models.ConnectorSSH
		}
	}
	if !t.IsRemote() {
		clearConnector(e)
	}
	if !mountable(*e) {
		e.Mount = false
	}
}

func setConnectorType(e *models.ExternalDataEntry, c models.ConnectorType) {
	if c == models.ConnectorNone {
		clearConnector(e)
		return
	}
	e.ConnectorType = c
	if !mountable(*e) {
		e.Mount = false
	}
}

func clearConnector(e *models.ExternalDataEntry) {
	e.ConnectorType = models.ConnectorNone
	e.Host = nil
	e.Path = nil
	e.Username = nil
	e.Password = nil
	e.Mount = false
}

// setValue stores text according to the entry's input type.
func setValue(e *models.ExternalDataEntry, text string) {
	switch e.InputType {
	case models.InputTypeInteger:
		if v, ok := parseInt(text); ok {
			e.Value = v
		}
	case models.InputTypeFloat:
		if v, ok := parseFloat(text); ok {
			e.Value = v
		}
	case models.InputTypeFile, models.InputTypeDirectory:
		// Remote inputs carry no inline value.
	default:
		e.Value = text
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return floatToInt(x)
	case string:
		return parseInt(x)
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case string:
		return parseFloat(x)
	}
	return 0, false
}

// parseInt accepts integers and truncates decimal input such as "12.7".
func parseInt(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return floatToInt(f)
}

// floatToInt truncates f. Values outside the int64 range are rejected.
func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseFloat(text string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
