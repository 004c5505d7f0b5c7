package view

import (
	"fmt"
	"strings"

	"github.com/curious-containers/cc-jupyter-cli/internal/draft"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

const none = "(none)"

// Draft renders every section of a draft.
func Draft(snap draft.Snapshot) string {
	parts := []string{
		TitleStyle.Render("Job draft"),
		Notebooks(snap.Notebooks),
		Dependencies(snap.Dependencies),
		GPUs(snap.GPUs),
		ExternalData(snap.ExternalData),
		Requirements(snap.Requirements),
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// Section renders the part of the draft named by a change notification.
func Section(snap draft.Snapshot, change draft.Change) string {
	switch change.Section {
	case draft.SectionNotebooks:
		return Notebooks(snap.Notebooks)
	case draft.SectionDependencies:
		return Dependencies(snap.Dependencies)
	case draft.SectionGPUs:
		return GPUs(snap.GPUs)
	case draft.SectionExternalData:
		return ExternalData(snap.ExternalData)
	case draft.SectionExternalDataEntry:
		if change.Index < 0 || change.Index >= len(snap.ExternalData) {
			return ""
		}
		return ExternalDataEntry(change.Index, snap.ExternalData[change.Index])
	case draft.SectionRequirements:
		return Requirements(snap.Requirements)
	default:
		return ""
	}
}

// Notebooks renders the notebook list in model order.
func Notebooks(notebooks []models.NotebookEntry) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Notebooks"))
	if len(notebooks) == 0 {
		b.WriteString("\n  " + MutedStyle.Render(none))
		return b.String()
	}
	for i, nb := range notebooks {
		fmt.Fprintf(&b, "\n  %d. %s %s", i+1, nb.Filename, LabelStyle.Render(humanSize(int64(len(nb.Data)))))
	}
	return b.String()
}

// Dependencies renders the image selection.
func Dependencies(dep models.DependenciesSelection) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Dependencies"))
	mode := "predefined"
	if dep.Custom {
		mode = "custom"
	}
	image := dep.Image()
	if image == "" {
		image = MutedStyle.Render("(not selected)")
	}
	fmt.Fprintf(&b, "\n  %s %s", LabelStyle.Render(mode+" image:"), image)
	return b.String()
}

// GPUs renders the GPU requirements.
func GPUs(gpus []models.GpuRequirement) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("GPUs"))
	if len(gpus) == 0 {
		b.WriteString("\n  " + MutedStyle.Render(none))
		return b.String()
	}
	for i, g := range gpus {
		fmt.Fprintf(&b, "\n  %d. %d MB VRAM", i+1, g.VRAM)
	}
	return b.String()
}

// ExternalData renders every external data entry.
func ExternalData(entries []models.ExternalDataEntry) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("External data"))
	if len(entries) == 0 {
		b.WriteString("\n  " + MutedStyle.Render(none))
		return b.String()
	}
	for i, e := range entries {
		b.WriteString("\n")
		b.WriteString(ExternalDataEntry(i, e))
	}
	return b.String()
}

// ExternalDataEntry renders the sub-form of one entry. Only the fields that
// apply to the entry's input type are shown.
func ExternalDataEntry(index int, e models.ExternalDataEntry) string {
	var b strings.Builder
	name := e.Name()
	if name == "" {
		name = MutedStyle.Render("(unnamed)")
	}
	kind := string(e.InputType)
	if kind == "" {
		kind = "(no type)"
	}
	fmt.Fprintf(&b, "  %d. %s %s", index+1, name, LabelStyle.Render(kind))

	field := func(label, value string) {
		fmt.Fprintf(&b, "\n     %s %s", LabelStyle.Render(label+":"), value)
	}

	switch {
	case e.InputType.IsRemote():
		field("connector", string(e.ConnectorType))
		field("host", deref(e.Host))
		field("path", deref(e.Path))
		field("username", deref(e.Username))
		if deref(e.Password) != "" {
			field("password", "********")
		}
		if e.InputType == models.InputTypeDirectory && e.ConnectorType == models.ConnectorSSH {
			field("mount", yesNo(e.Mount))
		}
	case e.InputType.IsLiteral():
		field("value", e.ValueString())
	}
	return b.String()
}

// Requirements renders the optional requirements file.
func Requirements(req *models.RequirementsEntry) string {
	var b strings.Builder
	b.WriteString(SectionStyle.Render("Python requirements"))
	if req == nil {
		b.WriteString("\n  " + MutedStyle.Render(none))
		return b.String()
	}
	lines := 0
	for _, l := range strings.Split(req.Data, "\n") {
		if strings.TrimSpace(l) != "" {
			lines++
		}
	}
	fmt.Fprintf(&b, "\n  %s %s", req.Filename, LabelStyle.Render(fmt.Sprintf("%d packages", lines)))
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
