// Package draft holds the job configuration a user assembles before
// submitting it: notebooks, runtime image, GPUs, external data bindings and an
// optional requirements file.
package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/curious-containers/cc-jupyter-cli/internal/alerts"
	"github.com/curious-containers/cc-jupyter-cli/internal/constants"
	"github.com/curious-containers/cc-jupyter-cli/internal/inference"
	"github.com/curious-containers/cc-jupyter-cli/internal/logging"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

// List identifies one of the list-valued parts of the draft.
type List string

const (
	ListNotebooks    List = "notebooks"
	ListGPUs         List = "gpus"
	ListExternalData List = "externalData"
)

// Section identifies what a renderer must rebuild after a change.
type Section string

const (
	SectionNotebooks         Section = "notebooks"
	SectionDependencies      Section = "dependencies"
	SectionGPUs              Section = "gpus"
	SectionExternalData      Section = "externalData"
	SectionExternalDataEntry Section = "externalDataEntry"
	SectionRequirements      Section = "requirements"
)

func (l List) section() Section {
	switch l {
	case ListNotebooks:
		return SectionNotebooks
	case ListGPUs:
		return SectionGPUs
	default:
		return SectionExternalData
	}
}

// Change tells a listener which section changed. Index is the entry position
// for SectionExternalDataEntry and -1 otherwise.
type Change struct {
	Section Section
	Index   int
}

// Listener is called after every state-affecting mutation, outside the lock.
type Listener func(Change)

// ErrInvalidNotebook is returned when a notebook file is not valid JSON.
var ErrInvalidNotebook = errors.New("notebook is not valid JSON")

// Model is the mutable draft. All methods are safe for concurrent use;
// listeners observe changes in mutation order per goroutine.
type Model struct {
	notebooks    []models.NotebookEntry
	dependencies models.DependenciesSelection
	gpus         []models.GpuRequirement
	externalData []models.ExternalDataEntry
	requirements *models.RequirementsEntry

	alerts    alerts.Pusher
	logger    *logging.Logger
	listeners []Listener
	newID     func() string

	mu sync.Mutex
}

// New creates an empty draft. alerts receives user-facing parse errors.
func New(sink alerts.Pusher, logger *logging.Logger) *Model {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Model{
		alerts: sink,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// AddListener registers fn for change notifications.
func (m *Model) AddListener(fn Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Model) notify(changes ...Change) {
	m.mu.Lock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, c := range changes {
		for _, fn := range listeners {
			fn(c)
		}
	}
}

func whole(s Section) Change {
	return Change{Section: s, Index: -1}
}

// AddNotebook parses raw as a notebook document and appends it. On parse
// failure a danger alert is pushed and the draft is left unchanged. External
// data inference runs only while no external data entries exist.
func (m *Model) AddNotebook(filename string, raw []byte) error {
	if !json.Valid(raw) {
		if m.alerts != nil {
			m.alerts.Push(alerts.LevelDanger, fmt.Sprintf("Could not parse notebook %s", filename))
		}
		m.logger.Warn().Str("file", filename).Msg("notebook is not valid JSON")
		return fmt.Errorf("%s: %w", filename, ErrInvalidNotebook)
	}

	data := make(json.RawMessage, len(raw))
	copy(data, raw)

	m.mu.Lock()
	m.notebooks = append(m.notebooks, models.NotebookEntry{
		ID:       m.newID(),
		Data:     data,
		Filename: filename,
	})
	inferred := 0
	if len(m.externalData) == 0 {
		for _, e := range inference.Infer(data) {
			e.ID = m.newID()
			m.externalData = append(m.externalData, e)
			inferred++
		}
	}
	m.mu.Unlock()

	m.logger.Debug().Str("file", filename).Int("inferred", inferred).Msg("notebook added")
	if inferred > 0 {
		m.notify(whole(SectionNotebooks), whole(SectionExternalData))
	} else {
		m.notify(whole(SectionNotebooks))
	}
	return nil
}

// RemoveAt removes the element at index from list. Out of range indices are
// ignored and return false.
func (m *Model) RemoveAt(list List, index int) bool {
	m.mu.Lock()
	ok := m.removeAtLocked(list, index)
	m.mu.Unlock()

	if ok {
		m.notify(whole(list.section()))
	}
	return ok
}

// Remove removes the element with the given id from list.
func (m *Model) Remove(list List, id string) bool {
	m.mu.Lock()
	ok := m.removeAtLocked(list, m.indexOfLocked(list, id))
	m.mu.Unlock()

	if ok {
		m.notify(whole(list.section()))
	}
	return ok
}

// IndexOf returns the current position of id in list, or -1.
func (m *Model) IndexOf(list List, id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOfLocked(list, id)
}

func (m *Model) indexOfLocked(list List, id string) int {
	switch list {
	case ListNotebooks:
		for i, n := range m.notebooks {
			if n.ID == id {
				return i
			}
		}
	case ListGPUs:
		for i, g := range m.gpus {
			if g.ID == id {
				return i
			}
		}
	case ListExternalData:
		for i, e := range m.externalData {
			if e.ID == id {
				return i
			}
		}
	}
	return -1
}

func (m *Model) removeAtLocked(list List, index int) bool {
	switch list {
	case ListNotebooks:
		if index < 0 || index >= len(m.notebooks) {
			return false
		}
		m.notebooks = append(m.notebooks[:index], m.notebooks[index+1:]...)
	case ListGPUs:
		if index < 0 || index >= len(m.gpus) {
			return false
		}
		m.gpus = append(m.gpus[:index], m.gpus[index+1:]...)
	case ListExternalData:
		if index < 0 || index >= len(m.externalData) {
			return false
		}
		m.externalData = append(m.externalData[:index], m.externalData[index+1:]...)
	default:
		return false
	}
	return true
}

// SetDependencyMode selects whether the custom image is authoritative.
func (m *Model) SetDependencyMode(custom bool) {
	m.mu.Lock()
	m.dependencies.Custom = custom
	m.mu.Unlock()
	m.notify(whole(SectionDependencies))
}

// SetPredefinedImage stores the predefined image name. Empty is allowed.
func (m *Model) SetPredefinedImage(name string) {
	m.mu.Lock()
	m.dependencies.PredefinedImage = name
	m.mu.Unlock()
	m.notify(whole(SectionDependencies))
}

// SetCustomImage stores the custom image tag. Empty is allowed.
func (m *Model) SetCustomImage(tag string) {
	m.mu.Lock()
	m.dependencies.CustomImage = tag
	m.mu.Unlock()
	m.notify(whole(SectionDependencies))
}

// AddGPU appends a GPU requirement with the default VRAM and returns its id.
func (m *Model) AddGPU() string {
	m.mu.Lock()
	id := m.newID()
	m.gpus = append(m.gpus, models.GpuRequirement{ID: id, VRAM: constants.DefaultGPUVRAM})
	m.mu.Unlock()

	m.notify(whole(SectionGPUs))
	return id
}

// UpdateGPU parses text as the VRAM of the GPU at index. When text is not a
// positive integer the stored value is kept and false is returned.
func (m *Model) UpdateGPU(index int, text string) bool {
	vram, ok := parseInt(text)
	if !ok || vram <= 0 || vram > math.MaxInt32 {
		m.logger.Debug().Int("index", index).Str("value", text).Msg("ignoring non-numeric VRAM")
		return false
	}

	m.mu.Lock()
	if index < 0 || index >= len(m.gpus) {
		m.mu.Unlock()
		return false
	}
	m.gpus[index].VRAM = int(vram)
	m.mu.Unlock()

	m.notify(whole(SectionGPUs))
	return true
}

// AddExternalData appends an empty binding and returns its id.
func (m *Model) AddExternalData() string {
	m.mu.Lock()
	id := m.newID()
	m.externalData = append(m.externalData, models.ExternalDataEntry{ID: id})
	m.mu.Unlock()

	m.notify(whole(SectionExternalData))
	return id
}

// SetRequirements stores the python requirements file, replacing any previous one.
func (m *Model) SetRequirements(filename, text string) {
	m.mu.Lock()
	m.requirements = &models.RequirementsEntry{Data: text, Filename: filename}
	m.mu.Unlock()
	m.notify(whole(SectionRequirements))
}

// ClearRequirements removes the python requirements file.
func (m *Model) ClearRequirements() {
	m.mu.Lock()
	m.requirements = nil
	m.mu.Unlock()
	m.notify(whole(SectionRequirements))
}

// Clear removes all notebooks. Dependencies, GPUs, external data and the
// requirements file are kept for the next submission.
func (m *Model) Clear() {
	m.mu.Lock()
	m.notebooks = nil
	m.mu.Unlock()
	m.notify(whole(SectionNotebooks))
}

// NotebookCount returns the number of loaded notebooks.
func (m *Model) NotebookCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notebooks)
}

// BuildSubmissionPayload returns a deep copy of the draft in wire form.
// Later mutations of the draft do not affect the returned value.
func (m *Model) BuildSubmissionPayload() models.JobSubmission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payloadLocked()
}

func (m *Model) payloadLocked() models.JobSubmission {
	sub := models.JobSubmission{
		JupyterNotebooks: make([]models.NotebookEntry, len(m.notebooks)),
		Dependencies:     m.dependencies,
		GpuRequirements:  make([]int, len(m.gpus)),
		ExternalData:     make([]models.ExternalDataEntry, len(m.externalData)),
	}
	for i, n := range m.notebooks {
		data := make(json.RawMessage, len(n.Data))
		copy(data, n.Data)
		sub.JupyterNotebooks[i] = models.NotebookEntry{ID: n.ID, Data: data, Filename: n.Filename}
	}
	for i, g := range m.gpus {
		sub.GpuRequirements[i] = g.VRAM
	}
	for i, e := range m.externalData {
		sub.ExternalData[i] = e.Clone()
	}
	if m.requirements != nil {
		r := *m.requirements
		sub.PythonRequirements = &r
	}
	return sub
}

// Snapshot is a read-only copy of the draft for renderers.
type Snapshot struct {
	Notebooks    []models.NotebookEntry
	Dependencies models.DependenciesSelection
	GPUs         []models.GpuRequirement
	ExternalData []models.ExternalDataEntry
	Requirements *models.RequirementsEntry
}

// Snapshot returns a copy of the current state.
func (m *Model) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := m.payloadLocked()
	gpus := make([]models.GpuRequirement, len(m.gpus))
	copy(gpus, m.gpus)

	return Snapshot{
		Notebooks:    sub.JupyterNotebooks,
		Dependencies: sub.Dependencies,
		GPUs:         gpus,
		ExternalData: sub.ExternalData,
		Requirements: sub.PythonRequirements,
	}
}
