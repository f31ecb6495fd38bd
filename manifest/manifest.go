// Package manifest renders the discovery manifest document described in
// spec.md §6: JSON describing every service and handler a process hosts,
// served by the surrounding host (not the invocation core itself) so a
// supervisor can route invocations without out-of-band configuration.
//
// Rendering this shape is data shaping, not handler discovery: nothing
// here reflects over Go types or auto-registers handlers, which is what
// spec.md's Non-goals actually exclude.
package manifest

import "encoding/json"

// HandlerType mirrors spec.md §6's handler `ty` enum.
type HandlerType string

const (
	HandlerShared    HandlerType = "SHARED"
	HandlerExclusive HandlerType = "EXCLUSIVE"
	HandlerWorkflow  HandlerType = "WORKFLOW"
)

// ServiceType mirrors spec.md §6's service `ty` enum.
type ServiceType string

const (
	ServiceService       ServiceType = "SERVICE"
	ServiceVirtualObject ServiceType = "VIRTUAL_OBJECT"
	ServiceWorkflow      ServiceType = "WORKFLOW"
)

// ContentSpec describes a handler's input or output content negotiation.
type ContentSpec struct {
	ContentType            string `json:"contentType,omitempty"`
	Required                bool   `json:"required,omitempty"`
	SetContentTypeIfEmpty  bool   `json:"setContentTypeIfEmpty,omitempty"`
}

// HandlerDefinition is one entry of a ServiceDefinition's handler list.
// Durations are milliseconds, per spec.md §6.
type HandlerDefinition struct {
	Name                string      `json:"name"`
	Type                HandlerType `json:"ty,omitempty"`
	Input               ContentSpec `json:"input"`
	Output              ContentSpec `json:"output"`
	InactivityTimeoutMs uint64      `json:"inactivityTimeout,omitempty"`
	AbortTimeoutMs      uint64      `json:"abortTimeout,omitempty"`
	IdempotencyRetentionMs uint64   `json:"idempotencyRetention,omitempty"`
	JournalRetentionMs  uint64      `json:"journalRetention,omitempty"`
	IngressPrivate      bool        `json:"ingressPrivate,omitempty"`
}

// ServiceDefinition is one entry of a Manifest's services list, per
// spec.md §9's registry design note.
type ServiceDefinition struct {
	Name                       string              `json:"name"`
	Type                       ServiceType         `json:"ty"`
	Handlers                   []HandlerDefinition `json:"handlers"`
	WorkflowCompletionRetentionMs uint64           `json:"workflowCompletionRetention,omitempty"`
}

// Manifest is the full discovery document, per spec.md §6.
type Manifest struct {
	ProtocolMode       string              `json:"protocolMode"`
	MinProtocolVersion int                 `json:"minProtocolVersion"`
	MaxProtocolVersion int                 `json:"maxProtocolVersion"`
	Services           []ServiceDefinition `json:"services"`
}

// minSupportedProtocolVersion and maxSupportedProtocolVersion match
// spec.md §6's "this core targets versions 5-6".
const (
	minSupportedProtocolVersion = 5
	maxSupportedProtocolVersion = 6
)

// Render builds the discovery Manifest for the given services.
func Render(services []ServiceDefinition) *Manifest {
	return &Manifest{
		ProtocolMode:       "BIDI_STREAM",
		MinProtocolVersion: minSupportedProtocolVersion,
		MaxProtocolVersion: maxSupportedProtocolVersion,
		Services:           services,
	}
}

// JSON renders the manifest to its wire JSON form.
func (m *Manifest) JSON() ([]byte, error) {
	return json.Marshal(m)
}
