package activity

import (
	"strconv"
	"strings"
	"time"
)

// Verbs emitted by the storefront workflows.
const (
	VerbStoreCreated   = "store.created"
	VerbStoreUpdated   = "store.updated"
	VerbLogoUploaded   = "store.logo.uploaded"
	VerbBagLineAdded   = "bag.line.added"
	VerbWorkflowFailed = "workflow.failed"
	ObjectTypeStore    = "store"
	ObjectTypeCartLine = "cart_line"
	ObjectTypeWorkflow = "workflow"
)

// EventInput carries the fields shared by every storefront event.
type EventInput struct {
	ActorID    string
	SessionID  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// StoreCreated is emitted after the create path confirms.
func StoreCreated(input EventInput, storeID int64, name string) Event {
	return buildEvent(VerbStoreCreated, ObjectTypeStore, formatID(storeID), input, map[string]any{"name": name})
}

// StoreUpdated is emitted after a confirm. logoChanged tells whether the
// payload carried a new logo.
func StoreUpdated(input EventInput, storeID int64, logoChanged bool) Event {
	return buildEvent(VerbStoreUpdated, ObjectTypeStore, formatID(storeID), input, map[string]any{"logo_changed": logoChanged})
}

// LogoUploaded is emitted once the binary PUT succeeded.
func LogoUploaded(input EventInput, storeID int64, publicURL, mimeType string) Event {
	return buildEvent(VerbLogoUploaded, ObjectTypeStore, formatID(storeID), input, map[string]any{
		"public_url": publicURL,
		"mime_type":  mimeType,
	})
}

// BagLineAdded is emitted when the server accepted a cart line.
func BagLineAdded(input EventInput, sizeID int64, quantity int) Event {
	return buildEvent(VerbBagLineAdded, ObjectTypeCartLine, formatID(sizeID), input, map[string]any{"quantity": quantity})
}

// WorkflowFailed reports a workflow that ended in a failure. step is the
// state the failure happened in.
func WorkflowFailed(input EventInput, workflow, step, kind string) Event {
	return buildEvent(VerbWorkflowFailed, ObjectTypeWorkflow, workflow, input, map[string]any{
		"step": step,
		"kind": kind,
	})
}

func buildEvent(verb, objectType, objectID string, input EventInput, extra map[string]any) Event {
	metadata := cloneMap(input.Metadata)
	if input.SessionID != "" || len(extra) > 0 {
		if metadata == nil {
			metadata = make(map[string]any, len(extra)+1)
		}
	}
	if input.SessionID != "" {
		metadata["session_id"] = input.SessionID
	}
	for k, v := range extra {
		metadata[k] = v
	}
	if strings.TrimSpace(objectID) == "" {
		objectID = objectType
	}
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
