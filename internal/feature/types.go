package feature

import (
	"context"
	"encoding/json"
)

// Feature is one record of a feature layer or table: a loosely-typed
// attribute map plus opaque geometry, exactly as the REST API returns it.
type Feature struct {
	Attributes map[string]any  `json:"attributes"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
}

// EditResult is the per-record outcome of an applyEdits call.
type EditResult struct {
	ObjectID int64  `json:"objectId"`
	GlobalID string `json:"globalId"`
	Success  bool   `json:"success"`
	Error    *Error `json:"error,omitempty"`
}

// AttachmentInfo describes one attachment of a feature.
type AttachmentInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Error is the REST API's error envelope.
type Error struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Store is the remote asset/work-order store consumed by the run. Layer ids
// index into the feature service's layer/table list. Operations fail
// independently; callers log and continue, nothing retries internally.
type Store interface {
	Query(ctx context.Context, layer int, where string) ([]Feature, error)
	Add(ctx context.Context, layer int, features []Feature) ([]EditResult, error)
	Update(ctx context.Context, layer int, features []Feature) ([]EditResult, error)
	Delete(ctx context.Context, layer int, objectIDs []int64) error

	Attachments(ctx context.Context, layer int, objectID int64) ([]AttachmentInfo, error)
	DownloadAttachment(ctx context.Context, layer int, objectID int64, att AttachmentInfo) ([]byte, error)
	AddAttachment(ctx context.Context, layer int, objectID int64, name string, data []byte) error
}

// String reads a string attribute; missing or null values come back empty.
func (f Feature) String(name string) string {
	if v, ok := f.Attributes[name].(string); ok {
		return v
	}
	return ""
}

// Int64 reads a numeric attribute. The JSON decoder hands numbers back as
// float64, so both encodings are accepted.
func (f Feature) Int64(name string) int64 {
	switch v := f.Attributes[name].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// Date reads a nullable epoch-millisecond date attribute.
func (f Feature) Date(name string) *int64 {
	if f.Attributes[name] == nil {
		return nil
	}
	ms := f.Int64(name)
	return &ms
}
