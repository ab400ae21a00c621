// Package snapshot defines the status-page group/service records and
// the saved backup format.
package snapshot

import (
	"bytes"
	"encoding/json"
)

// Group is a status-page service group. Parent points at another group
// of the same snapshot.
type Group struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Order       *int   `json:"order,omitempty"`
	Parent      *int64 `json:"parent"`
}

// GroupRef is the group embedded in a service record.
type GroupRef struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Parent *int64 `json:"parent"`
	Order  int    `json:"order"`
}

// Service is a status-page service (component).
type Service struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Order          int       `json:"order"`
	DisplayOptions RawJSON   `json:"display_options,omitempty"`
	Group          *GroupRef `json:"group"`
}

// RawJSON is an opaque JSON value carried through unchanged.
// It is stored compacted so indentation never affects equality.
type RawJSON []byte

// MarshalJSON implements json.Marshaler
func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (r *RawJSON) UnmarshalJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*r = buf.Bytes()
	return nil
}

// GroupName returns the embedded group's name, or "" for ungrouped services.
func (s *Service) GroupName() string {
	if s.Group == nil {
		return ""
	}
	return s.Group.Name
}

// Snapshot is the full groups/services state of one account.
type Snapshot struct {
	Groups   []Group   `json:"groups"`
	Services []Service `json:"services"`
}

// Clone returns a deep copy so callers can annotate without touching the original.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Groups:   make([]Group, len(s.Groups)),
		Services: make([]Service, len(s.Services)),
	}
	for i, g := range s.Groups {
		out.Groups[i] = g.Clone()
	}
	for i, svc := range s.Services {
		out.Services[i] = svc.Clone()
	}
	return out
}

// Clone returns a deep copy of the group.
func (g Group) Clone() Group {
	g.Parent = cloneID(g.Parent)
	if g.Order != nil {
		order := *g.Order
		g.Order = &order
	}
	return g
}

// Clone returns a deep copy of the service, including its group reference.
func (s Service) Clone() Service {
	if s.DisplayOptions != nil {
		s.DisplayOptions = bytes.Clone(s.DisplayOptions)
	}
	if s.Group != nil {
		ref := *s.Group
		ref.Parent = cloneID(ref.Parent)
		s.Group = &ref
	}
	return s
}

// FindGroup returns the group with the given id.
func (s *Snapshot) FindGroup(id int64) (Group, bool) {
	for _, g := range s.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
