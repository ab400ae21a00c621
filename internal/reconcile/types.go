// Package reconcile compares a saved backup against the live state of a
// target account and annotates the backup with the target-side identity
// of every record that already exists there.
package reconcile

import (
	"fmt"

	"github.com/dokzlo13/deskops/internal/snapshot"
)

// Kind identifies a type of reconciled record.
type Kind string

// Record kinds
const (
	KindGroup   Kind = "group"
	KindService Kind = "service"
)

// ResourceKey is the natural key of a record. Services are keyed by
// their own name and the name of their group.
type ResourceKey struct {
	Kind  Kind
	Name  string
	Group string
}

func (k ResourceKey) String() string {
	if k.Kind == KindService && k.Group != "" {
		return fmt.Sprintf("%s:%s/%s", k.Kind, k.Group, k.Name)
	}
	return fmt.Sprintf("%s:%s", k.Kind, k.Name)
}

// NameRef is a {name, id} pair pointing at a group of the same snapshot.
type NameRef struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

// GroupDiff is a group annotated with its resolved parent and its id on
// the target account (nil when it has to be created).
type GroupDiff struct {
	snapshot.Group
	ParentName    *NameRef `json:"parent_name"`
	ExistInServer *int64   `json:"exist_in_server"`
}

// Key returns the natural key of the group.
func (g GroupDiff) Key() ResourceKey {
	return ResourceKey{Kind: KindGroup, Name: g.Name}
}

// Clone returns a deep copy.
func (g GroupDiff) Clone() GroupDiff {
	g.Group = g.Group.Clone()
	if g.ParentName != nil {
		ref := *g.ParentName
		g.ParentName = &ref
	}
	g.ExistInServer = cloneID(g.ExistInServer)
	return g
}

// ServiceDiff is a service annotated with its id on the target account.
type ServiceDiff struct {
	snapshot.Service
	ExistInServer *int64 `json:"exist_in_server"`
}

// Key returns the natural key of the service.
func (s ServiceDiff) Key() ResourceKey {
	return ResourceKey{Kind: KindService, Name: s.Name, Group: s.GroupName()}
}

// Clone returns a deep copy.
func (s ServiceDiff) Clone() ServiceDiff {
	s.Service = s.Service.Clone()
	s.ExistInServer = cloneID(s.ExistInServer)
	return s
}

// DifferenceSet is the backup snapshot annotated against a target.
// TargetGroups and TargetServices keep the live state the annotations
// were computed from.
type DifferenceSet struct {
	Groups         []GroupDiff        `json:"groups"`
	Services       []ServiceDiff      `json:"services"`
	TargetGroups   []GroupDiff        `json:"-"`
	TargetServices []snapshot.Service `json:"-"`
}

// Clone returns a deep copy.
func (d *DifferenceSet) Clone() *DifferenceSet {
	out := &DifferenceSet{
		Groups:         make([]GroupDiff, len(d.Groups)),
		Services:       make([]ServiceDiff, len(d.Services)),
		TargetGroups:   make([]GroupDiff, len(d.TargetGroups)),
		TargetServices: make([]snapshot.Service, len(d.TargetServices)),
	}
	for i, g := range d.Groups {
		out.Groups[i] = g.Clone()
	}
	for i, s := range d.Services {
		out.Services[i] = s.Clone()
	}
	for i, g := range d.TargetGroups {
		out.TargetGroups[i] = g.Clone()
	}
	for i, s := range d.TargetServices {
		out.TargetServices[i] = s.Clone()
	}
	return out
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
