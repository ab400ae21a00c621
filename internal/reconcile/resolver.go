package reconcile

import (
	"fmt"

	"github.com/dokzlo13/deskops/internal/snapshot"
)

// Resolution tells where a service's group id came from.
type Resolution int

const (
	ResolutionNoGroup    Resolution = iota // service has no group
	ResolutionFromTarget                   // a target service carries a group of that name
	ResolutionFromBackup                   // the backup group exists on the target
	ResolutionUnresolved                   // no target id known
)

// String returns a human-readable name for the resolution.
func (r Resolution) String() string {
	switch r {
	case ResolutionNoGroup:
		return "no_group"
	case ResolutionFromTarget:
		return "target"
	case ResolutionFromBackup:
		return "backup"
	case ResolutionUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// ResolveGroupRef returns a copy of svc whose group id is the target-side
// id of its group. Target services are consulted first because their
// group ids are known to be live; backupGroups is the fallback. When
// neither knows the group the reference is returned unchanged.
func (e *Engine) ResolveGroupRef(svc ServiceDiff, targetServices []snapshot.Service, backupGroups []GroupDiff) (ServiceDiff, Resolution) {
	out := svc.Clone()
	if out.Group == nil {
		return out, ResolutionNoGroup
	}

	want := e.matcher.Key(out.Group.Name)

	for _, ts := range targetServices {
		if ts.Group != nil && e.matcher.Key(ts.Group.Name) == want {
			out.Group.ID = ts.Group.ID
			return out, ResolutionFromTarget
		}
	}

	for _, g := range backupGroups {
		if g.ExistInServer != nil && e.matcher.Key(g.Name) == want {
			out.Group.ID = *g.ExistInServer
			return out, ResolutionFromBackup
		}
	}

	return out, ResolutionUnresolved
}

// UnresolvedService identifies a service whose group has no target id.
type UnresolvedService struct {
	Name  string
	Group string
}

func (u UnresolvedService) String() string {
	return fmt.Sprintf("%s (group %q)", u.Name, u.Group)
}

// ResolveAll applies ResolveGroupRef to every service of diff and returns
// the revised copy along with the services left unresolved.
func (e *Engine) ResolveAll(diff *DifferenceSet) (*DifferenceSet, []UnresolvedService) {
	out := diff.Clone()

	var unresolved []UnresolvedService
	for i, s := range out.Services {
		resolved, res := e.ResolveGroupRef(s, out.TargetServices, out.Groups)
		out.Services[i] = resolved
		if res == ResolutionUnresolved {
			unresolved = append(unresolved, UnresolvedService{Name: s.Name, Group: s.Group.Name})
		}
	}
	return out, unresolved
}
