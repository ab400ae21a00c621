package reconcile

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dokzlo13/deskops/internal/snapshot"
)

var (
	// ErrDuplicateName is returned under DuplicatesReject when a backup
	// record matches more than one target record.
	ErrDuplicateName = errors.New("duplicate name on target")
	// ErrUnresolvedReference is returned when a service references a
	// group that has no id on the target.
	ErrUnresolvedReference = errors.New("unresolved group reference")
)

// DuplicatePolicy decides what happens when a name matches several
// target records.
type DuplicatePolicy string

// Duplicate policies
const (
	DuplicatesWarn   DuplicatePolicy = "warn"   // log and take the first match
	DuplicatesReject DuplicatePolicy = "reject" // fail with ErrDuplicateName
)

// Options configures an Engine.
type Options struct {
	Matcher    Matcher
	Duplicates DuplicatePolicy
}

// Engine matches backup records to target records by name. It holds no
// state between calls and never mutates its inputs.
type Engine struct {
	matcher    Matcher
	duplicates DuplicatePolicy
}

// NewEngine creates an engine. Zero options select exact matching and
// the warn policy.
func NewEngine(opts Options) *Engine {
	if opts.Matcher == nil {
		opts.Matcher = ExactMatcher{}
	}
	if opts.Duplicates == "" {
		opts.Duplicates = DuplicatesWarn
	}
	return &Engine{matcher: opts.Matcher, duplicates: opts.Duplicates}
}

// Key returns the match key of name under the engine's matcher.
func (e *Engine) Key(name string) string {
	return e.matcher.Key(name)
}

// matchKey identifies a record by matcher keys. Groups and ungrouped
// services leave group empty with grouped unset.
type matchKey struct {
	name    string
	group   string
	grouped bool
}

// nameIndex maps a match key to the first id seen and how many records
// share the key.
type nameIndex map[matchKey]*indexEntry

type indexEntry struct {
	id    int64
	count int
}

func (idx nameIndex) add(key matchKey, id int64) {
	if e, ok := idx[key]; ok {
		e.count++
		return
	}
	idx[key] = &indexEntry{id: id, count: 1}
}

// lookup returns the first id for key, applying the duplicate policy.
func (e *Engine) lookup(idx nameIndex, key ResourceKey, mk matchKey) (*int64, error) {
	entry, ok := idx[mk]
	if !ok {
		return nil, nil
	}
	if entry.count > 1 {
		if e.duplicates == DuplicatesReject {
			return nil, fmt.Errorf("%w: %s matches %d records", ErrDuplicateName, key, entry.count)
		}
		log.Warn().
			Str("record", key.String()).
			Int("matches", entry.count).
			Int64("chosen_id", entry.id).
			Msg("Name matches several target records, using the first")
	}
	id := entry.id
	return &id, nil
}

func (e *Engine) groupKey(name string) matchKey {
	return matchKey{name: e.matcher.Key(name)}
}

func (e *Engine) serviceKey(name string, group *snapshot.GroupRef) matchKey {
	if group == nil {
		return matchKey{name: e.matcher.Key(name)}
	}
	return matchKey{name: e.matcher.Key(name), group: e.matcher.Key(group.Name), grouped: true}
}

// Reconcile annotates a copy of backup against target.
//
// Backup groups whose name exists on the target get ExistInServer set to
// the target id; the others get a ParentName resolved within the backup.
// Backup services have their group id rewritten to the target id of
// their group when that group exists on the target, and ExistInServer
// set when a target service has the same name and group name.
func (e *Engine) Reconcile(target, backup *snapshot.Snapshot) (*DifferenceSet, error) {
	target = cloneOrEmpty(target)
	backup = cloneOrEmpty(backup)

	diff := &DifferenceSet{
		Groups:         make([]GroupDiff, 0, len(backup.Groups)),
		Services:       make([]ServiceDiff, 0, len(backup.Services)),
		TargetGroups:   annotateParents(target.Groups),
		TargetServices: target.Services,
	}

	targetGroups := make(nameIndex, len(target.Groups))
	for _, g := range target.Groups {
		targetGroups.add(e.groupKey(g.Name), g.ID)
	}

	backupByID := firstByID(backup.Groups)

	for _, g := range backup.Groups {
		d := GroupDiff{Group: g}
		exist, err := e.lookup(targetGroups, d.Key(), e.groupKey(g.Name))
		if err != nil {
			return nil, err
		}
		if exist != nil {
			d.ExistInServer = exist
		} else {
			d.ParentName = parentRef(g.Parent, backupByID)
		}
		diff.Groups = append(diff.Groups, d)
	}

	// first annotated group per backup id
	existByGroupID := make(map[int64]*int64, len(diff.Groups))
	for _, g := range diff.Groups {
		if _, ok := existByGroupID[g.ID]; !ok {
			existByGroupID[g.ID] = g.ExistInServer
		}
	}

	targetServices := make(nameIndex, len(target.Services))
	for _, s := range target.Services {
		targetServices.add(e.serviceKey(s.Name, s.Group), s.ID)
	}

	for _, s := range backup.Services {
		d := ServiceDiff{Service: s}
		if d.Group != nil {
			if exist := existByGroupID[d.Group.ID]; exist != nil {
				d.Group.ID = *exist
			}
		}
		exist, err := e.lookup(targetServices, d.Key(), e.serviceKey(d.Name, d.Group))
		if err != nil {
			return nil, err
		}
		d.ExistInServer = exist
		diff.Services = append(diff.Services, d)
	}

	return diff, nil
}

// annotateParents resolves ParentName for every group within groups.
func annotateParents(groups []snapshot.Group) []GroupDiff {
	byID := firstByID(groups)

	out := make([]GroupDiff, len(groups))
	for i, g := range groups {
		out[i] = GroupDiff{Group: g, ParentName: parentRef(g.Parent, byID)}
	}
	return out
}

// firstByID indexes groups by id, keeping the first group per id.
func firstByID(groups []snapshot.Group) map[int64]snapshot.Group {
	unique := lo.UniqBy(groups, func(g snapshot.Group) int64 { return g.ID })
	return lo.KeyBy(unique, func(g snapshot.Group) int64 { return g.ID })
}

func parentRef(parent *int64, byID map[int64]snapshot.Group) *NameRef {
	if parent == nil {
		return nil
	}
	p, ok := byID[*parent]
	if !ok {
		return nil
	}
	return &NameRef{Name: p.Name, ID: p.ID}
}

func cloneOrEmpty(s *snapshot.Snapshot) *snapshot.Snapshot {
	if s == nil {
		return &snapshot.Snapshot{Groups: []snapshot.Group{}, Services: []snapshot.Service{}}
	}
	return s.Clone()
}
