package reconcile

// Action represents what the publisher has to do with a record.
type Action int

const (
	ActionSkip Action = iota
	ActionCreate
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionCreate:
		return "create"
	default:
		return "unknown"
	}
}

// DetermineAction returns ActionCreate for records missing on the target.
func DetermineAction(existInServer *int64) Action {
	if existInServer == nil {
		return ActionCreate
	}
	return ActionSkip
}

// PlanItem is one planned step of a restore.
type PlanItem struct {
	Key      ResourceKey
	Action   Action
	TargetID *int64 // id on the target when the record exists
	Parent   string // parent group name for groups, group name for services
	Blocked  bool   // service whose group will not exist on the target
}

// Plan lists the action for every record of diff, groups first. Group
// names are compared with the engine's matcher, as the publisher does.
func (e *Engine) Plan(diff *DifferenceSet) []PlanItem {
	items := make([]PlanItem, 0, len(diff.Groups)+len(diff.Services))

	// groups that will have a target id after the groups phase
	available := make(map[string]bool, len(diff.Groups))
	for _, g := range diff.Groups {
		available[e.Key(g.Name)] = true
	}
	for _, s := range diff.TargetServices {
		if s.Group != nil {
			available[e.Key(s.Group.Name)] = true
		}
	}

	for _, g := range diff.Groups {
		item := PlanItem{
			Key:      g.Key(),
			Action:   DetermineAction(g.ExistInServer),
			TargetID: cloneID(g.ExistInServer),
		}
		if g.ParentName != nil {
			item.Parent = g.ParentName.Name
		}
		items = append(items, item)
	}

	for _, s := range diff.Services {
		item := PlanItem{
			Key:      s.Key(),
			Action:   DetermineAction(s.ExistInServer),
			TargetID: cloneID(s.ExistInServer),
			Parent:   s.GroupName(),
		}
		if item.Action == ActionCreate && s.Group != nil && !available[e.Key(s.Group.Name)] {
			item.Blocked = true
		}
		items = append(items, item)
	}

	return items
}

// Counts tallies a plan per kind and action.
type Counts struct {
	GroupsCreate   int
	GroupsSkip     int
	ServicesCreate int
	ServicesSkip   int
	Blocked        int
}

// Count summarises items.
func Count(items []PlanItem) Counts {
	var c Counts
	for _, it := range items {
		switch {
		case it.Key.Kind == KindGroup && it.Action == ActionCreate:
			c.GroupsCreate++
		case it.Key.Kind == KindGroup:
			c.GroupsSkip++
		case it.Action == ActionCreate:
			c.ServicesCreate++
		default:
			c.ServicesSkip++
		}
		if it.Blocked {
			c.Blocked++
		}
	}
	return c
}
