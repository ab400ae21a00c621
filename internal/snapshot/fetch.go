package snapshot

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Lister reads the live collections of an account.
type Lister interface {
	ListGroups(ctx context.Context) ([]Group, error)
	ListServices(ctx context.Context) ([]Service, error)
}

// Fetch pulls the complete current groups and services of an account.
func Fetch(ctx context.Context, lister Lister) (*Snapshot, error) {
	log.Info().Msg("Fetching groups")
	groups, err := lister.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch groups: %w", err)
	}

	log.Info().Msg("Fetching services")
	services, err := lister.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch services: %w", err)
	}

	if groups == nil {
		groups = []Group{}
	}
	if services == nil {
		services = []Service{}
	}

	log.Debug().Int("groups", len(groups)).Int("services", len(services)).Msg("Snapshot fetched")
	return &Snapshot{Groups: groups, Services: services}, nil
}

// NoGroup labels services without a group in grouped listings.
const NoGroup = "No Group"

// ServiceGroup is one bucket of a grouped listing.
type ServiceGroup struct {
	Name     string
	Group    *GroupRef
	Services []Service
}

// GroupServices buckets services by their group name, sorted by name
// with ungrouped services last.
func GroupServices(services []Service) []ServiceGroup {
	byName := lo.GroupBy(services, func(s Service) string {
		if s.Group == nil {
			return NoGroup
		}
		return s.Group.Name
	})

	out := make([]ServiceGroup, 0, len(byName))
	for name, members := range byName {
		bucket := ServiceGroup{Name: name, Services: members}
		if name != NoGroup {
			ref := *members[0].Group
			bucket.Group = &ref
		}
		out = append(out, bucket)
	}

	sort.Slice(out, func(i, j int) bool {
		if (out[i].Name == NoGroup) != (out[j].Name == NoGroup) {
			return out[j].Name == NoGroup
		}
		return out[i].Name < out[j].Name
	})
	return out
}
