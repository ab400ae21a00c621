package publish

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/deskops/internal/reconcile"
	"github.com/dokzlo13/deskops/internal/rest"
	"github.com/dokzlo13/deskops/internal/snapshot"
	"github.com/dokzlo13/deskops/internal/statuspage"
)

// fakeCreator records every call and hands out ids from 1000 up.
type fakeCreator struct {
	calls       []string
	groupReqs   []statuspage.GroupRequest
	serviceReqs []statuspage.ServiceRequest
	failGroup   string
	failService string
	emptyGroup  string
	nextID      int64
	groupsByID  map[int64]string
}

func newFakeCreator() *fakeCreator {
	return &fakeCreator{nextID: 1000, groupsByID: map[int64]string{}}
}

func (f *fakeCreator) CreateGroup(_ context.Context, req statuspage.GroupRequest) (*snapshot.Group, error) {
	f.calls = append(f.calls, "group:"+req.Name)
	f.groupReqs = append(f.groupReqs, req)
	if req.Name == f.failGroup {
		return nil, &rest.RemoteError{Method: http.MethodPost, Resource: "groups/", StatusCode: 500, Body: "boom"}
	}
	if req.Name == f.emptyGroup {
		return &snapshot.Group{}, nil
	}
	f.nextID++
	f.groupsByID[f.nextID] = req.Name
	return &snapshot.Group{ID: f.nextID, Name: req.Name, Parent: req.ParentID}, nil
}

func (f *fakeCreator) CreateService(_ context.Context, req statuspage.ServiceRequest) (*snapshot.Service, error) {
	f.calls = append(f.calls, "service:"+req.Name)
	f.serviceReqs = append(f.serviceReqs, req)
	if req.Name == f.failService {
		return nil, &rest.RemoteError{Method: http.MethodPost, Resource: "services/", StatusCode: 400, Body: "bad"}
	}
	f.nextID++
	svc := &snapshot.Service{ID: f.nextID, Name: req.Name}
	if req.Group != nil {
		svc.Group = &snapshot.GroupRef{ID: *req.Group, Name: f.groupsByID[*req.Group]}
	}
	return svc, nil
}

type memRecorder struct {
	events []Event
}

func (m *memRecorder) Record(_ context.Context, e Event) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memRecorder) types() []EventType {
	out := make([]EventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

func id(v int64) *int64 { return &v }

func groupRef(groupID int64, name string) *snapshot.GroupRef {
	return &snapshot.GroupRef{ID: groupID, Name: name}
}

func reconcileFixture(t *testing.T, target, backup *snapshot.Snapshot) *reconcile.DifferenceSet {
	t.Helper()
	diff, err := reconcile.NewEngine(reconcile.Options{}).Reconcile(target, backup)
	require.NoError(t, err)
	return diff
}

func TestPublish_CreatesGroupsBeforeServices(t *testing.T) {
	diff := reconcileFixture(t, &snapshot.Snapshot{}, &snapshot.Snapshot{
		Groups: []snapshot.Group{{ID: 300, Name: "Billing"}},
		Services: []snapshot.Service{
			{ID: 8, Name: "Invoices", Group: groupRef(300, "Billing"), DisplayOptions: snapshot.RawJSON(`{"uptime":true}`)},
			{ID: 9, Name: "Status"},
		},
	})

	client := newFakeCreator()
	rec := &memRecorder{}
	report, err := New(client, nil, rec, Options{}).Publish(context.Background(), "acme", diff)
	require.NoError(t, err)

	assert.Equal(t, []string{"group:Billing", "service:Invoices", "service:Status"}, client.calls)

	// the service sees the id of the group created in the same run
	require.NotNil(t, client.serviceReqs[0].Group)
	assert.Equal(t, int64(1001), *client.serviceReqs[0].Group)
	assert.JSONEq(t, `{"uptime":true}`, string(client.serviceReqs[0].DisplayOptions))
	assert.Nil(t, client.serviceReqs[1].Group)

	assert.Equal(t, 3, report.Count(OutcomeCreated))
	billing := report.Diff.Groups[0]
	require.NotNil(t, billing.ExistInServer)
	assert.Equal(t, int64(1001), *billing.ExistInServer)
	assert.Equal(t, int64(1002), *report.Diff.Services[0].ExistInServer)
	assert.Equal(t, "Billing", report.Diff.Services[0].Group.Name)

	// input untouched
	assert.Nil(t, diff.Groups[0].ExistInServer)

	assert.Equal(t, []EventType{EventRunStarted, EventGroupCreated, EventServiceCreated, EventServiceCreated, EventRunCompleted}, rec.types())
	for _, e := range rec.events {
		assert.Equal(t, report.RunID, e.RunID)
		assert.Equal(t, "acme", e.Account)
	}
}

func TestPublish_SkipsExistingRecords(t *testing.T) {
	diff := reconcileFixture(t,
		&snapshot.Snapshot{
			Groups:   []snapshot.Group{{ID: 1, Name: "Infra"}},
			Services: []snapshot.Service{{ID: 501, Name: "API", Group: groupRef(1, "Infra")}},
		},
		&snapshot.Snapshot{
			Groups: []snapshot.Group{{ID: 99, Name: "Infra"}},
			Services: []snapshot.Service{
				{ID: 7, Name: "API", Group: groupRef(99, "Infra")},
				{ID: 8, Name: "Gateway", Group: groupRef(99, "Infra")},
			},
		})

	client := newFakeCreator()
	report, err := New(client, nil, nil, Options{}).Publish(context.Background(), "acme", diff)
	require.NoError(t, err)

	assert.Equal(t, []string{"service:Gateway"}, client.calls)
	require.NotNil(t, client.serviceReqs[0].Group)
	assert.Equal(t, int64(1), *client.serviceReqs[0].Group)
	assert.Equal(t, 2, report.Count(OutcomeSkipped))
	assert.Equal(t, 1, report.Count(OutcomeCreated))
}

func TestPublish_ParentCreatedFirst(t *testing.T) {
	// child listed before its parent; both new
	diff := reconcileFixture(t,
		&snapshot.Snapshot{Groups: []snapshot.Group{{ID: 1, Name: "Infra"}}},
		&snapshot.Snapshot{
			Groups: []snapshot.Group{
				{ID: 101, Name: "Child", Parent: id(100)},
				{ID: 100, Name: "Parent"},
				{ID: 102, Name: "UnderInfra", Parent: id(99)},
				{ID: 99, Name: "Infra"},
			},
		})

	client := newFakeCreator()
	_, err := New(client, nil, nil, Options{}).Publish(context.Background(), "acme", diff)
	require.NoError(t, err)

	assert.Equal(t, []string{"group:Parent", "group:UnderInfra", "group:Child"}, client.calls)

	byName := map[string]statuspage.GroupRequest{}
	for _, req := range client.groupReqs {
		byName[req.Name] = req
	}
	assert.Nil(t, byName["Parent"].ParentID)
	require.NotNil(t, byName["Child"].ParentID)
	assert.Equal(t, int64(1001), *byName["Child"].ParentID)
	require.NotNil(t, byName["UnderInfra"].ParentID)
	assert.Equal(t, int64(1), *byName["UnderInfra"].ParentID)
}

func TestPublish_GroupFailureAbortsBeforeServices(t *testing.T) {
	diff := reconcileFixture(t, &snapshot.Snapshot{}, &snapshot.Snapshot{
		Groups:   []snapshot.Group{{ID: 300, Name: "Billing"}, {ID: 301, Name: "Later"}},
		Services: []snapshot.Service{{ID: 8, Name: "Status"}},
	})

	client := newFakeCreator()
	client.failGroup = "Billing"
	rec := &memRecorder{}

	report, err := New(client, nil, rec, Options{}).Publish(context.Background(), "acme", diff)
	require.Error(t, err)

	var remote *rest.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, 500, remote.StatusCode)

	assert.Equal(t, []string{"group:Billing"}, client.calls)
	assert.Empty(t, client.serviceReqs)
	assert.Equal(t, 1, report.Count(OutcomeFailed))
	assert.Equal(t, []EventType{EventRunStarted, EventPublishFailed}, rec.types())
}

func TestPublish_ServiceFailureAborts(t *testing.T) {
	diff := reconcileFixture(t, &snapshot.Snapshot{}, &snapshot.Snapshot{
		Services: []snapshot.Service{{ID: 8, Name: "First"}, {ID: 9, Name: "Second"}, {ID: 10, Name: "Third"}},
	})

	client := newFakeCreator()
	client.failService = "Second"

	report, err := New(client, nil, nil, Options{}).Publish(context.Background(), "acme", diff)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `create service "Second"`)
	assert.Equal(t, []string{"service:First", "service:Second"}, client.calls)
	assert.Equal(t, 1, report.Count(OutcomeCreated))
}

func TestPublish_CreatedGroupWithoutID(t *testing.T) {
	diff := reconcileFixture(t, &snapshot.Snapshot{}, &snapshot.Snapshot{
		Groups:   []snapshot.Group{{ID: 300, Name: "Billing"}},
		Services: []snapshot.Service{{ID: 8, Name: "Invoices", Group: groupRef(300, "Billing")}},
	})

	client := newFakeCreator()
	client.emptyGroup = "Billing"
	rec := &memRecorder{}
	report, err := New(client, nil, rec, Options{}).Publish(context.Background(), "acme", diff)
	require.ErrorIs(t, err, statuspage.ErrMissingID)

	// no service is sent with a zero group id
	assert.Equal(t, []string{"group:Billing"}, client.calls)
	assert.Nil(t, report.Diff.Groups[0].ExistInServer)
	assert.Equal(t, 1, report.Count(OutcomeFailed))
	assert.Equal(t, []EventType{EventRunStarted, EventPublishFailed}, rec.types())
}

func TestPublish_UnresolvedReference(t *testing.T) {
	// the service points at a group that is neither on the target nor in the backup
	diff := reconcileFixture(t, &snapshot.Snapshot{}, &snapshot.Snapshot{
		Services: []snapshot.Service{{ID: 8, Name: "Lost", Group: groupRef(404, "Ghost")}},
	})

	client := newFakeCreator()
	_, err := New(client, nil, nil, Options{}).Publish(context.Background(), "acme", diff)
	require.ErrorIs(t, err, reconcile.ErrUnresolvedReference)
	assert.Empty(t, client.calls)
}

func TestPublish_DryRun(t *testing.T) {
	diff := reconcileFixture(t, &snapshot.Snapshot{}, &snapshot.Snapshot{
		Groups: []snapshot.Group{{ID: 300, Name: "Billing"}, {ID: 301, Name: "Sub", Parent: id(300)}},
		Services: []snapshot.Service{
			{ID: 8, Name: "Invoices", Group: groupRef(301, "Sub")},
		},
	})

	client := newFakeCreator()
	rec := &memRecorder{}
	report, err := New(client, nil, rec, Options{DryRun: true, Debug: true}).Publish(context.Background(), "acme", diff)
	require.NoError(t, err)

	assert.Empty(t, client.calls)
	assert.True(t, report.DryRun)
	assert.Equal(t, 3, report.Count(OutcomePlanned))
	assert.Equal(t, []EventType{EventRunStarted, EventRunCompleted}, rec.types())
	for _, e := range rec.events {
		assert.True(t, e.DryRun)
	}
}

func TestPublish_DryRunMatchesRealRunUnderFoldMatcher(t *testing.T) {
	engine := reconcile.NewEngine(reconcile.Options{Matcher: reconcile.FoldMatcher{}})
	diff, err := engine.Reconcile(&snapshot.Snapshot{}, &snapshot.Snapshot{
		Groups:   []snapshot.Group{{ID: 300, Name: "Billing"}, {ID: 301, Name: "Sub", Parent: id(300)}},
		Services: []snapshot.Service{{ID: 8, Name: "Invoices", Group: groupRef(300, "billing")}},
	})
	require.NoError(t, err)

	items := engine.Plan(diff)
	assert.Zero(t, reconcile.Count(items).Blocked)

	dry, err := New(newFakeCreator(), engine, nil, Options{DryRun: true}).Publish(context.Background(), "acme", diff)
	require.NoError(t, err)
	assert.Equal(t, 3, dry.Count(OutcomePlanned))

	client := newFakeCreator()
	live, err := New(client, engine, nil, Options{}).Publish(context.Background(), "acme", diff)
	require.NoError(t, err)
	assert.Equal(t, 3, live.Count(OutcomeCreated))
	require.NotNil(t, client.serviceReqs[0].Group)
	assert.Equal(t, int64(1001), *client.serviceReqs[0].Group)
}

func TestPublish_DryRunStillReportsUnknownGroups(t *testing.T) {
	diff := reconcileFixture(t, &snapshot.Snapshot{}, &snapshot.Snapshot{
		Services: []snapshot.Service{{ID: 8, Name: "Lost", Group: groupRef(404, "Ghost")}},
	})

	_, err := New(newFakeCreator(), nil, nil, Options{DryRun: true}).Publish(context.Background(), "acme", diff)
	assert.ErrorIs(t, err, reconcile.ErrUnresolvedReference)
}

func TestCreationOrder(t *testing.T) {
	tests := []struct {
		name   string
		groups []reconcile.GroupDiff
		want   []int
	}{
		{
			name: "independent",
			groups: []reconcile.GroupDiff{
				{Group: snapshot.Group{ID: 1, Name: "a"}},
				{Group: snapshot.Group{ID: 2, Name: "b"}},
			},
			want: []int{0, 1},
		},
		{
			name: "chain_reversed",
			groups: []reconcile.GroupDiff{
				{Group: snapshot.Group{ID: 3, Name: "c"}, ParentName: &reconcile.NameRef{Name: "b", ID: 2}},
				{Group: snapshot.Group{ID: 2, Name: "b"}, ParentName: &reconcile.NameRef{Name: "a", ID: 1}},
				{Group: snapshot.Group{ID: 1, Name: "a"}},
			},
			want: []int{2, 1, 0},
		},
		{
			name: "cycle",
			groups: []reconcile.GroupDiff{
				{Group: snapshot.Group{ID: 1, Name: "a"}, ParentName: &reconcile.NameRef{Name: "b", ID: 2}},
				{Group: snapshot.Group{ID: 2, Name: "b"}, ParentName: &reconcile.NameRef{Name: "a", ID: 1}},
				{Group: snapshot.Group{ID: 3, Name: "c"}},
			},
			want: []int{2, 0, 1},
		},
		{
			name: "self_parent",
			groups: []reconcile.GroupDiff{
				{Group: snapshot.Group{ID: 1, Name: "a"}, ParentName: &reconcile.NameRef{Name: "a", ID: 1}},
			},
			want: []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, creationOrder(tt.groups))
		})
	}
}
