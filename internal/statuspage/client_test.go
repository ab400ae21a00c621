package statuspage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/deskops/internal/credentials"
	"github.com/dokzlo13/deskops/internal/rest"
)

func newClient(t *testing.T, handler http.Handler, pageSize int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	transport := rest.NewClient(rest.Config{
		BaseURL:      srv.URL + "/api/v1/",
		Credential:   credentials.Credential{Token: "tok", Account: "acme", Scheme: credentials.SchemeBasic},
		RateLimitRPS: 1000,
	})
	return NewClient(transport, pageSize)
}

func TestListGroups_PaginatesUntilShortPage(t *testing.T) {
	total := 5
	var offsets []int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/groups/", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		offsets = append(offsets, offset)

		var results []map[string]any
		for i := offset; i < total && i < offset+limit; i++ {
			results = append(results, map[string]any{"id": i + 1, "name": fmt.Sprintf("G%d", i+1), "parent": nil})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"count": total, "results": results})
	})

	groups, err := newClient(t, mux, 2).ListGroups(context.Background())
	require.NoError(t, err)

	assert.Len(t, groups, 5)
	assert.Equal(t, []int{0, 2, 4}, offsets)
	assert.Equal(t, "G5", groups[4].Name)
}

func TestListServices_StopsOnNullNext(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/services/", func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"count":2,"next":null,"results":[
			{"id":1,"name":"API","description":"","order":1,"group":{"id":3,"name":"Infra","parent":null,"order":1}},
			{"id":2,"name":"Web","description":"","order":2,"group":null}
		]}`))
	})

	services, err := newClient(t, mux, 2).ListServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, services, 2)
	assert.Equal(t, "Infra", services[0].GroupName())
	assert.Nil(t, services[1].Group)
}

func TestListGroups_RemoteError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/groups/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	_, err := newClient(t, mux, 100).ListGroups(context.Background())
	var remote *rest.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusUnauthorized, remote.StatusCode)
}

func TestCreateGroupAndService(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/groups/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		data, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"NewTeam","parent_id":1}`, string(data))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"name":"NewTeam","parent":1}`))
	})
	mux.HandleFunc("/api/v1/services/", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name":"API","description":"d","order":3,"group":42,"display_options":{"a":1}}`, string(data))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"name":"API","description":"d","order":3,"group":{"id":42,"name":"NewTeam","parent":1,"order":2}}`))
	})
	client := newClient(t, mux, 100)

	parent := int64(1)
	group, err := client.CreateGroup(context.Background(), GroupRequest{Name: "NewTeam", ParentID: &parent})
	require.NoError(t, err)
	assert.Equal(t, int64(42), group.ID)

	groupID := group.ID
	svc, err := client.CreateService(context.Background(), ServiceRequest{
		Name: "API", Description: "d", Order: 3, Group: &groupID, DisplayOptions: []byte(`{"a":1}`),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), svc.ID)
	assert.Equal(t, 2, svc.Group.Order)
}

func TestCreate_EmptyBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/groups/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/api/v1/services/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"name":"API"}`))
	})
	client := newClient(t, mux, 100)

	group, err := client.CreateGroup(context.Background(), GroupRequest{Name: "Billing"})
	require.ErrorIs(t, err, ErrMissingID)
	assert.Nil(t, group)

	svc, err := client.CreateService(context.Background(), ServiceRequest{Name: "API"})
	require.ErrorIs(t, err, ErrMissingID)
	assert.Nil(t, svc)
}

func TestCreateGroup_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/groups/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := newClient(t, mux, 100).CreateGroup(context.Background(), GroupRequest{Name: "x"})
	var remote *rest.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusInternalServerError, remote.StatusCode)
}

func TestCheckAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/acme" {
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	require.NoError(t, CheckAccount(context.Background(), srv.URL+"/%s", "acme"))
	assert.Error(t, CheckAccount(context.Background(), srv.URL+"/%s", "ghost"))
}
