package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/deskops/internal/prompt"
	"github.com/dokzlo13/deskops/internal/snapshot"
)

// fakeStatusPage serves list and create endpoints from memory.
type fakeStatusPage struct {
	mu       sync.Mutex
	groups   []map[string]any
	services []map[string]any
	posts    []string
	bodies   []map[string]any
	nextID   int64
}

func (f *fakeStatusPage) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/groups/", func(w http.ResponseWriter, r *http.Request) {
		f.serve(w, r, "groups/", &f.groups)
	})
	mux.HandleFunc("/api/v1/services/", func(w http.ResponseWriter, r *http.Request) {
		f.serve(w, r, "services/", &f.services)
	})
	mux.HandleFunc("/api/v1/maintenance/", func(w http.ResponseWriter, r *http.Request) {
		f.serve(w, r, "maintenance/", &[]map[string]any{})
	})
	return mux
}

func (f *fakeStatusPage) serve(w http.ResponseWriter, r *http.Request, resource string, items *[]map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		results := *items
		if results == nil {
			results = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"count": len(results), "next": nil, "results": results})
	case http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.nextID++
		body["id"] = f.nextID
		f.posts = append(f.posts, resource)
		f.bodies = append(f.bodies, body)
		*items = append(*items, body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type env struct {
	dir    string
	config string
	fake   *fakeStatusPage
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	fake := &fakeStatusPage{nextID: 500}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	secrets := filepath.Join(dir, "secrets")
	require.NoError(t, os.MkdirAll(secrets, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(secrets, "freshstatus_acme.key"), []byte("token"), 0o600))

	cfg := fmt.Sprintf(`
log:
  level: error
statuspage:
  base_url: %s/api/v1/
  account_url: %s/pages/%%s
  rate_limit_rps: 1000
secrets:
  dir: %s
database:
  path: %s
export:
  dir: %s
`, srv.URL, srv.URL, secrets, filepath.Join(dir, "deskops.sqlite"), dir)
	path := filepath.Join(dir, "deskops.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	return &env{dir: dir, config: path, fake: fake}
}

func (e *env) run(t *testing.T, p prompt.Prompter, args ...string) (string, error) {
	t.Helper()
	if p == nil {
		p = &prompt.Scripted{}
	}
	var out bytes.Buffer
	err := run(context.Background(), p, &out, append([]string{"-c", e.config}, args...))
	return out.String(), err
}

func (e *env) writeBackup(t *testing.T) string {
	t.Helper()
	parent := int64(1)
	snap := &snapshot.Snapshot{
		Groups: []snapshot.Group{
			{ID: 1, Name: "Infra"},
			{ID: 2, Name: "Storage", Parent: &parent},
		},
		Services: []snapshot.Service{
			{ID: 10, Name: "API", Group: &snapshot.GroupRef{ID: 1, Name: "Infra"}},
			{ID: 11, Name: "Blobs", Group: &snapshot.GroupRef{ID: 2, Name: "Storage", Parent: &parent}},
		},
	}
	path := filepath.Join(e.dir, "backup.json")
	require.NoError(t, snapshot.Save(path, snap))
	return path
}

func TestStatusRestore(t *testing.T) {
	e := newEnv(t)
	backup := e.writeBackup(t)

	out, err := e.run(t, nil, "status", "restore", "-a", "acme", "-b", backup, "--yes")
	require.NoError(t, err)

	assert.Equal(t, []string{"groups/", "groups/", "services/", "services/"}, e.fake.posts)
	// Storage is created under the new Infra id
	assert.EqualValues(t, 501, e.fake.bodies[1]["parent_id"])
	assert.EqualValues(t, 501, e.fake.bodies[2]["group"])
	assert.EqualValues(t, 502, e.fake.bodies[3]["group"])
	assert.Contains(t, out, "4 created")

	// a second run finds everything on the target
	e.fake.posts = nil
	for _, s := range e.fake.services {
		s["group"] = map[string]any{"id": s["group"], "name": groupName(e.fake.groups, s["group"])}
	}
	out, err = e.run(t, nil, "status", "restore", "-a", "acme", "-b", backup, "--yes")
	require.NoError(t, err)
	assert.Empty(t, e.fake.posts)
	assert.Contains(t, out, "Nothing to restore")

	out, err = e.run(t, nil, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "service_created")
	assert.Contains(t, out, "run_completed")
}

func groupName(groups []map[string]any, id any) string {
	for _, g := range groups {
		if fmt.Sprint(g["id"]) == fmt.Sprint(id) {
			return fmt.Sprint(g["name"])
		}
	}
	return ""
}

func TestStatusRestore_DryRun(t *testing.T) {
	e := newEnv(t)
	backup := e.writeBackup(t)

	out, err := e.run(t, nil, "--dry-run", "status", "restore", "-a", "acme", "-b", backup)
	require.NoError(t, err)

	assert.Empty(t, e.fake.posts)
	assert.Contains(t, out, "DRY RUN")
	assert.Contains(t, out, "4 planned")
}

func TestStatusRestore_Declined(t *testing.T) {
	e := newEnv(t)
	backup := e.writeBackup(t)

	out, err := e.run(t, &prompt.Scripted{Confirms: []bool{false}}, "status", "restore", "-a", "acme", "-b", backup)
	require.NoError(t, err)
	assert.Empty(t, e.fake.posts)
	assert.Contains(t, out, "Aborted")
}

func TestStatusDiff_JSON(t *testing.T) {
	e := newEnv(t)
	backup := e.writeBackup(t)
	e.fake.groups = []map[string]any{{"id": 77, "name": "Infra", "parent": nil}}

	out, err := e.run(t, nil, "status", "diff", "-a", "acme", "-b", backup, "--json")
	require.NoError(t, err)

	var diff struct {
		Groups []struct {
			Name          string `json:"name"`
			ExistInServer *int64 `json:"exist_in_server"`
		} `json:"groups"`
		Services []struct {
			Name  string `json:"name"`
			Group struct {
				ID int64 `json:"id"`
			} `json:"group"`
		} `json:"services"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &diff))
	require.Len(t, diff.Groups, 2)
	require.NotNil(t, diff.Groups[0].ExistInServer)
	assert.Equal(t, int64(77), *diff.Groups[0].ExistInServer)
	assert.Nil(t, diff.Groups[1].ExistInServer)
	assert.Equal(t, int64(77), diff.Services[0].Group.ID)
}

func TestStatusBackup_Save(t *testing.T) {
	e := newEnv(t)
	e.fake.groups = []map[string]any{{"id": 1, "name": "Infra", "parent": nil}}
	e.fake.services = []map[string]any{{
		"id": 10, "name": "API", "description": "", "order": 1,
		"display_options": map[string]any{"uptime_history_enabled": true},
		"group":           map[string]any{"id": 1, "name": "Infra", "parent": nil, "order": 0},
	}}
	path := filepath.Join(e.dir, "out.json")

	out, err := e.run(t, nil, "status", "backup", "-a", "acme", "--save", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Backup saved to "+path)
	assert.Contains(t, out, "Infra")

	snap, err := snapshot.Load(path)
	require.NoError(t, err)
	require.Len(t, snap.Services, 1)
	assert.Equal(t, "Infra", snap.Services[0].GroupName())
}

func TestStatusBackup_DefaultFileName(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, &prompt.Scripted{Confirms: []bool{true}}, "status", "backup", "-a", "acme")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(e.dir, "fstatus_acme_services_backup-*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestStatus_PromptsForAccount(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, &prompt.Scripted{Inputs: []string{""}}, "status", "services")
	assert.EqualError(t, err, "account name is required")

	out, err := e.run(t, &prompt.Scripted{Inputs: []string{"acme"}}, "status", "services")
	require.NoError(t, err)
	assert.Contains(t, out, "No services")
}

func TestStatus_MissingKey(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, nil, "status", "services", "-a", "other")
	assert.ErrorContains(t, err, "authentication failure")
}

func TestStatusCheck(t *testing.T) {
	e := newEnv(t)

	// the fake answers 404 for /pages/<account>
	out, err := e.run(t, nil, "status", "check", "nope")
	assert.Error(t, err)
	assert.Contains(t, out, "does not exist")
}

func TestStatusMaintenance_DryRun(t *testing.T) {
	e := newEnv(t)
	tpl := map[string]any{
		"template_name": "Release",
		"title":         "Release {rel_ver}",
		"description":   "Deploying {rel_ver}",
		"account": map[string]any{
			"acme": map[string]any{"name": "Acme", "affected_components": map[string]any{"1": "major-outage"}},
			"corp": map[string]any{"name": "Corp", "affected_components": map[string]any{"2": "major-outage"}},
		},
	}
	data, err := json.Marshal(tpl)
	require.NoError(t, err)
	tplPath := filepath.Join(e.dir, "tpl.json")
	require.NoError(t, os.WriteFile(tplPath, data, 0o600))

	start := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	out, err := e.run(t, nil, "--dry-run", "status", "maintenance",
		"-t", tplPath, "--remove", "2", "-r", "4.2",
		"--start-date", start, "--start-time", "06:00 AM",
		"--end-date", start, "--end-time", "12:00 PM")
	require.NoError(t, err)

	assert.Contains(t, out, "DRY RUN MODE ACTIVE")
	assert.Contains(t, out, "Removed: corp")
	assert.Contains(t, out, "DRY RUN: payload for acme")
	assert.Contains(t, out, "Release 4.2")
	assert.Empty(t, e.fake.posts)
}

func TestStatusMaintenance_Creates(t *testing.T) {
	e := newEnv(t)
	tpl := `{"template_name":"Release","title":"Release {rel_ver}","account":{"acme":{"name":"Acme","affected_components":{"1":"x"}}}}`
	tplPath := filepath.Join(e.dir, "tpl.json")
	require.NoError(t, os.WriteFile(tplPath, []byte(tpl), 0o600))

	p := &prompt.Scripted{
		Confirms: []bool{false, true}, // keep all accounts, then schedule
		Inputs:   []string{"5.0", "", "", "", ""},
	}
	_, err := e.run(t, p, "status", "maintenance", "-t", tplPath)
	require.NoError(t, err)

	require.Equal(t, []string{"maintenance/"}, e.fake.posts)
	assert.Equal(t, "Release 5.0", e.fake.bodies[0]["title"])
}

func TestHistory_Empty(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, nil, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No history")

	out, err = e.run(t, nil, "history", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 0 entries older than 90 days")
}
