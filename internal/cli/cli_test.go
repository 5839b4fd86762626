package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datalens/internal/application"
	appdatasets "github.com/bryanwahyu/datalens/internal/application/datasets"
	apptasks "github.com/bryanwahyu/datalens/internal/application/tasks"
	"github.com/bryanwahyu/datalens/internal/client"
	"github.com/bryanwahyu/datalens/internal/infra/ai/prompt"
	"github.com/bryanwahyu/datalens/internal/infra/cache"
	"github.com/bryanwahyu/datalens/internal/infra/db/memory"
	"github.com/bryanwahyu/datalens/internal/infra/httpserver"
	"github.com/bryanwahyu/datalens/internal/infra/storage"
)

const iris = `sepal,petal,species
5.1,1.4,setosa
4.9,1.4,setosa
6.3,4.9,virginica
5.8,5.1,virginica
`

type harness struct {
	server string
	state  string
	dir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DATALENS_SERVER", "")
	t.Setenv("DATALENS_API_KEY", "")

	clock := application.FixedClock{T: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	repo := memory.NewDatasetRepository()
	history := memory.NewAnalysisRepository()
	errs := memory.NewTaskErrorRepository()

	srv := httptest.NewUnstartedServer(nil)
	files := storage.NewLocal(afero.NewMemMapFs(), "http://"+srv.Listener.Addr().String())
	ds := &appdatasets.Service{
		Repo: repo, Files: files, Cache: cache.NewMemory(),
		History: history, Errors: errs, Clock: clock,
		PreviewTTL: time.Minute, Log: zerolog.Nop(),
	}
	ts := &apptasks.Service{
		Datasets: repo, Files: files, Analyses: history, Errors: errs,
		Explainer: prompt.Offline{}, Clock: clock, Log: zerolog.Nop(),
	}
	srv.Config.Handler = httpserver.NewRouter(ds, ts, httpserver.Options{Log: zerolog.Nop()})
	srv.Start()
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	return &harness{server: srv.URL, state: filepath.Join(dir, "state.yaml"), dir: dir}
}

func (h *harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := NewRootCmd(&out, &out)
	cmd.SetArgs(append([]string{"--server", h.server, "--state", h.state}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestCommandsNeedSelection(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{
		{"process", "central_tendency", "-c", "petal"},
		{"mine", "pagerank"},
		{"classify", "knn"},
		{"evaluate", "knn"},
		{"history"},
		{"errors"},
		{"preview"},
	} {
		_, err := h.run(args...)
		assert.ErrorIs(t, err, ErrNoDataset, args[0])
	}
}

func TestUploadUseAndProcess(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("upload", h.writeCSV(t, "iris.csv", iris), "--use")
	require.NoError(t, err)
	assert.Contains(t, out, `File "iris.csv" uploaded successfully.`)
	assert.Contains(t, out, "Selected iris.csv (id 1)")
	assert.Contains(t, out, "virginica")

	st, err := LoadState(h.state)
	require.NoError(t, err)
	assert.Equal(t, &State{Filename: "iris.csv", DatasetID: 1}, st)

	out, err = h.run("datasets")
	require.NoError(t, err)
	assert.Contains(t, out, "*")
	assert.Contains(t, out, "iris.csv")

	out, err = h.run("process", "central_tendency", "--column", "petal")
	require.NoError(t, err)
	assert.Contains(t, out, "Measures of Central Tendency")
	assert.Contains(t, out, "Mean")

	_, err = h.run("process", "central_tendency", "--column", "nope")
	assert.EqualError(t, err, "Column 'nope' not found in the file.")

	out, err = h.run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "central_tendency")

	out, err = h.run("errors", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Column 'nope' not found in the file.")

	out, err = h.run("explain", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "finished.")
}

func TestClassifyAndEvaluate(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("upload", h.writeCSV(t, "iris.csv", iris), "--use")
	require.NoError(t, err)

	out, err := h.run("classify", "knn", "-t", "species", "-p", "k=1", "--test", "sepal=5", "--test", "petal=1.5")
	require.NoError(t, err)
	assert.Contains(t, out, `"prediction": "setosa"`)

	out, err = h.run("evaluate", "knn", "-t", "species", "--test-size", "0.5", "--params", `{"k":1}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"accuracy"`)
}

func TestUseUnknownDataset(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("use", "ghost.csv")
	assert.EqualError(t, err, `dataset "ghost.csv" not found on the server`)

	_, err = os.Stat(h.state)
	assert.True(t, os.IsNotExist(err))
}

func TestArgumentErrors(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("upload", h.writeCSV(t, "iris.csv", iris), "--use")
	require.NoError(t, err)

	_, err = h.run("mine", "svm")
	assert.EqualError(t, err, `unknown mining task "svm"`)

	_, err = h.run("process", "central_tendency", "-p", "broken")
	assert.EqualError(t, err, `--param "broken": want key=value`)

	_, err = h.run("process", "central_tendency", "--params", "[1]")
	assert.ErrorContains(t, err, "--params is not a JSON object")

	_, err = h.run("explain", "abc")
	assert.EqualError(t, err, `invalid analysis id "abc"`)
}

func TestStateRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "state.yaml")

	st, err := LoadState(p)
	require.NoError(t, err)
	_, _, err = st.Selected()
	assert.ErrorIs(t, err, ErrNoDataset)

	require.NoError(t, (&State{Filename: "a.csv", DatasetID: 7}).Save(p))
	st, err = LoadState(p)
	require.NoError(t, err)
	name, id, err := st.Selected()
	require.NoError(t, err)
	assert.Equal(t, "a.csv", name)
	assert.Equal(t, int64(7), id)
}

func TestLoadConfigPrecedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DATALENS_SERVER", "")
	t.Setenv("DATALENS_API_KEY", "")

	cfgFile := filepath.Join(home, "c.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("server: http://file:1\napi_key: from-file\ntimeout_sec: 5\n"), 0o644))

	v := newViper()
	t.Setenv("DATALENS_API_KEY", "from-env")
	c, err := loadConfig(v, cfgFile)
	require.NoError(t, err)
	assert.Equal(t, "http://file:1", c.Server)
	assert.Equal(t, "from-env", c.APIKey)
	assert.Equal(t, 5*time.Second, c.Timeout())
	assert.Equal(t, 300*time.Millisecond, c.BaseDelay())
	assert.Equal(t, filepath.Join(home, ".datalens", "state.yaml"), c.StateFile)
}

func TestStaleSelectionIsRejected(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("upload", h.writeCSV(t, "iris.csv", iris))
	require.NoError(t, err)
	require.NoError(t, (&State{Filename: "gone.csv", DatasetID: 1}).Save(h.state))

	for _, args := range [][]string{{"history"}, {"process", "central_tendency", "-c", "petal"}, {"preview"}} {
		_, err = h.run(args...)
		assert.ErrorIs(t, err, ErrStaleDataset, args[0])
	}

	_, err = h.run("use", "iris.csv")
	require.NoError(t, err)
	out, err := h.run("history")
	require.NoError(t, err)
	assert.Contains(t, out, "(no analyses)")
}

func TestInterruptReportsCallInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	var errOut bytes.Buffer
	a := &app{client: client.New(srv.URL), errOut: &errOut}
	a.reportInterrupt()
	assert.Empty(t, errOut.String())

	done := make(chan error, 1)
	go func() {
		_, err := a.client.ListDatasets(context.Background())
		done <- err
	}()
	<-started
	a.reportInterrupt()
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, "Interrupted; cancelling the request in flight.\n", errOut.String())
}
