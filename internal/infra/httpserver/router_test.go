package httpserver

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datalens/internal/application"
	appdatasets "github.com/bryanwahyu/datalens/internal/application/datasets"
	apptasks "github.com/bryanwahyu/datalens/internal/application/tasks"
	"github.com/bryanwahyu/datalens/internal/infra/ai/prompt"
	"github.com/bryanwahyu/datalens/internal/infra/cache"
	"github.com/bryanwahyu/datalens/internal/infra/db/memory"
	"github.com/bryanwahyu/datalens/internal/infra/storage"
)

const iris = `sepal,petal,species
5.1,1.4,setosa
4.9,1.4,setosa
6.3,4.9,virginica
5.8,5.1,virginica
`

func newServer(t *testing.T) (*httptest.Server, *apptasks.Service) {
	t.Helper()
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
		Clock: clock, Log: zerolog.Nop(),
	}
	srv.Config.Handler = NewRouter(ds, ts, Options{Log: zerolog.Nop()})
	srv.Start()
	t.Cleanup(srv.Close)
	return srv, ts
}

func upload(t *testing.T, base, name, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("dataset", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(base+"/api/upload/", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp
}

func TestUploadPreviewAndMedia(t *testing.T) {
	srv, _ := newServer(t)

	resp := upload(t, srv.URL, "iris.csv", iris)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var up map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	assert.Equal(t, `File "iris.csv" uploaded successfully.`, up["message"])
	assert.Equal(t, srv.URL+"/media/iris.csv", up["file_url"])

	var list []map[string]any
	getJSON(t, srv.URL+"/api/datasets/", &list)
	require.Len(t, list, 1)
	assert.Equal(t, "iris.csv", list[0]["filename"])
	assert.Equal(t, []any{"sepal", "petal", "species"}, list[0]["columns"])

	var preview map[string]any
	r := getJSON(t, srv.URL+"/api/preview/iris.csv/", &preview)
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Len(t, preview["data"], 4)

	media, err := http.Get(up["file_url"])
	require.NoError(t, err)
	defer media.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(media.Body)
	require.NoError(t, err)
	assert.Equal(t, iris, body.String())
}

func TestUploadErrors(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Post(srv.URL+"/api/upload/", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, http.StatusBadRequest, upload(t, srv.URL, "empty.csv", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, upload(t, srv.URL, "notes.txt", "a\n").StatusCode)
}

func TestPreviewUnknownFile(t *testing.T) {
	srv, _ := newServer(t)
	var body map[string]string
	resp := getJSON(t, srv.URL+"/api/preview/nope.csv/", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "File not found.", body["error"])
}

func TestProcessAndHistory(t *testing.T) {
	srv, _ := newServer(t)
	require.Equal(t, http.StatusCreated, upload(t, srv.URL, "iris.csv", iris).StatusCode)

	resp, res := postJSON(t, srv.URL+"/api/process/", `{"filename":"iris.csv","task":"central_tendency","column":"petal"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Measures of Central Tendency", res["task"])
	assert.Equal(t, 3.2, res["mean"])

	resp, res = postJSON(t, srv.URL+"/api/process/", `{"filename":"iris.csv","task":"central_tendency","column":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Column 'nope' not found in the file.", res["error"])

	var history []map[string]any
	r := getJSON(t, srv.URL+"/api/datasets/1/analyses/", &history)
	assert.Equal(t, http.StatusOK, r.StatusCode)
	require.Len(t, history, 1)
	assert.Equal(t, "central_tendency", history[0]["task_name"])

	var errs []map[string]any
	getJSON(t, srv.URL+"/api/datasets/1/errors/?limit=5", &errs)
	require.Len(t, errs, 1)
	assert.Equal(t, "Column 'nope' not found in the file.", errs[0]["message"])

	var missing map[string]string
	r = getJSON(t, srv.URL+"/api/datasets/9/analyses/", &missing)
	assert.Equal(t, http.StatusNotFound, r.StatusCode)

	r = getJSON(t, srv.URL+"/api/datasets/abc/analyses/", &missing)
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestClassifyAndEvaluate(t *testing.T) {
	srv, _ := newServer(t)
	require.Equal(t, http.StatusCreated, upload(t, srv.URL, "iris.csv", iris).StatusCode)

	resp, res := postJSON(t, srv.URL+"/api/classify/", `{"filename":"iris.csv","task":"knn","params":{"target_attribute":"species","k":"1","test_instance":{"sepal":5,"petal":1.5}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "setosa", res["prediction"])

	resp, res = postJSON(t, srv.URL+"/api/classify/", `{"filename":"iris.csv","task":"knn"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing filename, task, or params", res["error"])

	resp, res = postJSON(t, srv.URL+"/api/evaluate/", `{"filename":"iris.csv","task":"knn","params":{"target_attribute":"species","test_size":0.5,"k":1}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, res, "confusion_matrix")

	resp, res = postJSON(t, srv.URL+"/api/process/", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, res["error"], "Invalid JSON body")
}

func TestExplain(t *testing.T) {
	srv, ts := newServer(t)
	require.Equal(t, http.StatusCreated, upload(t, srv.URL, "iris.csv", iris).StatusCode)
	resp, res := postJSON(t, srv.URL+"/api/process/", `{"filename":"iris.csv","task":"dispersion_of_data","column":"sepal"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := res["analysis_id"]

	resp, res = postJSON(t, srv.URL+"/api/analyses/1/explain/", `{}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	ts.Explainer = prompt.Offline{}
	resp, res = postJSON(t, srv.URL+"/api/analyses/1/explain/", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, res["analysis_id"])
	assert.Contains(t, res["explanation"], "Dispersion of Data finished.")
}

func TestMethodAndRouteErrors(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/api/process/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	var body map[string]string
	r := getJSON(t, srv.URL+"/api/nothing/", &body)
	assert.Equal(t, http.StatusNotFound, r.StatusCode)

	var health map[string]any
	r = getJSON(t, srv.URL+"/health", &health)
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, "healthy", health["status"])

	var metrics map[string]any
	getJSON(t, srv.URL+"/metrics", &metrics)
	assert.Contains(t, metrics, "tasks_total")
}

func TestNaNCellsAreText(t *testing.T) {
	srv, _ := newServer(t)
	require.Equal(t, http.StatusCreated, upload(t, srv.URL, "nan.csv", "a,b\n1,x\nNaN,y\n3,z\n").StatusCode)

	resp, res := postJSON(t, srv.URL+"/api/process/", `{"filename":"nan.csv","task":"central_tendency","column":"a"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2.0, res["mean"])

	resp, res = postJSON(t, srv.URL+"/api/process/", `{"filename":"nan.csv","task":"visualization","column1":"a","column2":"a","params":{"chart_type":"scatter_plot"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, res["chart_data"], 2)
}

func TestEncodeFailureIsServerError(t *testing.T) {
	r := &Router{log: zerolog.Nop()}
	h := r.wrap(func(w http.ResponseWriter, _ *http.Request) error {
		return writeJSON(w, http.StatusOK, map[string]float64{"mean": math.NaN()})
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "encode response")
}
