package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/custseg/internal/adapters/http/api"
	service "github.com/okian/custseg/internal/app"
	"github.com/okian/custseg/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeDeps struct {
	mu        sync.Mutex
	ready     bool
	submitErr error
	reportErr error
	runs      map[string]model.RunStatus
	keys      map[string]string
	next      int
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{ready: true, runs: map[string]model.RunStatus{}, keys: map[string]string{}}
}

func (f *fakeDeps) Submit(_ context.Context, key string) (model.RunStatus, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return model.RunStatus{}, false, f.submitErr
	}
	if id, ok := f.keys[key]; ok && key != "" {
		return f.runs[id], true, nil
	}
	f.next++
	st := model.RunStatus{
		ID:          fmt.Sprintf("run-%d", f.next),
		State:       model.JobQueued,
		SubmittedAt: time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC),
	}
	f.runs[st.ID] = st
	if key != "" {
		f.keys[key] = st.ID
	}
	return st, false, nil
}

func (f *fakeDeps) Status(id string) (model.RunStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.runs[id]
	if !ok {
		return model.RunStatus{}, fmt.Errorf("%w: %s", service.ErrRunNotFound, id)
	}
	return st, nil
}

func (f *fakeDeps) Report(context.Context) (*model.Report, error) {
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	return &model.Report{
		HighSpenders: []model.CustomerRank{{CustomerID: "c1", Name: "Ada L", TotalSpent: 120.5, OrdersCount: 3}},
		BestSellers:  []model.ProductCount{{Name: "Tea", QuantitySold: 4}},
	}, nil
}

func (f *fakeDeps) Ready() bool { return f.ready }

func (f *fakeDeps) GetStats() map[string]any {
	return map[string]any{"queue_length": 0, "workers": 2}
}

func do(h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := newFakeDeps()
		h := api.NewServer(deps).Router()

		Convey("When checking health", func() {
			So(do(h, http.MethodGet, "/healthz", nil).Code, ShouldEqual, http.StatusOK)

			deps.ready = false
			w := do(h, http.MethodGet, "/healthz", nil)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["status"], ShouldEqual, "starting")
		})

		Convey("When scraping metrics after a request", func() {
			do(h, http.MethodGet, "/stats", nil)
			w := do(h, http.MethodGet, "/metrics", nil)

			Convey("Then the HTTP counter is exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
			})
		})

		Convey("When reading stats", func() {
			w := do(h, http.MethodGet, "/stats", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(decode(w)["workers"], ShouldEqual, float64(2))
		})

		Convey("When submitting a segmentation run", func() {
			w := do(h, http.MethodPost, "/segmentations", map[string]string{api.IdempotencyHeader: "k-1"})

			Convey("Then it is accepted with a location", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decode(w)
				So(body["id"], ShouldEqual, "run-1")
				So(body["state"], ShouldEqual, "queued")
				So(body["duplicate"], ShouldEqual, false)
				So(w.Header().Get("Location"), ShouldEqual, "/segmentations/run-1")
			})

			Convey("Then the same key returns the original run", func() {
				again := do(h, http.MethodPost, "/segmentations", map[string]string{api.IdempotencyHeader: "k-1"})
				So(again.Code, ShouldEqual, http.StatusOK)
				body := decode(again)
				So(body["id"], ShouldEqual, "run-1")
				So(body["duplicate"], ShouldEqual, true)
			})

			Convey("Then its status can be fetched", func() {
				st := do(h, http.MethodGet, "/segmentations/run-1", nil)
				So(st.Code, ShouldEqual, http.StatusOK)
				So(decode(st)["id"], ShouldEqual, "run-1")
			})
		})

		Convey("When the key is too long", func() {
			w := do(h, http.MethodPost, "/segmentations", map[string]string{api.IdempotencyHeader: strings.Repeat("x", 200)})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the queue is full", func() {
			deps.submitErr = service.ErrBackpressure
			w := do(h, http.MethodPost, "/segmentations", nil)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Header().Get("Retry-After"), ShouldEqual, "1")
			So(decode(w)["code"], ShouldEqual, "backpressure")
		})

		Convey("When the service is not started", func() {
			deps.submitErr = service.ErrNotStarted
			So(do(h, http.MethodPost, "/segmentations", nil).Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When a run result cannot be encoded", func() {
			deps.runs["run-inf"] = model.RunStatus{
				ID:     "run-inf",
				State:  model.JobSucceeded,
				Result: &model.Result{RunID: "run-inf", Inertia: math.Inf(1)},
			}
			w := do(h, http.MethodGet, "/segmentations/run-inf", nil)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(w)["code"], ShouldEqual, "internal_error")
		})

		Convey("When fetching an unknown run", func() {
			w := do(h, http.MethodGet, "/segmentations/nope", nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When fetching the report", func() {
			w := do(h, http.MethodGet, "/reports", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			var rep model.Report
			So(json.Unmarshal(w.Body.Bytes(), &rep), ShouldBeNil)
			So(rep.HighSpenders[0].CustomerID, ShouldEqual, "c1")
			So(rep.BestSellers[0].QuantitySold, ShouldEqual, 4)
		})

		Convey("When the report hits bad data", func() {
			deps.reportErr = model.NewDataQualityError("orders", "o-1", "{", nil)
			w := do(h, http.MethodGet, "/reports", nil)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decode(w)["code"], ShouldEqual, "data_quality")
		})

		Convey("When the OpenAPI document is requested", func() {
			So(do(h, http.MethodGet, "/openapi.yaml", nil).Code, ShouldEqual, http.StatusOK)
		})
	})
}
