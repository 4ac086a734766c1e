package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/liveboard/liveboard/internal/adapters/http/api"
	"github.com/liveboard/liveboard/internal/app"
	"github.com/liveboard/liveboard/internal/domain/model"
	"github.com/liveboard/liveboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.WithWriter(io.Discard))
	m.Run()
}

type env struct {
	svc *app.Service
	srv *httptest.Server
}

func newEnv() *env {
	ctx := context.Background()
	svc := app.New()
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(ctx, mux)
	return &env{svc: svc, srv: httptest.NewServer(mux)}
}

func (e *env) close() {
	e.srv.Close()
	e.svc.Stop()
}

func (e *env) do(method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, buf)
	if err != nil {
		panic(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (e *env) createEvent() model.Event {
	_, data := e.do(http.MethodPost, "/events", map[string]any{
		"name":   "Quiz Night",
		"rounds": []map[string]any{{"name": "Round 1"}, {"name": "Round 2"}},
		"teams":  []string{"Alpha", "Beta"},
	}, nil)
	var ev model.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		panic(err)
	}
	return ev
}

func (e *env) teamID(eventID, name string) string {
	snap, err := e.svc.Snapshot(context.Background(), eventID)
	if err != nil {
		panic(err)
	}
	for _, t := range snap.Teams {
		if t.Name == name {
			return t.ID
		}
	}
	panic("team not found: " + name)
}

func TestEventsEndpoints(t *testing.T) {
	Convey("Given a running API", t, func() {
		e := newEnv()
		defer e.close()

		Convey("When creating an event", func() {
			resp, data := e.do(http.MethodPost, "/events", map[string]any{
				"name":   "Quiz Night",
				"rounds": []map[string]any{{"name": "Round 1"}},
			}, nil)

			Convey("Then it comes back 201 as a draft", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				var ev model.Event
				So(json.Unmarshal(data, &ev), ShouldBeNil)
				So(ev.Status, ShouldEqual, model.StatusDraft)
			})
		})

		Convey("When creating an event without rounds", func() {
			resp, _ := e.do(http.MethodPost, "/events", map[string]any{"name": "No Rounds"}, nil)

			Convey("Then it is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When fetching an unknown event", func() {
			resp, _ := e.do(http.MethodGet, "/events/ghost", nil, nil)

			Convey("Then it is a 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When walking the lifecycle", func() {
			ev := e.createEvent()

			resp, data := e.do(http.MethodPut, "/events/"+ev.ID+"/status", map[string]string{"status": "active"}, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var got model.Event
			So(json.Unmarshal(data, &got), ShouldBeNil)
			So(got.Status, ShouldEqual, model.StatusActive)
			So(got.CurrentRound, ShouldEqual, 1)

			Convey("Then an unknown status is rejected", func() {
				resp, _ := e.do(http.MethodPut, "/events/"+ev.ID+"/status", map[string]string{"status": "paused"}, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then the round can be advanced within range", func() {
				resp, _ := e.do(http.MethodPut, "/events/"+ev.ID+"/round", map[string]int{"round": 2}, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				resp, _ = e.do(http.MethodPut, "/events/"+ev.ID+"/round", map[string]int{"round": 9}, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then a reset wipes the scores", func() {
				alpha := e.teamID(ev.ID, "Alpha")
				_, _ = e.do(http.MethodPut, "/events/"+ev.ID+"/scores", map[string]any{
					"teamId": alpha, "roundNumber": 1, "points": 10,
				}, nil)

				resp, data := e.do(http.MethodPost, "/events/"+ev.ID+"/reset", nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var reset model.Event
				So(json.Unmarshal(data, &reset), ShouldBeNil)
				So(reset.CurrentRound, ShouldEqual, 1)

				snap, err := e.svc.Snapshot(context.Background(), ev.ID)
				So(err, ShouldBeNil)
				So(snap.Scores, ShouldBeEmpty)
			})

			Convey("Then the event can be deleted", func() {
				resp, _ := e.do(http.MethodDelete, "/events/"+ev.ID, nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				resp, _ = e.do(http.MethodGet, "/events/"+ev.ID, nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When listing events", func() {
			e.createEvent()
			resp, data := e.do(http.MethodGet, "/events", nil, nil)

			Convey("Then all events are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var events []model.Event
				So(json.Unmarshal(data, &events), ShouldBeNil)
				So(events, ShouldHaveLength, 1)
			})
		})
	})
}

func TestScoreAndLeaderboardEndpoints(t *testing.T) {
	Convey("Given an active event", t, func() {
		e := newEnv()
		defer e.close()

		ev := e.createEvent()
		_, _ = e.do(http.MethodPut, "/events/"+ev.ID+"/status", map[string]string{"status": "active"}, nil)
		alpha := e.teamID(ev.ID, "Alpha")
		beta := e.teamID(ev.ID, "Beta")
		operator := map[string]string{"X-Operator-Id": "op-1", "X-Operator-Name": "Dana"}

		Convey("When saving a score", func() {
			resp, data := e.do(http.MethodPut, "/events/"+ev.ID+"/scores", map[string]any{
				"teamId":      alpha,
				"roundNumber": 1,
				"points":      42.5,
			}, operator)

			Convey("Then it is persisted with the operator identity", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var score model.Score
				So(json.Unmarshal(data, &score), ShouldBeNil)
				So(score.Points, ShouldEqual, 42.5)
				So(score.EnteredBy, ShouldEqual, "op-1")
			})
		})

		Convey("When saving an out-of-range score", func() {
			resp, _ := e.do(http.MethodPut, "/events/"+ev.ID+"/scores", map[string]any{
				"teamId":      alpha,
				"roundNumber": 1,
				"points":      -3,
			}, operator)

			Convey("Then it is rejected with 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When deleting a score", func() {
			_, _ = e.do(http.MethodPut, "/events/"+ev.ID+"/scores", map[string]any{
				"teamId": alpha, "roundNumber": 1, "points": 10,
			}, operator)

			resp, _ := e.do(http.MethodDelete, "/events/"+ev.ID+"/scores?teamId="+alpha+"&round=1", nil, operator)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			Convey("Then deleting it again is a 404", func() {
				resp, _ := e.do(http.MethodDelete, "/events/"+ev.ID+"/scores?teamId="+alpha+"&round=1", nil, operator)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a full round is scored", func() {
			for i, id := range []string{alpha, beta} {
				_, _ = e.do(http.MethodPut, "/events/"+ev.ID+"/scores", map[string]any{
					"teamId": id, "roundNumber": 1, "points": 10 * (i + 1),
				}, operator)
			}

			Convey("Then the leaderboard endpoint reflects it", func() {
				resp, data := e.do(http.MethodGet, "/events/"+ev.ID+"/leaderboard", nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var lb struct {
					Rankings []struct {
						Rank int `json:"rank"`
						Team struct {
							Name string `json:"name"`
						} `json:"team"`
					} `json:"rankings"`
				}
				So(json.Unmarshal(data, &lb), ShouldBeNil)
				So(lb.Rankings, ShouldHaveLength, 2)
				So(lb.Rankings[0].Team.Name, ShouldEqual, "Beta")
			})

			Convey("Then the CSV export carries the standings", func() {
				resp, data := e.do(http.MethodGet, "/events/"+ev.ID+"/export", nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldStartWith, "text/csv")

				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				So(lines[0], ShouldEqual, "Rank,Team,Round 1,Round 2,Total,Average")
				So(lines[1], ShouldStartWith, "1,Beta,20")
			})

			Convey("Then the audit endpoint lists the writes", func() {
				resp, data := e.do(http.MethodGet, "/events/"+ev.ID+"/audit", nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var entries []map[string]any
				So(json.Unmarshal(data, &entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0]["changedBy"], ShouldEqual, "op-1")
			})
		})

		Convey("When adding and removing a team over HTTP", func() {
			resp, data := e.do(http.MethodPost, "/events/"+ev.ID+"/teams", map[string]any{
				"name": "Gamma", "joinedRound": 2,
			}, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusCreated)

			var team model.Team
			So(json.Unmarshal(data, &team), ShouldBeNil)
			So(team.JoinedRound, ShouldEqual, 2)

			Convey("Then a duplicate name conflicts", func() {
				resp, _ := e.do(http.MethodPost, "/events/"+ev.ID+"/teams", map[string]any{"name": "Gamma"}, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
			})

			Convey("Then removal succeeds once", func() {
				resp, _ := e.do(http.MethodDelete, "/events/"+ev.ID+"/teams/"+team.ID, nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				resp, _ = e.do(http.MethodDelete, "/events/"+ev.ID+"/teams/"+team.ID, nil, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given a running API", t, func() {
		e := newEnv()
		defer e.close()

		Convey("Then the health endpoint answers ok", func() {
			resp, data := e.do(http.MethodGet, "/healthz", nil, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(data), ShouldContainSubstring, "ok")
		})

		Convey("Then the stats endpoint reports totals", func() {
			e.createEvent()
			resp, data := e.do(http.MethodGet, "/stats", nil, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var stats map[string]any
			So(json.Unmarshal(data, &stats), ShouldBeNil)
			So(stats["events"], ShouldEqual, 1.0) // JSON numbers decode as float64
		})

		Convey("Then the metrics endpoint serves Prometheus text", func() {
			resp, data := e.do(http.MethodGet, "/metrics", nil, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(data), ShouldContainSubstring, "liveboard")
		})
	})
}
