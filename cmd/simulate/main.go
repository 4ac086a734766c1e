// Command simulate drives a running liveboard server through a full
// event: create, start, score every round with concurrent operators,
// then print the final leaderboard. A watcher connection follows the
// event's live feed and reports the edit conflicts the concurrent
// writes produce.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/liveboard/liveboard/internal/broadcast"
	"github.com/liveboard/liveboard/internal/conflict"
	"github.com/liveboard/liveboard/pkg/logger"
)

const (
	defaultRounds  = 5
	defaultTeams   = 8
	defaultTimeout = 10 * time.Second
	maxPoints      = 100
)

type event struct {
	ID           string `json:"id"`
	CurrentRound int    `json:"currentRound"`
}

type team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9090", "Base URL of the service")
		rounds  = flag.Int("rounds", defaultRounds, "Number of rounds")
		teams   = flag.Int("teams", defaultTeams, "Number of teams")
		delay   = flag.Duration("delay", 200*time.Millisecond, "Pause between rounds")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx := context.Background()
	c := &client{baseURL: *baseURL, http: &http.Client{Timeout: *timeout}}

	if err := run(ctx, c, *rounds, *teams, *delay); err != nil {
		os.Stderr.WriteString("simulate failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client, rounds, teams int, delay time.Duration) error {
	ev, roster, err := c.createEvent(ctx, rounds, teams)
	if err != nil {
		return err
	}
	fmt.Printf("created event %s with %d teams, %d rounds\n", ev.ID, len(roster), rounds)

	if err := c.setStatus(ctx, ev.ID, "active"); err != nil {
		return err
	}

	// The watcher pretends to edit the first team's round-1 cell; the
	// judges' writes will collide with it and surface conflicts.
	if len(roster) > 0 {
		watchCtx, stopWatch := context.WithCancel(ctx)
		defer stopWatch()
		go watchConflicts(watchCtx, c.baseURL, ev.ID, roster[0].ID)
	}

	for round := 1; round <= rounds; round++ {
		if round > 1 {
			if err := c.setRound(ctx, ev.ID, round); err != nil {
				return err
			}
		}

		// Each team's score is entered by its own operator, concurrently,
		// the way a real judging panel would.
		var wg sync.WaitGroup
		for i, t := range roster {
			wg.Add(1)
			go func(opNum int, t team) {
				defer wg.Done()
				points := float64(rand.Intn(maxPoints*4)) / 4 // quarter points stay within 2 decimals
				if err := c.saveScore(ctx, ev.ID, t.ID, round, points, opNum); err != nil {
					fmt.Printf("score failed for %s round %d: %v\n", t.Name, round, err)
				}
			}(i, t)
		}
		wg.Wait()
		fmt.Printf("round %d scored\n", round)
		time.Sleep(delay)
	}

	if err := c.setStatus(ctx, ev.ID, "completed"); err != nil {
		return err
	}
	return c.printLeaderboard(ctx, ev.ID)
}

// watchConflicts dials the event's live feed and runs a conflict
// coordinator over it, printing each collision it detects.
func watchConflicts(ctx context.Context, baseURL, eventID, teamID string) {
	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/live/" + eventID
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		fmt.Printf("watcher: dial failed: %v\n", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	msgs := make(chan broadcast.Message, 16)
	coord := conflict.New("watcher", msgs, conflict.WithConflictHandler(func(c conflict.Conflict) {
		fmt.Printf("watcher: conflict on team %s round %d: remote wrote %.2f (by %s)\n",
			c.Key.TeamID, c.Key.Round, c.RemoteValue, c.ChangedBy)
	}))
	coord.BeginEdit(conflict.CellKey{TeamID: teamID, Round: 1}, "draft")
	go coord.Run(ctx)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			close(msgs)
			return
		}
		var msg broadcast.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		select {
		case msgs <- msg:
		case <-ctx.Done():
			close(msgs)
			return
		}
	}
}

type client struct {
	baseURL string
	http    *http.Client
}

func (c *client) createEvent(ctx context.Context, rounds, teams int) (event, []team, error) {
	type roundIn struct {
		Name    string `json:"name"`
		IsBonus bool   `json:"isBonus"`
	}
	req := struct {
		Name   string    `json:"name"`
		Rounds []roundIn `json:"rounds"`
		Teams  []string  `json:"teams"`
	}{Name: fmt.Sprintf("Simulated Event %d", time.Now().Unix())}
	for i := 1; i <= rounds; i++ {
		req.Rounds = append(req.Rounds, roundIn{Name: fmt.Sprintf("Round %d", i), IsBonus: i == rounds})
	}
	for i := 1; i <= teams; i++ {
		req.Teams = append(req.Teams, fmt.Sprintf("Team %d", i))
	}

	var ev event
	if err := c.do(ctx, http.MethodPost, "/events", req, &ev); err != nil {
		return event{}, nil, err
	}

	// The create response carries only the event; the roster comes from
	// the leaderboard rows.
	var lb struct {
		Rows []struct {
			Team team `json:"team"`
		} `json:"rankings"`
	}
	if err := c.do(ctx, http.MethodGet, "/events/"+ev.ID+"/leaderboard", nil, &lb); err != nil {
		return event{}, nil, err
	}
	roster := make([]team, 0, len(lb.Rows))
	for _, row := range lb.Rows {
		roster = append(roster, row.Team)
	}
	return ev, roster, nil
}

func (c *client) setStatus(ctx context.Context, eventID, status string) error {
	return c.do(ctx, http.MethodPut, "/events/"+eventID+"/status", map[string]string{"status": status}, nil)
}

func (c *client) setRound(ctx context.Context, eventID string, round int) error {
	return c.do(ctx, http.MethodPut, "/events/"+eventID+"/round", map[string]int{"round": round}, nil)
}

func (c *client) saveScore(ctx context.Context, eventID, teamID string, round int, points float64, opNum int) error {
	body := map[string]any{"teamId": teamID, "roundNumber": round, "points": points}
	req, err := c.newRequest(ctx, http.MethodPut, "/events/"+eventID+"/scores", body)
	if err != nil {
		return err
	}
	req.Header.Set("X-Operator-Id", fmt.Sprintf("judge-%d", opNum))
	req.Header.Set("X-Operator-Name", fmt.Sprintf("Judge %d", opNum))
	return c.send(req, nil)
}

func (c *client) printLeaderboard(ctx context.Context, eventID string) error {
	var lb struct {
		Rows []struct {
			Rank  int     `json:"rank"`
			Team  team    `json:"team"`
			Total float64 `json:"totalScore"`
		} `json:"rankings"`
	}
	if err := c.do(ctx, http.MethodGet, "/events/"+eventID+"/leaderboard", nil, &lb); err != nil {
		return err
	}
	fmt.Println("final standings:")
	for _, row := range lb.Rows {
		fmt.Printf("  %2d. %-12s %.2f\n", row.Rank, row.Team.Name, row.Total)
	}
	return nil
}

func (c *client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, string(b))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
