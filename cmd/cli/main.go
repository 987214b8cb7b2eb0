package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hamed0406/siteprobe/internal/domain"
	"github.com/hamed0406/siteprobe/internal/input"
)

// Submits a domain list to a running siteprobe API and waits for the run.
//
//	API_BASE=http://localhost:8080 API_KEY=... sitecli domains.txt
//	cat domains.txt | sitecli
func main() {
	os.Exit(run(os.Args[1:], os.Getenv, os.Stdin, os.Stdout, time.Second))
}

// run submits the domain list and polls until the run leaves "running".
// It returns the process exit code: non-zero when the run failed.
func run(args []string, getenv func(string) string, stdin io.Reader, out io.Writer, interval time.Duration) int {
	api := strings.TrimRight(getenv("API_BASE"), "/")
	if api == "" {
		api = "http://localhost:8080"
	}

	domains, err := readDomains(args, stdin)
	if err != nil {
		fmt.Fprintln(out, "Error reading domains:", err)
		return 1
	}
	if len(domains) == 0 {
		fmt.Fprintln(out, "No domains given.")
		return 1
	}

	c := &client{base: api, key: getenv("API_KEY"), http: &http.Client{Timeout: 30 * time.Second}}
	started, err := c.start(domains)
	if err != nil {
		fmt.Fprintln(out, "Error starting run:", err)
		return 1
	}
	fmt.Fprintf(out, "Run %s accepted (%d domains).\n", started.ID, started.Total)

	for {
		time.Sleep(interval)
		v, err := c.get(started.ID)
		if err != nil {
			fmt.Fprintln(out, "Error polling run:", err)
			return 1
		}
		fmt.Fprintf(out, "\r%d/%d done", len(v.Results), v.Run.Total)
		if v.Run.Status == domain.RunRunning {
			continue
		}
		fmt.Fprintln(out)
		printSummary(out, v)
		if v.Run.Status == domain.RunFailed {
			return 1
		}
		return 0
	}
}

func readDomains(args []string, stdin io.Reader) ([]string, error) {
	if len(args) == 0 || args[0] == "-" {
		return input.ReadDomains(stdin)
	}
	return input.LoadDomains(args[0])
}

type client struct {
	base string
	key  string
	http *http.Client
}

type runView struct {
	Run     domain.Run `json:"run"`
	Summary struct {
		Total   int            `json:"total"`
		Healthy int            `json:"healthy"`
		Counts  map[string]int `json:"counts"`
	} `json:"summary"`
	Results []domain.ProbeResult `json:"results"`
}

func (c *client) start(domains []string) (*domain.Run, error) {
	body, _ := json.Marshal(map[string][]string{"domains": domains})
	req, err := http.NewRequest(http.MethodPost, c.base+"/api/runs", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var run domain.Run
	if err := c.do(req, http.StatusAccepted, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *client) get(id domain.RunID) (*runView, error) {
	req, err := http.NewRequest(http.MethodGet, c.base+"/api/runs/"+string(id), nil)
	if err != nil {
		return nil, err
	}
	var v runView
	if err := c.do(req, http.StatusOK, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *client) do(req *http.Request, want int, out any) error {
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printSummary(out io.Writer, v *runView) {
	fmt.Fprintf(out, "Run %s %s: %d domains, %d healthy\n", v.Run.ID, v.Run.Status, v.Summary.Total, v.Summary.Healthy)
	classes := make([]string, 0, len(v.Summary.Counts))
	for c := range v.Summary.Counts {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for _, c := range classes {
		fmt.Fprintf(out, "  %-20s %d\n", c, v.Summary.Counts[c])
	}
}
