package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:3001", "prixscout API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per case")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Cases cover each extraction path. Browser searches run the same query
// repeatedly so the first run is cold and the rest are cache hits.
var cases = []struct {
	Label string
	Path  string
}{
	{"Static listing", "/scrape/" + url.PathEscape("pixel 9")},
	{"Static listing", "/scrape/" + url.PathEscape("gaming laptop")},
	{"Product detail", "/details/mobiles/google-pixel-9-ppd1v2y7x4cn"},
	{"Browser search", "/search/" + url.PathEscape("washing machine") + "?isCompare=false"},
	{"Thumbnails", "/images/" + url.PathEscape("pixel 9")},
}

type runResult struct {
	Run        int    `json:"run"`
	TotalMs    int64  `json:"total_ms"`
	StatusCode int    `json:"status_code"`
	Items      int    `json:"items"`
	Cache      string `json:"cache,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type caseResult struct {
	Label   string      `json:"label"`
	Path    string      `json:"path"`
	Runs    []runResult `json:"runs"`
	FirstMs int64       `json:"first_ms"`
	AvgMs   float64     `json:"avg_ms"`
}

type benchmarkReport struct {
	Timestamp   string       `json:"timestamp"`
	APIURL      string       `json:"api_url"`
	RunsPerCase int          `json:"runs_per_case"`
	Results     []caseResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== prixscout benchmark ===")
	fmt.Printf("API URL:    %s\n", *apiURL)
	fmt.Printf("Runs/case:  %d\n", *runs)
	fmt.Printf("Output:     %s\n", *output)
	fmt.Println()

	client := &http.Client{Timeout: 90 * time.Second}

	if err := checkAPI(client, *apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		APIURL:      *apiURL,
		RunsPerCase: *runs,
	}

	for _, c := range cases {
		fmt.Printf("Benchmarking [%s] %s ...\n", c.Label, c.Path)
		cr := caseResult{Label: c.Label, Path: c.Path}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkPath(client, c.Path, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d items %s\n", rr.TotalMs, rr.Items, rr.Cache)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			cr.Runs = append(cr.Runs, rr)
		}

		summarize(&cr)
		report.Results = append(report.Results, cr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkPath(client *http.Client, path string, run int) runResult {
	rr := runResult{Run: run}

	req, err := http.NewRequest(http.MethodGet, *apiURL+path, nil)
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	rr.TotalMs = time.Since(start).Milliseconds()
	rr.StatusCode = resp.StatusCode
	rr.Cache = resp.Header.Get("X-Cache")
	if err != nil {
		rr.Error = fmt.Sprintf("read error: %v", err)
		return rr
	}

	rr.Items, rr.Error = countItems(body)
	rr.Success = resp.StatusCode == http.StatusOK && rr.Error == ""
	return rr
}

// countItems returns the array length of a list body, 1 for a detail object,
// or the API's error message.
func countItems(body []byte) (int, string) {
	var list []json.RawMessage
	if json.Unmarshal(body, &list) == nil {
		return len(list), ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return 0, fmt.Sprintf("decode error: %v", err)
	}
	if raw, ok := obj["error"]; ok {
		var msg string
		_ = json.Unmarshal(raw, &msg)
		return 0, msg
	}
	return 1, ""
}

func summarize(cr *caseResult) {
	var total float64
	var n int
	for _, r := range cr.Runs {
		if !r.Success {
			continue
		}
		if n == 0 {
			cr.FirstMs = r.TotalMs
		}
		total += float64(r.TotalMs)
		n++
	}
	if n > 0 {
		cr.AvgMs = total / float64(n)
	}
}

func printTable(results []caseResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Case\tPath\tFirst\tAvg\tOK\n")
	fmt.Fprintf(w, "────\t────\t─────\t───\t──\n")

	for _, r := range results {
		ok := 0
		for _, run := range r.Runs {
			if run.Success {
				ok++
			}
		}
		if ok == 0 {
			fmt.Fprintf(w, "%s\t%s\tFAILED\t-\t0/%d\n", r.Label, truncate(r.Path, 40), len(r.Runs))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%dms\t%dms\t%d/%d\n",
			r.Label, truncate(r.Path, 40), r.FirstMs, int64(r.AvgMs), ok, len(r.Runs))
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
