package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// Start the server with GEOALERT_RATE_LIMIT=0, otherwise most requests from
// this single client are rejected with 429.
const (
	baseURL      = "http://127.0.0.1:18090"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numTrackers  = 500
	numGeofences = 20

	centerLat = 37.7749
	centerLon = -122.4194
	// spread of geofences and samples around the center, in degrees
	spread = 0.02
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

// per-tracker clocks keep sample timestamps increasing so samples are not
// dropped as stale
var clocks [numTrackers]atomic.Int64

func main() {
	fmt.Println("=== GeoAlert Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Trackers: %d | Geofences: %d\n\n", numTrackers, numGeofences)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fmt.Println("\n--- Seeding geofences and links ---")
	if err := seed(); err != nil {
		fmt.Printf("FAILED: %s\n", err)
		return
	}
	start := time.Now().UnixMilli()
	for i := range clocks {
		clocks[i].Store(start)
	}

	fmt.Println("\n--- Phase 1: Location ingestion (POST /locations) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doPostLocation(rng)
	})

	fmt.Println("\n--- Phase 2: Mixed load (80% POST, 20% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.80:
			return doPostLocation(rng)
		case r < 0.90:
			return doGetAlerts(rng)
		case r < 0.95:
			return doGet("/geofences")
		default:
			return doGet("/trackers")
		}
	})

	fmt.Println("\n--- Phase 3: Read-heavy load (10% POST, 90% GET) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doPostLocation(rng)
		case r < 0.70:
			return doGetAlerts(rng)
		case r < 0.85:
			return doGet("/geofences")
		default:
			return doGet("/simulations")
		}
	})
}

func seed() error {
	rng := rand.New(rand.NewSource(1))
	for g := 0; g < numGeofences; g++ {
		body := map[string]interface{}{
			"id":              fmt.Sprintf("g%d", g),
			"name":            fmt.Sprintf("Zone %d", g),
			"centerLatitude":  centerLat + (rng.Float64()-0.5)*spread,
			"centerLongitude": centerLon + (rng.Float64()-0.5)*spread,
			"radius":          150 + rng.Float64()*350,
		}
		if err := post("/geofences", body, http.StatusCreated); err != nil {
			return err
		}
	}
	for t := 0; t < numTrackers; t++ {
		for k := 0; k < 3; k++ {
			body := map[string]interface{}{
				"trackerId":    fmt.Sprintf("tracker-%d", t),
				"geofenceId":   fmt.Sprintf("g%d", rng.Intn(numGeofences)),
				"alertOnEnter": true,
				"alertOnExit":  true,
			}
			if err := post("/links", body, http.StatusCreated); err != nil {
				return err
			}
		}
	}
	return nil
}

func post(path string, body interface{}, want int) error {
	data, _ := json.Marshal(body)
	resp, err := httpClient.Post(baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != want {
		return fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}
	return nil
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		avg := avgDuration(s.latencies)
		p50 := percentile(s.latencies, 0.50)
		p95 := percentile(s.latencies, 0.95)
		p99 := percentile(s.latencies, 0.99)

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors, fmtDur(avg), fmtDur(p50), fmtDur(p95), fmtDur(p99))
	}

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func doPostLocation(rng *rand.Rand) result {
	t := rng.Intn(numTrackers)
	body := map[string]interface{}{
		"trackerId": fmt.Sprintf("tracker-%d", t),
		"latitude":  centerLat + (rng.Float64()-0.5)*spread,
		"longitude": centerLon + (rng.Float64()-0.5)*spread,
		"timestamp": clocks[t].Add(1000),
		"accuracy":  5 + rng.Float64()*20,
	}

	data, _ := json.Marshal(body)
	start := time.Now()
	resp, err := httpClient.Post(baseURL+"/locations", "application/json", bytes.NewReader(data))
	lat := time.Since(start)
	if err != nil {
		return result{"POST /locations", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"POST /locations", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doGetAlerts(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/alerts?trackerId=tracker-%d&limit=20", baseURL, rng.Intn(numTrackers))
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /alerts", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /alerts", resp.StatusCode, lat, resp.StatusCode != 200}
}

func doGet(path string) result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + path)
	lat := time.Since(start)
	if err != nil {
		return result{"GET " + path, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET " + path, resp.StatusCode, lat, resp.StatusCode != 200}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
