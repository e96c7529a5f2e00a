// apicheck exercises every endpoint of a running prediction server and
// reports which ones respond correctly. Useful as a post-deploy smoke
// test.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type check struct {
	name   string
	method string
	path   string
	body   any
}

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8000", "Base URL of the prediction server")
		timeout  = flag.Duration("timeout", 30*time.Second, "Per-request timeout")
		wait     = flag.Duration("wait", 60*time.Second, "How long to wait for the server to come up")
		logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	client := resty.New().
		SetBaseURL(*baseURL).
		SetTimeout(*timeout)

	if !waitForServer(client, *wait) {
		log.Fatal().Str("url", *baseURL).Msg("server not reachable")
	}

	samplePrediction := map[string]any{
		"model_name": "xgboost",
		"locations": []map[string]any{
			{
				"latitude":   28.6139,
				"longitude":  77.209,
				"parking":    5,
				"restaurant": 12,
				"school":     3,
				"commercial": 8,
				"population": 7500.0,
			},
		},
	}

	checks := []check{
		{"health", "GET", "/health", nil},
		{"models", "GET", "/api/models", nil},
		{"stats", "GET", "/api/stats", nil},
		{"predict", "POST", "/api/predict", samplePrediction},
		{"feature importance", "GET", "/api/feature-importance", nil},
		{"existing predictions", "GET", "/api/existing-predictions?limit=10", nil},
		{"map", "GET", "/api/map", nil},
		{"metrics", "GET", "/metrics", nil},
	}

	passed := 0
	for _, c := range checks {
		if runCheck(client, c) {
			passed++
		}
	}

	fmt.Printf("\n%d/%d endpoints passed\n", passed, len(checks))
	if passed != len(checks) {
		os.Exit(1)
	}
}

func waitForServer(client *resty.Client, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		resp, err := client.R().Get("/api/stats")
		if err == nil && resp.StatusCode() == 200 {
			log.Info().Msg("server is ready")
			return true
		}
		log.Debug().Msg("waiting for server...")
		time.Sleep(2 * time.Second)
	}
	return false
}

func runCheck(client *resty.Client, c check) bool {
	var (
		resp *resty.Response
		err  error
	)
	switch c.method {
	case "GET":
		resp, err = client.R().Get(c.path)
	case "POST":
		resp, err = client.R().SetBody(c.body).Post(c.path)
	default:
		log.Error().Str("method", c.method).Msg("unsupported method")
		return false
	}

	if err != nil {
		log.Error().Err(err).Str("check", c.name).Msg("request failed")
		return false
	}
	// The dataset endpoints legitimately 404 on servers running without
	// historical data.
	if resp.StatusCode() == 404 {
		log.Warn().Str("check", c.name).Msg("endpoint reports no data (skipped)")
		return true
	}
	if resp.StatusCode() != 200 {
		log.Error().
			Str("check", c.name).
			Int("status", resp.StatusCode()).
			Str("body", truncate(resp.String(), 120)).
			Msg("unexpected status")
		return false
	}

	log.Info().Str("check", c.name).Msg("ok")
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
