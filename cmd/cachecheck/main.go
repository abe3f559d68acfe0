// Command cachecheck exercises the Redis-backed paths of a running API: the
// slot detail cache and Idempotency-Key replay on booking creation.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"visitly/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type checkResult struct {
	Name         string
	Status       int
	ResponseTime time.Duration
	Detail       string
	Success      bool
}

type suite struct {
	baseURL string
	token   string
	http    *http.Client
	redis   *redis.Client
	results []checkResult
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080/api/v1", "API base URL")
	redisAddr := flag.String("redis", "localhost:6379", "Redis address")
	slotIDs := flag.String("slots", "", "comma-separated slot ids to read")
	bookSlot := flag.String("book", "", "slot id to book twice with one Idempotency-Key")
	flag.Parse()

	s := &suite{
		baseURL: strings.TrimRight(*baseURL, "/"),
		token:   os.Getenv("VISITLY_TOKEN"),
		http:    &http.Client{Timeout: 10 * time.Second},
		redis:   redis.NewClient(&redis.Options{Addr: *redisAddr}),
	}
	defer s.redis.Close()

	ctx := context.Background()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	if s.token == "" {
		log.Fatal("VISITLY_TOKEN must hold an access token")
	}

	for _, id := range strings.Split(*slotIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			s.checkSlotCache(ctx, id)
		}
	}
	if *bookSlot != "" {
		s.checkIdempotentBooking(*bookSlot)
	}

	failed := s.report()
	if failed > 0 {
		os.Exit(1)
	}
}

func (s *suite) checkSlotCache(ctx context.Context, slotID string) {
	cold := s.request("slot "+slotID+" cold", http.MethodGet, "/slots/"+slotID, nil, nil)
	warm := s.request("slot "+slotID+" warm", http.MethodGet, "/slots/"+slotID, nil, nil)

	ttl, err := s.redis.TTL(ctx, constants.BuildSlotDetailKey(slotID)).Result()
	r := checkResult{Name: "slot " + slotID + " cached", Success: err == nil && ttl > 0}
	if err != nil {
		r.Detail = err.Error()
	} else {
		r.Detail = fmt.Sprintf("ttl %s, %v -> %v", ttl, cold.ResponseTime, warm.ResponseTime)
	}
	s.results = append(s.results, r)
}

func (s *suite) checkIdempotentBooking(slotID string) {
	key := uuid.NewString()
	body := []byte(`{"visitor_contact":{"name":"Cache Check","email":"cachecheck@visitly.local"},"number_of_visitors":1}`)
	headers := map[string]string{"Idempotency-Key": key}

	first := s.request("booking first attempt", http.MethodPost, "/slots/"+slotID+"/bookings", body, headers)
	second := s.request("booking replay", http.MethodPost, "/slots/"+slotID+"/bookings", body, headers)
	replayed := first.Success && second.Status == first.Status && strings.Contains(second.Detail, "replayed")
	s.results = append(s.results, checkResult{
		Name:    "booking idempotent",
		Success: replayed,
		Detail:  fmt.Sprintf("statuses %d/%d", first.Status, second.Status),
	})
}

func (s *suite) request(name, method, path string, body []byte, headers map[string]string) checkResult {
	req, err := http.NewRequest(method, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return s.record(checkResult{Name: name, Detail: err.Error()})
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return s.record(checkResult{Name: name, ResponseTime: elapsed, Detail: err.Error()})
	}
	defer resp.Body.Close()

	r := checkResult{
		Name:         name,
		Status:       resp.StatusCode,
		ResponseTime: elapsed,
		Success:      resp.StatusCode < 300,
	}
	if resp.Header.Get("Idempotent-Replayed") == "true" {
		r.Detail = "replayed"
	}
	return s.record(r)
}

func (s *suite) record(r checkResult) checkResult {
	s.results = append(s.results, r)
	return r
}

func (s *suite) report() int {
	failed := 0
	for _, r := range s.results {
		mark := "ok  "
		if !r.Success {
			mark = "FAIL"
			failed++
		}
		fmt.Printf("%s %-40s status=%d time=%v %s\n", mark, r.Name, r.Status, r.ResponseTime, r.Detail)
	}
	fmt.Printf("%d checks, %d failed\n", len(s.results), failed)
	return failed
}
