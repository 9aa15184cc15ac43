// simulate hammers the booking API with concurrent, deliberately colliding
// create requests to measure how the conflict engine behaves under load:
// exactly one request per (doctor, slot) pair should win, every other one
// should come back 409.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/groupeclinic/clinic-scheduling/internal/config"
	"github.com/groupeclinic/clinic-scheduling/internal/db"
	"github.com/groupeclinic/clinic-scheduling/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	SlotCount    int // distinct (doctor, time) slots the workers fight over
	DoctorLimit  int
	PatientLimit int
	PostgresDSN  string
}

type DataPool struct {
	Doctors  []int64
	Patients []int64
	Slots    []time.Time
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, p50, p95
}

func main() {
	logging.Init("simulate", os.Getenv("APP_ENV"))
	log.Info().Msg("simulator starting")

	simCfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, simCfg.PostgresDSN, 4)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	pool := &DataPool{}
	if err := pgPool.QueryRow(ctx, `SELECT COALESCE(array_agg(id), '{}') FROM (SELECT id FROM doctors LIMIT $1) d`, simCfg.DoctorLimit).Scan(&pool.Doctors); err != nil {
		log.Fatal().Err(err).Msg("load doctors")
	}
	if err := pgPool.QueryRow(ctx, `SELECT COALESCE(array_agg(id), '{}') FROM (SELECT id FROM patients LIMIT $1) p`, simCfg.PatientLimit).Scan(&pool.Patients); err != nil {
		log.Fatal().Err(err).Msg("load patients")
	}
	if len(pool.Doctors) == 0 || len(pool.Patients) == 0 {
		log.Fatal().Msg("no doctors or patients in database, run cmd/seed first")
	}

	// All workers pick from the same small set of future slots so conflicts
	// are guaranteed.
	base := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	for i := 0; i < simCfg.SlotCount; i++ {
		pool.Slots = append(pool.Slots, base.Add(time.Duration(i)*30*time.Minute))
	}

	log.Info().
		Int("doctors", len(pool.Doctors)).
		Int("patients", len(pool.Patients)).
		Int("slots", len(pool.Slots)).
		Int("workers", simCfg.Workers).
		Dur("duration", simCfg.Duration).
		Msg("simulation data ready")

	var metrics OperationMetrics
	client := &http.Client{Timeout: 10 * time.Second}

	runCtx, stopRun := context.WithTimeout(context.Background(), simCfg.Duration)
	defer stopRun()

	var wg sync.WaitGroup
	for w := 0; w < simCfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for runCtx.Err() == nil {
				doctorID := pool.Doctors[rng.Intn(len(pool.Doctors))]
				patientID := pool.Patients[rng.Intn(len(pool.Patients))]
				slot := pool.Slots[rng.Intn(len(pool.Slots))]

				status, latency := postBooking(runCtx, client, simCfg.APIBaseURL, doctorID, patientID, slot)
				if status > 0 {
					metrics.Record(latency, status)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}

	wg.Wait()

	avg, p50, p95 := metrics.Stats()
	log.Info().
		Int64("total", atomic.LoadInt64(&metrics.Total)).
		Int64("created", atomic.LoadInt64(&metrics.Success)).
		Int64("conflicts", atomic.LoadInt64(&metrics.Conflict)).
		Int64("errors", atomic.LoadInt64(&metrics.Error)).
		Dur("avg", avg).
		Dur("p50", p50).
		Dur("p95", p95).
		Msg("simulation complete")

	// The invariant under test: created bookings never exceed the number of
	// distinct (doctor, slot) pairs.
	maxWinners := int64(len(pool.Doctors) * len(pool.Slots))
	if atomic.LoadInt64(&metrics.Success) > maxWinners {
		log.Error().
			Int64("created", atomic.LoadInt64(&metrics.Success)).
			Int64("max_expected", maxWinners).
			Msg("DOUBLE BOOKING DETECTED")
		os.Exit(1)
	}
}

func postBooking(ctx context.Context, client *http.Client, baseURL string, doctorID, patientID int64, slot time.Time) (int, time.Duration) {
	payload, _ := json.Marshal(map[string]any{
		"medecinId":      doctorID,
		"patientId":      patientID,
		"dateHeureDebut": slot.Format(time.RFC3339),
		"dureeMinutes":   30,
		"motif":          "simulation",
		"salle":          fmt.Sprintf("S%d", doctorID%10),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/rendezvous", bytes.NewReader(payload))
	if err != nil {
		return 0, 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Email", "simulator@clinique.local")
	req.Header.Set("X-User-Role", "SECRETAIRE")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return 0, 0
		}
		return http.StatusInternalServerError, latency
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, latency
}

func loadSimConfig() SimConfig {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	return SimConfig{
		APIBaseURL:   getEnv("SIM_API_URL", "http://localhost:"+cfg.HTTPPort),
		Duration:     getEnvDuration("SIM_DURATION", 30*time.Second),
		Workers:      getEnvInt("SIM_WORKERS", 20),
		SlotCount:    getEnvInt("SIM_SLOTS", 8),
		DoctorLimit:  getEnvInt("SIM_DOCTORS", 5),
		PatientLimit: getEnvInt("SIM_PATIENTS", 200),
		PostgresDSN:  cfg.PostgresDSN,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
