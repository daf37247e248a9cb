// Benchmark tool for timing Heron's engine operations on synthetic data.
//
// Usage:
//
//	go run cmd/benchmark/main.go -products 2000 -orders 20000 -workers 1,8,32
//	go run cmd/benchmark/main.go -url http://localhost:8080 -tenant bench
//
// This tool:
//  1. Generates a reproducible snapshot (customers, warehouses, stock, orders)
//  2. Runs every engine operation in-process for each worker count
//  3. Optionally uploads the snapshot to a running server and times the
//     HTTP endpoints, cold and cached
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
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/engine"
	"github.com/shopspring/decimal"
)

// Shape controls the size of the generated snapshot.
type Shape struct {
	Products   int
	Warehouses int
	Customers  int
	Orders     int
	Seed       int64
}

var (
	countries = []string{"DE", "US", "FR", "GB", "NL"}
	cities    = []string{"Berlin", "Austin", "Lyon", "Leeds", "Utrecht"}
	statuses  = []domain.OrderStatus{
		domain.StatusPending, domain.StatusConfirmed, domain.StatusProcessing,
		domain.StatusShipped, domain.StatusDelivered, domain.StatusCancelled,
	}
	customerTypes = []domain.CustomerType{
		domain.CustomerWholesale, domain.CustomerBusiness, domain.CustomerRetailer, domain.CustomerConsumer,
	}
)

func main() {
	products := flag.Int("products", 1000, "Number of products")
	warehouses := flag.Int("warehouses", 5, "Number of warehouses (each stocks every product)")
	customers := flag.Int("customers", 500, "Number of customers")
	orders := flag.Int("orders", 10000, "Number of orders")
	seed := flag.Int64("seed", 42, "Random seed")
	workerList := flag.String("workers", "1,4,16", "Comma-separated engine worker counts")
	runs := flag.Int("runs", 3, "Runs per operation (best time is reported)")
	baseURL := flag.String("url", "", "Heron base URL for HTTP timings (optional)")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for HTTP requests")
	flag.Parse()

	workers, err := parseWorkers(*workerList)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	shape := Shape{Products: *products, Warehouses: *warehouses, Customers: *customers, Orders: *orders, Seed: *seed}

	fmt.Println("HERON BENCHMARK - synthetic snapshot")
	fmt.Printf("\nProducts:    %d\n", shape.Products)
	fmt.Printf("Warehouses:  %d\n", shape.Warehouses)
	fmt.Printf("Customers:   %d\n", shape.Customers)
	fmt.Printf("Orders:      %d\n", shape.Orders)
	fmt.Printf("Seed:        %d\n", shape.Seed)
	fmt.Println()

	start := time.Now()
	snap := Generate(shape, time.Now().UTC())
	fmt.Printf("Generated snapshot in %s (%d positions)\n\n", time.Since(start).Round(time.Millisecond), len(snap.Inventory))

	asOf := time.Now().UTC()
	fmt.Printf("%-20s", "operation")
	for _, w := range workers {
		fmt.Printf(" %12s", fmt.Sprintf("workers=%d", w))
	}
	fmt.Printf(" %8s\n", "rows")

	for _, op := range operations(asOf) {
		fmt.Printf("%-20s", op.name)
		rows := 0
		for _, w := range workers {
			best, n, err := timeOp(engine.New(w), snap, op, *runs)
			if err != nil {
				fmt.Printf(" %12s", "error")
				fmt.Fprintf(os.Stderr, "%s: %v\n", op.name, err)
				continue
			}
			fmt.Printf(" %12s", best.Round(time.Microsecond))
			rows = n
		}
		fmt.Printf(" %8d\n", rows)
	}

	if *baseURL != "" {
		if err := benchmarkHTTP(*baseURL, *tenantID, snap); err != nil {
			fmt.Printf("\nERROR: %v\n", err)
			os.Exit(1)
		}
	}
}

type op struct {
	name string
	path string
	run  func(ctx context.Context, e *engine.Engine, snap *domain.Snapshot) (int, error)
}

func operations(asOf time.Time) []op {
	return []op{
		{"allocations", "/allocations", func(ctx context.Context, e *engine.Engine, s *domain.Snapshot) (int, error) {
			r, err := e.RecommendAllocations(ctx, s, asOf, engine.AllocationFilters{})
			return len(r), err
		}},
		{"risk", "/risk", func(ctx context.Context, e *engine.Engine, s *domain.Snapshot) (int, error) {
			r, err := e.ScoreRisk(ctx, s, asOf, engine.RiskFilters{})
			return len(r), err
		}},
		{"reorders", "/reorders", func(ctx context.Context, e *engine.Engine, s *domain.Snapshot) (int, error) {
			r, err := e.SuggestReorders(ctx, s, engine.ReorderFilters{})
			return len(r), err
		}},
		{"channel-splits", "/channel-splits", func(ctx context.Context, e *engine.Engine, s *domain.Snapshot) (int, error) {
			r, err := e.SplitChannels(ctx, s, asOf, engine.ChannelFilters{})
			return len(r), err
		}},
		{"scenarios", "/scenarios", func(ctx context.Context, e *engine.Engine, s *domain.Snapshot) (int, error) {
			r, err := e.SimulateScenarios(ctx, s, engine.ScenarioParams{})
			return len(r), err
		}},
	}
}

func timeOp(e *engine.Engine, snap *domain.Snapshot, o op, runs int) (time.Duration, int, error) {
	var best time.Duration
	rows := 0
	for i := 0; i < max(runs, 1); i++ {
		start := time.Now()
		n, err := o.run(context.Background(), e, snap)
		elapsed := time.Since(start)
		if err != nil {
			return 0, 0, err
		}
		if i == 0 || elapsed < best {
			best = elapsed
		}
		rows = n
	}
	return best, rows, nil
}

// Generate builds a reproducible snapshot. Orders are spread over the 120
// days before asOf.
func Generate(shape Shape, asOf time.Time) *domain.Snapshot {
	rng := rand.New(rand.NewSource(shape.Seed))
	snap := &domain.Snapshot{}

	for i := 0; i < shape.Warehouses; i++ {
		k := i % len(countries)
		snap.Warehouses = append(snap.Warehouses, domain.Warehouse{
			ID:       fmt.Sprintf("w%d", i),
			Name:     fmt.Sprintf("%s DC %d", cities[k], i),
			Location: domain.Geography{Country: countries[k], City: cities[k]},
		})
	}

	for i := 0; i < shape.Products; i++ {
		p := domain.Product{ID: fmt.Sprintf("p%d", i), SKU: fmt.Sprintf("SKU-%05d", i), Name: fmt.Sprintf("Product %d", i)}
		snap.Products = append(snap.Products, p)
		for _, w := range snap.Warehouses {
			rp := 10 + rng.Intn(90)
			snap.Inventory = append(snap.Inventory, domain.InventoryPosition{
				ID:           p.ID + "-" + w.ID,
				Product:      p,
				WarehouseID:  w.ID,
				OnHand:       rng.Intn(400),
				Reserved:     rng.Intn(20),
				ReorderPoint: rp,
				SafetyStock:  rp / 2,
			})
		}
	}

	for i := 0; i < shape.Customers; i++ {
		k := rng.Intn(len(countries))
		snap.Customers = append(snap.Customers, domain.Customer{
			ID:       fmt.Sprintf("c%d", i),
			Name:     fmt.Sprintf("Customer %d", i),
			Type:     customerTypes[rng.Intn(len(customerTypes))],
			Location: domain.Geography{Country: countries[k], City: cities[k]},
		})
	}

	channels := domain.Channels()
	for i := 0; i < shape.Orders && shape.Customers > 0 && shape.Products > 0; i++ {
		lines := make([]domain.OrderLine, 1+rng.Intn(3))
		for j := range lines {
			qty := 1 + rng.Intn(25)
			lines[j] = domain.OrderLine{
				ID:        fmt.Sprintf("o%d-l%d", i, j),
				ProductID: fmt.Sprintf("p%d", rng.Intn(shape.Products)),
				Quantity:  qty,
				LineTotal: decimal.NewFromInt(int64(qty)).Mul(decimal.NewFromFloat(5 + rng.Float64()*200)).Round(2),
			}
		}
		snap.Orders = append(snap.Orders, domain.Order{
			ID:         fmt.Sprintf("o%d", i),
			CustomerID: fmt.Sprintf("c%d", rng.Intn(shape.Customers)),
			Status:     statuses[rng.Intn(len(statuses))],
			Channel:    channels[rng.Intn(len(channels))],
			PlacedAt:   asOf.Add(-time.Duration(rng.Intn(120*24)) * time.Hour),
			Lines:      lines,
		})
	}

	return snap
}

func parseWorkers(list string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(list, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid worker count %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func benchmarkHTTP(baseURL, tenantID string, snap *domain.Snapshot) error {
	client := &http.Client{Timeout: 60 * time.Second}

	if err := checkHealth(client, baseURL); err != nil {
		return fmt.Errorf("heron not reachable at %s: %w", baseURL, err)
	}
	fmt.Printf("\nHeron is healthy at %s\n", baseURL)

	start := time.Now()
	if _, err := send(client, http.MethodPut, baseURL+"/snapshot", tenantID, snap); err != nil {
		return fmt.Errorf("snapshot upload failed: %w", err)
	}
	fmt.Printf("Uploaded snapshot in %s\n\n", time.Since(start).Round(time.Millisecond))

	fmt.Printf("%-20s %12s %12s %8s\n", "endpoint", "cold", "cached", "rows")
	for _, o := range operations(time.Time{}) {
		coldStart := time.Now()
		body, err := send(client, http.MethodPost, baseURL+o.path, tenantID, map[string]any{})
		if err != nil {
			return fmt.Errorf("%s failed: %w", o.path, err)
		}
		cold := time.Since(coldStart)

		warmStart := time.Now()
		if _, err := send(client, http.MethodPost, baseURL+o.path, tenantID, map[string]any{}); err != nil {
			return fmt.Errorf("%s failed: %w", o.path, err)
		}
		warm := time.Since(warmStart)

		var resp struct {
			Count int `json:"count"`
		}
		_ = json.Unmarshal(body, &resp)
		fmt.Printf("%-20s %12s %12s %8d\n", o.name, cold.Round(time.Microsecond), warm.Round(time.Microsecond), resp.Count)
	}
	return nil
}

func checkHealth(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func send(client *http.Client, method, url, tenantID string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
