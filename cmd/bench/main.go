// Bench drives sustained load against an OpenAI-compatible endpoint and
// reports latency percentiles. Intended for sizing a local inference
// server before pointing spindle at it; do not aim it at a paid gateway.
//
// Usage:
//
//	go run ./cmd/bench -endpoint http://localhost:11434 -model llama3.1:8b -rate 5 -duration 30s
package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

func main() {
	endpoint := flag.String("endpoint", "http://localhost:11434", "base URL of the server")
	model := flag.String("model", "llama3.1:8b", "model id to request")
	duration := flag.Duration("duration", 10*time.Second, "attack duration")
	rate := flag.Int("rate", 5, "requests per second")
	stream := flag.Bool("stream", false, "use streaming requests")
	maxTokens := flag.Int("max-tokens", 32, "max tokens per completion")
	flag.Parse()

	body := fmt.Sprintf(
		`{"model":%q,"stream":%t,"max_tokens":%d,"messages":[{"role":"user","content":"Reply with the single word: ok"}]}`,
		*model, *stream, *maxTokens)

	targeter := func(t *vegeta.Target) error {
		t.Method = http.MethodPost
		t.URL = *endpoint + "/v1/chat/completions"
		t.Body = []byte(body)
		t.Header = http.Header{
			"Content-Type": []string{"application/json"},
		}
		return nil
	}

	mode := "unary"
	if *stream {
		mode = "streaming"
	}
	fmt.Printf("attacking %s (%s): %d req/s for %s\n", *endpoint, mode, *rate, *duration)

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "spindle-bench") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Println("--------------------------------------------------")
	fmt.Println("p50:        ", metrics.Latencies.P50)
	fmt.Println("p99:        ", metrics.Latencies.P99)
	fmt.Println("mean:       ", metrics.Latencies.Mean)
	fmt.Println("max:        ", metrics.Latencies.Max)
	fmt.Printf("success:     %.2f%%\n", metrics.Success*100)
	fmt.Printf("throughput:  %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("errors (unique, first 5):")
		seen := make(map[string]bool)
		for _, msg := range metrics.Errors {
			if seen[msg] || len(seen) >= 5 {
				continue
			}
			seen[msg] = true
			fmt.Println(" -", msg)
		}
	}
}
