package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/config"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/jetstream"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/model"
	"gitlab.com/timkado/api/outreach-metrics-service/internal/observer"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
)

const (
	defaultBatchSize = 50
	modeNATS         = "nats"
	modeHTTP         = "http"
)

// sender delivers one generated payload for a channel.
type sender interface {
	Send(ctx context.Context, channel model.Channel, body []byte) (target string, err error)
}

type natsSender struct {
	client jetstream.ClientInterface
	prefix string
}

func (s natsSender) Send(_ context.Context, channel model.Channel, body []byte) (string, error) {
	subject := model.SubjectFor(s.prefix, channel)
	return subject, s.client.Publish(subject, body, map[string]string{"Nats-Msg-Id": uuid.NewString()})
}

type httpSender struct {
	client  *http.Client
	baseURL string
}

func (s httpSender) Send(ctx context.Context, channel model.Channel, body []byte) (string, error) {
	path := fmt.Sprintf("/api/%s-agent-leads", channel)
	if channel == model.ChannelNewsletter {
		path = "/api/newsletter-analytics"
	}
	target := strings.TrimRight(s.baseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return path, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return path, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return path, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return path, nil
}

// batchTask is a group of channels to generate one payload each for.
type batchTask struct {
	Channels []model.Channel
}

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	mode := flag.String("mode", modeNATS, "Delivery mode: nats or http")
	natsURL := flag.String("url", cfg.NATS.URL, "NATS server URL")
	subjectPrefix := flag.String("subject-prefix", cfg.NATS.Ingest.SubjectPrefix, "Ingest subject prefix; the channel is appended")
	target := flag.String("target", fmt.Sprintf("http://localhost:%d", cfg.Server.Port), "Service base URL for http mode")
	channelsStr := flag.String("channels", "linkedin,instagram,facebook,video,newsletter", "Comma-separated list of channels")
	rate := flag.Int("rate", 20, "Target payloads per second (total)")
	duration := flag.Duration("duration", time.Minute, "Load test duration")
	concurrency := flag.Int("concurrency", 10, "Number of concurrent workers")
	batchSize := flag.Int("batch-size", defaultBatchSize, "Payloads generated per worker batch")
	metricsPort := flag.Int("metrics-port", 9091, "Port for Prometheus metrics endpoint")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Outreach metrics load generator\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Publishes synthetic agent and newsletter reports to NATS or POSTs them to the API.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *batchSize <= 0 {
		*batchSize = defaultBatchSize
	}
	if *rate <= 0 {
		fmt.Println("rate must be positive")
		os.Exit(1)
	}

	if err := logger.Initialize(*logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	channels, err := parseChannels(*channelsStr)
	if err != nil {
		logger.Log.Fatal("Invalid channel list", zap.Error(err))
	}

	observer.InitMetrics(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsServer := startMetricsServer(*metricsPort)
	var metricsWg sync.WaitGroup
	metricsWg.Add(1)
	go func() {
		defer metricsWg.Done()
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Metrics server shutdown error", zap.Error(err))
		}
	}()

	logger.Log.Info("Starting load generator",
		zap.String("mode", *mode),
		zap.String("channels", *channelsStr),
		zap.Int("rate_per_sec", *rate),
		zap.Duration("duration", *duration),
		zap.Int("concurrency", *concurrency),
		zap.Int("batch_size", *batchSize),
	)

	var out sender
	switch *mode {
	case modeNATS:
		client, err := jetstream.NewClient(*natsURL, "outreach-metrics-loadgen")
		if err != nil {
			logger.Log.Fatal("Failed to connect to NATS", zap.String("url", *natsURL), zap.Error(err))
		}
		defer client.Close()
		out = natsSender{client: client, prefix: *subjectPrefix}
	case modeHTTP:
		out = httpSender{client: &http.Client{Timeout: 15 * time.Second}, baseURL: *target}
	default:
		logger.Log.Fatal("Unknown mode", zap.String("mode", *mode))
	}

	faker := gofakeit.New(time.Now().UnixNano())
	var fakerMu sync.Mutex

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(*concurrency, func(data interface{}) {
		runBatch(ctx, data.(batchTask), out, faker, &fakerMu, &wg)
	})
	if err != nil {
		logger.Log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		runLoadLoop(ctx, *rate, *duration, *batchSize, channels, pool, &wg)
	}()

	select {
	case sig := <-sigChan:
		logger.Log.Info("Received termination signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		<-loopDone
	case <-loopDone:
		logger.Log.Info("Load generation duration finished")
	}

	wg.Wait()
	logger.Log.Info("All worker tasks finished")

	cancel()
	metricsWg.Wait()
	logger.Log.Info("Load generator shutdown complete")
}

func parseChannels(s string) ([]model.Channel, error) {
	var channels []model.Channel
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		ch, err := model.ParseChannel(part)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels given")
	}
	return channels, nil
}

func startMetricsServer(port int) *http.Server {
	logger.Log.Info("Starting Prometheus metrics server", zap.Int("port", port))
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("Failed to start Prometheus metrics server", zap.Error(err))
		}
	}()
	return server
}

// runLoadLoop submits batches to the pool at the target rate until ctx ends or duration elapses.
func runLoadLoop(ctx context.Context, rate int, duration time.Duration, batchSize int, channels []model.Channel, pool *ants.PoolWithFunc, wg *sync.WaitGroup) {
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	timer := time.NewTimer(duration)
	defer timer.Stop()

	counter := 0
	batch := make([]model.Channel, 0, batchSize)

	submit := func() {
		if len(batch) == 0 {
			return
		}
		wg.Add(len(batch))
		if err := pool.Invoke(batchTask{Channels: batch}); err != nil {
			logger.Log.Warn("Failed to invoke worker pool", zap.Int("batch_size", len(batch)), zap.Error(err))
			wg.Add(-len(batch))
			for _, ch := range batch {
				observer.IncLoadgenPublishErrors(string(ch))
			}
		}
		batch = make([]model.Channel, 0, batchSize)
	}

	for {
		select {
		case <-ctx.Done():
			submit()
			return
		case <-timer.C:
			submit()
			return
		case <-ticker.C:
			ch := channels[counter%len(channels)]
			counter++
			observer.IncLoadgenMessagesAttempted(string(ch))
			batch = append(batch, ch)
			if len(batch) >= batchSize {
				submit()
			}
		}
	}
}

func runBatch(ctx context.Context, task batchTask, out sender, faker *gofakeit.Faker, fakerMu *sync.Mutex, wg *sync.WaitGroup) {
	for _, ch := range task.Channels {
		func(ch model.Channel) {
			defer wg.Done()

			fakerMu.Lock()
			body, err := fakePayload(faker, ch)
			fakerMu.Unlock()
			if err != nil {
				logger.Log.Error("Failed to build payload", zap.String("channel", string(ch)), zap.Error(err))
				observer.IncLoadgenPublishErrors(string(ch))
				return
			}

			target, err := out.Send(ctx, ch, body)
			if err != nil {
				logger.Log.Error("Failed to send payload", zap.String("target", target), zap.Error(err))
				observer.IncLoadgenPublishErrors(string(ch))
				return
			}
			observer.IncLoadgenMessagesPublished(string(ch))
		}(ch)
	}
}

func fakePayload(f *gofakeit.Faker, ch model.Channel) ([]byte, error) {
	if ch == model.ChannelNewsletter {
		report := model.NewNewsletterCampaignReport()
		report.ID = 0
		report.RawData = nil
		return json.Marshal(report)
	}
	return json.Marshal(model.FakeAgentPayload(f, ch))
}
