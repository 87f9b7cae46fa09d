package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coinledger/config"
	"coinledger/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the ledger service
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	ledgerTransactionsCounter metric.Int64Counter
	ledgerCoinsCounter        metric.Int64Counter
	playsSettledCounter       metric.Int64Counter
	jackpotsCounter           metric.Int64Counter
	racesClosedCounter        metric.Int64Counter
	externalEventsCounter     metric.Int64Counter
	queueReceivedCounter      metric.Int64Counter
	queueProcessedCounter     metric.Int64Counter
	queueAlertsCounter        metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "stdout", "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		log.Info("Using stdout metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	interval := time.Duration(mp.config.OTelExportIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.meterProvider)

	if err := mp.createInstruments(mp.meterProvider.Meter("coinledger")); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized")
	return nil
}

// InitializeWithReader wires the provider to an in-process reader. Tests use
// it with sdkmetric.NewManualReader to collect what was recorded.
func (mp *MetricsProvider) InitializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	if err := mp.createInstruments(mp.meterProvider.Meter("coinledger")); err != nil {
		return err
	}
	mp.initialized = true
	return nil
}

func (mp *MetricsProvider) createInstruments(meter metric.Meter) error {
	mp.meter = meter

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&mp.ledgerTransactionsCounter, LedgerTransactionsTotal, "Total number of ledger transactions"},
		{&mp.ledgerCoinsCounter, LedgerCoinsMoved, "Total coins moved through the ledger"},
		{&mp.playsSettledCounter, PlaysSettledTotal, "Total number of settled plays"},
		{&mp.jackpotsCounter, JackpotsTotal, "Total number of jackpot plays"},
		{&mp.racesClosedCounter, RacesClosedTotal, "Total number of settled or cancelled races"},
		{&mp.externalEventsCounter, ExternalEventsTotal, "Total number of processed terminal events"},
		{&mp.queueReceivedCounter, QueueMessagesReceivedTotal, "Total number of queue messages fetched"},
		{&mp.queueProcessedCounter, QueueMessagesProcessedTotal, "Total number of queue messages acknowledged"},
		{&mp.queueAlertsCounter, QueueAlertsTotal, "Total number of queue failure-ratio alerts"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("1"))
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", c.name, err)
		}
		*c.target = counter
	}
	return nil
}

// Shutdown flushes and stops the exporter
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordLedgerTransaction records one appended transaction
func (mp *MetricsProvider) RecordLedgerTransaction(category, direction string, amount int64) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelCategory, category),
		attribute.String(LabelDirection, direction),
	)
	mp.ledgerTransactionsCounter.Add(context.Background(), 1, attrs)
	mp.ledgerCoinsCounter.Add(context.Background(), amount, attrs)
}

// RecordPlay records a play reaching a final status
func (mp *MetricsProvider) RecordPlay(gameType, status string, jackpot bool) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelGameType, gameType),
		attribute.String(LabelStatus, status),
	)
	mp.playsSettledCounter.Add(context.Background(), 1, attrs)
	if jackpot {
		mp.jackpotsCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String(LabelGameType, gameType)))
	}
}

// RecordRaceClosed records a race settling or being cancelled
func (mp *MetricsProvider) RecordRaceClosed(state string) {
	if !mp.isEnabled() {
		return
	}

	mp.racesClosedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelState, state)),
	)
}

// RecordIngest records the outcome of a terminal event
func (mp *MetricsProvider) RecordIngest(source, status string) {
	if !mp.isEnabled() {
		return
	}

	mp.externalEventsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelSource, source),
			attribute.String(LabelStatus, status),
		),
	)
}

// RecordQueuePoll records the counts of one poll cycle
func (mp *MetricsProvider) RecordQueuePoll(received, processed int) {
	if !mp.isEnabled() {
		return
	}

	mp.queueReceivedCounter.Add(context.Background(), int64(received))
	mp.queueProcessedCounter.Add(context.Background(), int64(processed))
}

// RecordQueueAlert records a poll cycle whose failure ratio crossed the threshold
func (mp *MetricsProvider) RecordQueueAlert() {
	if !mp.isEnabled() {
		return
	}

	mp.queueAlertsCounter.Add(context.Background(), 1)
}

// SubscribeToEvents feeds committed domain events into the counters
func (mp *MetricsProvider) SubscribeToEvents(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.BalanceChangeEvent); ok {
			direction := "earning"
			amount := ev.Delta
			if amount < 0 {
				direction = "spending"
				amount = -amount
			}
			mp.RecordLedgerTransaction(string(ev.Category), direction, amount)
		}
	})

	bus.Subscribe(events.EventTypePlaySettled, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.PlaySettledEvent); ok {
			mp.RecordPlay(string(ev.GameType), string(ev.Status), ev.IsJackpot)
		}
	})

	bus.Subscribe(events.EventTypeRaceClosed, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.RaceClosedEvent); ok {
			mp.RecordRaceClosed(string(ev.State))
		}
	})

	bus.Subscribe(events.EventTypeExternalEventProcessed, func(ctx context.Context, e events.Event) {
		if ev, ok := e.(events.ExternalEventProcessedEvent); ok {
			mp.RecordIngest(string(ev.Source), string(ev.Status))
		}
	})
}

func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meterProvider != nil
}
