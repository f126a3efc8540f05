// Package scheduler posts recurring chart digests to a chat.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"

	"portfolioDashboard/internal/backend"
	"portfolioDashboard/internal/dashboard"
)

// PriceCharts builds the price view of an instrument.
type PriceCharts interface {
	Price(ctx context.Context, chatID int64, ref string, r backend.Range) (*dashboard.Chart, error)
}

// ChartSender posts a chart to a chat.
type ChartSender interface {
	SendChart(ctx context.Context, chatID int64, c *dashboard.Chart) error
}

// Digest posts the price chart of each configured instrument on a cron schedule.
type Digest struct {
	cron        *cron.Cron
	charts      PriceCharts
	sender      ChartSender
	chatID      int64
	instruments []string
	timeout     time.Duration
}

func NewDigest(charts PriceCharts, sender ChartSender, chatID int64, instruments []string) *Digest {
	return &Digest{
		cron:        cron.New(cron.WithSeconds()),
		charts:      charts,
		sender:      sender,
		chatID:      chatID,
		instruments: instruments,
		timeout:     5 * time.Minute,
	}
}

// Start registers the digest under schedule (with seconds) and starts the cron.
func (d *Digest) Start(schedule string) error {
	if _, err := d.cron.AddFunc(schedule, d.RunNow); err != nil {
		return fmt.Errorf("register digest: %w", err)
	}
	d.cron.Start()
	log.Info().Str("schedule", schedule).Int64("chat_id", d.chatID).Int("instruments", len(d.instruments)).
		Msg("scheduler: digest started")
	return nil
}

// Stop stops the cron and waits for a running digest to finish.
func (d *Digest) Stop() {
	<-d.cron.Stop().Done()
	log.Info().Msg("scheduler: digest stopped")
}

// RunNow posts the digest immediately. One failing instrument does not stop the rest.
func (d *Digest) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	sent := 0
	for _, ref := range d.instruments {
		c, err := d.charts.Price(ctx, 0, ref, backend.DefaultRange)
		if err == nil {
			err = d.sender.SendChart(ctx, d.chatID, c)
		}
		if err != nil {
			log.Error().Err(err).Str("instrument", ref).Msg("scheduler: digest chart failed")
			continue
		}
		sent++
	}
	log.Info().Int("sent", sent).Int("total", len(d.instruments)).Msg("scheduler: digest posted")
}
