package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phuslu/log"

	"portfolioDashboard/internal/backend"
	"portfolioDashboard/internal/chart"
	"portfolioDashboard/internal/dashboard"
	"portfolioDashboard/internal/storage"
)

const (
	defaultHorizon = 7
	maxHorizon     = 90
	maxWindowDays  = 365
)

var (
	// /price ID|SYMBOL [90d|180d|365d|max]
	rePrice = regexp.MustCompile(`^/price(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)(?:\s+(\S+))?$`)
	// /forecast ID|SYMBOL [days|last]
	reForecast = regexp.MustCompile(`^/forecast(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)(?:\s+(\d+|last))?$`)
	// /perf PORTFOLIO [range] [BENCH]
	rePerf = regexp.MustCompile(`^/perf(?:@[\w_]+)?\s+(\d+)(?:\s+(\S+))?(?:\s+([A-Za-z0-9\.^_=+-]+))?$`)
	// /insights PORTFOLIO [range] [BENCH]
	reInsights = regexp.MustCompile(`^/insights(?:@[\w_]+)?\s+(\d+)(?:\s+(\S+))?(?:\s+([A-Za-z0-9\.^_=+-]+))?$`)
	// /sentiment ID|SYMBOL [days]
	reSentiment = regexp.MustCompile(`^/sentiment(?:@[\w_]+)?\s+([A-Za-z0-9\.^_=+-]+)(?:\s+(\d+))?$`)
	reRecent    = regexp.MustCompile(`^/recent(?:@[\w_]+)?$`)
	reHelp      = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

// Sender is the part of the bot API the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Charts builds and renders the dashboard views.
type Charts interface {
	Price(ctx context.Context, chatID int64, ref string, r backend.Range) (*dashboard.Chart, error)
	Forecast(ctx context.Context, chatID int64, ref string, r backend.Range, opts backend.ForecastOptions) (*dashboard.Chart, error)
	LastForecast(ctx context.Context, chatID int64, ref string, r backend.Range) (*dashboard.Chart, error)
	Sentiment(ctx context.Context, chatID int64, ref string, windowDays int) (*dashboard.Chart, error)
	Performance(ctx context.Context, portfolioID string, r backend.Range, benchmark string) (*dashboard.Chart, error)
	Recent(chatID int64) ([]storage.RecentInstrument, error)
	Render(ctx context.Context, c *dashboard.Chart) ([]byte, error)
}

// Insights writes a commentary for a performance dataset.
type Insights interface {
	Portfolio(ctx context.Context, ds chart.RenderDataset) (string, error)
}

type Handlers struct {
	api      Sender
	charts   Charts
	insights Insights
	timeout  time.Duration
}

func NewHandlers(api Sender, charts Charts, insights Insights) *Handlers {
	return &Handlers{api: api, charts: charts, insights: insights, timeout: 60 * time.Second}
}

func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	if m == nil || m.Chat == nil {
		return
	}
	chatID := m.Chat.ID
	txt := strings.TrimSpace(m.Text)
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	switch {
	case rePrice.MatchString(txt):
		g := rePrice.FindStringSubmatch(txt)
		r, err := backend.ParseRange(g[2])
		if err != nil {
			h.reply(chatID, err.Error())
			return
		}
		c, err := h.charts.Price(ctx, chatID, g[1], r)
		h.respond(ctx, chatID, g[1], c, err)

	case reForecast.MatchString(txt):
		g := reForecast.FindStringSubmatch(txt)
		if g[2] == "last" {
			c, err := h.charts.LastForecast(ctx, chatID, g[1], backend.DefaultRange)
			if errors.Is(err, storage.ErrNotFound) {
				h.reply(chatID, fmt.Sprintf("No earlier forecast for %s in this chat, try /forecast %s", g[1], g[1]))
				return
			}
			h.respond(ctx, chatID, g[1], c, err)
			return
		}
		horizon := defaultHorizon
		if g[2] != "" {
			horizon, _ = strconv.Atoi(g[2])
			if horizon < 1 {
				horizon = 1
			}
			if horizon > maxHorizon {
				horizon = maxHorizon
			}
		}
		h.reply(chatID, fmt.Sprintf("Forecasting %s %d days ahead…", strings.ToUpper(g[1]), horizon))
		c, err := h.charts.Forecast(ctx, chatID, g[1], backend.DefaultRange, backend.ForecastOptions{HorizonDays: horizon})
		h.respond(ctx, chatID, g[1], c, err)

	case rePerf.MatchString(txt):
		g := rePerf.FindStringSubmatch(txt)
		r, bench, err := perfArgs(g[2], g[3])
		if err != nil {
			h.reply(chatID, err.Error())
			return
		}
		c, err := h.charts.Performance(ctx, g[1], r, bench)
		h.respond(ctx, chatID, "portfolio "+g[1], c, err)

	case reInsights.MatchString(txt):
		g := reInsights.FindStringSubmatch(txt)
		r, bench, err := perfArgs(g[2], g[3])
		if err != nil {
			h.reply(chatID, err.Error())
			return
		}
		h.handleInsights(ctx, chatID, g[1], r, bench)

	case reSentiment.MatchString(txt):
		g := reSentiment.FindStringSubmatch(txt)
		days := dashboard.DefaultSentimentWindow
		if g[2] != "" {
			days, _ = strconv.Atoi(g[2])
			if days < 1 {
				days = 1
			}
			if days > maxWindowDays {
				days = maxWindowDays
			}
		}
		c, err := h.charts.Sentiment(ctx, chatID, g[1], days)
		h.respond(ctx, chatID, g[1], c, err)

	case reRecent.MatchString(txt):
		h.handleRecent(chatID)

	case reHelp.MatchString(txt):
		h.handleHelp(chatID)
	}
}

// perfArgs accepts the optional range and benchmark in either order.
func perfArgs(a, b string) (backend.Range, string, error) {
	if a == "" {
		return backend.DefaultRange, "", nil
	}
	if r, err := backend.ParseRange(a); err == nil {
		return r, strings.ToUpper(b), nil
	}
	if b != "" {
		return "", "", fmt.Errorf("unknown range %q (use 90d, 180d, 365d or max)", a)
	}
	return backend.DefaultRange, strings.ToUpper(a), nil
}

func (h *Handlers) respond(ctx context.Context, chatID int64, what string, c *dashboard.Chart, err error) {
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Str("ref", what).Msg("telegram: chart failed")
		h.reply(chatID, fmt.Sprintf("Couldn’t fetch %s: %v", what, err))
		return
	}
	if err := h.SendChart(ctx, chatID, c); err != nil {
		h.reply(chatID, "Chart failed: "+err.Error())
	}
}

// SendChart posts c as a photo, or a text notice when there is nothing to draw.
func (h *Handlers) SendChart(ctx context.Context, chatID int64, c *dashboard.Chart) error {
	if c.Dataset.Empty() {
		text := "No data for " + c.Caption + "."
		if c.Notice != "" {
			text += "\n" + c.Notice
		}
		h.reply(chatID, text)
		return nil
	}
	img, err := h.charts.Render(ctx, c)
	if err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: fileName(c), Bytes: img})
	photo.Caption = c.Caption
	if c.Notice != "" {
		photo.Caption += "\n" + c.Notice
	}
	if _, err := h.api.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

func fileName(c *dashboard.Chart) string {
	name := string(c.Dataset.View)
	if c.CacheKey != "" {
		name = strings.NewReplacer("|", "_", "/", "_").Replace(c.CacheKey)
	}
	return name + ".png"
}

func (h *Handlers) handleInsights(ctx context.Context, chatID int64, portfolioID string, r backend.Range, bench string) {
	if h.insights == nil {
		h.reply(chatID, "Insights are not configured.")
		return
	}
	c, err := h.charts.Performance(ctx, portfolioID, r, bench)
	if err != nil {
		h.reply(chatID, "Insights failed: "+err.Error())
		return
	}
	if c.Dataset.Empty() {
		h.reply(chatID, "No performance data for portfolio "+portfolioID+".")
		return
	}
	out, err := h.insights.Portfolio(ctx, c.Dataset)
	if err != nil {
		h.reply(chatID, "Insights failed: "+err.Error())
		return
	}
	msg := tgbotapi.NewMessage(chatID, out)
	msg.ParseMode = "Markdown"
	h.api.Send(msg)
}

func (h *Handlers) handleRecent(chatID int64) {
	items, err := h.charts.Recent(chatID)
	if err != nil {
		h.reply(chatID, "Recent failed: "+err.Error())
		return
	}
	if len(items) == 0 {
		h.reply(chatID, "No instruments viewed yet. Try /price AAPL")
		return
	}
	var b strings.Builder
	b.WriteString("Recent instruments\n\n")
	for i, it := range items {
		name := it.Name
		if name == "" {
			name = it.Symbol
		}
		fmt.Fprintf(&b, "%d. %s · /price %s\n", i+1, name, it.ID)
	}
	h.reply(chatID, b.String())
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /price ID|SYMBOL [90d|180d|365d|max] - Close price with moving averages (default 180d)\n" +
		"- /forecast ID|SYMBOL [days|last] - Run a forecast (default 7, max 90 days) and draw its band; last redraws the previous run\n" +
		"- /perf PORTFOLIO [range] [BENCH] - Portfolio vs benchmark, % change since start\n" +
		"- /insights PORTFOLIO [range] [BENCH] - Short written commentary on performance\n" +
		"- /sentiment ID|SYMBOL [days] - Daily news sentiment (default 30 days)\n" +
		"- /recent - Instruments viewed in this chat\n" +
		"\nDaily charts are labelled by trading date."
	h.reply(chatID, help)
}

func (h *Handlers) reply(chatID int64, text string) {
	h.api.Send(tgbotapi.NewMessage(chatID, text))
}
