package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	appconfig "oiflow/config"
	"oiflow/logger"
	"oiflow/models"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramWriter delivers alerts and turnover reports to Telegram chats.
// Alerts go to the alert chat as Markdown, reports to the summary chat as
// HTML. Sends are rate limited to respect the bot API limits.
type TelegramWriter struct {
	config     *appconfig.Config
	alertChan  <-chan models.AlertEvent
	reportChan <-chan models.ReportEvent
	client     *http.Client
	limiter    *rate.Limiter
	apiBase    string
	ctx        context.Context
	wg         *sync.WaitGroup
	mu         sync.RWMutex
	running    bool
	log        *logger.Log
}

func NewTelegramWriter(cfg *appconfig.Config, alertChan <-chan models.AlertEvent, reportChan <-chan models.ReportEvent) (*TelegramWriter, error) {
	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token not configured (set TELEGRAM_BOT_TOKEN)")
	}

	ratePerSec := cfg.Telegram.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	burst := cfg.Telegram.Burst
	if burst < 1 {
		burst = 1
	}
	timeout := cfg.Telegram.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	tw := &TelegramWriter{
		config:     cfg,
		alertChan:  alertChan,
		reportChan: reportChan,
		client:     &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		apiBase:    telegramAPIBase,
		wg:         &sync.WaitGroup{},
		log:        logger.GetLogger(),
	}

	tw.log.WithComponent("telegram_writer").WithFields(logger.Fields{
		"alert_chat":   cfg.Telegram.AlertChatID,
		"summary_chat": cfg.Telegram.SummaryChatID,
		"rate_per_sec": ratePerSec,
	}).Debug("telegram writer initialized")

	return tw, nil
}

func (tw *TelegramWriter) Start(ctx context.Context) error {
	tw.mu.Lock()
	if tw.running {
		tw.mu.Unlock()
		return fmt.Errorf("telegram writer already running")
	}
	tw.running = true
	tw.ctx = ctx
	tw.mu.Unlock()

	tw.log.WithComponent("telegram_writer").Info("starting telegram writer")

	tw.wg.Add(1)
	go tw.alertWorker()

	tw.wg.Add(1)
	go tw.reportWorker()

	return nil
}

func (tw *TelegramWriter) Stop() {
	tw.mu.Lock()
	tw.running = false
	tw.mu.Unlock()

	tw.log.WithComponent("telegram_writer").Info("stopping telegram writer")
	tw.wg.Wait()
	tw.log.WithComponent("telegram_writer").Info("telegram writer stopped")
}

func (tw *TelegramWriter) alertWorker() {
	defer tw.wg.Done()

	log := tw.log.WithComponent("telegram_writer").WithFields(logger.Fields{"worker": "alerts"})
	log.Info("starting alert worker")

	for {
		select {
		case <-tw.ctx.Done():
			log.Info("alert worker stopped due to context cancellation")
			return
		case alert, ok := <-tw.alertChan:
			if !ok {
				log.Info("alert channel closed, worker stopping")
				return
			}
			if err := tw.send(tw.config.Telegram.AlertChatID, alert.Text, "Markdown"); err != nil {
				log.WithError(err).WithFields(logger.Fields{
					"symbol": alert.Event.Symbol,
				}).Warn("failed to deliver alert")
				continue
			}
			logger.IncrementAlertSent(len(alert.Text))
			log.WithFields(logger.Fields{
				"symbol": alert.Event.Symbol,
				"flow":   alert.Event.Flow,
			}).Debug("alert delivered")
		}
	}
}

func (tw *TelegramWriter) reportWorker() {
	defer tw.wg.Done()

	log := tw.log.WithComponent("telegram_writer").WithFields(logger.Fields{"worker": "reports"})
	log.Info("starting report worker")

	for {
		select {
		case <-tw.ctx.Done():
			log.Info("report worker stopped due to context cancellation")
			return
		case report, ok := <-tw.reportChan:
			if !ok {
				log.Info("report channel closed, worker stopping")
				return
			}
			if report.Text == "" {
				continue
			}
			if err := tw.send(tw.config.Telegram.SummaryChatID, report.Text, "HTML"); err != nil {
				log.WithError(err).WithFields(logger.Fields{
					"report_id": report.ReportID,
				}).Warn("failed to deliver report")
				continue
			}
			logger.IncrementReportSent(len(report.Text))
			log.WithFields(logger.Fields{
				"report_id": report.ReportID,
				"events":    report.Events,
			}).Info("report delivered")
		}
	}
}

// send posts one message through the bot API, waiting on the rate limiter
// first.
func (tw *TelegramWriter) send(chatID, text, parseMode string) error {
	if chatID == "" {
		return fmt.Errorf("chat id not configured")
	}
	if err := tw.limiter.Wait(tw.ctx); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", tw.apiBase, tw.config.Telegram.BotToken)
	form := url.Values{
		"chat_id":    {chatID},
		"text":       {text},
		"parse_mode": {parseMode},
	}

	// Each request carries its own timeout so in-flight deliveries during
	// shutdown drain are not cut off by the writer's context.
	reqCtx, cancel := context.WithTimeout(context.Background(), tw.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tw.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call telegram api: %w", err)
	}
	defer resp.Body.Close()

	var apiResp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode telegram response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram api error: %s", apiResp.Description)
	}
	return nil
}
