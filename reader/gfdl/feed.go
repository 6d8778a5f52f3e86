package gfdl

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	appconfig "oiflow/config"
	tickchan "oiflow/internal/channel/tick"
	"oiflow/logger"
	"oiflow/models"
)

// Reader streams realtime instrument updates from the GFDL Nimble websocket
// feed and forwards the raw frames into the tick channel. It authenticates
// with the feed password, subscribes each watched symbol and reconnects
// automatically until the context is cancelled.
type Reader struct {
	config   *appconfig.Config
	channels *tickchan.Channels
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log
	symbols  []string
}

func NewReader(cfg *appconfig.Config, ch *tickchan.Channels, symbols []string) *Reader {
	return &Reader{
		config:   cfg,
		channels: ch,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
		symbols:  symbols,
	}
}

// Start begins the feed stream for the configured symbols.
func (r *Reader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("feed reader already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	log := r.log.WithComponent("feed_reader").WithFields(logger.Fields{"operation": "start"})

	if r.config.Feed.APIKey == "" {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		log.Warn("feed api key is empty")
		return fmt.Errorf("feed api key is required (set GFDL_API_KEY)")
	}

	log.WithFields(logger.Fields{
		"url":     r.config.Feed.URL,
		"symbols": r.symbols,
	}).Info("starting feed reader")

	r.wg.Add(1)
	go r.stream()

	log.Info("feed reader started successfully")
	return nil
}

// Stop terminates the websocket stream and waits for the worker to finish.
func (r *Reader) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.log.WithComponent("feed_reader").Info("stopping feed reader")
	r.wg.Wait()
	r.log.WithComponent("feed_reader").Info("feed reader stopped")
}

// stream handles the websocket lifecycle: connect, authenticate, subscribe,
// forward frames, reconnect on failure.
func (r *Reader) stream() {
	defer r.wg.Done()

	log := r.log.WithComponent("feed_reader").WithFields(logger.Fields{"worker": "feed_stream"})
	feedCfg := r.config.Feed

	for {
		if r.ctx.Err() != nil {
			return
		}

		dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
		if feedCfg.InsecureSkipVerify {
			dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}

		conn, _, err := dialer.Dial(feedCfg.URL, nil)
		if err != nil {
			log.WithError(err).Warn("failed to connect websocket, retrying")
			if !r.sleep(feedCfg.ReconnectDelay) {
				return
			}
			continue
		}

		if err := r.authenticate(conn); err != nil {
			log.WithError(err).Warn("feed authentication failed")
			conn.Close()
			if !r.sleep(feedCfg.AuthRetryDelay) {
				return
			}
			continue
		}

		if err := r.subscribe(conn); err != nil {
			log.WithError(err).Warn("failed to subscribe, reconnecting")
			conn.Close()
			if !r.sleep(feedCfg.ReconnectDelay) {
				return
			}
			continue
		}

		log.WithFields(logger.Fields{"symbols": len(r.symbols)}).Info("authenticated and subscribed, streaming")

		pingTicker := time.NewTicker(feedCfg.PingInterval)
		done := make(chan struct{})
		go func() {
			defer pingTicker.Stop()
			for {
				select {
				case <-done:
					return
				case <-pingTicker.C:
					conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
			}
		}()

		for {
			if r.ctx.Err() != nil {
				close(done)
				conn.Close()
				return
			}
			_, msg, err := conn.ReadMessage()
			if err != nil {
				close(done)
				conn.Close()
				log.WithError(err).Warn("websocket read error, reconnecting")
				break
			}
			r.handleMessage(msg)
		}

		if !r.sleep(feedCfg.ReconnectDelay) {
			return
		}
		log.Warn("feed disconnected, reconnecting")
	}
}

func (r *Reader) authenticate(conn *websocket.Conn) error {
	auth := models.GFDLAuthRequest{
		MessageType: "Authenticate",
		Password:    r.config.Feed.APIKey,
	}
	if err := conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("failed to send auth request: %w", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read auth response: %w", err)
	}

	var resp models.GFDLAuthResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	if !resp.Complete {
		return fmt.Errorf("feed rejected credentials: %s", resp.Comment)
	}
	return nil
}

func (r *Reader) subscribe(conn *websocket.Conn) error {
	for _, symbol := range r.symbols {
		sub := models.GFDLSubscribeRequest{
			MessageType:          "SubscribeRealtime",
			Exchange:             r.config.Feed.Exchange,
			InstrumentIdentifier: symbol,
		}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("failed to subscribe %s: %w", symbol, err)
		}
	}
	return nil
}

// handleMessage forwards RealtimeResult frames; every other message type
// (auth echoes, subscription acks) is dropped here.
func (r *Reader) handleMessage(msg []byte) {
	var base struct {
		MessageType string `json:"MessageType"`
	}
	if err := json.Unmarshal(msg, &base); err != nil {
		r.log.WithComponent("feed_reader").WithError(err).Debug("failed to decode message")
		return
	}
	if base.MessageType != "RealtimeResult" {
		return
	}

	out := models.RawFeedMessage{
		Source:    "gfdl",
		Data:      msg,
		Timestamp: time.Now(),
	}
	if r.channels.SendRaw(r.ctx, out) {
		logger.IncrementTickRead(len(msg))
	} else if r.ctx.Err() == nil {
		r.log.WithComponent("feed_reader").Warn("raw tick channel full, dropping frame")
	}
}

// sleep waits for d or until the context is cancelled; it reports whether
// the reader should keep running.
func (r *Reader) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-r.ctx.Done():
		return false
	}
}
