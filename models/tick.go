package models

import (
	"time"
)

// RawFeedMessage represents an undecoded frame from the market-data feed.
type RawFeedMessage struct {
	Source    string
	Data      []byte
	Timestamp time.Time
}

// GFDLAuthRequest is the first message sent after the websocket connects.
type GFDLAuthRequest struct {
	MessageType string `json:"MessageType"`
	Password    string `json:"Password"`
}

// GFDLAuthResponse is the feed's reply to an authentication request.
type GFDLAuthResponse struct {
	MessageType string `json:"MessageType"`
	Complete    bool   `json:"Complete"`
	Comment     string `json:"Comment"`
}

// GFDLSubscribeRequest subscribes one instrument to realtime updates.
type GFDLSubscribeRequest struct {
	MessageType          string `json:"MessageType"`
	Exchange             string `json:"Exchange"`
	InstrumentIdentifier string `json:"InstrumentIdentifier"`
}

// GFDLRealtime is the wire format of a RealtimeResult frame. Price, open
// interest and server time are optional on the wire; a frame missing the
// symbol, price or open interest is dropped by the engine.
type GFDLRealtime struct {
	MessageType          string   `json:"MessageType"`
	InstrumentIdentifier string   `json:"InstrumentIdentifier"`
	Exchange             string   `json:"Exchange"`
	LastTradePrice       *float64 `json:"LastTradePrice"`
	OpenInterest         *float64 `json:"OpenInterest"`
	ServerTime           *int64   `json:"ServerTime"`
}

// Tick is a normalized market update for one instrument.
type Tick struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	OpenInterest int64     `json:"open_interest"`
	ServerTime   time.Time `json:"server_time"`
	Received     time.Time `json:"received"`
}
