package server

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

// LeaderboardMessage is pushed on connect and after every progress change.
type LeaderboardMessage struct {
	Type        string                  `json:"type"`
	Leaderboard []hunt.LeaderboardEntry `json:"leaderboard"`
	Stats       hunt.Stats              `json:"stats"`
}

// handleLeaderboardWS feeds projector screens. Clients only listen; anything
// they send is discarded.
func handleLeaderboardWS(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			d.logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ch := d.broker.Subscribe(leaderboardTopic)
		defer d.broker.Unsubscribe(leaderboardTopic, ch)

		ctx := conn.CloseRead(r.Context())

		if err := sendLeaderboard(ctx, d, conn); err != nil {
			d.logger.Debug("websocket write failed", "error", err)
			return
		}

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				d.logger.Debug("websocket closed", "error", ctx.Err())
				return
			case <-ch:
				// Collapse bursts into a single refresh.
				drain(ch)
				if err := sendLeaderboard(ctx, d, conn); err != nil {
					d.logger.Debug("websocket write failed", "error", err)
					return
				}
			case <-ping.C:
				pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				err := conn.Ping(pctx)
				cancel()
				if err != nil {
					return
				}
			}
		}
	}
}

func sendLeaderboard(ctx context.Context, d *deps, conn *websocket.Conn) error {
	board, err := d.Engine.Leaderboard(ctx)
	if err != nil {
		return err
	}
	stats, err := d.Engine.Stats(ctx)
	if err != nil {
		return err
	}

	wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return wsjson.Write(wctx, conn, LeaderboardMessage{
		Type:        "leaderboard",
		Leaderboard: board,
		Stats:       stats,
	})
}

func drain(ch chan []byte) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
