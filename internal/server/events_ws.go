package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"uiforge/internal/pipeline"
	"uiforge/internal/store"
)

const (
	eventsWSWriteWait = 10 * time.Second
	eventsWSPongWait  = 60 * time.Second
	eventsWSPingEvery = (eventsWSPongWait * 9) / 10
)

var eventsWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type eventsWSOutbound struct {
	Type     string `json:"type"`
	JobID    string `json:"jobId,omitempty"`
	ScreenID string `json:"screenId,omitempty"`
	Screen   string `json:"screen,omitempty"`
	Ordinal  int    `json:"ordinal,omitempty"`
	Status   string `json:"status,omitempty"`
	Elapsed  string `json:"elapsed,omitempty"`
	Message  string `json:"message,omitempty"`
}

// handleEvents streams per-screen progress for one job until the job
// reaches a terminal status or the client goes away.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if _, err := a.Jobs.Get(r.Context(), jobID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := eventsWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(eventsWSPongWait)); err != nil {
		log.Printf("events ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsWSPongWait))
	})

	// Reader only services control frames; any inbound error ends the
	// session.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	sub, unsubscribe := a.Hub.Subscribe(jobID)
	defer unsubscribe()

	ticker := time.NewTicker(eventsWSPingEvery)
	defer ticker.Stop()
	poll := time.NewTicker(time.Second)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-sub:
			if err := writeEventsWS(conn, outboundFromEvent(e)); err != nil {
				return
			}
		case <-poll.C:
			job, err := a.Jobs.Get(ctx, jobID)
			if err != nil {
				continue
			}
			if terminalJobStatus(job.Status) {
				_ = writeEventsWS(conn, eventsWSOutbound{
					Type:    "done",
					JobID:   jobID,
					Status:  job.Status,
					Message: job.Error,
				})
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeEventsWS(conn *websocket.Conn, out eventsWSOutbound) error {
	if err := conn.SetWriteDeadline(time.Now().Add(eventsWSWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(out)
}

func outboundFromEvent(e pipeline.Event) eventsWSOutbound {
	out := eventsWSOutbound{
		Type:     "screen",
		JobID:    e.JobID,
		ScreenID: e.ScreenID,
		Screen:   e.Name,
		Ordinal:  e.Ordinal,
		Status:   string(e.Status),
		Message:  e.Error,
	}
	if e.Elapsed > 0 {
		out.Elapsed = e.Elapsed.Round(time.Millisecond).String()
	}
	return out
}

func terminalJobStatus(status string) bool {
	switch status {
	case store.JobSucceeded, store.JobPartial, store.JobFailed:
		return true
	}
	return false
}
