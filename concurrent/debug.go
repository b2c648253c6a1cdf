/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package concurrent

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// TaskSnapshot is one row of a debug feed frame.
type TaskSnapshot struct {
	ID     uint64 `json:"id"`
	UUID   string `json:"uuid"`
	Status string `json:"status"`
}

// ChannelSnapshot is one row of a debug feed frame.
type ChannelSnapshot struct {
	ID       uint64 `json:"id"`
	Buffered int    `json:"buffered"`
	Capacity *int64 `json:"capacity,omitempty"`
	Closed   bool   `json:"closed"`
}

// Snapshot is one frame of the debug feed: the full task and channel tables
// at the moment it was taken.
type Snapshot struct {
	Tasks    []TaskSnapshot    `json:"tasks"`
	Channels []ChannelSnapshot `json:"channels"`
}

// Snapshot captures the current task/channel tables for inspection.
func (rt *Runtime) Snapshot() Snapshot {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	snap := Snapshot{
		Tasks:    make([]TaskSnapshot, 0, len(rt.tasks)),
		Channels: make([]ChannelSnapshot, 0, len(rt.channels)),
	}
	for id, t := range rt.tasks {
		status := "running"
		select {
		case <-t.done:
			status = "done"
			if t.err != nil {
				status = "failed"
			}
		default:
		}
		snap.Tasks = append(snap.Tasks, TaskSnapshot{ID: id, UUID: t.uuid.String(), Status: status})
	}
	for id, ch := range rt.channels {
		ch.mu.Lock()
		snap.Channels = append(snap.Channels, ChannelSnapshot{
			ID: id, Buffered: len(ch.buf), Capacity: ch.capacity, Closed: ch.closed,
		})
		ch.mu.Unlock()
	}
	return snap
}

var debugUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// DebugServe exposes a websocket feed of periodic task/channel table
// snapshots for external inspectors, grounded on scm/network.go's
// "websocket" builtin (same Upgrader shape, same single-writer-mutex
// pattern) and storage/dashboard.go's periodic metrics push.
func (rt *Runtime) DebugServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/feed", rt.serveDebugFeed)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return server.ListenAndServe()
}

func (rt *Runtime) serveDebugFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := debugUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if err := conn.WriteJSON(rt.Snapshot()); err != nil {
			return
		}
	}
}
