package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alejzeis/chess-matchmaker/common"
	"github.com/alejzeis/chess-matchmaker/config"
	"github.com/alejzeis/chess-matchmaker/matchmaking"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Message sent back when the find body cannot be decoded
const messageInvalidBody = "Invalid request body"

// Server serves the matchmaking REST API. It holds no state of its own beyond what it is given.
type Server struct {
	config     *config.Config
	matchmaker *matchmaking.Matchmaker
	hub        *Hub

	wsUpgrader websocket.Upgrader
	router     *mux.Router
}

// NewServer wires the routes. registry may be nil, in which case no metrics route is served.
func NewServer(cfg *config.Config, mm *matchmaking.Matchmaker, hub *Hub, registry *prometheus.Registry) *Server {
	s := &Server{
		config:     cfg,
		matchmaker: mm,
		hub:        hub,
		wsUpgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/info", s.handleInfo).Methods("GET")
	router.HandleFunc(common.FindPath, s.handleFind).Methods("POST")
	router.HandleFunc(common.EventsPath+"{playerId}", s.handleSubscribe).Methods("GET")
	if cfg.Metrics.Enabled && registry != nil {
		router.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")
	}
	s.router = router

	return s
}

// ServeHTTP lets the Server be used directly as an http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StartControlServer begins handling HTTP requests for the REST API, called by main function.
// Blocks until SIGINT/SIGTERM, then shuts down the listener, the hub and the matchmaker in that order.
func StartControlServer(s *Server) {
	log.WithField("port", s.config.Server.Port).Info("Starting REST API HTTP Server...")

	srv := &http.Server{
		Addr:        ":" + strconv.Itoa(s.config.Server.Port),
		Handler:     s,
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig).Info("Shutdown signal received")
	case err := <-errCh:
		log.WithError(err).WithField("port", s.config.Server.Port).Error("Failed to start listening")
	}

	// Subscribers hold hijacked connections that Shutdown does not wait for
	s.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}
	s.matchmaker.Close()
}

// Returns server information such as the software version, REST API version and queue depths
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	stats := s.matchmaker.Snapshot()
	queues := make(map[string]int, len(stats.Waiting))
	for key, depth := range stats.Waiting {
		queues[string(key)] = depth
	}

	writeJSON(w, http.StatusOK, common.InfoResponse{
		Software:    common.SoftwareName,
		Version:     common.SoftwareVersion,
		API:         common.APIVersion,
		Queues:      queues,
		LiveMatches: stats.LiveMatches,
	})
}

// Called by a player, repeatedly, to be paired with an opponent in the pool named by mode and timeControl.
// HTTP Responses:
//   - 400 Bad Request: Body was not a valid find request JSON object
//   - 200 OK: FindResponse JSON. The message is one of "MATCHED", "Waiting for opponent", "Failed to create game"
//     or "Missing playerId"; clients should call again unless MATCHED.
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New()

	var body common.FindRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"request": requestID,
			"address": r.RemoteAddr,
		}).Warn("Failed to decode find request")
		writeJSON(w, http.StatusBadRequest, common.FindResponse{Message: messageInvalidBody})
		return
	}

	req := matchmaking.Request{
		Mode:        body.Mode,
		TimeControl: body.TimeControl,
	}
	if body.PlayerID != nil {
		player := matchmaking.PlayerID(*body.PlayerID)
		req.PlayerID = &player
	}

	resp := s.matchmaker.FindMatch(r.Context(), req)

	fields := log.Fields{
		"request": requestID,
		"outcome": resp.Outcome(),
	}
	if req.PlayerID != nil {
		fields["player"] = *req.PlayerID
	}
	log.WithFields(fields).Debug("Handled find request")

	writeJSON(w, http.StatusOK, toFindResponse(resp))
}

// Upgrades the connection to a websocket that receives a MatchEvent whenever the player is placed into a game.
// HTTP Responses:
//   - 400 Bad Request: playerId in the path (/api/matchmaking/ws/[playerId]) is not an integer
//   - 101 Switching Protocols: Subscribed
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	playerID, err := strconv.ParseInt(mux.Vars(r)["playerId"], 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ws, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.WithError(err).WithField("address", r.RemoteAddr).Warn("Failed to upgrade notification websocket")
		return
	}

	s.hub.serve(matchmaking.PlayerID(playerID), common.NewWebsocketEventConnection(ws))
}

func toFindResponse(resp matchmaking.Response) common.FindResponse {
	out := common.FindResponse{Message: resp.Message()}

	switch v := resp.(type) {
	case matchmaking.Matched:
		gameID, white, black := int64(v.GameID), int64(v.White), int64(v.Black)
		out.GameID = &gameID
		out.WhitePlayerID = &white
		out.BlackPlayerID = &black
	case matchmaking.Waiting:
		out.Queue = string(v.Queue)
	case matchmaking.Failed, matchmaking.InvalidRequest:
	}

	return out
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.WithError(err).Error("Failed to encode response json")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
