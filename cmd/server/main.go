package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/RyanMercier/gambleapp-sub000/internal/config"
	"github.com/RyanMercier/gambleapp-sub000/internal/game"
	"github.com/RyanMercier/gambleapp-sub000/internal/room"
	"github.com/RyanMercier/gambleapp-sub000/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to server.ini")
	addr := flag.String("addr", "", "listen address, overrides config")
	logLevel := flag.String("log-level", "", "log level, overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("invalid log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	mgr := room.NewManager(logger)

	// One lobby per game variant is always available; when a lobby hands off
	// and disposes, a fresh one takes its place.
	for _, kind := range []game.Kind{game.KindPong, game.KindDrop} {
		go superviseLobby(mgr, kind, logger)
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms", handleListRooms(mgr)).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms", handleCreateRoom(mgr, logger)).Methods(http.MethodPost)
	router.Handle("/ws/{roomID}", ws.NewHandler(mgr, cfg.AllowedOrigin, logger))

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("http shutdown incomplete")
	}
	mgr.Shutdown(ctx)
}

// superviseLobby keeps one lobby for the given game variant alive, replacing
// it whenever it disposes after a handoff or fault.
func superviseLobby(mgr *room.Manager, kind game.Kind, logger *logrus.Logger) {
	for {
		r, err := mgr.CreateRoom(room.Options{
			Kind:     game.KindLobby,
			GameKind: kind,
			// A standing lobby should outlive quiet spells.
			EmptyGrace: time.Hour,
		})
		if err != nil {
			logger.WithError(err).WithField("gameKind", string(kind)).Error("failed to create lobby")
			return
		}
		<-r.Done()
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func handleListRooms(mgr *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		payload := struct {
			ServerTime int64       `json:"serverTime"`
			Rooms      []room.Info `json:"rooms"`
		}{
			ServerTime: time.Now().UnixMilli(),
			Rooms:      mgr.List(),
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func handleCreateRoom(mgr *room.Manager, logger *logrus.Logger) http.HandlerFunc {
	type request struct {
		Kind     string `json:"kind"`
		GameKind string `json:"gameKind,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		kind, ok := game.ParseKind(req.Kind)
		if !ok {
			http.Error(w, "unknown room kind", http.StatusBadRequest)
			return
		}
		opts := room.Options{Kind: kind}
		if kind == game.KindLobby {
			gameKind, ok := game.ParseKind(req.GameKind)
			if !ok || gameKind == game.KindLobby {
				http.Error(w, "lobby requires a valid gameKind", http.StatusBadRequest)
				return
			}
			opts.GameKind = gameKind
		}
		created, err := mgr.CreateRoom(opts)
		if err != nil {
			logger.WithError(err).Warn("room creation rejected")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, created.Info())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to encode", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
