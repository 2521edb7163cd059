package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// jsonResponse writes data as a JSON response body.
func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// errorResponse writes a JSON error body with the given status code.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) handleRuntimeConfig(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, s.runtimeCfg)
}

func (s *Server) handleListBots(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, s.store.ListBots())
}

func (s *Server) handleCreateBot(w http.ResponseWriter, r *http.Request) {
	var bot types.Bot
	if err := json.NewDecoder(r.Body).Decode(&bot); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid bot payload")
		return
	}
	now := time.Now()
	if bot.CreatedAt.IsZero() {
		bot.CreatedAt = now
	}
	bot.UpdatedAt = now
	if bot.Status == "" {
		bot.Status = types.BotStatusActive
	}
	if err := s.store.SaveBot(bot); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, bot)
}

func (s *Server) handleGetBot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	bot, ok := s.store.GetBot(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "bot not found")
		return
	}
	s.jsonResponse(w, bot)
}

func (s *Server) setBotStatus(w http.ResponseWriter, r *http.Request, status types.BotStatus) {
	id := mux.Vars(r)["id"]
	bot, ok := s.store.GetBot(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "bot not found")
		return
	}
	bot.Status = status
	bot.UpdatedAt = time.Now()
	if err := s.store.SaveBot(bot); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.jsonResponse(w, bot)
}

func (s *Server) handlePauseBot(w http.ResponseWriter, r *http.Request) {
	s.setBotStatus(w, r, types.BotStatusPaused)
}

func (s *Server) handleResumeBot(w http.ResponseWriter, r *http.Request) {
	s.setBotStatus(w, r, types.BotStatusActive)
}

func (s *Server) handleStopBot(w http.ResponseWriter, r *http.Request) {
	s.setBotStatus(w, r, types.BotStatusStopped)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	botID := r.URL.Query().Get("botId")
	if botID != "" {
		s.jsonResponse(w, s.store.ListOrdersByBot(botID))
		return
	}
	s.jsonResponse(w, s.store.ListOrdersByStatus(types.OrderStatusNew))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	order, ok := s.store.GetOrder(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "order not found")
		return
	}
	s.jsonResponse(w, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	order, ok := s.store.GetOrder(id)
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "order not found")
		return
	}
	account, ok := s.store.GetBrokerAccount(order.BrokerAccountID)
	if !ok {
		s.errorResponse(w, http.StatusInternalServerError, "order references unknown broker account")
		return
	}
	conn, err := s.brokers.Resolve(account.BrokerCode)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := conn.CancelOrder(r.Context(), account, order); err != nil {
		s.errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}
	updated, err := s.orch.Transition(order.ID, types.OrderStatusCanceled, "", time.Now())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.hub.BroadcastOrderUpdate(&updated)
	s.jsonResponse(w, updated)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, s.store.ListOpenPositions())
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pos, ok := s.store.GetPosition(vars["accountId"], vars["symbol"])
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "position not found")
		return
	}
	s.jsonResponse(w, pos)
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pos, ok := s.store.GetPosition(vars["accountId"], vars["symbol"])
	if !ok {
		s.errorResponse(w, http.StatusNotFound, "position not found")
		return
	}
	if pos.Status != types.PositionStatusOpen {
		s.errorResponse(w, http.StatusBadRequest, "position already closed")
		return
	}

	var bot types.Bot
	for _, b := range s.store.ListBots() {
		if b.BrokerAccountID == pos.BrokerAccountID && b.Asset.Symbol == pos.Symbol {
			bot = b
			break
		}
	}

	order, err := s.orch.CreateCloseOrder(pos, bot, time.Now())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	account, ok := s.store.GetBrokerAccount(pos.BrokerAccountID)
	if !ok {
		s.errorResponse(w, http.StatusInternalServerError, "position references unknown broker account")
		return
	}
	conn, err := s.brokers.Resolve(account.BrokerCode)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	result, err := conn.PlaceOrder(r.Context(), account, order)
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, err.Error())
		return
	}
	updated, err := s.orch.Transition(order.ID, result.Status, result.Error, time.Now())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.hub.BroadcastOrderUpdate(&updated)
	if result.Status == types.OrderStatusFilled {
		if err := s.portfolio.RecordFill(updated, result.FilledQty, result.FilledPrice, decimal.Zero, decimal.Zero, result.BrokerTicket, time.Now()); err != nil {
			s.logger.Warn("close fill recording failed", zap.String("order", updated.ID), zap.Error(err))
		}
	}
	s.jsonResponse(w, updated)
}

// ingestSignalRequest is the external alert-webhook payload shape.
type ingestSignalRequest struct {
	Source    string         `json:"source"`
	BotID     string         `json:"botId"`
	Symbol    string         `json:"symbol"`
	Timeframe string         `json:"timeframe"`
	Direction string         `json:"direction"`
	Score     float64        `json:"score"`
	Payload   map[string]any `json:"payload"`
}

// handleIngestSignal accepts an external alert (TradingView-style webhook
// or any upstream signal source) and broadcasts it to subscribers as a
// signal_update event. The signal is not persisted and is not run through
// the decision pipeline.
func (s *Server) handleIngestSignal(w http.ResponseWriter, r *http.Request) {
	var req ingestSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid signal payload")
		return
	}
	if req.Symbol == "" || req.Direction == "" {
		s.errorResponse(w, http.StatusBadRequest, "symbol and direction are required")
		return
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payload["score"] = req.Score

	sig := types.Signal{
		ID:        "", // the signal is only broadcast, never stored, so no ID is assigned
		Source:    req.Source,
		BotID:     req.BotID,
		Symbol:    req.Symbol,
		Timeframe: types.Timeframe(req.Timeframe),
		Direction: types.Side(req.Direction),
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	s.hub.BroadcastSignalUpdate(&sig)
	s.jsonResponse(w, map[string]string{"status": "accepted"})
}

func (s *Server) handleRecentJournal(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, s.store.RecentJournalEntries(100))
}
