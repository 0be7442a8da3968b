package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/aptomizer/core/internal/analyzer"
	"github.com/aptomizer/core/internal/state"
	"github.com/aptomizer/core/internal/types"
)

// Error messages returned by the user endpoints.
const (
	msgInvalidBody            = "Invalid request body"
	msgWalletRequired         = "Wallet address is required"
	msgUserNotFound           = "User not found"
	msgAIWalletNotFound       = "AI wallet not found"
	msgPortfolioFailed        = "Failed to fetch portfolio data"
	msgOptimizationFailed     = "Failed to generate optimization opportunities"
	msgYieldFailed            = "Failed to fetch yield opportunities"
	msgUserIDRequired         = "User ID is required"
	msgGenerateWalletFailed   = "Failed to generate AI wallet"
	msgCheckWalletFailed      = "Failed to check AI wallet status"
	msgCreateUserFailed       = "Failed to create user"
	msgRiskProfileRequired    = "User ID and risk profile data are required"
	msgSaveRiskProfileFailed  = "Failed to save risk profile"
	msgRiskDataRequired       = "Risk profile data is required"
	msgUpdateRiskProfileFail  = "Failed to update risk profile"
	msgUpdateProfileFailed    = "Failed to update user profile"
	msgTransactionsFailed     = "Failed to fetch transactions"
	msgInvalidYieldParameters = "Invalid yield parameters"
)

type walletRequest struct {
	WalletAddress string `json:"walletAddress"`
}

// walletAddressFrom decodes a walletRequest-shaped body and writes 400 on failure.
func (ws *WebServer) walletAddressFrom(w http.ResponseWriter, r *http.Request, req any, address func() string) bool {
	if err := decodeBody(r, req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	if strings.TrimSpace(address()) == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, msgWalletRequired)
		return false
	}
	return true
}

// lookupUser loads the user of walletAddress, writing 404 or 500 with failMsg on failure.
func (ws *WebServer) lookupUser(ctx context.Context, w http.ResponseWriter, walletAddress, failMsg string) (types.User, bool) {
	user, err := ws.users.GetUserByWalletAddress(ctx, strings.TrimSpace(walletAddress))
	if errors.Is(err, state.ErrUserNotFound) {
		ws.writeErrorResponse(w, http.StatusNotFound, msgUserNotFound)
		return types.User{}, false
	}
	if err != nil {
		webLogger.Error().Err(err).Str("walletAddress", walletAddress).Msg("Failed to load user")
		ws.writeErrorResponse(w, http.StatusInternalServerError, failMsg)
		return types.User{}, false
	}
	return user, true
}

// lookupAIWallet loads the user and their AI wallet.
func (ws *WebServer) lookupAIWallet(ctx context.Context, w http.ResponseWriter, walletAddress, failMsg string) (types.User, types.AIWallet, bool) {
	user, ok := ws.lookupUser(ctx, w, walletAddress, failMsg)
	if !ok {
		return types.User{}, types.AIWallet{}, false
	}
	if user.AIWallet == nil {
		ws.writeErrorResponse(w, http.StatusNotFound, msgAIWalletNotFound)
		return types.User{}, types.AIWallet{}, false
	}
	return user, *user.AIWallet, true
}

func (ws *WebServer) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !ws.walletAddressFrom(w, r, &req, func() string { return req.WalletAddress }) {
		return
	}
	user, aiWallet, ok := ws.lookupAIWallet(r.Context(), w, req.WalletAddress, msgPortfolioFailed)
	if !ok {
		return
	}

	snapshot, err := ws.portfolio.BuildSnapshot(r.Context(), aiWallet.WalletAddress, user.RiskProfile)
	if err != nil {
		webLogger.Error().Err(err).Str("aiWallet", aiWallet.WalletAddress).Msg("Failed to build portfolio snapshot")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgPortfolioFailed)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, snapshot)
}

func (ws *WebServer) handleOptimization(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !ws.walletAddressFrom(w, r, &req, func() string { return req.WalletAddress }) {
		return
	}
	user, aiWallet, ok := ws.lookupAIWallet(r.Context(), w, req.WalletAddress, msgOptimizationFailed)
	if !ok {
		return
	}

	snapshot, err := ws.portfolio.BuildSnapshot(r.Context(), aiWallet.WalletAddress, user.RiskProfile)
	if err != nil {
		webLogger.Error().Err(err).Str("aiWallet", aiWallet.WalletAddress).Msg("Failed to build portfolio snapshot")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgPortfolioFailed)
		return
	}

	opportunities := ws.portfolio.OptimizeSnapshot(snapshot, user.RiskProfile)
	if opportunities == nil {
		opportunities = []types.OptimizationOpportunity{}
	}
	ws.writeJSONResponse(w, http.StatusOK, opportunities)
}

func (ws *WebServer) handleYieldOpportunities(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		types.YieldQuery
	}
	if !ws.walletAddressFrom(w, r, &req, func() string { return req.WalletAddress }) {
		return
	}
	if req.RiskTolerance != 0 && (req.RiskTolerance < 1 || req.RiskTolerance > 10) {
		ws.writeErrorResponse(w, http.StatusBadRequest, msgInvalidYieldParameters)
		return
	}
	horizon, ok := types.NormalizeTimeHorizon(req.TimeHorizon)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, msgInvalidYieldParameters)
		return
	}
	req.TimeHorizon = horizon

	user, ok := ws.lookupUser(r.Context(), w, req.WalletAddress, msgYieldFailed)
	if !ok {
		return
	}

	query := analyzer.YieldQueryFromProfile(user.RiskProfile, req.YieldQuery)
	result, err := ws.portfolio.YieldOpportunities(r.Context(), query)
	if err != nil {
		webLogger.Error().Err(err).Str("walletAddress", req.WalletAddress).Msg("Failed to rank yield opportunities")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgYieldFailed)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, result)
}

func (ws *WebServer) handleHasAIWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !ws.walletAddressFrom(w, r, &req, func() string { return req.WalletAddress }) {
		return
	}

	has, err := ws.users.HasAIWallet(r.Context(), strings.TrimSpace(req.WalletAddress))
	if err != nil {
		webLogger.Error().Err(err).Str("walletAddress", req.WalletAddress).Msg("Error checking AI wallet status")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgCheckWalletFailed)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]bool{"hasAiWallet": has})
}

func (ws *WebServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if !ws.walletAddressFrom(w, r, &req, func() string { return req.WalletAddress }) {
		return
	}

	user, err := ws.users.CreateUser(r.Context(), strings.TrimSpace(req.WalletAddress))
	if err != nil {
		webLogger.Error().Err(err).Str("walletAddress", req.WalletAddress).Msg("Failed to create user")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgCreateUserFailed)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]any{"user": user})
}

func (ws *WebServer) handleGenerateAIWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := decodeBody(r, &req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, msgUserIDRequired)
		return
	}

	if _, err := ws.users.GetUserByID(r.Context(), req.UserID); err != nil {
		if errors.Is(err, state.ErrUserNotFound) {
			ws.writeErrorResponse(w, http.StatusNotFound, msgUserNotFound)
			return
		}
		webLogger.Error().Err(err).Str("userId", req.UserID).Msg("Failed to load user")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgGenerateWalletFailed)
		return
	}

	generated, err := ws.wallets.NewAIWallet(req.UserID)
	if err != nil {
		webLogger.Error().Err(err).Str("userId", req.UserID).Msg("Failed to generate AI wallet")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgGenerateWalletFailed)
		return
	}
	saved, err := ws.users.SaveAIWallet(r.Context(), generated)
	if err != nil {
		webLogger.Error().Err(err).Str("userId", req.UserID).Msg("Failed to save AI wallet")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgGenerateWalletFailed)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]any{"aiWallet": saved})
}

func (ws *WebServer) handleSaveRiskProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID          string             `json:"userId"`
		RiskProfileData *types.RiskProfile `json:"riskProfileData"`
	}
	if err := decodeBody(r, &req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if strings.TrimSpace(req.UserID) == "" || req.RiskProfileData == nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, msgRiskProfileRequired)
		return
	}

	profile, err := ws.users.SaveRiskProfile(r.Context(), req.UserID, *req.RiskProfileData)
	switch {
	case errors.Is(err, types.ErrInvalidRiskProfile):
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, state.ErrUserNotFound):
		ws.writeErrorResponse(w, http.StatusNotFound, msgUserNotFound)
	case err != nil:
		webLogger.Error().Err(err).Str("userId", req.UserID).Msg("Failed to save risk profile")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgSaveRiskProfileFailed)
	default:
		ws.writeJSONResponse(w, http.StatusOK, map[string]any{"riskProfile": profile})
	}
}

func (ws *WebServer) handleUpdateRiskProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string             `json:"walletAddress"`
		RiskProfile   *types.RiskProfile `json:"riskProfile"`
	}
	if !ws.walletAddressFrom(w, r, &req, func() string { return req.WalletAddress }) {
		return
	}
	if req.RiskProfile == nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, msgRiskDataRequired)
		return
	}

	user, err := ws.users.UpdateRiskProfileByWallet(r.Context(), strings.TrimSpace(req.WalletAddress), *req.RiskProfile)
	switch {
	case errors.Is(err, types.ErrInvalidRiskProfile):
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, state.ErrUserNotFound):
		ws.writeErrorResponse(w, http.StatusNotFound, msgUserNotFound)
	case err != nil:
		webLogger.Error().Err(err).Str("walletAddress", req.WalletAddress).Msg("Failed to update risk profile")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgUpdateRiskProfileFail)
	default:
		ws.writeJSONResponse(w, http.StatusOK, map[string]any{"user": user})
	}
}

func (ws *WebServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		types.ProfileUpdate
	}
	if !ws.walletAddressFrom(w, r, &req, func() string { return req.WalletAddress }) {
		return
	}

	user, err := ws.users.UpdateUserProfile(r.Context(), strings.TrimSpace(req.WalletAddress), req.ProfileUpdate)
	switch {
	case errors.Is(err, state.ErrUserNotFound):
		ws.writeErrorResponse(w, http.StatusNotFound, msgUserNotFound)
	case err != nil:
		webLogger.Error().Err(err).Str("walletAddress", req.WalletAddress).Msg("Failed to update user profile")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgUpdateProfileFailed)
	default:
		ws.writeJSONResponse(w, http.StatusOK, map[string]any{"user": user})
	}
}

func (ws *WebServer) handleTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		Limit         int    `json:"limit"`
	}
	if !ws.walletAddressFrom(w, r, &req, func() string { return req.WalletAddress }) {
		return
	}
	user, ok := ws.lookupUser(r.Context(), w, req.WalletAddress, msgTransactionsFailed)
	if !ok {
		return
	}

	txns, err := ws.users.ListTransactions(r.Context(), user.ID, req.Limit)
	if err != nil {
		webLogger.Error().Err(err).Str("userId", user.ID).Msg("Failed to list transactions")
		ws.writeErrorResponse(w, http.StatusInternalServerError, msgTransactionsFailed)
		return
	}
	if txns == nil {
		txns = []types.Transaction{}
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]any{"transactions": txns})
}
