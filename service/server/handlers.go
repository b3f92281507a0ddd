package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solpocket/solpocket/service/db"
	chain "github.com/solpocket/solpocket/service/solana"
	"github.com/solpocket/solpocket/service/wallet"
)

const maxRequestBodySize = 1 << 20 // 1MB

// balanceResponse is the JSON shape of the balance endpoint.
type balanceResponse struct {
	Balance wallet.BalanceSnapshot `json:"balance"`
}

// historyResponse is the JSON shape of the history endpoints.
type historyResponse struct {
	Records []wallet.TransactionRecord `json:"records"`
	Count   int                        `json:"count"`
}

// transferResponse is the JSON shape of a successful transfer submission.
type transferResponse struct {
	Signature string                    `json:"signature"`
	Status    wallet.ConfirmationStatus `json:"status"`
}

// statusResponse is the JSON shape of the transfer status endpoint.
type statusResponse struct {
	Signature string                    `json:"signature"`
	Status    wallet.ConfirmationStatus `json:"status"`
}

// handleGetBalance returns the current balance snapshot.
// GET /api/v1/balance?refresh=true forces a synchronous refresh first.
func handleGetBalance(store *wallet.Store, balances *wallet.BalanceSynchronizer, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("refresh") == "true" {
			if _, err := balances.Refresh(r.Context()); err != nil {
				logger.Error("balance refresh failed", "error", err)
				writeError(w, "failed to refresh balance", http.StatusBadGateway)
				return
			}
		}

		writeJSON(w, balanceResponse{Balance: store.Balance()}, http.StatusOK)
	})
}

// handleGetHistory returns the current transaction list.
// GET /api/v1/history?refresh=true forces a synchronous refresh first;
// ?limit=N truncates the response.
func handleGetHistory(store *wallet.Store, history *wallet.HistorySynchronizer, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("refresh") == "true" {
			if _, err := history.Refresh(r.Context()); err != nil {
				logger.Error("history refresh failed", "error", err)
				writeError(w, "failed to refresh history", http.StatusBadGateway)
				return
			}
		}

		records := store.History()
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			limit, err := strconv.Atoi(limitStr)
			if err != nil || limit < 0 {
				writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
				return
			}
			if limit < len(records) {
				records = records[:limit]
			}
		}

		writeJSON(w, historyResponse{Records: records, Count: len(records)}, http.StatusOK)
	})
}

// handleCreateTransfer validates and submits a transfer.
// POST /api/v1/transfers with a wallet.TransferRequest body.
func handleCreateTransfer(orchestrator *wallet.TransferOrchestrator, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if orchestrator == nil {
			writeError(w, "transfer signing is not configured on this server", http.StatusServiceUnavailable)
			return
		}

		var req wallet.TransferRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Token == "" {
			req.Token = wallet.SelectNative
		}

		sig, err := orchestrator.Submit(r.Context(), req)
		if err != nil {
			status, message := transferErrorStatus(err)
			logger.Warn("transfer rejected", "status", status, "error", err)
			writeError(w, message, status)
			return
		}

		logger.Info("transfer submitted", "signature", sig.String())
		writeJSON(w, transferResponse{
			Signature: sig.String(),
			Status:    wallet.StatusPending,
		}, http.StatusAccepted)
	})
}

// handleValidateTransfer computes validity flags without submitting.
// POST /api/v1/transfers/validate with a wallet.TransferRequest body.
func handleValidateTransfer(orchestrator *wallet.TransferOrchestrator, store *wallet.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if orchestrator == nil {
			writeError(w, "transfer signing is not configured on this server", http.StatusServiceUnavailable)
			return
		}

		var req wallet.TransferRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Token == "" {
			req.Token = wallet.SelectNative
		}

		writeJSON(w, orchestrator.Validity(req), http.StatusOK)
	})
}

// handleGetTransferStatus checks the confirmation status of a signature.
// GET /api/v1/transfers/{signature}
func handleGetTransferStatus(reader chain.ChainReader, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig, err := solana.SignatureFromBase58(r.PathValue("signature"))
		if err != nil {
			writeError(w, "invalid signature", http.StatusBadRequest)
			return
		}

		status, err := reader.GetSignatureStatus(r.Context(), sig)
		if err != nil {
			logger.Error("signature status check failed", "signature", sig.String(), "error", err)
			writeError(w, "failed to check signature status", http.StatusBadGateway)
			return
		}

		resp := statusResponse{Signature: sig.String(), Status: wallet.StatusPending}
		if status != nil {
			switch {
			case status.Err != nil:
				resp.Status = wallet.StatusFailed
			case status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed,
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized:
				resp.Status = wallet.StatusConfirmed
			}
		}

		writeJSON(w, resp, http.StatusOK)
	})
}

// handleListArchive returns archived records from the database.
// GET /api/v1/archive?address={address}&limit=N&offset=M
func handleListArchive(archive *db.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.URL.Query().Get("address")
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			writeError(w, "address is not a valid public key", http.StatusBadRequest)
			return
		}

		limit := 50
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			n, err := strconv.Atoi(limitStr)
			if err != nil || n <= 0 || n > 1000 {
				writeError(w, "limit must be between 1 and 1000", http.StatusBadRequest)
				return
			}
			limit = n
		}

		offset := 0
		if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
			n, err := strconv.Atoi(offsetStr)
			if err != nil || n < 0 {
				writeError(w, "offset must be a non-negative integer", http.StatusBadRequest)
				return
			}
			offset = n
		}

		records, err := archive.ListRecords(r.Context(), address, limit, offset)
		if err != nil {
			logger.Error("failed to list archived records", "address", address, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, historyResponse{Records: records, Count: len(records)}, http.StatusOK)
	})
}

// transferErrorStatus maps the transfer error taxonomy to HTTP statuses.
func transferErrorStatus(err error) (int, string) {
	var verr *wallet.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, verr.Error()
	}

	var signErr *wallet.SigningError
	if errors.As(err, &signErr) {
		if signErr.Cancelled {
			return http.StatusConflict, signErr.Error()
		}
		return http.StatusBadGateway, signErr.Error()
	}

	var subErr *wallet.SubmissionError
	if errors.As(err, &subErr) {
		return http.StatusBadGateway, subErr.Error()
	}

	var buildErr *wallet.InstructionBuildError
	if errors.As(err, &buildErr) {
		return http.StatusInternalServerError, buildErr.Error()
	}

	return http.StatusInternalServerError, "internal server error"
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
