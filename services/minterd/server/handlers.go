package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alpha-fi/cheddar-maze-minter/native/minter"
)

const maxBodyBytes = 1 << 16

type errorResponse struct {
	Error string `json:"error"`
}

type mintRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Referral  string `json:"referral,omitempty"`
	Gas       uint64 `json:"gas"`
	Memo      string `json:"memo,omitempty"`
}

type mintResponse struct {
	UserMinted     string `json:"user_minted"`
	ReferralMinted string `json:"referral_minted"`
	RequestID      string `json:"request_id"`
}

type toggleResponse struct {
	Active bool `json:"active"`
}

type changeMinterRequest struct {
	Minter string `json:"minter"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var quotaErr *minter.GlobalQuotaExceededError
	switch {
	case errors.Is(err, minter.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, minter.ErrInactive):
		return http.StatusConflict
	case errors.As(err, &quotaErr), errors.Is(err, minter.ErrGlobalQuotaExceeded):
		return http.StatusTooManyRequests
	case invalidInput(err), errors.Is(err, errBadBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// invalidInput reports whether err rejects the request payload rather than the caller.
func invalidInput(err error) bool {
	return errors.Is(err, minter.ErrInsufficientBudget) ||
		errors.Is(err, minter.ErrInvalidAmount) ||
		errors.Is(err, minter.ErrInvalidRecipient) ||
		errors.Is(err, minter.ErrInvalidMinter)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, errors.New("internal error"))
		return
	}
	writeError(w, status, err)
}

var errBadBody = errors.New("invalid request body")

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	view, err := s.backend.Config(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	view, err := s.backend.AccountMint(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	if s.receipts == nil {
		writeError(w, http.StatusNotFound, errors.New("receipts disabled"))
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	list, err := s.receipts.List(r.Context(), r.URL.Query().Get("account"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	caller, _ := Principal(r.Context())
	// Body and amount errors surface only after the caller is known to be the
	// minter. A malformed body reaches the engine as an empty request, which it
	// always rejects after authorization.
	var body mintRequest
	bodyErr := decodeBody(r, &body)
	if bodyErr != nil {
		body = mintRequest{}
	}
	req := minter.MintRequest{
		Recipient: body.Recipient,
		Referral:  body.Referral,
		Gas:       body.Gas,
		Memo:      body.Memo,
	}
	amount, parseErr := minter.ParseAmount(body.Amount)
	if parseErr == nil {
		req.Amount = amount
	}
	out, err := s.backend.Mint(r.Context(), caller, req)
	if err != nil {
		switch {
		case bodyErr != nil && invalidInput(err):
			err = bodyErr
		case parseErr != nil && errors.Is(err, minter.ErrInvalidAmount):
			err = parseErr
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mintResponse{
		UserMinted:     minter.FormatAmount(out.Result.UserMinted),
		ReferralMinted: minter.FormatAmount(out.Result.ReferralMinted),
		RequestID:      out.RequestID,
	})
}

func (s *Server) handleToggleActive(w http.ResponseWriter, r *http.Request) {
	caller, _ := Principal(r.Context())
	active, err := s.backend.ToggleActive(r.Context(), caller)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{Active: active})
}

func (s *Server) handleChangeMinter(w http.ResponseWriter, r *http.Request) {
	caller, _ := Principal(r.Context())
	var body changeMinterRequest
	bodyErr := decodeBody(r, &body)
	if bodyErr != nil {
		body = changeMinterRequest{}
	}
	if err := s.backend.ChangeMinter(r.Context(), caller, body.Minter); err != nil {
		if bodyErr != nil && invalidInput(err) {
			err = bodyErr
		}
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
