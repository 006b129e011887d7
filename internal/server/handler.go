// internal/server/handler.go
//
// Package server 提供本機 HTTP 介面，作為畫面端（瀏覽器或桌面殼層）與
// register.Session 之間的轉接層。每個 handler 僅負責：
//  1. 解析請求
//  2. 呼叫 Session 的對應操作
//  3. 回傳 JSON（多數操作回傳最新的 State，讓畫面端直接重繪）
//
// 商業規則與持久化都在 register / storage，本層不保存任何狀態。
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"pointsale/internal/register"
)

// Server 為 HTTP 層核心結構。
type Server struct {
	Session *register.Session
	log     *zap.Logger
	origins []string
}

// NewServer 建立 HTTP 伺服器。allowedOrigins 為空時允許任何來源。
func NewServer(sess *register.Session, log *zap.Logger, allowedOrigins ...string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{Session: sess, log: log, origins: allowedOrigins}
}

// ─────────────────────────────
// 收銀（レジ）
// ─────────────────────────────

func (s *Server) getRegister(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.Session.State())
}

// putCustomer 更新暫存欄位；未提供的欄位維持原值。
func (s *Server) putCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          *string `json:"name"`
		Remarks       *string `json:"remarks"`
		Qualification *string `json:"qualification"`
		Answer        *string `json:"answer"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if req.Name != nil {
		s.Session.SetCustomer(*req.Name)
	}
	if req.Remarks != nil {
		s.Session.SetRemarks(*req.Remarks)
	}
	if req.Qualification != nil {
		s.Session.SelectQualification(*req.Qualification)
	}
	if req.Answer != nil {
		s.Session.SelectAnswer(*req.Answer)
	}
	writeJSON(w, r, http.StatusOK, s.Session.State())
}

func (s *Server) adjustItem(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if _, err := s.Session.Adjust(index, req.Delta); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s.Session.State())
}

func (s *Server) clearItem(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	if err := s.Session.ClearCount(index); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s.Session.State())
}

// commit 完成結帳 → 201 Created，回傳寫入的兩筆紀錄與重設後的狀態。
func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	tx, sv, err := s.Session.Commit()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"transaction": tx,
		"survey":      sv,
		"state":       s.Session.State(),
	})
}

func (s *Server) restore(w http.ResponseWriter, r *http.Request) {
	if err := requireConfirm(r); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := s.Session.Restore(); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s.Session.State())
}

func (s *Server) clearRegister(w http.ResponseWriter, r *http.Request) {
	if err := requireConfirm(r); err != nil {
		writeErr(w, r, err)
		return
	}
	s.Session.Clear()
	writeJSON(w, r, http.StatusOK, s.Session.State())
}

func (s *Server) bill(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, textBody{Text: s.Session.BillText()})
}

func (s *Server) letter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, textBody{Text: s.Session.Letter()})
}

// ─────────────────────────────
// 商品（管理）
// ─────────────────────────────

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.Session.Catalog())
}

func (s *Server) putCatalog(w http.ResponseWriter, r *http.Request) {
	var req []register.ItemInput
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	items, err := s.Session.ApplyItems(req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (s *Server) putCatalogCount(w http.ResponseWriter, r *http.Request) {
	n, err := decodeCount(r, "item count")
	if err == nil {
		err = s.Session.SetItemCount(n)
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s.Session.State())
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	img, err := s.Session.ItemImage(index)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	defer img.Close()
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, img); err != nil {
		s.log.Warn("image write failed", zap.Int("item", index+1), zap.Error(err))
	}
}

func (s *Server) putImage(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	if err := s.Session.SetItemImage(index, r.Body); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─────────────────────────────
// 資格 / 質問
// ─────────────────────────────

func (s *Server) getQualifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.Session.Qualifications())
}

func (s *Server) putQualifications(w http.ResponseWriter, r *http.Request) {
	var req []register.QualificationInput
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	quals, err := s.Session.ApplyQualifications(req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, quals)
}

func (s *Server) putQualificationCount(w http.ResponseWriter, r *http.Request) {
	n, err := decodeCount(r, "qualification count")
	if err == nil {
		err = s.Session.SetQualificationCount(n)
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s.Session.Qualifications())
}

func (s *Server) getQuestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.Session.Questions())
}

func (s *Server) putQuestions(w http.ResponseWriter, r *http.Request) {
	var req []string
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	questions, err := s.Session.ApplyQuestions(req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, questions)
}

func (s *Server) putQuestionCount(w http.ResponseWriter, r *http.Request) {
	n, err := decodeCount(r, "question count")
	if err == nil {
		err = s.Session.SetQuestionCount(n)
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s.Session.Questions())
}

// ─────────────────────────────
// 店舗 / 設定 / 履歴
// ─────────────────────────────

type shopBody struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (s *Server) getShop(w http.ResponseWriter, r *http.Request) {
	name, msg := s.Session.Shop()
	writeJSON(w, r, http.StatusOK, shopBody{Name: name, Message: msg})
}

func (s *Server) putShop(w http.ResponseWriter, r *http.Request) {
	var req shopBody
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := s.Session.SetShop(req.Name, req.Message); err != nil {
		writeErr(w, r, err)
		return
	}
	s.getShop(w, r)
}

func (s *Server) getImageScale(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]int{"scale": s.Session.ImageScale()})
}

func (s *Server) putImageScale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scale any `json:"scale"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, err)
		return
	}
	n, err := register.ParseCount("image scale", cast.ToString(req.Scale))
	if err == nil {
		err = s.Session.SetImageScale(n)
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.getImageScale(w, r)
}

func (s *Server) transactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.Session.Transactions()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, txs)
}

func (s *Server) surveys(w http.ResponseWriter, r *http.Request) {
	svs, err := s.Session.Surveys()
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, svs)
}

// health 提供健康檢查端點：GET /health。
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// ─────────────────────────────
// 請求解析
// ─────────────────────────────

func indexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid item index %q", raw)
	}
	return i, nil
}

// decodeCount 接受 {"count": 3} 或 {"count": "3"}（表單原始輸入）。
func decodeCount(r *http.Request, field string) (int, error) {
	var req struct {
		Count any `json:"count"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		return 0, &register.ValidationError{Field: field, Reason: err.Error()}
	}
	return register.ParseCount(field, cast.ToString(req.Count))
}

// requireConfirm 要求請求主體為 {"confirm": true}。
func requireConfirm(r *http.Request) error {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		return errConfirmationRequired
	}
	if !req.Confirm {
		return errConfirmationRequired
	}
	return nil
}
