// Package paymentdelivery manages delivery layer of transfers, fundings and the journal.
package paymentdelivery

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/internal/middleware"
	"github.com/go-petr/pet-pay/pkg/web"
)

// DateTimeLayout is the layout of the history date range query parameters.
const DateTimeLayout = "2006-01-02 15:04:05"

// Service provides service layer interface needed by payment delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package paymentdelivery
type Service interface {
	Transfer(ctx context.Context, p domain.Principal, intent domain.PaymentIntent) (domain.TransactionRecord, error)
	Fund(ctx context.Context, p domain.Principal, amount decimal.Decimal, currency string) (domain.TransactionRecord, error)
	GeneratePayload(ctx context.Context, p domain.Principal, intent domain.PaymentIntent) (string, error)
	ProcessPayload(ctx context.Context, p domain.Principal, payload string) (domain.TransactionRecord, error)
	History(ctx context.Context, p domain.Principal, f domain.TransactionFilter, page domain.PageParams) (domain.TransactionPage, error)
	Find(ctx context.Context, p domain.Principal, transactionID string) (domain.TransactionRecord, error)
}

// Handler facilitates payment delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns payment handler.
func NewHandler(ps Service) Handler {
	return Handler{service: ps}
}

type transactionData struct {
	Transaction domain.TransactionRecord `json:"transaction"`
}

type payloadData struct {
	Payload string `json:"payload"`
}

type transferRequest struct {
	PayerAccountID     int64           `json:"payer_account_id" binding:"omitempty,min=1"`
	PayeeAccountNumber string          `json:"payee_account_number" binding:"required"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency" binding:"required,currency"`
	Description        string          `json:"description" binding:"max=255"`
}

// Transfer handles http request to move money from the caller's account.
func (h *Handler) Transfer(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)
	p := middleware.PrincipalFrom(gctx)

	var req transferRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	if req.PayerAccountID == 0 {
		req.PayerAccountID = p.AccountID
	}

	rec, err := h.service.Transfer(ctx, p, domain.PaymentIntent{
		Amount:                req.Amount,
		Currency:              req.Currency,
		MerchantAccountNumber: req.PayeeAccountNumber,
		Description:           req.Description,
		PayerAccountID:        req.PayerAccountID,
	})
	if err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: transactionData{rec}})
}

type fundRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" binding:"required,currency"`
}

// Fund handles http request to credit the caller's account.
func (h *Handler) Fund(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req fundRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	rec, err := h.service.Fund(ctx, middleware.PrincipalFrom(gctx), req.Amount, req.Currency)
	if err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: transactionData{rec}})
}

type payloadRequest struct {
	MerchantAccountNumber string          `json:"merchant_account_number" binding:"required"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency" binding:"required,currency"`
	Description           string          `json:"description" binding:"max=255"`
}

// GeneratePayload handles http request to encode a payment the caller will pay.
func (h *Handler) GeneratePayload(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req payloadRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	payload, err := h.service.GeneratePayload(ctx, middleware.PrincipalFrom(gctx), domain.PaymentIntent{
		Amount:                req.Amount,
		Currency:              req.Currency,
		MerchantAccountNumber: req.MerchantAccountNumber,
		Description:           req.Description,
	})
	if err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: payloadData{payload}})
}

type processRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// ProcessPayload handles http request to settle an encoded payment.
func (h *Handler) ProcessPayload(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req processRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	rec, err := h.service.ProcessPayload(ctx, middleware.PrincipalFrom(gctx), req.Payload)
	if err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: transactionData{rec}})
}

type historyRequest struct {
	CounterpartID int64  `form:"counterpart_id" binding:"omitempty,min=1"`
	StartDate     string `form:"start_date" binding:"omitempty,datetime=2006-01-02 15:04:05"`
	EndDate       string `form:"end_date" binding:"omitempty,datetime=2006-01-02 15:04:05"`
	PageID        int32  `form:"page_id" binding:"required,min=1"`
	PageSize      int32  `form:"page_size" binding:"required,min=1,max=100"`
}

func (r historyRequest) filter() domain.TransactionFilter {
	var f domain.TransactionFilter

	if r.CounterpartID != 0 {
		id := r.CounterpartID
		f.CounterpartID = &id
	}

	// Layouts are checked by the binding.
	if r.StartDate != "" {
		start, _ := time.Parse(DateTimeLayout, r.StartDate)
		f.DateRangeStart = &start
	}

	if r.EndDate != "" {
		end, _ := time.Parse(DateTimeLayout, r.EndDate)
		f.DateRangeEnd = &end
	}

	return f
}

// History handles http request to list the caller's journal records.
func (h *Handler) History(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req historyRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	page, err := h.service.History(ctx, middleware.PrincipalFrom(gctx), req.filter(), domain.PageParams{
		PageIndex: req.PageID,
		PageSize:  req.PageSize,
	})
	if err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: page})
}

type findRequest struct {
	TransactionID string `uri:"id" binding:"required,uuid"`
}

// Find handles http request to get one of the caller's journal records.
func (h *Handler) Find(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req findRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	rec, err := h.service.Find(ctx, middleware.PrincipalFrom(gctx), req.TransactionID)
	if err != nil {
		middleware.WriteError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: transactionData{rec}})
}
