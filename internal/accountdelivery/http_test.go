package accountdelivery

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/internal/integrationtest/helpers"
	"github.com/go-petr/pet-pay/internal/middleware"
	"github.com/go-petr/pet-pay/pkg/currencypkg"
	"github.com/go-petr/pet-pay/pkg/errorspkg"
	"github.com/go-petr/pet-pay/pkg/randompkg"
	"github.com/go-petr/pet-pay/pkg/tokenpkg"
	"github.com/go-petr/pet-pay/pkg/web"
)

var compareAccount = cmp.Options{
	cmpopts.EquateApproxTime(time.Second),
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currency", currencypkg.ValidCurrency)
		_ = v.RegisterValidation("ownerkind", ValidOwnerKind)
	}

	os.Exit(m.Run())
}

func newTokenMaker(t *testing.T) tokenpkg.Maker {
	t.Helper()

	tokenSymmetricKey := randompkg.String(32)

	tokenMaker, err := tokenpkg.NewPasetoMaker(tokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) returned error: %v", tokenSymmetricKey, err)
	}

	return tokenMaker
}

func newServer(t *testing.T, accountService Service, tokenMaker tokenpkg.Maker) *gin.Engine {
	t.Helper()

	accountHandler := NewHandler(accountService, tokenMaker, time.Minute)

	server := gin.New()
	server.POST("/accounts", accountHandler.Create)

	authRoutes := server.Group("/").Use(middleware.AuthMiddleware(tokenMaker))
	authRoutes.GET("/accounts/me", accountHandler.Get)
	authRoutes.DELETE("/accounts/me", accountHandler.Delete)
	authRoutes.POST("/accounts/me/token", accountHandler.RenewToken)

	return server
}

type tokenResponse struct {
	Account              domain.Account `json:"account"`
	AccessToken          string         `json:"access_token"`
	AccessTokenExpiresAt time.Time      `json:"access_token_expires_at"`
}

func TestCreate(t *testing.T) {
	account := helpers.RandomAccount(domain.OwnerUser)
	tokenMaker := newTokenMaker(t)

	type requestBody struct {
		OwnerKind string `json:"owner_kind"`
		OwnerName string `json:"owner_name"`
		Currency  string `json:"currency"`
	}

	validBody := requestBody{
		OwnerKind: string(account.OwnerKind),
		OwnerName: account.OwnerName,
		Currency:  account.Currency,
	}

	testCases := []struct {
		name           string
		body           any
		buildStubs     func(accountService *MockService)
		wantStatusCode int
		wantError      string
	}{
		{
			name: "OK",
			body: validBody,
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Open(gomock.Any(), domain.OwnerUser, account.OwnerName, account.Currency).
					Times(1).
					Return(account, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "InvalidOwnerKind",
			body: requestBody{OwnerKind: "ADMIN", OwnerName: account.OwnerName, Currency: account.Currency},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "OwnerKind must be USER or MERCHANT",
		},
		{
			name: "InvalidCurrency",
			body: requestBody{OwnerKind: "MERCHANT", OwnerName: account.OwnerName, Currency: "RUB"},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "Currency is not supported",
		},
		{
			name: "MissingOwnerName",
			body: requestBody{OwnerKind: "USER", Currency: account.Currency},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "OwnerName is required",
		},
		{
			name: "MalformedJSON",
			body: "{",
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Open(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusBadRequest,
			wantError:      "invalid request",
		},
		{
			name: "DuplicateAccount",
			body: validBody,
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Open(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Account{}, domain.ErrDuplicateAccount)
			},
			wantStatusCode: http.StatusConflict,
			wantError:      domain.ErrDuplicateAccount.Error(),
		},
		{
			name: "AllocationExhausted",
			body: validBody,
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().
					Open(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Times(1).
					Return(domain.Account{}, domain.ErrAllocationExhausted)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			accountService := NewMockService(ctrl)
			tc.buildStubs(accountService)

			server := newServer(t, accountService, tokenMaker)

			var body []byte
			if s, ok := tc.body.(string); ok {
				body = []byte(s)
			} else {
				var err error
				if body, err = json.Marshal(tc.body); err != nil {
					t.Fatalf("Encoding request body error: %v", err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			res := web.Response{Data: &tokenResponse{}}
			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Fatalf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			got := res.Data.(*tokenResponse)
			if diff := cmp.Diff(account, got.Account, compareAccount); diff != "" {
				t.Errorf("res.Data.Account mismatch (-want +got):\n%s", diff)
			}

			payload, err := tokenMaker.VerifyToken(got.AccessToken)
			if err != nil {
				t.Fatalf("tokenMaker.VerifyToken() returned error: %v", err)
			}

			if payload.AccountID != account.ID || payload.Kind != string(account.OwnerKind) {
				t.Errorf("token payload = %+v, want account %d of kind %v", payload, account.ID, account.OwnerKind)
			}
		})
	}
}

func TestGet(t *testing.T) {
	account := helpers.RandomAccount(domain.OwnerMerchant)
	tokenMaker := newTokenMaker(t)
	principal := domain.Principal{Kind: account.OwnerKind, AccountID: account.ID}

	testCases := []struct {
		name           string
		setupAuth      func(t *testing.T, r *http.Request) error
		buildStubs     func(accountService *MockService)
		wantStatusCode int
		wantError      string
	}{
		{
			name: "OK",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, middleware.AuthTypeBearer, principal, time.Minute)
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Get(gomock.Any(), account.ID).Times(1).Return(account, nil)
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "NoAuthorization",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return nil
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatusCode: http.StatusUnauthorized,
			wantError:      middleware.ErrAuthHeaderNotFound.Error(),
		},
		{
			name: "NotFound",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, middleware.AuthTypeBearer, principal, time.Minute)
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Get(gomock.Any(), account.ID).Times(1).Return(domain.Account{}, domain.ErrAccountNotFound)
			},
			wantStatusCode: http.StatusNotFound,
			wantError:      domain.ErrAccountNotFound.Error(),
		},
		{
			name: "InternalServerError",
			setupAuth: func(t *testing.T, r *http.Request) error {
				return middleware.AddAuthorization(r, tokenMaker, middleware.AuthTypeBearer, principal, time.Minute)
			},
			buildStubs: func(accountService *MockService) {
				accountService.EXPECT().Get(gomock.Any(), account.ID).Times(1).Return(domain.Account{}, errorspkg.ErrInternal)
			},
			wantStatusCode: http.StatusInternalServerError,
			wantError:      errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			accountService := NewMockService(ctrl)
			tc.buildStubs(accountService)

			server := newServer(t, accountService, tokenMaker)

			req := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
			if err := tc.setupAuth(t, req); err != nil {
				t.Fatalf("tc.setupAuth(t, %+v) returned error: %v", req, err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}

			res := web.Response{Data: &data{}}
			if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
				t.Fatalf("Decoding response body error: %v", err)
			}

			if tc.wantStatusCode != http.StatusOK {
				if res.Error != tc.wantError {
					t.Errorf(`resp.Error=%q, want %q`, res.Error, tc.wantError)
				}

				return
			}

			if diff := cmp.Diff(account, res.Data.(*data).Account, compareAccount); diff != "" {
				t.Errorf("res.Data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	tokenMaker := newTokenMaker(t)
	principal := domain.Principal{Kind: domain.OwnerUser, AccountID: 11}

	testCases := []struct {
		name           string
		err            error
		wantStatusCode int
	}{
		{name: "OK", wantStatusCode: http.StatusNoContent},
		{name: "NotFound", err: domain.ErrAccountNotFound, wantStatusCode: http.StatusNotFound},
		{name: "Busy", err: domain.ErrLockTimeout, wantStatusCode: http.StatusServiceUnavailable},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			accountService := NewMockService(ctrl)
			accountService.EXPECT().Close(gomock.Any(), principal.AccountID).Times(1).Return(tc.err)

			server := newServer(t, accountService, tokenMaker)

			req := httptest.NewRequest(http.MethodDelete, "/accounts/me", nil)
			if err := middleware.AddAuthorization(req, tokenMaker, middleware.AuthTypeBearer, principal, time.Minute); err != nil {
				t.Fatalf("middleware.AddAuthorization() returned error: %v", err)
			}

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			if got := recorder.Code; got != tc.wantStatusCode {
				t.Errorf("Status code: got %v, want %v", got, tc.wantStatusCode)
			}
		})
	}
}

func TestRenewToken(t *testing.T) {
	tokenMaker := newTokenMaker(t)
	principal := domain.Principal{Kind: domain.OwnerMerchant, AccountID: 12}

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accountService := NewMockService(ctrl)
	accountService.EXPECT().Get(gomock.Any(), principal.AccountID).Times(1).Return(domain.Account{ID: principal.AccountID}, nil)

	server := newServer(t, accountService, tokenMaker)

	req := httptest.NewRequest(http.MethodPost, "/accounts/me/token", nil)
	if err := middleware.AddAuthorization(req, tokenMaker, middleware.AuthTypeBearer, principal, time.Minute); err != nil {
		t.Fatalf("middleware.AddAuthorization() returned error: %v", err)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Status code: got %v, want %v", recorder.Code, http.StatusOK)
	}

	res := web.Response{Data: &tokenResponse{}}
	if err := json.NewDecoder(recorder.Body).Decode(&res); err != nil {
		t.Fatalf("Decoding response body error: %v", err)
	}

	payload, err := tokenMaker.VerifyToken(res.Data.(*tokenResponse).AccessToken)
	if err != nil {
		t.Fatalf("tokenMaker.VerifyToken() returned error: %v", err)
	}

	if payload.AccountID != principal.AccountID || payload.Kind != string(principal.Kind) {
		t.Errorf("token payload = %+v, want %+v", payload, principal)
	}
}
