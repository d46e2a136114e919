package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
	"spendify/internal/models"
	"spendify/internal/money"
	"spendify/internal/services"
)

func setupCardRouter(svc *mockCardService, audit *mockAuditService) *gin.Engine {
	h := NewCardHandler(svc, audit)
	r := gin.New()
	api := r.Group("/api", injectUserID("user-1"))
	api.GET("/cards", h.GetUserCards)
	api.POST("/cards", h.CreateCard)
	api.POST("/cards/transfer", h.TransferBetweenCards)
	api.GET("/cards/:id", h.GetCardByID)
	api.PUT("/cards/:id", h.UpdateCard)
	api.DELETE("/cards/:id", h.DeleteCard)
	return r
}

func testCard(id, last4 string, balance money.Cents) *models.Card {
	card := &models.Card{
		UserID:         "user-1",
		Last4:          last4,
		MaskedNumber:   models.MaskCardNumber(last4),
		CardHolderName: "JANE DOE",
		Expiry:         "12/30",
		Balance:        balance,
		CardType:       models.CardTypeVisa,
		IsActive:       true,
	}
	card.ID = id
	return card
}

func TestCardHandler_CreateCard(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.CardInput
		svc := &mockCardService{
			createCardFn: func(_ string, in services.CardInput) (*models.Card, error) {
				got = in
				return testCard("card-1", "1111", in.Balance), nil
			},
		}
		audit := &mockAuditService{}
		r := setupCardRouter(svc, audit)

		rec := doRequest(r, "POST", "/api/cards",
			`{"cardNumber":"4111 1111 1111 1111","cardHolderName":"Jane Doe","expiry":"12/30","cvv":"123","balance":250}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		assertMessage(t, result, "Card added successfully")
		if got.Balance != 25000 || got.Number != "4111 1111 1111 1111" || got.CardType != "" {
			t.Errorf("unexpected card input %+v", got)
		}
		data := result["data"].(map[string]interface{})
		if data["maskedNumber"] != "**** **** **** 1111" {
			t.Errorf("unexpected masked number %v", data["maskedNumber"])
		}
		if _, ok := data["cvv"]; ok {
			t.Error("cvv must never be returned")
		}
		if len(audit.entries) != 1 || audit.entries[0].resourceType != "card" {
			t.Errorf("unexpected audit entries %+v", audit.entries)
		}
	})

	t.Run("returns field messages for invalid details", func(t *testing.T) {
		r := setupCardRouter(&mockCardService{}, &mockAuditService{})

		rec := doRequest(r, "POST", "/api/cards",
			`{"cardNumber":"1234","cardHolderName":"Jane","expiry":"13/30","cvv":"12"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		assertErrorCode(t, result, "VALIDATION_ERROR")
		assertMessage(t, result, "Please provide a valid 16-digit card number")
		errs := result["errors"].([]interface{})
		want := []string{
			"Please provide a valid 16-digit card number",
			"Expiry must be in MM/YY format",
			"CVV must be 3 or 4 digits",
		}
		if len(errs) != len(want) {
			t.Fatalf("expected %d errors, got %v", len(want), errs)
		}
		for i, w := range want {
			if errs[i] != w {
				t.Errorf("error %d: expected %q, got %q", i, w, errs[i])
			}
		}
	})

	t.Run("rejects an unknown card type", func(t *testing.T) {
		r := setupCardRouter(&mockCardService{}, &mockAuditService{})

		rec := doRequest(r, "POST", "/api/cards",
			`{"cardNumber":"4111111111111111","cardHolderName":"Jane","expiry":"12/30","cvv":"123","cardType":"diners"}`)

		assertMessage(t, parseJSON(t, rec), "Card type must be one of: visa, mastercard, amex, discover, other")
	})

	t.Run("rejects a negative balance", func(t *testing.T) {
		r := setupCardRouter(&mockCardService{}, &mockAuditService{})

		rec := doRequest(r, "POST", "/api/cards",
			`{"cardNumber":"4111111111111111","cardHolderName":"Jane","expiry":"12/30","cvv":"123","balance":-5}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "Balance cannot be negative")
	})
}

func TestCardHandler_GetUserCards(t *testing.T) {
	t.Run("returns count and data", func(t *testing.T) {
		svc := &mockCardService{
			getUserCardsFn: func(string) ([]models.Card, error) {
				return []models.Card{*testCard("c1", "1111", 100), *testCard("c2", "2222", 200)}, nil
			},
		}
		r := setupCardRouter(svc, &mockAuditService{})

		rec := doRequest(r, "GET", "/api/cards", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["count"] != 2.0 || len(result["data"].([]interface{})) != 2 {
			t.Errorf("unexpected listing %v", result)
		}
	})
}

func TestCardHandler_GetCardByID(t *testing.T) {
	t.Run("returns 404 for an inactive card", func(t *testing.T) {
		svc := &mockCardService{
			getCardByIDFn: func(string, string) (*models.Card, error) {
				return nil, apperrors.ErrCardNotFound
			},
		}
		r := setupCardRouter(svc, &mockAuditService{})

		rec := doRequest(r, "GET", "/api/cards/c1", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CARD_NOT_FOUND")
	})
}

func TestCardHandler_UpdateCard(t *testing.T) {
	t.Run("patches editable fields", func(t *testing.T) {
		var got services.CardPatch
		svc := &mockCardService{
			updateCardFn: func(_, id string, patch services.CardPatch) (*models.Card, error) {
				got = patch
				return testCard(id, "1111", 100), nil
			},
		}
		r := setupCardRouter(svc, &mockAuditService{})

		rec := doRequest(r, "PUT", "/api/cards/c1", `{"expiry":"01/31","cardType":"mastercard"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		assertMessage(t, parseJSON(t, rec), "Card updated successfully")
		if got.Expiry == nil || *got.Expiry != "01/31" || got.CardType == nil || *got.CardType != models.CardTypeMastercard || got.HolderName != nil {
			t.Errorf("unexpected patch %+v", got)
		}
	})

	t.Run("rejects a malformed expiry", func(t *testing.T) {
		r := setupCardRouter(&mockCardService{}, &mockAuditService{})

		rec := doRequest(r, "PUT", "/api/cards/c1", `{"expiry":"2030-01"}`)

		assertMessage(t, parseJSON(t, rec), "Expiry must be in MM/YY format")
	})
}

func TestCardHandler_DeleteCard(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupCardRouter(&mockCardService{}, audit)

		rec := doRequest(r, "DELETE", "/api/cards/c1", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		assertMessage(t, parseJSON(t, rec), "Card deleted successfully")
		if len(audit.entries) != 1 || audit.entries[0].action != services.AuditDelete {
			t.Errorf("unexpected audit entries %+v", audit.entries)
		}
	})
}

func TestCardHandler_TransferBetweenCards(t *testing.T) {
	t.Run("returns both sides after transfer", func(t *testing.T) {
		svc := &mockCardService{
			transferFn: func(_, from, to string, amount money.Cents) (*services.CardTransferResult, error) {
				if from != "c1" || to != "c2" || amount != 2500 {
					t.Errorf("unexpected transfer args %q %q %d", from, to, amount)
				}
				return &services.CardTransferResult{
					FromCard: testCard("c1", "1111", 7500),
					ToCard:   testCard("c2", "2222", 2500),
					Amount:   amount,
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupCardRouter(svc, audit)

		rec := doRequest(r, "POST", "/api/cards/transfer", `{"fromCardId":"c1","toCardId":"c2","amount":"25.00"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		assertMessage(t, result, "Transfer completed successfully")
		data := result["data"].(map[string]interface{})
		from := data["fromCard"].(map[string]interface{})
		if from["balance"] != 75.0 || from["maskedNumber"] != "**** **** **** 1111" {
			t.Errorf("unexpected source card %v", from)
		}
		if data["amount"] != 25.0 {
			t.Errorf("unexpected amount %v", data["amount"])
		}
		if len(audit.entries) != 1 || audit.entries[0].action != services.AuditCardTransfer {
			t.Errorf("unexpected audit entries %+v", audit.entries)
		}
	})

	t.Run("rejects the same card on both sides", func(t *testing.T) {
		svc := &mockCardService{
			transferFn: func(string, string, string, money.Cents) (*services.CardTransferResult, error) {
				return nil, apperrors.ErrSameCardTransfer
			},
		}
		r := setupCardRouter(svc, &mockAuditService{})

		rec := doRequest(r, "POST", "/api/cards/transfer", `{"fromCardId":"c1","toCardId":"c1","amount":5}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SAME_CARD_TRANSFER")
	})

	t.Run("rejects an invalid amount before the service", func(t *testing.T) {
		called := false
		svc := &mockCardService{
			transferFn: func(string, string, string, money.Cents) (*services.CardTransferResult, error) {
				called = true
				return nil, nil
			},
		}
		r := setupCardRouter(svc, &mockAuditService{})

		rec := doRequest(r, "POST", "/api/cards/transfer", `{"fromCardId":"c1","toCardId":"c2","amount":"abc"}`)

		assertMessage(t, parseJSON(t, rec), "Amount must be a valid number")
		if called {
			t.Error("service must not be called")
		}
	})

	t.Run("reports insufficient card balance", func(t *testing.T) {
		svc := &mockCardService{
			transferFn: func(string, string, string, money.Cents) (*services.CardTransferResult, error) {
				return nil, apperrors.InsufficientFunds("Insufficient balance on source card", money.Cents(500))
			},
		}
		r := setupCardRouter(svc, &mockAuditService{})

		rec := doRequest(r, "POST", "/api/cards/transfer", `{"fromCardId":"c1","toCardId":"c2","amount":10}`)

		result := parseJSON(t, rec)
		assertErrorCode(t, result, "INSUFFICIENT_FUNDS")
		assertMessage(t, result, "Insufficient balance on source card")
		if result["balance"] != 5.0 {
			t.Errorf("expected balance 5, got %v", result["balance"])
		}
	})
}
