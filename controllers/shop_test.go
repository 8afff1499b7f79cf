package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"barberflow-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestUpdateShopSlugConflict(t *testing.T) {
	env := newTestEnv(t, "")
	env.db.Create(&models.Shop{OwnerID: uuid.New(), Name: "Barbearia Norte", Slug: "norte"})

	if w := env.do(t, http.MethodPut, "/api/shops", gin.H{"slug": "Norte"}); w.Code != http.StatusConflict {
		t.Fatalf("taken slug: status %d body %s", w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodPut, "/api/shops", gin.H{"slug": "Centro Sul", "phone": "11988887777"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	var shop models.Shop
	json.Unmarshal(w.Body.Bytes(), &shop)
	if shop.Slug != "centro-sul" || shop.Phone != "11988887777" || shop.Name != "Barbearia Centro" {
		t.Fatalf("unexpected shop %+v", shop)
	}

	if w := env.do(t, http.MethodGet, "/public/shops/centro-sul", nil); w.Code != http.StatusOK {
		t.Fatalf("public page after rename: status %d", w.Code)
	}
}

func TestGetTopClientsOrdersBySpend(t *testing.T) {
	env := newTestEnv(t, "")
	for i, spent := range []float64{120, 300, 45} {
		env.db.Create(&models.Client{ShopID: env.shop.ID, Name: []string{"Ana", "Bia", "Caio"}[i], Phone: []string{"1", "2", "3"}[i], TotalSpent: spent})
	}

	w := env.do(t, http.MethodGet, "/api/clients/top?limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	var top []models.Client
	json.Unmarshal(w.Body.Bytes(), &top)
	if len(top) != 2 || top[0].Name != "Bia" || top[1].Name != "Ana" {
		t.Fatalf("unexpected ranking %+v", top)
	}

	if w := env.do(t, http.MethodGet, "/api/clients/top?limit=zero", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: status %d", w.Code)
	}
}
