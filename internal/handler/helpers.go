package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kedai-pos/engine/internal/order"
)

// --- Shared response types ---

type lineItemResponse struct {
	ID              string  `json:"id"`
	MenuItemID      string  `json:"menu_item_id,omitempty"`
	Name            string  `json:"name"`
	UnitPrice       string  `json:"unit_price"`
	Quantity        int32   `json:"quantity"`
	PricingType     string  `json:"pricing_type"`
	ActualQuantity  *string `json:"actual_quantity,omitempty"`
	Unit            string  `json:"unit,omitempty"`
	CalculatedPrice *string `json:"calculated_price,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	IsCustomExtra   bool    `json:"is_custom_extra,omitempty"`
	Total           string  `json:"total"`
}

type orderResponse struct {
	ID                 string             `json:"id"`
	OutletID           string             `json:"outlet_id"`
	Source             string             `json:"source"`
	OrderType          string             `json:"order_type"`
	Status             string             `json:"status"`
	Items              []lineItemResponse `json:"items"`
	DiscountAmount     string             `json:"discount_amount"`
	DiscountPercentage string             `json:"discount_percentage"`
	CustomerName       string             `json:"customer_name,omitempty"`
	Total              string             `json:"total"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func toLineItemResponse(li order.LineItem) lineItemResponse {
	resp := lineItemResponse{
		ID:            li.ID,
		MenuItemID:    li.MenuItemID,
		Name:          li.Name,
		UnitPrice:     money(li.UnitPrice),
		Quantity:      li.Quantity,
		PricingType:   li.PricingType,
		Unit:          li.Unit,
		Notes:         li.Notes,
		IsCustomExtra: li.IsCustomExtra,
		Total:         money(li.Total()),
	}
	if li.ActualQuantity != nil {
		s := li.ActualQuantity.String()
		resp.ActualQuantity = &s
	}
	if li.CalculatedPrice != nil {
		s := money(*li.CalculatedPrice)
		resp.CalculatedPrice = &s
	}
	return resp
}

func toOrderResponse(o order.Order) orderResponse {
	items := make([]lineItemResponse, len(o.Items))
	for i, li := range o.Items {
		items[i] = toLineItemResponse(li)
	}
	return orderResponse{
		ID:                 o.ID,
		OutletID:           o.OutletID,
		Source:             o.Source,
		OrderType:          o.OrderType,
		Status:             o.Status,
		Items:              items,
		DiscountAmount:     money(o.DiscountAmount),
		DiscountPercentage: money(o.DiscountPercentage),
		CustomerName:       o.CustomerName,
		Total:              money(o.Total()),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// money renders an amount with two decimal places for display.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
