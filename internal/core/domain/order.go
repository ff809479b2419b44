package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Address holds customer billing or shipping details.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// IsZero reports whether no address field is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// FullName joins first and last name.
func (a Address) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Order is the host shop's order, read by the pipeline but owned elsewhere.
type Order struct {
	ID            int64           `json:"id"`
	ListingSiteID int64           `json:"listing_site_id"`
	CustomerID    int64           `json:"customer_id"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	Billing       Address         `json:"billing"`
	Shipping      Address         `json:"shipping"`
	CustomerIP    string          `json:"customer_ip,omitempty"`
	Items         []LineItem      `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
}

// LineItem is one line of a host order.
type LineItem struct {
	ItemID    int64           `json:"item_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// CartItems projects the order lines into resolver input.
func (o *Order) CartItems() []CartItem {
	items := make([]CartItem, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, CartItem{ItemID: li.ItemID, ProductID: li.ProductID, Name: li.Name})
	}
	return items
}

// ChargeLines merges lines that share a product into one line, keeping the
// first line's id and name in order of first appearance. Sales are unique
// per (order, product, listing site), so each merged line is one charge.
func (o *Order) ChargeLines() []LineItem {
	lines := make([]LineItem, 0, len(o.Items))
	index := make(map[int64]int, len(o.Items))
	for _, li := range o.Items {
		if i, ok := index[li.ProductID]; ok {
			lines[i].Quantity += li.Quantity
			lines[i].Total = lines[i].Total.Add(li.Total)
			continue
		}
		index[li.ProductID] = len(lines)
		lines = append(lines, li)
	}
	return lines
}

// CartItem is what the ownership resolver needs to know about a line.
type CartItem struct {
	ItemID    int64  `json:"item_id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
}
