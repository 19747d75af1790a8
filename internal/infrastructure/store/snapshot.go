package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/marketflow/internal/domain/model"
)

const (
	// First numbers handed out on an empty store.
	DefaultOrderCounter   = 1001
	DefaultInvoiceCounter = 2000

	OrderNumberPrefix   = "MFL-"
	InvoiceNumberPrefix = "INV-"
)

// Meta holds the sequence allocators. Counters only grow.
type Meta struct {
	OrderCounter   int `json:"order_counter"`
	InvoiceCounter int `json:"invoice_counter"`
}

// Snapshot is the whole persisted state. Repositories load and save it as a
// unit; Version is the optimistic concurrency token.
type Snapshot struct {
	Meta     Meta                        `json:"meta"`
	Carts    map[string][]model.CartItem `json:"carts"`
	Products []model.Product             `json:"products"`
	Orders   []model.Order               `json:"orders"`
	Invoices []model.Invoice             `json:"invoices"`
	Users    []model.User                `json:"users"`
	Version  int64                       `json:"version"`
}

func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.normalize()
	return s
}

func (s *Snapshot) normalize() {
	if s.Meta.OrderCounter == 0 {
		s.Meta.OrderCounter = DefaultOrderCounter
	}
	if s.Meta.InvoiceCounter == 0 {
		s.Meta.InvoiceCounter = DefaultInvoiceCounter
	}
	if s.Carts == nil {
		s.Carts = make(map[string][]model.CartItem)
	}
	if s.Products == nil {
		s.Products = []model.Product{}
	}
	if s.Orders == nil {
		s.Orders = []model.Order{}
	}
	if s.Invoices == nil {
		s.Invoices = []model.Invoice{}
	}
	if s.Users == nil {
		s.Users = []model.User{}
	}
}

// NextOrderNumber allocates the next order sequence number.
func (s *Snapshot) NextOrderNumber() string {
	n := s.Meta.OrderCounter
	s.Meta.OrderCounter++
	return fmt.Sprintf("%s%d", OrderNumberPrefix, n)
}

// NextInvoiceNumber allocates the next invoice sequence number.
func (s *Snapshot) NextInvoiceNumber() string {
	n := s.Meta.InvoiceCounter
	s.Meta.InvoiceCounter++
	return fmt.Sprintf("%s%d", InvoiceNumberPrefix, n)
}

func (s *Snapshot) Product(id string) *model.Product {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return &s.Products[i]
		}
	}
	return nil
}

func (s *Snapshot) Order(id string) *model.Order {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return &s.Orders[i]
		}
	}
	return nil
}

func (s *Snapshot) Invoice(id string) *model.Invoice {
	for i := range s.Invoices {
		if s.Invoices[i].ID == id {
			return &s.Invoices[i]
		}
	}
	return nil
}

// InvoiceForOrder returns the invoice referencing orderID, if any.
func (s *Snapshot) InvoiceForOrder(orderID string) *model.Invoice {
	for i := range s.Invoices {
		if s.Invoices[i].OrderID == orderID {
			return &s.Invoices[i]
		}
	}
	return nil
}

func (s *Snapshot) User(id string) *model.User {
	for i := range s.Users {
		if s.Users[i].ID == id {
			return &s.Users[i]
		}
	}
	return nil
}

// UserByEmail matches case-insensitively.
func (s *Snapshot) UserByEmail(email string) *model.User {
	email = strings.ToLower(strings.TrimSpace(email))
	for i := range s.Users {
		if s.Users[i].Email == email {
			return &s.Users[i]
		}
	}
	return nil
}

func encodeSnapshot(s *Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	s.normalize()
	return &s, nil
}
