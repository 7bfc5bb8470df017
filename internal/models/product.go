package models

import (
	"fmt"
	"time"
)

// Date is a calendar day as stored in the stock file (D/M/Y).
type Date struct {
	Day   uint8  `json:"day"`
	Month uint8  `json:"month"`
	Year  uint16 `json:"year"`
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return Date{
		Day:   uint8(t.Day()),
		Month: uint8(t.Month()),
		Year:  uint16(t.Year()),
	}
}

func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// Valid reports whether d names a real calendar day.
func (d Date) Valid() bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Year == 0 {
		return false
	}
	t := time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, time.UTC)
	return t.Day() == int(d.Day) && t.Month() == time.Month(d.Month)
}

type Product struct {
	ID             uint16  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Owner          string  `json:"username"`
	UnitPrice      float64 `json:"unit_price"`
	Quantity       uint64  `json:"quantity"`
	AlertThreshold uint64  `json:"alert_threshold"`
	LastEntryDate  Date    `json:"last_entry_date"`
	LastExitDate   Date    `json:"last_exit_date"`
}

// LowStock reports whether the quantity has fallen to the alert threshold.
func (p *Product) LowStock() bool {
	return p.Quantity <= p.AlertThreshold
}

type CreateProductRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	UnitPrice      float64 `json:"unit_price"`
	Quantity       uint64  `json:"quantity"`
	AlertThreshold uint64  `json:"alert_threshold"`
}

// UpdateProductRequest replaces every editable field of a product.
type UpdateProductRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	UnitPrice      float64 `json:"unit_price"`
	Quantity       uint64  `json:"quantity"`
	AlertThreshold uint64  `json:"alert_threshold"`
}

type SortKey string

const (
	SortByName  SortKey = "name"
	SortByPrice SortKey = "price"
)
