package repository

import (
	"strconv"
	"strings"

	"github.com/amirk1998/stockkeeper/internal/models"
	"github.com/amirk1998/stockkeeper/pkg/errors"
)

const stockHeader = "Id,Name,Description,Username,Unit Price(in $),Stock Quantity," +
	"Stock Alert Threshold,Last Stock Entry Date,Last Stock Exit Date"

const productFieldCount = 9

type productCodec struct{}

func (productCodec) Header() string {
	return stockHeader
}

func (productCodec) Encode(p models.Product) string {
	fields := []string{
		strconv.FormatUint(uint64(p.ID), 10),
		p.Name,
		p.Description,
		p.Owner,
		strconv.FormatFloat(p.UnitPrice, 'f', 2, 64),
		strconv.FormatUint(p.Quantity, 10),
		strconv.FormatUint(p.AlertThreshold, 10),
		p.LastEntryDate.String(),
		p.LastExitDate.String(),
	}
	return strings.Join(fields, ",")
}

func (productCodec) Decode(line string) (models.Product, error) {
	fields := strings.Split(line, ",")
	if len(fields) != productFieldCount {
		return models.Product{}, errors.ErrMalformedRecord
	}

	id, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil || id == 0 {
		return models.Product{}, errors.ErrMalformedRecord
	}
	price, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return models.Product{}, errors.ErrMalformedRecord
	}
	quantity, err := strconv.ParseUint(fields[5], 10, 64)
	if err != nil {
		return models.Product{}, errors.ErrMalformedRecord
	}
	threshold, err := strconv.ParseUint(fields[6], 10, 64)
	if err != nil {
		return models.Product{}, errors.ErrMalformedRecord
	}
	entry, err := parseDate(fields[7])
	if err != nil {
		return models.Product{}, err
	}
	exit, err := parseDate(fields[8])
	if err != nil {
		return models.Product{}, err
	}

	return models.Product{
		ID:             uint16(id),
		Name:           fields[1],
		Description:    fields[2],
		Owner:          fields[3],
		UnitPrice:      price,
		Quantity:       quantity,
		AlertThreshold: threshold,
		LastEntryDate:  entry,
		LastExitDate:   exit,
	}, nil
}

// parseDate accepts D/M/Y with or without zero padding.
func parseDate(s string) (models.Date, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return models.Date{}, errors.ErrMalformedRecord
	}

	day, err1 := strconv.ParseUint(parts[0], 10, 8)
	month, err2 := strconv.ParseUint(parts[1], 10, 8)
	year, err3 := strconv.ParseUint(parts[2], 10, 16)
	if err1 != nil || err2 != nil || err3 != nil {
		return models.Date{}, errors.ErrMalformedRecord
	}

	d := models.Date{Day: uint8(day), Month: uint8(month), Year: uint16(year)}
	if !d.Valid() {
		return models.Date{}, errors.ErrMalformedRecord
	}
	return d, nil
}
