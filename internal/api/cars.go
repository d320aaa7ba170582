package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Car is a rentable vehicle from the catalog.
type Car struct {
	ID           ID     `json:"id"`
	Name         string `json:"name"`
	Brand        string `json:"brand"`
	Type         string `json:"type"`
	Seats        int    `json:"seats"`
	Transmission string `json:"transmission"`
	FuelType     string `json:"fuel_type"`
	PricePerHour int64  `json:"price_per_hour"`
	PricePerDay  int64  `json:"price_per_day"`
	ImageURL     string `json:"image"`
	Available    bool   `json:"available"`
	StoreID      int64  `json:"store_id,omitempty"`
	StoreName    string `json:"store_name,omitempty"`
}

// CarFilters narrow the catalog listing. Zero fields are omitted.
type CarFilters struct {
	Brand        string
	Type         string
	Transmission string
	FuelType     string
	MinSeats     int
	MaxPricePerDay int64
}

func (f CarFilters) query() url.Values {
	q := url.Values{}
	if f.Brand != "" {
		q.Set("brand", f.Brand)
	}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.Transmission != "" {
		q.Set("transmission", f.Transmission)
	}
	if f.FuelType != "" {
		q.Set("fuel_type", f.FuelType)
	}
	if f.MinSeats > 0 {
		q.Set("seats", strconv.Itoa(f.MinSeats))
	}
	if f.MaxPricePerDay > 0 {
		q.Set("max_price_per_day", strconv.FormatInt(f.MaxPricePerDay, 10))
	}
	return q
}

// ListCars returns the catalog, optionally filtered.
func (c *Client) ListCars(ctx context.Context, filters CarFilters) ([]Car, error) {
	var cars []Car
	if err := c.do(ctx, http.MethodGet, "/api/cars", filters.query(), nil, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// GetCar loads a single car by id.
func (c *Client) GetCar(ctx context.Context, id ID) (Car, error) {
	var car Car
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/cars/%s", url.PathEscape(string(id))), nil, nil, &car)
	return car, err
}

// SearchCars runs a free-text catalog search.
func (c *Client) SearchCars(ctx context.Context, query string) ([]Car, error) {
	q := url.Values{}
	q.Set("q", query)
	var cars []Car
	if err := c.do(ctx, http.MethodGet, "/api/cars/search", q, nil, &cars); err != nil {
		return nil, err
	}
	return cars, nil
}
