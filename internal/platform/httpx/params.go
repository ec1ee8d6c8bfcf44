package httpx

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// MonthPathParams parses the {propertyID}/{year}/{month} route parameters
// shared by the close endpoints.
func MonthPathParams(r *http.Request) (propertyID int64, year, month int, err error) {
	propertyID, err = strconv.ParseInt(chi.URLParam(r, "propertyID"), 10, 64)
	if err != nil || propertyID <= 0 {
		return 0, 0, 0, fmt.Errorf("property id invalid: %w", ErrValidation)
	}
	year, month, err = YearMonthParams(r)
	return propertyID, year, month, err
}

// YearMonthParams parses the {year}/{month} route parameters.
func YearMonthParams(r *http.Request) (year, month int, err error) {
	year, err = strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year <= 0 {
		return 0, 0, fmt.Errorf("year invalid: %w", ErrValidation)
	}
	month, err = strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month invalid: %w", ErrValidation)
	}
	return year, month, nil
}
