package normalize

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "brewgraph/backend/pkg/errors"
)

// ProductRecord is the canonical source record the crawler pipeline hands
// over. Multi-valued fields are raw, possibly delimiter-joined strings.
type ProductRecord struct {
	ID           string   `json:"id" validate:"required,max=256"`
	Name         string   `json:"name" validate:"required,max=512"`
	Brand        string   `json:"brand" validate:"max=256"`
	Price        float64  `json:"price" validate:"gte=0"`
	Currency     string   `json:"currency" validate:"omitempty,len=3,alpha"`
	InStock      bool     `json:"in_stock"`
	Origin       string   `json:"origin" validate:"max=1024"`
	Region       string   `json:"region" validate:"max=1024"`
	Process      string   `json:"process" validate:"max=512"`
	Producer     string   `json:"producer" validate:"max=512"`
	Variety      string   `json:"variety" validate:"max=512"`
	Altitude     string   `json:"altitude" validate:"max=128"`
	TastingNotes []string `json:"tasting_notes" validate:"max=64,dive,max=256"`
	RoastLevel   string   `json:"roast_level" validate:"max=64"`
}

var validate = validator.New()

// Validate trims the id in place and checks field constraints. Failures are
// returned as ErrInvalidRecord.
func (r *ProductRecord) Validate() error {
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return apperrors.NewInvalidRecord(r.ID, "id is blank")
	}
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.NewInvalidRecord(r.ID, "name is blank")
	}
	if err := validate.Struct(r); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return apperrors.NewInvalidRecord(r.ID, err.Error())
		}
		var msgs []string
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", e.Field(), e.Tag()))
		}
		return apperrors.NewInvalidRecord(r.ID, strings.Join(msgs, "; "))
	}
	return nil
}
