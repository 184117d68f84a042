// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"wealthlens/internal/amfi"
	"wealthlens/internal/models"
)

var schemeCodeRegex = regexp.MustCompile(`^[0-9]{1,10}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("asset_type", validateAssetType)
		_ = v.RegisterValidation("isin", validateISIN)
		_ = v.RegisterValidation("scheme_code", validateSchemeCode)
	}
}

func validateAssetType(fl validator.FieldLevel) bool {
	value := models.AssetType(fl.Field().String())
	for _, t := range models.AssetTypes {
		if value == t {
			return true
		}
	}
	return false
}

// validateISIN accepts Indian ISINs. Lowercase input is rejected; callers
// normalize before binding if they want to be lenient.
func validateISIN(fl validator.FieldLevel) bool {
	return amfi.ValidISIN(fl.Field().String())
}

func validateSchemeCode(fl validator.FieldLevel) bool {
	return schemeCodeRegex.MatchString(fl.Field().String())
}
