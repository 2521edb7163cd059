package config

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// decFromViper reads a decimal-valued setting stored as a string (viper has
// no native decimal type, and floats would lose precision on money fields).
func decFromViper(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := v.GetString(key)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
