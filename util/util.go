package util

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm/dialects/postgres"
)

func GetUUID() string {
	return uuid.New().String()
}

// SafeDividePercentage returns (num/den)*100 rounded to one decimal,
// and exactly 0 when the denominator is 0. Never errors, never NaN.
func SafeDividePercentage(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return FloatRoundOffWithPrecision((num/den)*100, 1)
}

// SafeDivide returns num/den, 0 when the denominator is 0.
func SafeDivide(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func FloatRoundOffWithPrecision(value float64, precision int) float64 {
	multiplier := math.Pow(10, float64(precision))
	return math.Round(value*multiplier) / multiplier
}

func MinInt(a int, b int) int {
	if a < b {
		return a
	}
	return b
}

func ContainsStringInArray(list []string, value string) bool {
	for i := range list {
		if list[i] == value {
			return true
		}
	}
	return false
}

type PropertiesMap map[string]interface{}

// EncodePropertiesToJsonb encodes a properties map as a postgres jsonb value.
func EncodePropertiesToJsonb(properties *PropertiesMap) (*postgres.Jsonb, error) {
	propertiesBytes, err := json.Marshal(properties)
	if err != nil {
		return nil, err
	}
	return &postgres.Jsonb{RawMessage: json.RawMessage(propertiesBytes)}, nil
}

// DecodePostgresJsonb decodes a jsonb value to a generic map. Empty jsonb
// decodes to an empty map, not an error.
func DecodePostgresJsonb(sourceJsonb *postgres.Jsonb) (*PropertiesMap, error) {
	properties := make(PropertiesMap)
	if sourceJsonb == nil || len(sourceJsonb.RawMessage) == 0 {
		return &properties, nil
	}

	if err := json.Unmarshal(sourceJsonb.RawMessage, &properties); err != nil {
		return nil, err
	}
	return &properties, nil
}

// GetPropertyValueAsString reads a property as string. Numeric values are
// formatted without an exponent.
func GetPropertyValueAsString(properties PropertiesMap, key string) string {
	value, exists := properties[key]
	if !exists || value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GetPropertyValueAsInt64 reads a numeric property. JSON numbers decode as
// float64, string amounts are parsed. Missing or unparsable values return 0.
func GetPropertyValueAsInt64(properties PropertiesMap, key string) int64 {
	value, exists := properties[key]
	if !exists || value == nil {
		return 0
	}

	switch v := value.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return int64(parsed)
	default:
		return 0
	}
}
