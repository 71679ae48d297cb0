package feed

import (
	"fmt"
	"strconv"
	"strings"
)

// rocEraOffset converts a Republic-of-China era year to a Gregorian year.
const rocEraOffset = 1911

// NormalizeROCDate converts a TWSE date token in ROC era form ("113/01/05")
// to ISO form ("2024-01-05"). Tokens without a "/" delimiter, or whose year
// component already has four or more digits, are returned unchanged so that
// standard parsing can take over. The result is not guaranteed to be a valid
// calendar date; callers parse it and drop rows that fail.
func NormalizeROCDate(token string) string {
	token = strings.TrimSpace(token)
	parts := strings.Split(token, "/")
	if len(parts) != 3 {
		return token
	}
	if len(parts[0]) >= 4 {
		return token
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return token
	}
	return fmt.Sprintf("%d-%s-%s", year+rocEraOffset, parts[1], parts[2])
}
