package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AmountDecimals — количество дробных разрядов токена (USDC-совместимо).
const AmountDecimals = 6

const amountScale = int64(1_000_000)

var ErrInvalidAmount = errors.New("invalid token amount")

// ParseAmount переводит десятичную строку ("1000.00") в микро-единицы.
// Больше шести знаков после точки — ошибка, а не округление.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
		// Точка без дробной части ("5.") не является валидной записью.
		if frac == "" {
			return 0, ErrInvalidAmount
		}
	}
	if whole == "" && frac == "" {
		return 0, ErrInvalidAmount
	}
	if len(frac) > AmountDecimals {
		return 0, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, AmountDecimals)
	}

	var wholePart int64
	if whole != "" {
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		wholePart = v
	}

	fracPart := int64(0)
	if frac != "" {
		v, err := strconv.ParseInt(frac+strings.Repeat("0", AmountDecimals-len(frac)), 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		fracPart = v
	}

	if wholePart > (1<<63-1)/amountScale {
		return 0, fmt.Errorf("%w: amount overflows", ErrInvalidAmount)
	}
	return wholePart*amountScale + fracPart, nil
}

// FormatAmount печатает микро-единицы как десятичную строку без
// хвостовых нулей ("500.00" -> "500", "0.500000" -> "0.5").
func FormatAmount(micro int64) string {
	sign := ""
	if micro < 0 {
		sign = "-"
		micro = -micro
	}
	whole := micro / amountScale
	frac := micro % amountScale
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	fracStr := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return fmt.Sprintf("%s%d.%s", sign, whole, fracStr)
}
