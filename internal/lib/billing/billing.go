// Package billing содержит календарную арифметику периодов оплаты.
package billing

import (
	"strings"
	"time"
)

// Cycle: периодичность списаний.
type Cycle string

const (
	Monthly Cycle = "monthly"
	Yearly  Cycle = "yearly"
)

// ParseCycle приводит произвольную строку к Cycle. Всё, кроме "yearly", считается месячным периодом.
func ParseCycle(s string) Cycle {
	if strings.EqualFold(strings.TrimSpace(s), string(Yearly)) {
		return Yearly
	}
	return Monthly
}

// FromInterval переводит интервал провайдера ("month", "year") в Cycle.
func FromInterval(interval string) Cycle {
	if interval == "year" {
		return Yearly
	}
	return Monthly
}

// AddCycle сдвигает дату на один период.
//
// Переполнение дня нормализуется как в time.AddDate:
// 31 января + 1 месяц = 3 марта (2 марта в високосный год),
// 29 февраля + 1 год = 1 марта.
func AddCycle(date time.Time, cycle Cycle) time.Time {
	if cycle == Yearly {
		return date.AddDate(1, 0, 0)
	}
	return date.AddDate(0, 1, 0)
}

// Valid сообщает, является ли значение допустимым периодом.
func (c Cycle) Valid() bool {
	return c == Monthly || c == Yearly
}
