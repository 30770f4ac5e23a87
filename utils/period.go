package utils

import (
	"fmt"
	"time"
)

// YearMonth представляет расчетный период (год, месяц)
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// String возвращает период в формате ГГГГ-ММ
func (p YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Before сообщает, раньше ли период p периода other
func (p YearMonth) Before(other YearMonth) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// PeriodOf возвращает период, в который попадает дата
func PeriodOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

// AddMonths сдвигает период на n календарных месяцев (n может быть отрицательным)
func AddMonths(p YearMonth, n int) YearMonth {
	total := p.Year*12 + (p.Month - 1) + n
	year := floorDiv(total, 12)
	return YearMonth{Year: year, Month: total - year*12 + 1}
}

// MonthsBetween возвращает число месяцев от from до to (отрицательное, если to раньше)
func MonthsBetween(from, to YearMonth) int {
	return (to.Year*12 + to.Month) - (from.Year*12 + from.Month)
}

// MonthsRange возвращает count последовательных периодов начиная с from
func MonthsRange(from YearMonth, count int) []YearMonth {
	if count < 1 {
		return nil
	}
	periods := make([]YearMonth, 0, count)
	for i := 0; i < count; i++ {
		periods = append(periods, AddMonths(from, i))
	}
	return periods
}

// DueDate возвращает дату платежа в периоде p для дня оплаты dueDay.
// dueDay должен быть в диапазоне 1-28, это проверяется на уровне договора.
func DueDate(p YearMonth, dueDay int) time.Time {
	return time.Date(p.Year, time.Month(p.Month), dueDay, 0, 0, 0, 0, time.UTC)
}

// FirstDuePeriod вычисляет первый расчетный период договора.
// Если договор начинается не позже дня оплаты в месяце начала, первым
// периодом считается месяц начала, иначе следующий месяц.
func FirstDuePeriod(start time.Time, dueDay int) YearMonth {
	startMonth := PeriodOf(start)
	if !DateOnly(start).After(DueDate(startMonth, dueDay)) {
		return startMonth
	}
	return AddMonths(startMonth, 1)
}

// DateOnly отбрасывает время суток, сохраняя календарную дату в UTC
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate разбирает дату в формате ГГГГ-ММ-ДД
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("неверный формат даты %q: %w", s, err)
	}
	return t, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
