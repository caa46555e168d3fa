// Пакет scanner — проверка загружаемых файлов на вредоносное содержимое.
//
// Контракт внешнего сканера сведён к трём исходам: clean, infected,
// unavailable. Никакого молчаливого проглатывания ошибок: недоступность
// сканера — явный исход, политику реакции на который выбирает
// конфигурация (FD_SCAN_POLICY), а не код по месту вызова.
package scanner

import (
	"context"
)

// Status — исход проверки файла.
type Status string

const (
	// StatusClean — файл чист, загрузка продолжается.
	StatusClean Status = "clean"
	// StatusInfected — обнаружена сигнатура, загрузка отклоняется.
	StatusInfected Status = "infected"
	// StatusUnavailable — сканер недоступен или не ответил вовремя.
	StatusUnavailable Status = "unavailable"
)

// Result — результат проверки.
type Result struct {
	// Status — исход проверки
	Status Status
	// Signature — имя найденной сигнатуры (только для infected)
	Signature string
	// Reason — причина недоступности (только для unavailable)
	Reason string
}

// Scanner — контракт внешнего сканера.
// Реализация обязана укладываться в дедлайн контекста; просроченная
// проверка возвращает StatusUnavailable, а не зависает.
type Scanner interface {
	Scan(ctx context.Context, data []byte) Result
}
