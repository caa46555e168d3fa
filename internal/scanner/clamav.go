// clamav.go — реализация Scanner поверх демона ClamAV (clamd, INSTREAM).
package scanner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	clamd "github.com/dutchcoders/go-clamd"
)

// ClamAV — сканер поверх clamd.
type ClamAV struct {
	client  *clamd.Clamd
	timeout time.Duration
	logger  *slog.Logger
}

// NewClamAV создаёт сканер, подключённый к clamd по TCP.
// addr — host:port демона clamd. Соединение не устанавливается заранее:
// clamd опрашивается при каждой проверке.
func NewClamAV(addr string, timeout time.Duration, logger *slog.Logger) *ClamAV {
	return &ClamAV{
		client:  clamd.NewClamd("tcp://" + addr),
		timeout: timeout,
		logger:  logger.With(slog.String("component", "clamav")),
	}
}

// Scan проверяет содержимое файла через clamd INSTREAM.
// Ограничен таймаутом: просроченная проверка — StatusUnavailable,
// никогда не молчаливый пропуск.
func (s *ClamAV) Scan(ctx context.Context, data []byte) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	abort := make(chan bool)
	defer close(abort)

	type scanOutcome struct {
		res *clamd.ScanResult
		err error
	}

	done := make(chan scanOutcome, 1)
	go func() {
		responses, err := s.client.ScanStream(bytes.NewReader(data), abort)
		if err != nil {
			done <- scanOutcome{err: err}
			return
		}
		// INSTREAM возвращает один результат на поток
		res, ok := <-responses
		if !ok {
			done <- scanOutcome{err: fmt.Errorf("clamd закрыл поток без ответа")}
			return
		}
		done <- scanOutcome{res: res}
	}()

	select {
	case <-ctx.Done():
		s.logger.Warn("Проверка clamd не уложилась в таймаут",
			slog.Duration("timeout", s.timeout),
		)
		return Result{Status: StatusUnavailable, Reason: "таймаут проверки clamd"}

	case out := <-done:
		if out.err != nil {
			s.logger.Warn("clamd недоступен",
				slog.String("error", out.err.Error()),
			)
			return Result{Status: StatusUnavailable, Reason: out.err.Error()}
		}

		switch out.res.Status {
		case clamd.RES_OK:
			return Result{Status: StatusClean}
		case clamd.RES_FOUND:
			s.logger.Warn("Обнаружена вредоносная сигнатура",
				slog.String("signature", out.res.Description),
			)
			return Result{Status: StatusInfected, Signature: out.res.Description}
		default:
			// RES_ERROR, RES_PARSE_ERROR — считаем сканер недоступным
			return Result{Status: StatusUnavailable, Reason: out.res.Raw}
		}
	}
}
