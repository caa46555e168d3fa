// Пакет metaindex — индекс метаданных файлов поверх Redis.
//
// Один Redis hash на файл (file:<id>) с TTL, устанавливаемым при записи.
// Истечение TTL удаляет запись силами самого Redis — приложение не
// опрашивает дедлайны. Отсутствие записи — единственный авторитетный
// признак того, что файла больше нет.
//
// Инкремент счётчика скачиваний и удаление записи — атомарные операции
// на уровне Redis (HIncrBy, Del): никакого read-modify-write в два
// обращения, конкурентные скачивания сериализуются самим хранилищем.
package metaindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/filedrop/internal/domain/model"
)

// ErrNotFound — запись отсутствует в индексе: файла никогда не было,
// TTL истёк, квота исчерпана или файл удалён администратором.
// Случаи намеренно неразличимы.
var ErrNotFound = errors.New("запись не найдена в индексе")

// fieldDownloads — имя поля счётчика скачиваний в Redis hash.
const fieldDownloads = "downloads_count"

// Options — параметры подключения к Redis.
type Options struct {
	// Addr — адрес Redis (host:port)
	Addr string
	// Password — пароль (пустая строка — без аутентификации)
	Password string
	// DB — номер базы Redis
	DB int
	// Timeout — таймаут операций (dial/read/write)
	Timeout time.Duration
}

// Index — клиент индекса метаданных.
// Конструируется один раз при старте процесса и живёт всё его время;
// reconnect-логика — забота go-redis, не request path.
type Index struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New создаёт клиент индекса и проверяет соединение.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Index, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("подключение к Redis %s: %w", opts.Addr, err)
	}

	return &Index{
		rdb:    rdb,
		logger: logger.With(slog.String("component", "metaindex")),
	}, nil
}

// NewWithClient создаёт индекс поверх готового клиента.
// Используется в тестах (miniredis).
func NewWithClient(rdb *redis.Client, logger *slog.Logger) *Index {
	return &Index{
		rdb:    rdb,
		logger: logger.With(slog.String("component", "metaindex")),
	}
}

// Put сохраняет запись файла и устанавливает TTL одной транзакцией.
// Появление записи в индексе — точка коммита загрузки.
func (idx *Index) Put(ctx context.Context, rec *model.FileRecord, ttl time.Duration) error {
	pipe := idx.rdb.TxPipeline()
	pipe.HSet(ctx, rec.Key(), rec)
	pipe.Expire(ctx, rec.Key(), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("запись %s в индекс: %w", rec.ID, err)
	}
	return nil
}

// Get возвращает запись файла по идентификатору.
// Отсутствие записи — ErrNotFound.
func (idx *Index) Get(ctx context.Context, fileID string) (*model.FileRecord, error) {
	res := idx.rdb.HGetAll(ctx, model.RecordKey(fileID))
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("чтение %s из индекса: %w", fileID, err)
	}

	// HGetAll возвращает пустую map для отсутствующего ключа
	if len(res.Val()) == 0 {
		return nil, ErrNotFound
	}

	var rec model.FileRecord
	if err := res.Scan(&rec); err != nil {
		return nil, fmt.Errorf("декодирование записи %s: %w", fileID, err)
	}
	return &rec, nil
}

// incrDownloadsScript инкрементирует счётчик только у существующей записи.
// Голый HINCRBY воскресил бы ключ, TTL которого истёк мгновение назад,
// как hash из одного поля без TTL.
var incrDownloadsScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
`)

// IncrementDownloads атомарно увеличивает счётчик скачиваний на 1
// и возвращает новое значение. Сериализует конкурентные скачивания:
// каждое видит собственный уникальный результат инкремента.
// Отсутствие записи — ErrNotFound.
func (idx *Index) IncrementDownloads(ctx context.Context, fileID string) (int64, error) {
	n, err := incrDownloadsScript.Run(ctx, idx.rdb, []string{model.RecordKey(fileID)}, fieldDownloads).Int64()
	if err != nil {
		return 0, fmt.Errorf("инкремент счётчика %s: %w", fileID, err)
	}
	if n < 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// Delete атомарно удаляет запись файла из индекса.
// Удаление отсутствующей записи не является ошибкой.
func (idx *Index) Delete(ctx context.Context, fileID string) error {
	if err := idx.rdb.Del(ctx, model.RecordKey(fileID)).Err(); err != nil {
		return fmt.Errorf("удаление %s из индекса: %w", fileID, err)
	}
	return nil
}

// Exists проверяет наличие записи файла в индексе.
func (idx *Index) Exists(ctx context.Context, fileID string) (bool, error) {
	n, err := idx.rdb.Exists(ctx, model.RecordKey(fileID)).Result()
	if err != nil {
		return false, fmt.Errorf("проверка %s в индексе: %w", fileID, err)
	}
	return n > 0, nil
}

// ListIDs возвращает идентификаторы всех живых файлов.
// Используется только админским листингом: SCAN вместо KEYS,
// чтобы не блокировать Redis на больших базах.
func (idx *Index) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string

	iter := idx.rdb.Scan(ctx, 0, model.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(model.KeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("сканирование индекса: %w", err)
	}

	return ids, nil
}

// Ping проверяет доступность Redis (health checks).
func (idx *Index) Ping(ctx context.Context) error {
	return idx.rdb.Ping(ctx).Err()
}

// Client возвращает нижележащий go-redis клиент (для dephealth checker).
func (idx *Index) Client() *redis.Client {
	return idx.rdb
}

// Close закрывает соединение с Redis.
func (idx *Index) Close() error {
	return idx.rdb.Close()
}
