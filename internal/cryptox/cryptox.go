// Пакет cryptox — криптографические примитивы FileDrop.
//
// Шифрование файлов: AES-256-GCM, уникальный случайный ключ на каждый файл.
// Nonce (12 байт) генерируется заново при каждом шифровании и хранится
// в начале blob-а. GCM аутентифицирует данные: расшифровка повреждённого
// ciphertext детерминированно завершается ошибкой, а не возвращает мусор.
//
// Пароли: bcrypt-дайджест, сравнение только через CompareHashAndPassword
// (константное время).
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// KeySize — размер ключа AES-256 в байтах.
const KeySize = 32

// ErrDecryptionFailed — ciphertext повреждён, подменён или ключ неверен.
var ErrDecryptionFailed = errors.New("расшифровка не пройдена: данные повреждены или подменены")

// GenerateKey возвращает новый случайный ключ AES-256.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("генерация ключа: %w", err)
	}
	return key, nil
}

// Encrypt шифрует plaintext ключом key (AES-256-GCM).
// Возвращает nonce || ciphertext — единый blob для записи на диск.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("инициализация AES: %w", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("инициализация GCM: %w", err)
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("генерация nonce: %w", err)
	}

	// Seal с dst=nonce: nonce становится префиксом результата
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt расшифровывает blob формата nonce || ciphertext ключом key.
// При любом нарушении целостности возвращает ErrDecryptionFailed.
func Decrypt(blob, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("инициализация AES: %w", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("инициализация GCM: %w", err)
	}

	if len(blob) < aesgcm.NonceSize() {
		return nil, ErrDecryptionFailed
	}

	nonce, ciphertext := blob[:aesgcm.NonceSize()], blob[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncodeKey кодирует ключ для хранения в индексе метаданных.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

// DecodeKey декодирует ключ из индекса метаданных.
func DecodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("декодирование ключа: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("некорректная длина ключа: %d байт", len(key))
	}
	return key, nil
}

// HashPassword возвращает bcrypt-дайджест пароля.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("хэширование пароля: %w", err)
	}
	return string(digest), nil
}

// VerifyPassword сравнивает пароль с bcrypt-дайджестом.
// Сравнение выполняется за константное время.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
