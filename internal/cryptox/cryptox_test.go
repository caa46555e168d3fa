package cryptox

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("Ошибка генерации ключа: %v", err)
	}

	plaintext := []byte("секретное содержимое файла")

	ciphertext, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	if bytes.Contains(ciphertext, plaintext) {
		t.Error("Шифротекст содержит открытый текст")
	}

	decrypted, err := Decrypt(ciphertext, key)
	if err != nil {
		t.Fatalf("Ошибка расшифровки: %v", err)
	}

	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("Расшифрованные данные: хотели %q, получили %q", plaintext, decrypted)
	}
}

func TestEncrypt_UniqueNonce(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("Ошибка генерации ключа: %v", err)
	}

	plaintext := []byte("одинаковый вход")

	c1, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}
	c2, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	if bytes.Equal(c1, c2) {
		t.Error("Два шифрования одного входа дали одинаковый результат: nonce не уникален")
	}
}

func TestDecrypt_TamperedCiphertext(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("Ошибка генерации ключа: %v", err)
	}

	ciphertext, err := Encrypt([]byte("данные"), key)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	// Портим последний байт (тег аутентификации)
	ciphertext[len(ciphertext)-1] ^= 0xFF

	_, err = Decrypt(ciphertext, key)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Расшифровка испорченных данных: хотели ErrDecryptionFailed, получили %v", err)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	key1, _ := GenerateKey()
	key2, _ := GenerateKey()

	ciphertext, err := Encrypt([]byte("данные"), key1)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	_, err = Decrypt(ciphertext, key2)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Расшифровка чужим ключом: хотели ErrDecryptionFailed, получили %v", err)
	}
}

func TestDecrypt_TooShort(t *testing.T) {
	key, _ := GenerateKey()

	_, err := Decrypt([]byte{0x01, 0x02, 0x03}, key)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("Расшифровка обрезанных данных: хотели ErrDecryptionFailed, получили %v", err)
	}
}

func TestEncodeDecodeKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("Ошибка генерации ключа: %v", err)
	}

	encoded := EncodeKey(key)
	decoded, err := DecodeKey(encoded)
	if err != nil {
		t.Fatalf("Ошибка декодирования ключа: %v", err)
	}

	if !bytes.Equal(decoded, key) {
		t.Error("Декодированный ключ не совпадает с исходным")
	}
}

func TestDecodeKey_InvalidLength(t *testing.T) {
	if _, err := DecodeKey("c2hvcnQ="); err == nil {
		t.Error("Декодирование ключа неверной длины: хотели ошибку, получили nil")
	}
}

func TestHashVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("Ошибка хеширования пароля: %v", err)
	}

	if hash == "correct horse battery staple" {
		t.Error("Хеш совпадает с паролем")
	}

	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("Верный пароль не прошёл проверку")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Error("Неверный пароль прошёл проверку")
	}
}
