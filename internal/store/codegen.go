package store

import (
	"crypto/rand"
	"math/big"

	"github.com/go-faster/errors"
)

// CodeLength — фиксированная длина публичного кода. 36^6 ≈ 2.2 млрд значений.
const CodeLength = 6

// codeAlphabet — строчные латинские буквы и цифры, как в публичных ссылках
// вида {domain}/abc123.
const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateCode возвращает случайный код фиксированной длины, равномерно
// распределённый по алфавиту. Проверку на коллизии генератор не делает:
// уникальность обеспечивает Insert хранилища (ErrCodeExists) и ограниченный
// повтор генерации на стороне сервиса.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", errors.Wrap(err, "read random")
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// ValidCode проверяет, что строка выглядит как сгенерированный код: ровно
// CodeLength символов из codeAlphabet. Используется resolver-ом для быстрой
// отбраковки мусорных путей без похода в хранилище.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
