package escrow

import (
	"math/rand"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// GenerateCode возвращает четырёхзначный код выдачи (1000–9999).
// Код передаётся продавцу лично; защита от перебора — лимит попыток,
// поэтому криптостойкий источник случайности не требуется.
func GenerateCode() string {
	return strconv.Itoa(1000 + rand.Intn(9000))
}

// HashCode возвращает bcrypt-хеш кода. Соль генерируется на каждый вызов,
// одинаковые коды дают разные хеши.
func HashCode(code string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// VerifyCode сравнивает код с хешем. Открытый текст с открытым текстом
// не сравнивается нигде.
func VerifyCode(code, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
