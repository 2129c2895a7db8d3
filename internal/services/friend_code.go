package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

// 不含易混淆字符 I、O、0、1。
const friendCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const maxFriendCodeAttempts = 10

// NewFriendCode returns a random code of the form GC-XXXX-XXXX.
func NewFriendCode() (string, error) {
	buf := make([]byte, 0, 12)
	buf = append(buf, "GC-"...)
	alphabetLen := big.NewInt(int64(len(friendCodeAlphabet)))
	for i := 0; i < 8; i++ {
		if i == 4 {
			buf = append(buf, '-')
		}
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf = append(buf, friendCodeAlphabet[n.Int64()])
	}
	return string(buf), nil
}

// uniqueFriendCode draws codes until exists reports one as free.
func uniqueFriendCode(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for attempt := 0; attempt < maxFriendCodeAttempts; attempt++ {
		code, err := NewFriendCode()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", storageErr("check friend code", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrFriendCodeExhausted
}
