package service

import (
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	guestCodeBytes  = 10 // 80 bits, 16 ký tự base32
	ownerTokenBytes = 32 // 256 bits, 43 ký tự base64url
)

var guestCodeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func readRandom(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// newGuestCode sinh public identifier: lowercase base32, không padding
func newGuestCode(r io.Reader) (string, error) {
	b, err := readRandom(r, guestCodeBytes)
	if err != nil {
		return "", err
	}
	return strings.ToLower(guestCodeEncoding.EncodeToString(b)), nil
}

// newOwnerToken sinh secret token và digest để lưu DB
func newOwnerToken(r io.Reader) (string, []byte, error) {
	b, err := readRandom(r, ownerTokenBytes)
	if err != nil {
		return "", nil, err
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	return token, hashOwnerToken(token), nil
}

// hashOwnerToken: BLAKE2b-256 của token, plaintext không bao giờ được lưu
func hashOwnerToken(token string) []byte {
	sum := blake2b.Sum256([]byte(token))
	return sum[:]
}

// wellFormedOwnerToken loại token sai format trước khi query DB
func wellFormedOwnerToken(token string) bool {
	if len(token) != base64.RawURLEncoding.EncodedLen(ownerTokenBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil
}

// wellFormedGuestCode check độ dài và alphabet
func wellFormedGuestCode(code string) bool {
	if len(code) != guestCodeEncoding.EncodedLen(guestCodeBytes) {
		return false
	}
	_, err := guestCodeEncoding.DecodeString(strings.ToUpper(code))
	return err == nil
}

func ownerHashMatches(stored, candidate []byte) bool {
	return subtle.ConstantTimeCompare(stored, candidate) == 1
}
