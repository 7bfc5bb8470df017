package repository

import (
	"encoding/hex"
	"strings"

	"github.com/amirk1998/stockkeeper/internal/models"
	"github.com/amirk1998/stockkeeper/pkg/errors"
)

const (
	usersHeader = "Username,Hashed Password,Salt"

	digestHexLength = 64
	saltLength      = 16
)

type userCodec struct{}

func (userCodec) Header() string {
	return usersHeader
}

func (userCodec) Encode(u models.User) string {
	return u.Username + "," + u.PasswordHash + "," + u.Salt
}

// Decode rejects anything that could not have been produced by Encode,
// including the header line itself.
func (userCodec) Decode(line string) (models.User, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return models.User{}, errors.ErrMalformedRecord
	}

	username, digest, salt := fields[0], fields[1], fields[2]
	if username == "" || len(salt) != saltLength || !isLowerHex(digest) {
		return models.User{}, errors.ErrMalformedRecord
	}

	return models.User{
		Username:     username,
		PasswordHash: digest,
		Salt:         salt,
	}, nil
}

func isLowerHex(s string) bool {
	if len(s) != digestHexLength || strings.ToLower(s) != s {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
