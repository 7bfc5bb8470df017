package repository

import (
	"strconv"
	"strings"

	"github.com/amirk1998/stockkeeper/internal/models"
	"github.com/amirk1998/stockkeeper/pkg/errors"
)

const lockoutHeader = "Failed Attempts,Lockout Time,Lockout Start"

type lockoutCodec struct{}

func (lockoutCodec) Header() string {
	return lockoutHeader
}

func (lockoutCodec) Encode(s models.LockoutState) string {
	return strconv.FormatUint(uint64(s.FailedAttempts), 10) + "," +
		strconv.FormatInt(s.LockoutDuration, 10) + "," +
		strconv.FormatInt(s.LockoutStart, 10)
}

func (lockoutCodec) Decode(line string) (models.LockoutState, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 3 {
		return models.LockoutState{}, errors.ErrMalformedRecord
	}

	attempts, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return models.LockoutState{}, errors.ErrMalformedRecord
	}
	duration, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || duration <= 0 {
		return models.LockoutState{}, errors.ErrMalformedRecord
	}
	start, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || start < 0 {
		return models.LockoutState{}, errors.ErrMalformedRecord
	}

	return models.LockoutState{
		FailedAttempts:  uint(attempts),
		LockoutDuration: min(duration, models.MaxLockoutSeconds),
		LockoutStart:    start,
	}, nil
}
