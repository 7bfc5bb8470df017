package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amirk1998/stockkeeper/internal/models"
	"github.com/amirk1998/stockkeeper/pkg/errors"
)

func sampleProduct() models.Product {
	return models.Product{
		ID:             1,
		Name:           "Widget",
		Description:    "A nice gadget",
		Owner:          "alice",
		UnitPrice:      9.99,
		Quantity:       10,
		AlertThreshold: 2,
		LastEntryDate:  models.Date{Day: 1, Month: 1, Year: 2024},
		LastExitDate:   models.Date{Day: 1, Month: 1, Year: 2024},
	}
}

const sampleLine = "1,Widget,A nice gadget,alice,9.99,10,2,01/01/2024,01/01/2024"

func TestProductCodec(t *testing.T) {
	c := productCodec{}

	require.Equal(t, sampleLine, c.Encode(sampleProduct()))

	got, err := c.Decode(sampleLine)
	require.NoError(t, err)
	require.Equal(t, sampleProduct(), got)

	unpadded, err := c.Decode("1,Widget,A nice gadget,alice,9.99,10,2,1/1/2024,1/1/2024")
	require.NoError(t, err)
	require.Equal(t, sampleProduct(), unpadded)
}

func TestProductCodec_Rejects(t *testing.T) {
	c := productCodec{}

	bad := []string{
		stockHeader,
		"",
		"1,Widget,A nice gadget,alice,9.99,10,2,01/01/2024",
		"0,Widget,A nice gadget,alice,9.99,10,2,01/01/2024,01/01/2024",
		"65536,Widget,A nice gadget,alice,9.99,10,2,01/01/2024,01/01/2024",
		"1,Widget,A nice gadget,alice,cheap,10,2,01/01/2024,01/01/2024",
		"1,Widget,A nice gadget,alice,9.99,-1,2,01/01/2024,01/01/2024",
		"1,Widget,A nice gadget,alice,9.99,10,2,31/02/2024,01/01/2024",
		"1,Widget,A nice gadget,alice,9.99,10,2,01-01-2024,01/01/2024",
	}
	for _, line := range bad {
		_, err := c.Decode(line)
		require.ErrorIs(t, err, errors.ErrMalformedRecord, line)
	}
}

func TestUserCodec(t *testing.T) {
	c := userCodec{}
	u := models.User{
		Username:     "alice",
		PasswordHash: strings.Repeat("ab", 32),
		Salt:         "AbCdEfGh12345678",
	}

	got, err := c.Decode(c.Encode(u))
	require.NoError(t, err)
	require.Equal(t, u, got)

	_, err = c.Decode(usersHeader)
	require.ErrorIs(t, err, errors.ErrMalformedRecord)

	_, err = c.Decode("alice," + strings.Repeat("AB", 32) + ",AbCdEfGh12345678")
	require.ErrorIs(t, err, errors.ErrMalformedRecord)

	_, err = c.Decode("alice," + strings.Repeat("ab", 32) + ",short")
	require.ErrorIs(t, err, errors.ErrMalformedRecord)
}

func TestLockoutCodec(t *testing.T) {
	c := lockoutCodec{}
	s := models.LockoutState{FailedAttempts: 3, LockoutDuration: 60, LockoutStart: 1700000000}

	require.Equal(t, "3,60,1700000000", c.Encode(s))

	got, err := c.Decode(c.Encode(s))
	require.NoError(t, err)
	require.Equal(t, s, got)

	for _, line := range []string{lockoutHeader, "3,60", "x,60,0", "1,0,0", "1,30,-5"} {
		_, err := c.Decode(line)
		require.ErrorIs(t, err, errors.ErrMalformedRecord, line)
	}
}

func TestLockoutCodec_CapsDuration(t *testing.T) {
	st, err := lockoutCodec{}.Decode("3,9223372036854775807,5")
	require.NoError(t, err)
	require.Equal(t, models.MaxLockoutSeconds, st.LockoutDuration)
}
