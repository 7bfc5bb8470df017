package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amirk1998/stockkeeper/pkg/errors"
)

func TestValidateUsername(t *testing.T) {
	v := New()

	tests := []struct {
		username string
		ok       bool
	}{
		{"alice", true},
		{"bob_1", true},
		{"a_b_c", true},
		{"_ab_", true},
		{"abc", false},
		{"abcdefghijklmnopq", false},
		{"a__b", false},
		{"a_b_c_d", false},
		{"____", false},
		{"al ice", false},
		{"alice!", false},
		{"Ünïcode", false},
	}

	for _, tc := range tests {
		t.Run(tc.username, func(t *testing.T) {
			err := v.ValidateUsername(tc.username)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errors.ErrInvalidUsername)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	v := New()

	require.NoError(t, v.ValidatePassword("Secret1"))
	require.NoError(t, v.ValidatePassword("Aa1,; x"))
	require.ErrorIs(t, v.ValidatePassword("Ab1"), errors.ErrWeakPassword)
	require.ErrorIs(t, v.ValidatePassword("alllowercase1"), errors.ErrWeakPassword)
	require.ErrorIs(t, v.ValidatePassword("NoDigitsHere"), errors.ErrWeakPassword)
	require.ErrorIs(t, v.ValidatePassword("Aa1"+strings.Repeat("a", 34)), errors.ErrWeakPassword)
}

func TestValidateProductName(t *testing.T) {
	v := New()

	tests := []struct {
		name string
		ok   bool
	}{
		{"Widget", true},
		{"Blue Widget", true},
		{"X-1 Widget-2 b", true},
		{"Name", false},
		{"name", false},
		{"abc", false},
		{"a very long product", false},
		{"two  spaces", false},
		{"dash--dash", false},
		{"dash- space", false},
		{"a-b-c-d", false},
		{"a b c d", false},
		{"comma,name", false},
		{"- - ", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateProductName(tc.name)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errors.ErrInvalidProduct)
			require.Equal(t, errors.CodeValidation, errors.CodeOf(err))
		})
	}
}

func TestValidateDescription(t *testing.T) {
	v := New()

	require.NoError(t, v.ValidateDescription("A nice gadget"))
	require.Error(t, v.ValidateDescription("short"))
	require.Error(t, v.ValidateDescription("has, a comma"))
	require.Error(t, v.ValidateDescription("tab\tinside here"))
}

func TestNumericRules(t *testing.T) {
	v := New()

	require.NoError(t, v.ValidateUnitPrice(0.01))
	require.Error(t, v.ValidateUnitPrice(0))
	require.Error(t, v.ValidateUnitPrice(-3))

	require.NoError(t, v.ValidateQuantity(1))
	require.Error(t, v.ValidateQuantity(0))

	require.NoError(t, v.ValidateAlertThreshold(2, 10))
	require.Error(t, v.ValidateAlertThreshold(0, 10))
	require.Error(t, v.ValidateAlertThreshold(10, 10))
}

func TestParseUnitPrice(t *testing.T) {
	v := New()

	price, err := v.ParseUnitPrice(" 9.994 ")
	require.NoError(t, err)
	require.Equal(t, 9.99, price)

	_, err = v.ParseUnitPrice("abc")
	require.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = v.ParseUnitPrice("0.001")
	require.ErrorIs(t, err, errors.ErrInvalidProduct)
}

func TestParseCount(t *testing.T) {
	v := New()

	n, err := v.ParseCount("12")
	require.NoError(t, err)
	require.Equal(t, uint64(12), n)

	for _, in := range []string{"0", "-1", "1.5", ""} {
		_, err := v.ParseCount(in)
		require.ErrorIs(t, err, errors.ErrInvalidInput, in)
	}
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "abc", New().SanitizeString("  a\x00bc \n"))
}
