package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.Equal(t, []string{"item-selector", "line-item", "sales-order", "ship-to"}, c.Types())

	li, err := c.Form("line-item")
	require.NoError(t, err)
	require.True(t, li.AutoCloseOnSuccess)
	so, err := c.Form("sales-order")
	require.NoError(t, err)
	require.False(t, so.AutoCloseOnSuccess)

	_, err = c.Form("voucher")
	require.ErrorIs(t, err, ErrUnknownForm)
	require.Equal(t, "Voucher", c.Title("voucher", "Voucher"))
	require.Equal(t, "Select Item", c.Title("item-selector", "x"))

	require.NoError(t, NewValidator(c).Check())
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte("forms:\n  - type: a\n  - type: a\n"))
	require.Error(t, err)
	_, err = Parse([]byte("forms:\n  - title: nameless\n"))
	require.Error(t, err)
	_, err = Parse([]byte("forms:\n  - type: a\n    rules:\n      - field: x\n"))
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forms:\n  - type: voucher\n    title: Voucher\n"), 0o644))
	c, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"voucher"}, c.Types())

	c, err = LoadFile("")
	require.NoError(t, err)
	require.Len(t, c.Types(), 4)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateLineItem(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	v := NewValidator(c)

	errs, err := v.Validate("line-item", map[string]any{"itemNo": "FD-1001", "quantity": 2.0, "unitPrice": 1850.0})
	require.NoError(t, err)
	require.Nil(t, errs)

	errs, err = v.Validate("line-item", map[string]any{"quantity": 0})
	require.NoError(t, err)
	require.Equal(t, "item is required", errs["itemNo"])
	require.Equal(t, "quantity must be positive", errs["quantity"])
	_, priced := errs["unitPrice"]
	require.False(t, priced)
	require.True(t, strings.HasPrefix(errs.Error(), "validation failed: itemNo"))
}

func TestValidateGatedRules(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	v := NewValidator(c)

	errs, err := v.Validate("sales-order", map[string]any{"currentStep": 1})
	require.NoError(t, err)
	require.Nil(t, errs)

	errs, err = v.Validate("sales-order", map[string]any{"currentStep": 3, "customerNo": "C1", "lineItems": []any{}})
	require.NoError(t, err)
	require.Equal(t, ValidationErrors{"lineItems": "add at least one line"}, errs)

	errs, err = v.Validate("sales-order", map[string]any{"currentStep": 3, "customerNo": "C1", "lineItems": []any{map[string]any{"itemNo": "x"}}})
	require.NoError(t, err)
	require.Nil(t, errs)
}

func TestValidateUnknownAndBrokenRules(t *testing.T) {
	c, err := Parse([]byte("forms:\n  - type: bad\n    rules:\n      - field: x\n        expr: 'x +'\n"))
	require.NoError(t, err)
	v := NewValidator(c)
	require.Error(t, v.Check())
	_, err = v.Validate("bad", map[string]any{})
	require.Error(t, err)

	_, err = v.Validate("nope", nil)
	require.ErrorIs(t, err, ErrUnknownForm)
}
