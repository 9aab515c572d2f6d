package fixedpoint

import (
	"math/big"
	"testing"
)

func TestMulDivTruncates(t *testing.T) {
	got, err := MulDiv(big.NewInt(7), big.NewInt(3), big.NewInt(2))
	if err != nil {
		t.Fatalf("mul_div: %v", err)
	}
	if got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected 10, got %s", got)
	}
}

func TestMulDivWideIntermediate(t *testing.T) {
	// price * amount routinely exceeds 64 bits; verify a product that would
	// overflow int64 survives via the 256-bit-wide intermediate.
	price := new(big.Int).Lsh(big.NewInt(1), 62)
	amount := big.NewInt(1_000_000)
	got, err := MulDiv(price, amount, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("mul_div: %v", err)
	}
	if got.Cmp(price) != 0 {
		t.Fatalf("expected %s, got %s", price, got)
	}
}

func TestMulDivDivByZero(t *testing.T) {
	if _, err := MulDiv(big.NewInt(1), big.NewInt(1), big.NewInt(0)); err != ErrArithmetic {
		t.Fatalf("expected ErrArithmetic, got %v", err)
	}
}

func TestMulDivNegativeSign(t *testing.T) {
	got, err := MulDiv(big.NewInt(-7), big.NewInt(3), big.NewInt(2))
	if err != nil {
		t.Fatalf("mul_div: %v", err)
	}
	if got.Cmp(big.NewInt(-10)) != 0 {
		t.Fatalf("expected -10, got %s", got)
	}
}

func TestCheckedAddOverflow(t *testing.T) {
	if _, err := CheckedAdd(Int128Max, big.NewInt(1)); err != ErrArithmetic {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestCheckedSubUnderflow(t *testing.T) {
	if _, err := CheckedSub(Int128Min, big.NewInt(1)); err != ErrArithmetic {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestBpsOf(t *testing.T) {
	got, err := BpsOf(big.NewInt(1_000_000), 11000)
	if err != nil {
		t.Fatalf("bps_of: %v", err)
	}
	if got.Cmp(big.NewInt(1_100_000)) != 0 {
		t.Fatalf("expected 1100000, got %s", got)
	}
}
