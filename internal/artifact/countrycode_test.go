package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapCountryResolvesAliases(t *testing.T) {
	cases := map[string]string{
		"US": "USA", "usa": "USA", "United States": "USA",
		"UK": "GBR", "Britain": "GBR",
		"France": "FRA",
	}
	for input, want := range cases {
		got, ok := MapCountry(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}
}

func TestMapCountryIsIdempotent(t *testing.T) {
	first, ok := MapCountry("United States")
	assert.True(t, ok)
	second, ok := MapCountry(first)
	assert.True(t, ok)
	assert.Equal(t, first, second)
}

func TestMapCountryUnknownIsUnmapped(t *testing.T) {
	_, ok := MapCountry("Narnia")
	assert.False(t, ok)
}

func TestSplitCountriesPartitionsDisjointAndCovers(t *testing.T) {
	mapped, skipped := SplitCountries([]string{"France", "Narnia", "US"})
	assert.Equal(t, []string{"FRA", "USA"}, mapped)
	assert.Equal(t, []string{"Narnia"}, skipped)
	assert.Equal(t, 3, len(mapped)+len(skipped))
}
