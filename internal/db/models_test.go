package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketplaceValid(t *testing.T) {
	tests := []struct {
		marketplace Marketplace
		valid       bool
		validTag    bool
	}{
		{MarketplaceAmazon, true, true},
		{MarketplaceEbay, true, true},
		{MarketplaceEtsy, true, true},
		{MarketplaceGeneral, false, true},
		{Marketplace("walmart"), false, false},
		{Marketplace(""), false, false},
		{Marketplace("Amazon"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.marketplace), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.marketplace.Valid())
			assert.Equal(t, tt.validTag, tt.marketplace.ValidTag())
		})
	}
}

func TestParseMarketplace(t *testing.T) {
	m, err := ParseMarketplace("ebay")
	require.NoError(t, err)
	assert.Equal(t, MarketplaceEbay, m)

	m, err = ParseMarketplace("general")
	require.NoError(t, err)
	assert.Equal(t, MarketplaceGeneral, m)

	_, err = ParseMarketplace("alibaba")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidMarketplace))
}
